package reward

// #region constants
const (
	// MinReward is the floor every evaluation is clamped to.
	MinReward = 1e-3

	// TargetTime is the reference lap time in seconds.
	TargetTime = 12.0

	straightHeadingDelta = 5.0  // degrees
	smoothSteering       = 10.0 // degrees
	zigzagSteering       = 20.0 // degrees
	progressEpsilon      = 1e-3
)

// #endregion constants

// #region snapshot
// Snapshot is the vehicle/track state at a single simulation step.
// Degree fields are compared as given; callers normalize them.
type Snapshot struct {
	TrackWidth         float64 `json:"track_width"`
	DistanceFromCenter float64 `json:"distance_from_center"`
	Speed              float64 `json:"speed"`
	Progress           float64 `json:"progress"` // 0-100
	Steps              int     `json:"steps"`
	AllWheelsOnTrack   bool    `json:"all_wheels_on_track"`
	SteeringAngle      float64 `json:"steering_angle"`
	Heading            float64 `json:"heading"`
	TrackHeading       float64 `json:"track_heading"`
	TimeElapsed        float64 `json:"time"`
	IsLeftOfCenter     bool    `json:"is_left_of_center"`
}

// OnStraight reports whether the car heading is within 5 degrees of the track heading.
func (s Snapshot) OnStraight() bool {
	return abs(s.TrackHeading-s.Heading) < straightHeadingDelta
}

// SmoothSteering reports whether the steering angle is under 10 degrees either way.
func (s Snapshot) SmoothSteering() bool {
	return abs(s.SteeringAngle) < smoothSteering
}

// LapComplete reports whether progress is exactly 100.
func (s Snapshot) LapComplete() bool {
	return s.Progress == 100
}

// #endregion snapshot

// #region stage-metric
// StageMetric captures the running reward after one scoring stage.
type StageMetric struct {
	Name    string  `json:"name"`
	Value   float64 `json:"value"`
	Applied bool    `json:"applied"` // false when the stage left the reward unchanged by rule
}

// #endregion stage-metric

// #region breakdown
// Breakdown is the output of Explain: the final reward plus the per-stage trace.
type Breakdown struct {
	Reward float64       `json:"reward"`
	Stages []StageMetric `json:"stages"`
}

// Stage returns the named stage metric, if it was recorded.
func (b Breakdown) Stage(name string) (StageMetric, bool) {
	for _, m := range b.Stages {
		if m.Name == name {
			return m, true
		}
	}
	return StageMetric{}, false
}

// #endregion breakdown
