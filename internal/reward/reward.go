package reward

import "math"

// #region stage-names
const (
	StageCenterline    = "centerline"
	StageSpeed         = "speed"
	StageProgress      = "progress"
	StageSteering      = "steering"
	StageTurn          = "turn"
	StageZigzag        = "zigzag"
	StageStraightBonus = "straight_bonus"
	StageLapCompletion = "lap_completion"
	StageOffTrack      = "off_track"
	StageFloor         = "floor"
)

// #endregion stage-names

// #region evaluate
// Evaluate scores one snapshot. It is pure and safe for concurrent use;
// the result is always >= MinReward.
func Evaluate(s Snapshot) float64 {
	return score(s, nil)
}

// Explain scores one snapshot and records the running reward after each stage.
// Breakdown.Reward is identical to Evaluate(s).
func Explain(s Snapshot) Breakdown {
	stages := make([]StageMetric, 0, 10)
	r := score(s, &stages)
	return Breakdown{Reward: r, Stages: stages}
}

// #endregion evaluate

// #region score
// score applies the stages in order. Multiplicative stages compound, so the
// order below must not change.
func score(s Snapshot, trace *[]StageMetric) float64 {
	record := func(name string, value float64, applied bool) {
		if trace != nil {
			*trace = append(*trace, StageMetric{Name: name, Value: value, Applied: applied})
		}
	}

	// 1. Centerline band
	var reward float64
	switch {
	case s.DistanceFromCenter <= 0.1*s.TrackWidth:
		reward = 1.0
	case s.DistanceFromCenter <= 0.25*s.TrackWidth:
		reward = 0.5
	case s.DistanceFromCenter <= 0.5*s.TrackWidth:
		reward = 0.1
	default:
		reward = MinReward
	}
	record(StageCenterline, reward, true)

	// 2. Speed, split on straight vs curve
	straight := s.OnStraight()
	applied := true
	if straight {
		switch {
		case s.Speed >= 3.5:
			reward *= 2.0
		case s.Speed >= 3.0:
			reward *= 1.5
		default:
			applied = false
		}
	} else {
		switch {
		case 2.0 <= s.Speed && s.Speed <= 3.0:
			reward *= 1.3
		case s.Speed > 3.5:
			reward *= 0.8
		default:
			applied = false
		}
	}
	record(StageSpeed, reward, applied)

	// 3. Progress per step, additive and capped at 1
	perStep := s.Progress / (float64(s.Steps) + progressEpsilon)
	reward += math.Min(perStep*10, 1.0)
	record(StageProgress, reward, true)

	// 4. Steering smoothness
	smooth := s.SmoothSteering()
	if smooth {
		reward *= 1.2
	} else {
		reward *= 0.8
	}
	record(StageSteering, reward, true)

	// 5. Turn handling; the rough-steering penalty stacks on stage 4
	applied = true
	switch {
	case !smooth:
		reward *= 0.8
	case s.IsLeftOfCenter && s.TrackHeading > s.Heading:
		reward *= 1.4
	case !s.IsLeftOfCenter && s.TrackHeading < s.Heading:
		reward *= 1.2
	default:
		applied = false
	}
	record(StageTurn, reward, applied)

	// 6. Zigzag at speed
	zigzag := abs(s.SteeringAngle) > zigzagSteering && s.Speed > 3.0
	if zigzag {
		reward *= 0.5
	}
	record(StageZigzag, reward, zigzag)

	// 7. Flat bonus for full speed on a straight
	bonus := straight && s.Speed >= 3.5
	if bonus {
		reward += 2.0
	}
	record(StageStraightBonus, reward, bonus)

	// 8. Lap completion. (TargetTime, 2*TargetTime] gets the flat bonus only.
	lap := s.LapComplete()
	if lap {
		reward += 30
		switch {
		case s.TimeElapsed <= TargetTime*0.75:
			reward += 70
		case s.TimeElapsed <= TargetTime:
			reward += 50
		case s.TimeElapsed > 2*TargetTime:
			reward -= 10
		}
	}
	record(StageLapCompletion, reward, lap)

	// 9. Off track discards everything above
	if !s.AllWheelsOnTrack {
		reward = math.Max(MinReward, MinReward*s.DistanceFromCenter)
	}
	record(StageOffTrack, reward, !s.AllWheelsOnTrack)

	// 10. Floor
	floored := reward < MinReward
	reward = math.Max(reward, MinReward)
	record(StageFloor, reward, floored)

	return reward
}

// #endregion score

// #region helpers
func abs(x float64) float64 {
	return math.Abs(x)
}

// #endregion helpers
