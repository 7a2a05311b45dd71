package reward

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// #region keys
// Parameter keys as sent by the simulation harness.
const (
	KeyTrackWidth         = "track_width"
	KeyDistanceFromCenter = "distance_from_center"
	KeySpeed              = "speed"
	KeyProgress           = "progress"
	KeySteps              = "steps"
	KeyAllWheelsOnTrack   = "all_wheels_on_track"
	KeySteeringAngle      = "steering_angle"
	KeyHeading            = "heading"
	KeyTrackHeading       = "track_heading"
	KeyTime               = "time"
	KeyIsLeftOfCenter     = "is_left_of_center"
)

// #endregion keys

// #region errors
var (
	// ErrMissingField is returned when a required parameter is absent or null.
	ErrMissingField = errors.New("missing required field")
	// ErrFieldType is returned when a parameter has the wrong kind of value.
	ErrFieldType = errors.New("invalid field type")
)

// #endregion errors

// #region params
// Params is the named-field mapping the harness supplies each step.
type Params map[string]any

// FromParams builds a Snapshot, filling optional fields with their defaults.
// Defaults apply only to absent (or null) keys; an explicit false stays false.
// steps must be a whole number.
func FromParams(p Params) (Snapshot, error) {
	d := paramDecoder{p: p}
	s := Snapshot{
		TrackWidth:         d.float(KeyTrackWidth, true, 0),
		DistanceFromCenter: d.float(KeyDistanceFromCenter, true, 0),
		Speed:              d.float(KeySpeed, true, 0),
		Progress:           d.float(KeyProgress, true, 0),
		Steps:              d.int(KeySteps, true, 0),
		AllWheelsOnTrack:   d.bool(KeyAllWheelsOnTrack, true, false),
		SteeringAngle:      d.float(KeySteeringAngle, false, 0),
		Heading:            d.float(KeyHeading, false, 0),
		TrackHeading:       d.float(KeyTrackHeading, false, 0),
		TimeElapsed:        d.float(KeyTime, false, 0),
		IsLeftOfCenter:     d.bool(KeyIsLeftOfCenter, false, true),
	}
	if d.err != nil {
		return Snapshot{}, d.err
	}
	return s, nil
}

// Params converts the snapshot back to the harness mapping.
func (s Snapshot) Params() Params {
	return Params{
		KeyTrackWidth:         s.TrackWidth,
		KeyDistanceFromCenter: s.DistanceFromCenter,
		KeySpeed:              s.Speed,
		KeyProgress:           s.Progress,
		KeySteps:              float64(s.Steps),
		KeyAllWheelsOnTrack:   s.AllWheelsOnTrack,
		KeySteeringAngle:      s.SteeringAngle,
		KeyHeading:            s.Heading,
		KeyTrackHeading:       s.TrackHeading,
		KeyTime:               s.TimeElapsed,
		KeyIsLeftOfCenter:     s.IsLeftOfCenter,
	}
}

// UnmarshalJSON decodes the harness mapping with the same defaults as FromParams.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var p Params
	if err := dec.Decode(&p); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	snap, err := FromParams(p)
	if err != nil {
		return err
	}
	*s = snap
	return nil
}

// #endregion params

// #region decoder
// paramDecoder keeps the first error so FromParams reads as one literal.
type paramDecoder struct {
	p   Params
	err error
}

func (d *paramDecoder) lookup(key string, required bool) (any, bool) {
	if d.err != nil {
		return nil, false
	}
	v, ok := d.p[key]
	if !ok || v == nil {
		if required {
			d.err = fmt.Errorf("%w: %s", ErrMissingField, key)
		}
		return nil, false
	}
	return v, true
}

func (d *paramDecoder) float(key string, required bool, fallback float64) float64 {
	v, ok := d.lookup(key, required)
	if !ok {
		return fallback
	}
	f, ok := toFloat(v)
	if !ok {
		d.err = fmt.Errorf("%w: %s is %T, want number", ErrFieldType, key, v)
		return fallback
	}
	return f
}

// int rejects fractional values rather than truncating them.
func (d *paramDecoder) int(key string, required bool, fallback int) int {
	v, ok := d.lookup(key, required)
	if !ok {
		return fallback
	}
	f, ok := toFloat(v)
	if !ok {
		d.err = fmt.Errorf("%w: %s is %T, want integer", ErrFieldType, key, v)
		return fallback
	}
	if f != math.Trunc(f) {
		d.err = fmt.Errorf("%w: %s is %v, want integer", ErrFieldType, key, f)
		return fallback
	}
	return int(f)
}

func (d *paramDecoder) bool(key string, required bool, fallback bool) bool {
	v, ok := d.lookup(key, required)
	if !ok {
		return fallback
	}
	b, ok := v.(bool)
	if !ok {
		d.err = fmt.Errorf("%w: %s is %T, want bool", ErrFieldType, key, v)
		return fallback
	}
	return b
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// #endregion decoder
