package travel

import (
	"bytes"
	"fmt"
)

// TriState is a three-valued boolean used where data sources may simply not
// know: an attraction's indoor flag, a venue's kid-friendliness. The zero
// value is Unknown so absent data never masquerades as a definite answer.
//
// TriState marshals to JSON true, false, or null and unmarshals the reverse.
type TriState int8

const (
	// Unknown indicates the value was not provided by any source.
	Unknown TriState = iota
	// Yes is the affirmative case.
	Yes
	// No is the negative case.
	No
)

var (
	jsonTrue  = []byte("true")
	jsonFalse = []byte("false")
	jsonNull  = []byte("null")
)

// TriFromBool converts a definite boolean into a TriState.
func TriFromBool(b bool) TriState {
	if b {
		return Yes
	}
	return No
}

// TriFromBoolPtr converts an optional boolean into a TriState, mapping nil to
// Unknown.
func TriFromBoolPtr(p *bool) TriState {
	if p == nil {
		return Unknown
	}
	return TriFromBool(*p)
}

// Known reports whether the value is Yes or No.
func (t TriState) Known() bool { return t == Yes || t == No }

// Bool returns the boolean value and whether it is known. Unknown returns
// (false, false).
func (t TriState) Bool() (value, known bool) {
	switch t {
	case Yes:
		return true, true
	case No:
		return false, true
	default:
		return false, false
	}
}

// String returns "yes", "no", or "unknown".
func (t TriState) String() string {
	switch t {
	case Yes:
		return "yes"
	case No:
		return "no"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes Yes as true, No as false, and Unknown as null.
func (t TriState) MarshalJSON() ([]byte, error) {
	switch t {
	case Yes:
		return jsonTrue, nil
	case No:
		return jsonFalse, nil
	default:
		return jsonNull, nil
	}
}

// UnmarshalJSON decodes true, false, or null. Any other token is an error.
func (t *TriState) UnmarshalJSON(data []byte) error {
	switch {
	case bytes.Equal(data, jsonTrue):
		*t = Yes
	case bytes.Equal(data, jsonFalse):
		*t = No
	case bytes.Equal(data, jsonNull):
		*t = Unknown
	default:
		return fmt.Errorf("invalid tri-state value %q", string(data))
	}
	return nil
}
