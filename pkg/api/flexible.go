package api

import (
	"strconv"

	json "github.com/goccy/go-json"
)

// The backend serializes most scalar fields as single-element arrays, but not
// consistently: the same field can arrive bare on one endpoint and wrapped on
// another. The Flex* types absorb both shapes at the decode boundary so the
// rest of the program only ever sees plain scalars ("first non-empty value
// wins"). Applying the normalization to an already-normalized value is a
// no-op.

// FlexString is a string that may arrive as "x", ["x"], or null.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		if len(arr) > 0 {
			*f = FlexString(arr[0])
		} else {
			*f = ""
		}
		return nil
	}
	// null, or an unexpected shape (e.g. a bare number): fall back to the
	// raw token so the value is not silently lost.
	if string(data) == "null" {
		*f = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexString(n.String())
		return nil
	}
	*f = ""
	return nil
}

func (f FlexString) String() string { return string(f) }

// FlexBool is a bool that may arrive as true, [true], "true", or null.
type FlexBool bool

func (f *FlexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = FlexBool(b)
		return nil
	}
	var arr []bool
	if err := json.Unmarshal(data, &arr); err == nil {
		*f = FlexBool(len(arr) > 0 && arr[0])
		return nil
	}
	var s FlexString
	if err := json.Unmarshal(data, &s); err == nil {
		v, perr := strconv.ParseBool(string(s))
		*f = FlexBool(perr == nil && v)
		return nil
	}
	*f = false
	return nil
}

func (f FlexBool) Bool() bool { return bool(f) }

// FlexFloat is a float64 that may arrive as 1.2, [1.2], "1.2", or null.
// The Valid flag distinguishes an absent value from a genuine zero.
type FlexFloat struct {
	Value float64
	Valid bool
}

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	f.Value, f.Valid = 0, false
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		f.Value, f.Valid = v, true
		return nil
	}
	var arr []float64
	if err := json.Unmarshal(data, &arr); err == nil {
		if len(arr) > 0 {
			f.Value, f.Valid = arr[0], true
		}
		return nil
	}
	var s FlexString
	if err := json.Unmarshal(data, &s); err == nil && s != "" {
		if v, perr := strconv.ParseFloat(string(s), 64); perr == nil {
			f.Value, f.Valid = v, true
		}
		return nil
	}
	return nil
}

// FlexStrings is a string list that may arrive as ["a","b"], "a", or null.
type FlexStrings []string

func (f *FlexStrings) UnmarshalJSON(data []byte) error {
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*f = arr
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" {
			*f = nil
		} else {
			*f = []string{s}
		}
		return nil
	}
	// Mixed arrays ([["a"], "b"]) show up on older backend versions.
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err == nil {
		out := make([]string, 0, len(raw))
		for _, r := range raw {
			var fs FlexString
			if err := fs.UnmarshalJSON(r); err == nil && fs != "" {
				out = append(out, string(fs))
			}
		}
		*f = out
		return nil
	}
	*f = nil
	return nil
}

// Strings returns the normalized slice (never nil for non-empty input).
func (f FlexStrings) Strings() []string { return []string(f) }
