package runconfig

import (
	"fmt"
	"regexp"
	"strconv"
)

// TimeUnit is the unit suffix of a training duration string.
type TimeUnit string

const (
	// UnitToken counts tokens seen, e.g. "725000000000tok".
	UnitToken TimeUnit = "tok"
	// UnitBatch counts optimizer batches, e.g. "2000ba".
	UnitBatch TimeUnit = "ba"
	// UnitEpoch counts dataset epochs, e.g. "1ep".
	UnitEpoch TimeUnit = "ep"
	// UnitSample counts samples, e.g. "100000sp".
	UnitSample TimeUnit = "sp"
	// UnitFraction is a fraction of max_duration in [0, 1], e.g. "0.06dur".
	UnitFraction TimeUnit = "dur"
)

// Duration is a point on the training clock: a value plus a time unit.
// Durations are parsed from strings like "3000000000tok", "2000ba", "1ep",
// "0.06dur". Only the fraction unit admits non-integer values.
type Duration struct {
	Value float64
	Unit  TimeUnit
}

var durationRe = regexp.MustCompile(`^([0-9]+(?:\.[0-9]+)?(?:[eE][+-]?[0-9]+)?)(tok|ba|ep|sp|dur)$`)

// ParseDuration parses a training duration string. A bare "0" is accepted and
// means zero tokens.
func ParseDuration(s string) (Duration, error) {
	if s == "0" {
		return Duration{Value: 0, Unit: UnitToken}, nil
	}

	m := durationRe.FindStringSubmatch(s)
	if m == nil {
		return Duration{}, fmt.Errorf("invalid duration %q: expected <number><tok|ba|ep|sp|dur>", s)
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Duration{}, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	unit := TimeUnit(m[2])

	if unit == UnitFraction {
		if value > 1 {
			return Duration{}, fmt.Errorf("invalid duration %q: dur fraction must be <= 1", s)
		}
	} else if value != float64(int64(value)) {
		return Duration{}, fmt.Errorf("invalid duration %q: %s counts must be integers", s, unit)
	}

	return Duration{Value: value, Unit: unit}, nil
}

// MustParseDuration is ParseDuration that panics on error. For tests and
// static defaults.
func MustParseDuration(s string) Duration {
	d, err := ParseDuration(s)
	if err != nil {
		panic(err)
	}
	return d
}

// String formats the duration back to its config representation.
func (d Duration) String() string {
	return strconv.FormatFloat(d.Value, 'f', -1, 64) + string(d.Unit)
}

// IsZero reports whether the duration is zero regardless of unit.
func (d Duration) IsZero() bool {
	return d.Value == 0
}

// Count returns the duration value as an integer count. It is only meaningful
// for the counting units (tok, ba, ep, sp).
func (d Duration) Count() int64 {
	return int64(d.Value)
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.String())), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return err
	}
	parsed, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
