package domain

import (
	"fmt"
	"strings"
)

// Mode selects how an engine produces a ranking for a request.
type Mode int

const (
	// RealTime runs the full scoring pipeline for every request.
	RealTime Mode = iota

	// Precomputed serves a ranking stored by the background precompute
	// cycle and falls back to RealTime when none is cached.
	Precomputed
)

// String returns the canonical name of the mode.
func (m Mode) String() string {
	switch m {
	case RealTime:
		return "real-time"
	case Precomputed:
		return "precomputed"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Valid reports whether m is one of the declared modes.
func (m Mode) Valid() bool { return m == RealTime || m == Precomputed }

// ParseMode converts a mode name into a Mode. Matching ignores case and
// accepts "realtime" and "real_time" as aliases.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "real-time", "realtime", "real_time":
		return RealTime, nil
	case "precomputed", "pre-computed":
		return Precomputed, nil
	default:
		return RealTime, invalidArgument("unknown mode %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, invalidArgument("unknown mode %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
