package utils

import (
	"errors"
	"strconv"
	"strings"
)

var (
	ErrEmptyTarget   = errors.New("target is required")
	ErrInvalidTarget = errors.New("target must be @username or a numeric id")
)

// Target is parsed operator input naming a counterparty: either a handle
// ("@name", resolved through the platform) or a numeric id.
type Target struct {
	Handle string
	ID     int64
}

// IsHandle reports whether the target still needs platform resolution.
func (t Target) IsHandle() bool { return t.Handle != "" }

func (t Target) String() string {
	if t.IsHandle() {
		return t.Handle
	}
	return strconv.FormatInt(t.ID, 10)
}

// ParseTarget validates operator input. Handles keep their leading "@";
// they must be 1-64 characters of letters, digits or underscore.
func ParseTarget(input string) (Target, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return Target{}, ErrEmptyTarget
	}
	if strings.HasPrefix(trimmed, "@") {
		name := trimmed[1:]
		if name == "" || len(name) > 64 {
			return Target{}, ErrInvalidTarget
		}
		for _, r := range name {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
				continue
			}
			return Target{}, ErrInvalidTarget
		}
		return Target{Handle: trimmed}, nil
	}
	id, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil || id == 0 {
		return Target{}, ErrInvalidTarget
	}
	return Target{ID: id}, nil
}
