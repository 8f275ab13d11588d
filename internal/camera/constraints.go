package camera

import (
	"fmt"
	"strings"
)

// FacingMode selects which physical camera a request prefers.
type FacingMode string

const (
	FacingUser        FacingMode = "user"
	FacingEnvironment FacingMode = "environment"
)

// ParseFacingMode accepts "user"/"environment" and the friendlier
// "front"/"rear"/"back" aliases.
func ParseFacingMode(value string) (FacingMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "user", "front":
		return FacingUser, nil
	case "environment", "rear", "back":
		return FacingEnvironment, nil
	default:
		return "", fmt.Errorf("unknown facing mode %q", value)
	}
}

// Label returns a short display label.
func (f FacingMode) Label() string {
	if f == FacingUser {
		return "front"
	}
	return "rear"
}

// Constraints describe a media request.
type Constraints struct {
	FacingMode FacingMode
	Audio      bool
}

// ConstraintsFor builds video-only constraints for the front-camera preference.
func ConstraintsFor(front bool) Constraints {
	facing := FacingEnvironment
	if front {
		facing = FacingUser
	}
	return Constraints{FacingMode: facing, Audio: false}
}
