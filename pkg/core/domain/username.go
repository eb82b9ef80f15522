package domain

import "regexp"

const (
	MinUsernameLength = 3
	MaxUsernameLength = 30

	reasonCharset = "Username can only contain letters, numbers, hyphens, and underscores."
	reasonLength  = "Username must be between 3 and 30 characters"
)

var usernameCharset = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// UsernameRecord maps a claimed username to its owner.
type UsernameRecord struct {
	PrincipalID string `json:"principal_id"`
	Username    string `json:"username"`
}

// Availability is the answer to "can this username be claimed".
type Availability struct {
	Available bool   `json:"available"`
	Error     string `json:"error,omitempty"`
}

// SetUsernameResult is returned by a claim or rename attempt.
type SetUsernameResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ValidateUsername checks the charset first and the length second, so each
// failure carries its own reason.
func ValidateUsername(candidate string) error {
	if !usernameCharset.MatchString(candidate) {
		return invalid("username", reasonCharset)
	}
	if len(candidate) < MinUsernameLength || len(candidate) > MaxUsernameLength {
		return invalid("username", reasonLength)
	}
	return nil
}
