package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/amachi/voicedeck/internal/infrastructure/validate"
)

// User is a lightweight identity for participants. Anonymous guests get
// a generated uid; authenticated clients bring their own.
type User struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	IsAnonymous bool      `json:"isAnonymous"`
	Joined      time.Time `json:"joined"`
}

func NewUser(rawName string) (*User, error) {
	validateUsername := validate.Compose(
		validate.Required(),
		validate.MinLength(2),
		validate.MaxLength(32),
		validate.NoSpaces(),
		// Allow letters, numbers, underscore, hyphen
		validate.Matches(`^[a-zA-Z0-9][a-zA-Z0-9_-]*[a-zA-Z0-9]$|^[a-zA-Z0-9]$`,
			"username can only contain letters, numbers, underscores, and hyphens (cannot start/end with _ or -)"),
	)

	if err := validateUsername(rawName); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(rawName)

	return &User{
		ID:          uuid.NewString(),
		Username:    strings.ToLower(name),
		DisplayName: name,
		IsAnonymous: true,
		Joined:      time.Now(),
	}, nil
}
