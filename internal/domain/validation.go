package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// Validation constants
const (
	MaxIDLength       = 64
	MaxGameNameLength = 255
	MaxNotesLength    = 1024
	DefaultPageSize   = 50
	MaxPageSize       = 500
)

var idRegex = regexp.MustCompile(`^[A-Za-z0-9_\-:.]+$`)

// ValidateGameID validates a game identifier.
func ValidateGameID(id string) error {
	if err := validateID(id); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidGameID, err.Error())
	}
	return nil
}

// ValidateUserID validates a user identifier.
func ValidateUserID(id string) error {
	if err := validateID(id); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidUserID, err.Error())
	}
	return nil
}

// ValidateSettlementID validates a settlement identifier.
func ValidateSettlementID(id string) error {
	if err := validateID(id); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSettlementID, err.Error())
	}
	return nil
}

func validateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("id cannot be empty")
	}

	if len(id) > MaxIDLength {
		return fmt.Errorf("id exceeds %d characters", MaxIDLength)
	}

	if !idRegex.MatchString(id) {
		return fmt.Errorf("id contains forbidden characters")
	}

	return nil
}

// ValidateGameName validates a game display name.
func ValidateGameName(name string) error {
	name = strings.TrimSpace(name)

	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidGameName)
	}

	if len(name) > MaxGameNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidGameName, MaxGameNameLength)
	}

	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
