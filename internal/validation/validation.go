package validation

import (
	"errors"
	"net/mail"
	"strings"
)

var (
	// ErrNameRequired is returned when a required name field is empty
	ErrNameRequired = errors.New("name is required")

	// ErrNameTooLong is returned when a name exceeds the maximum length
	ErrNameTooLong = errors.New("name must be at most 120 characters")

	// ErrTitleRequired is returned when a ticket title is empty
	ErrTitleRequired = errors.New("title is required")

	// ErrTitleTooLong is returned when a ticket title exceeds the maximum length
	ErrTitleTooLong = errors.New("title must be at most 200 characters")

	// ErrContentRequired is returned when a ticket or comment body is empty
	ErrContentRequired = errors.New("content is required")

	// ErrContentTooLong is returned when content exceeds the maximum length
	ErrContentTooLong = errors.New("content must be at most 10000 characters")

	// ErrInvalidEmail is returned when an email address fails RFC 5322 parsing
	ErrInvalidEmail = errors.New("invalid email address")
)

// ValidateOrgName validates an organization display name:
// non-empty after trimming, at most 120 characters.
func ValidateOrgName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameRequired
	}
	if len(name) > 120 {
		return ErrNameTooLong
	}
	return nil
}

// ValidateTicketTitle validates a ticket title:
// non-empty after trimming, at most 200 characters.
func ValidateTicketTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrTitleRequired
	}
	if len(title) > 200 {
		return ErrTitleTooLong
	}
	return nil
}

// ValidateContent validates ticket and comment bodies:
// non-empty after trimming, at most 10000 characters.
func ValidateContent(content string) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ErrContentRequired
	}
	if len(content) > 10000 {
		return ErrContentTooLong
	}
	return nil
}

// ValidateEmail validates an email address using net/mail
func ValidateEmail(email string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

// NormalizeEmail normalizes an email by lowercasing and trimming whitespace
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
