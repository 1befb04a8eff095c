package services

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"
)

var (
	nameRe     = regexp.MustCompile(`^[a-zA-Z]+$`)
	usernameRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)
)

// splitName accepts a first name or "First Last".
func splitName(full string) (first, last string, err error) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 1:
		first = parts[0]
	case 2:
		first, last = parts[0], parts[1]
	default:
		return "", "", errors.New("Name must be a valid name or full name")
	}
	if err := validateName(first, "Name"); err != nil {
		return "", "", err
	}
	if last != "" {
		if err := validateName(last, "Last Name"); err != nil {
			return "", "", err
		}
	}
	return first, last, nil
}

func validateName(v, label string) error {
	if len(v) < 2 || len(v) > 25 {
		return errors.New(label + " must be between 2 and 25 characters long")
	}
	if !nameRe.MatchString(v) {
		return errors.New(label + " can only contain letters")
	}
	return nil
}

func validateUsername(v string) error {
	if len(v) < 2 || len(v) > 45 {
		return errors.New("Username must be between 2 and 45 characters long")
	}
	if !usernameRe.MatchString(v) {
		return errors.New("Username must start with a letter and contain only letters, numbers, underscores and hyphens")
	}
	return nil
}

func validateEmail(v string) error {
	addr, err := mail.ParseAddress(v)
	if err != nil || addr.Address != v {
		return errors.New("Email is not a valid email address")
	}
	return nil
}

func validatePassword(v string) error {
	if len(v) < 8 {
		return errors.New("Password must be at least 8 characters long")
	}
	return nil
}
