package util

import (
	"fmt"
	"regexp"
)

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)

// ValidateUsername checks the username format (3-20 chars, letters, digits,
// underscore).
func ValidateUsername(username string) error {
	if !usernameRe.MatchString(username) {
		return fmt.Errorf("username must be 3-20 letters, digits or underscores")
	}
	return nil
}

// ValidatePassword checks password strength: 8-32 chars with upper, lower
// and digit.
func ValidatePassword(pwd string) error {
	if len(pwd) < 8 || len(pwd) > 32 {
		return fmt.Errorf("password must be 8-32 characters")
	}
	var hasUpper, hasLower, hasDigit bool
	for _, ch := range pwd {
		switch {
		case ch >= 'A' && ch <= 'Z':
			hasUpper = true
		case ch >= 'a' && ch <= 'z':
			hasLower = true
		case ch >= '0' && ch <= '9':
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return fmt.Errorf("password needs upper, lower and digit characters")
	}
	return nil
}

// ValidatePostContent checks that post content is non-empty and within the
// length limit.
func ValidatePostContent(content string) error {
	if content == "" {
		return fmt.Errorf("content is empty")
	}
	if len(content) > 500 {
		return fmt.Errorf("content too long, max 500 characters")
	}
	return nil
}
