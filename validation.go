package goAuthClient

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	minUsernameLen = 3
	minPasswordLen = 6
)

// validator collects field errors through a chain of checks.
type validator struct {
	err ValidationError
}

func (v *validator) required(field, value string) *validator {
	if strings.TrimSpace(value) == "" {
		v.err.add(field, fmt.Sprintf("%s is required", field))
	}
	return v
}

func (v *validator) minLen(field, value string, min int) *validator {
	if value != "" && utf8.RuneCountInString(value) < min {
		v.err.add(field, fmt.Sprintf("%s must be at least %d characters", field, min))
	}
	return v
}

func (v *validator) email(field, value string) *validator {
	if value == "" {
		return v
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		v.err.add(field, "email must be a valid address")
	}
	return v
}

func (v *validator) equal(field, value, other, msg string) *validator {
	if value != other {
		v.err.add(field, msg)
	}
	return v
}

func (v *validator) result() error { return v.err.orNil() }

// ValidateLogin checks a login request before it is sent.
func ValidateLogin(req LoginRequest) error {
	v := &validator{}
	v.required("username", req.Username).
		required("password", req.Password)
	return v.result()
}

// ValidateRegister checks a registration request before it is sent:
// username of at least 3 characters, a valid email, a password of at least
// 6 characters, and a matching confirmation.
func ValidateRegister(req RegisterRequest) error {
	v := &validator{}
	v.required("username", req.Username).
		minLen("username", req.Username, minUsernameLen).
		required("email", req.Email).
		email("email", req.Email).
		required("password", req.Password).
		minLen("password", req.Password, minPasswordLen).
		equal("confirmPassword", req.ConfirmPassword, req.Password, "passwords do not match")
	return v.result()
}
