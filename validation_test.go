package goAuthClient

import (
	"errors"
	"testing"
)

func TestValidateRegister(t *testing.T) {
	valid := RegisterRequest{
		Username:        "alice",
		Email:           "alice@example.com",
		Password:        "secret1",
		ConfirmPassword: "secret1",
	}

	tests := []struct {
		name   string
		mutate func(*RegisterRequest)
		field  string
	}{
		{"valid", func(*RegisterRequest) {}, ""},
		{"short username", func(r *RegisterRequest) { r.Username = "al" }, "username"},
		{"missing username", func(r *RegisterRequest) { r.Username = " " }, "username"},
		{"bad email", func(r *RegisterRequest) { r.Email = "alice-at-example" }, "email"},
		{"display name email", func(r *RegisterRequest) { r.Email = "Alice <alice@example.com>" }, "email"},
		{"short password", func(r *RegisterRequest) {
			r.Password = "abc"
			r.ConfirmPassword = "abc"
		}, "password"},
		{"mismatch", func(r *RegisterRequest) { r.ConfirmPassword = "secret2" }, "confirmPassword"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			err := ValidateRegister(req)
			if tt.field == "" {
				if err != nil {
					t.Fatalf("expected valid, got %v", err)
				}
				return
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			found := false
			for _, f := range ve.Fields {
				if f.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected failure on %s, got %+v", tt.field, ve.Fields)
			}
		})
	}
}

func TestValidateLoginRequiresBothFields(t *testing.T) {
	err := ValidateLogin(LoginRequest{})
	var ve *ValidationError
	if !errors.As(err, &ve) || len(ve.Fields) != 2 {
		t.Fatalf("expected two field errors, got %v", err)
	}
	if err.Error() != "username is required; password is required" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if ValidateLogin(LoginRequest{Username: "a", Password: "b"}) != nil {
		t.Fatal("login only checks presence")
	}
}
