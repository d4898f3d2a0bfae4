package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/skundu/blood-market/internal/domain"
)

func TestSignupValidation(t *testing.T) {
	svc := NewService(nil, nil)

	base := SignupInput{
		Role:     domain.RoleCustomer,
		FullName: "City Hospital",
		Email:    "purchasing@cityhospital.example",
		Phone:    "+919876543210",
		Password: "s3cret-pass",
		Confirm:  "s3cret-pass",
	}

	cases := []struct {
		name   string
		mutate func(*SignupInput)
	}{
		{"admin role rejected", func(in *SignupInput) { in.Role = domain.RoleAdmin }},
		{"unknown role rejected", func(in *SignupInput) { in.Role = "donor" }},
		{"missing name", func(in *SignupInput) { in.FullName = "  " }},
		{"missing email", func(in *SignupInput) { in.Email = "" }},
		{"password mismatch", func(in *SignupInput) { in.Confirm = "different" }},
		{"malformed email", func(in *SignupInput) { in.Email = "not-an-email" }},
		{"phone without country code", func(in *SignupInput) { in.Phone = "9876543210" }},
		{"phone with letters", func(in *SignupInput) { in.Phone = "+91abc543210" }},
		{"phone too short", func(in *SignupInput) { in.Phone = "+9198" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := base
			tc.mutate(&in)

			_, err := svc.Signup(context.Background(), in)
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestLoginRejectsEmptyCredentials(t *testing.T) {
	svc := NewService(nil, nil)

	_, _, err := svc.Login(context.Background(), "", "")
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	if hash == "s3cret-pass" {
		t.Fatal("hash must not equal the plaintext password")
	}

	if !VerifyPassword("s3cret-pass", hash) {
		t.Error("expected correct password to verify")
	}
	if VerifyPassword("wrong-pass", hash) {
		t.Error("expected wrong password to fail verification")
	}
}
