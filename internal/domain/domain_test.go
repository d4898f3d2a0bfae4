package domain

import (
	"errors"
	"testing"
	"time"
)

func TestActorIs(t *testing.T) {
	t.Run("matching role passes", func(t *testing.T) {
		a := Actor{UserID: 1, Role: RoleCustomer}
		if !a.Is(RoleCustomer) {
			t.Error("expected customer to pass customer check")
		}
	})

	t.Run("mismatched role fails", func(t *testing.T) {
		a := Actor{UserID: 1, Role: RoleCustomer}
		if a.Is(RoleRetailer) {
			t.Error("expected customer to fail retailer check")
		}
	})

	t.Run("admin passes every check", func(t *testing.T) {
		a := Actor{UserID: 1, Role: RoleAdmin}
		for _, role := range []Role{RoleCustomer, RoleRetailer, RoleAdmin} {
			if !a.Is(role) {
				t.Errorf("expected admin to pass %s check", role)
			}
		}
	})
}

func TestBatchExpiry(t *testing.T) {
	collected := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	expiry := BatchExpiry(collected)

	want := collected.AddDate(0, 0, 35)
	if !expiry.Equal(want) {
		t.Errorf("expected expiry %s, got %s", want, expiry)
	}
}

func TestErrors(t *testing.T) {
	t.Run("validation message", func(t *testing.T) {
		err := Validationf("quantity must be at least %d", 50)
		if err.Error() != "quantity must be at least 50" {
			t.Errorf("unexpected message: %s", err.Error())
		}
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Error("expected error to be a ValidationError")
		}
	})

	t.Run("persistence wraps cause", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := Persistence("insert order", cause)
		if !errors.Is(err, cause) {
			t.Error("expected wrapped cause to be reachable with errors.Is")
		}
	})
}
