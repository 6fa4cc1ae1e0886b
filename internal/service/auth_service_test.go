package service

import (
	"strings"
	"testing"
)

func TestValidatePasswordStrength(t *testing.T) {
	if err := validatePasswordStrength("Str0ng!Enough?"); err != nil {
		t.Fatalf("strong password rejected: %v", err)
	}

	err := validatePasswordStrength("weak")
	if !IsValidationError(err) {
		t.Fatalf("weak password must fail validation, got %v", err)
	}
	msg := err.Error()
	for _, requirement := range []string{
		"at least 12 characters",
		"uppercase letter",
		"digit",
		"special character",
	} {
		if !strings.Contains(msg, requirement) {
			t.Errorf("message %q missing requirement %q", msg, requirement)
		}
	}
}
