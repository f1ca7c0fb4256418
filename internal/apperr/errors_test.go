package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindSurvivesWrapping(t *testing.T) {
	base := Validation("participants[0].user_id", "must not be blank")
	wrapped := fmt.Errorf("create expense: %w", base)

	if !IsValidation(wrapped) {
		t.Fatalf("IsValidation(%v) = false, want true", wrapped)
	}
	if IsConfiguration(wrapped) {
		t.Errorf("IsConfiguration(%v) = true, want false", wrapped)
	}
	if got := wrapped.Error(); got != "create expense: participants[0].user_id: must not be blank" {
		t.Errorf("Error() = %q", got)
	}
}

func TestConfigurationUnwrap(t *testing.T) {
	cause := errors.New("category 42 not found")
	err := Configuration("invalid budget scope", cause)

	if !errors.Is(err, cause) {
		t.Errorf("errors.Is(err, cause) = false, want true")
	}
	if kind, ok := KindOf(err); !ok || kind != KindConfiguration {
		t.Errorf("KindOf = %q, %v; want %q, true", kind, ok, KindConfiguration)
	}
}

func TestKindOfPlainError(t *testing.T) {
	if _, ok := KindOf(errors.New("boom")); ok {
		t.Error("KindOf(plain error) reported a kind")
	}
	if IsArithmetic(nil) {
		t.Error("IsArithmetic(nil) = true")
	}
}
