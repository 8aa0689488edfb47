package session

import (
	"testing"

	apperrors "github.com/xperiencelabs/archat/internal/errors"
)

func TestStoreLifecycle(t *testing.T) {
	store := NewStore()

	if store.IsInitialized() {
		t.Fatal("new store should not be initialized")
	}
	if id, ok := store.Get(); ok || id != "" {
		t.Fatalf("Get() = (%q, %v), want empty", id, ok)
	}

	if err := store.Set("abc-123"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if id, ok := store.Get(); !ok || id != "abc-123" {
		t.Errorf("Get() = (%q, %v), want (abc-123, true)", id, ok)
	}

	if err := store.Set("rotated"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if id, _ := store.Get(); id != "rotated" {
		t.Errorf("Get() = %q, want rotated", id)
	}

	store.Reset()
	if store.IsInitialized() {
		t.Error("store should be empty after Reset")
	}
}

func TestSetEmptyIsRejected(t *testing.T) {
	store := NewStore()
	if err := store.Set("existing"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	err := store.Set("")
	if err == nil {
		t.Fatal("Set(\"\") should fail")
	}
	if !apperrors.IsType(err, apperrors.ErrorTypeState) {
		t.Errorf("expected state error, got %v", err)
	}
	if apperrors.ReasonOf(err) != apperrors.ReasonEmptySessionID {
		t.Errorf("ReasonOf() = %q, want %q", apperrors.ReasonOf(err), apperrors.ReasonEmptySessionID)
	}
	if id, _ := store.Get(); id != "existing" {
		t.Errorf("failed Set must not change the id, got %q", id)
	}
}
