package ml

import (
	"errors"
	"testing"
)

func TestLabelEncoderTransform(t *testing.T) {
	encoder, err := NewLabelEncoder([]string{"F", "M"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	code, err := encoder.Transform("M")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != 1 {
		t.Fatalf("expected code 1, got %d", code)
	}
	class, err := encoder.InverseTransform(code)
	if err != nil || class != "M" {
		t.Fatalf("expected M, got %q (%v)", class, err)
	}
	if _, err := encoder.InverseTransform(2); err == nil {
		t.Fatal("expected error for out of range code")
	}
}

func TestEncoderSetUnknownCategory(t *testing.T) {
	set, err := NewEncoderSet(map[string][]string{
		"occupation_type": {"Accountants", "Laborers"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = set.Transform("occupation_type", "Astronauts")
	var unknown *UnknownCategoryError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownCategoryError, got %v", err)
	}
	if unknown.Field != "occupation_type" || unknown.Value != "Astronauts" {
		t.Fatalf("unexpected error detail: %+v", unknown)
	}

	if _, err := set.Transform("gender", "F"); err == nil {
		t.Fatal("expected error for field without encoder")
	}
}

func TestNewLabelEncoderRejectsDuplicates(t *testing.T) {
	if _, err := NewLabelEncoder([]string{"Y", "Y"}); err == nil {
		t.Fatal("expected error for duplicate class")
	}
	if _, err := NewLabelEncoder(nil); err == nil {
		t.Fatal("expected error for empty encoder")
	}
}
