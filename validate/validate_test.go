package validate

import (
	"errors"
	"strings"
	"testing"

	"Soundbay/apperr"

	"github.com/shopspring/decimal"
)

type trackForm struct {
	Title string          `json:"title" validate:"required,min=2,max=120"`
	Price decimal.Decimal `json:"price" validate:"min=0.5,max=9999"`
	Email string          `json:"email" validate:"omitempty,email"`
}

func TestStructCombinesFieldErrors(t *testing.T) {
	err := Struct(trackForm{Title: "", Price: decimal.RequireFromString("0.1"), Email: "nope"})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	e, _ := apperr.As(err)
	lines := strings.Split(e.Message, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected one line per field, got %q", e.Message)
	}
	if lines[0] != "title is required" {
		t.Fatalf("unexpected first line %q", lines[0])
	}
	if lines[1] != "price must be at least 0.5" {
		t.Fatalf("unexpected price line %q", lines[1])
	}
}

func TestStructAcceptsValidInput(t *testing.T) {
	if err := Struct(trackForm{Title: "Баобаб", Price: decimal.RequireFromString("4.49")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
