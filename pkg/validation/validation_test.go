package validation

import (
	"testing"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

type sample struct {
	Email string `json:"email" validate:"required,email"`
	Qty   int    `json:"quantity" validate:"omitempty,gte=1"`
	Sort  string `json:"sort" validate:"omitempty,oneof=a b"`
	Name  string `validate:"required"`
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	err := Struct(&sample{Email: "nope", Qty: -1, Sort: "c"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("unexpected details type %T", typed.Details())
	}
	want := map[string]string{
		"email":    "must be a valid email",
		"quantity": "must be at least 1",
		"sort":     "must be one of a b",
		"Name":     "is required",
	}
	for field, msg := range want {
		if details[field] != msg {
			t.Fatalf("field %s: expected %q, got %q", field, msg, details[field])
		}
	}
}

func TestStructAcceptsValid(t *testing.T) {
	if err := Struct(&sample{Email: "a@b.co", Name: "x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
