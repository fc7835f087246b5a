package validate_test

import (
	"testing"

	"github.com/shashiranjanraj/storefront/pkg/validate"
)

type variantInput struct {
	Size     string  `json:"size"     validate:"required_without=Color"`
	Color    string  `json:"color"`
	Price    float64 `json:"price"    validate:"gt=0"`
	Quantity int     `json:"quantity" validate:"gte=0"`
}

type productInput struct {
	Name     string         `json:"name"     validate:"required,min=2,max=120"`
	Variants []variantInput `json:"variants" validate:"required,min=1,dive"`
}

type reviewInput struct {
	ProductID string `json:"productId" validate:"required,objectid"`
	Rating    int    `json:"rating"    validate:"required,min=1,max=5"`
	Vote      string `json:"vote"      validate:"omitempty,oneof=helpful notHelpful"`
	Email     string `json:"email"     validate:"omitempty,email"`
}

func TestValidInput(t *testing.T) {
	errs := validate.Struct(productInput{
		Name:     "Linen shirt",
		Variants: []variantInput{{Size: "M", Color: "Red", Price: 100, Quantity: 10}},
	})
	if validate.HasErrors(errs) {
		t.Errorf("expected no errors, got: %v", errs)
	}
}

func TestVariantNeedsSizeOrColor(t *testing.T) {
	errs := validate.Struct(productInput{
		Name:     "Linen shirt",
		Variants: []variantInput{{Price: 100, Quantity: 1}},
	})
	if _, ok := errs["variants[0].size"]; !ok {
		t.Errorf("expected nested size error, got: %v", errs)
	}
}

func TestColorAloneIsEnough(t *testing.T) {
	errs := validate.Struct(variantInput{Color: "Blue", Price: 10})
	if validate.HasErrors(errs) {
		t.Errorf("expected no errors, got: %v", errs)
	}
}

func TestRequiredAndRanges(t *testing.T) {
	errs := validate.Struct(reviewInput{ProductID: "nope", Rating: 9, Vote: "meh", Email: "x"})

	for _, field := range []string{"productId", "rating", "vote", "email"} {
		if _, ok := errs[field]; !ok {
			t.Errorf("expected error for %s, got: %v", field, errs)
		}
	}
	if errs["productId"] != "The productId must be a valid id." {
		t.Errorf("unexpected message: %q", errs["productId"])
	}
}

func TestEmptyVariants(t *testing.T) {
	errs := validate.Struct(productInput{Name: "Mug"})
	if errs["variants"] == "" {
		t.Errorf("expected variants error, got: %v", errs)
	}
}

func TestNonStructIsIgnored(t *testing.T) {
	if validate.HasErrors(validate.Struct(42)) {
		t.Error("non-struct should yield no errors")
	}
}

func TestVar(t *testing.T) {
	if err := validate.Var("shopper@example.com", "required,email"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := validate.Var("not-an-email", "email"); err == nil {
		t.Error("expected email error")
	}
}
