package checkout

import (
	"strings"
	"testing"

	pkgerrors "github.com/little-explorers/storefront/pkg/errors"
)

func validDetails() CustomerDetails {
	return CustomerDetails{
		FullName:       "  Jo Bloggs ",
		Email:          "jo@example.com",
		PhoneNumber:    "0123456789",
		Country:        "IE",
		TownOrCity:     "Dublin",
		StreetAddress1: "1 Main Street",
	}
}

func TestValidateCustomer_Valid(t *testing.T) {
	d := validDetails()
	if err := ValidateCustomer(&d); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if d.FullName != "Jo Bloggs" {
		t.Fatalf("expected trimmed name, got %q", d.FullName)
	}
}

func TestValidateCustomer_FieldErrors(t *testing.T) {
	d := validDetails()
	d.Email = "not-an-email"
	d.TownOrCity = "   "
	d.Postcode = strings.Repeat("9", 21)

	err := ValidateCustomer(&d)
	if err == nil {
		t.Fatal("expected validation error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected details map, got %T", typed.Details())
	}
	fields, ok := details["fields"].(map[string]string)
	if !ok {
		t.Fatalf("expected fields map, got %T", details["fields"])
	}
	for _, name := range []string{"email", "town_or_city", "postcode"} {
		if _, ok := fields[name]; !ok {
			t.Fatalf("expected %s in field errors, got %v", name, fields)
		}
	}
	if fields["town_or_city"] != "is required" {
		t.Fatalf("unexpected message %q", fields["town_or_city"])
	}
}

func TestValidateCustomer_Nil(t *testing.T) {
	if err := ValidateCustomer(nil); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
