package checkout

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/little-explorers/storefront/pkg/errors"
)

// CustomerDetails is the delivery form collected at checkout.
type CustomerDetails struct {
	FullName       string `json:"full_name" validate:"required,max=50"`
	Email          string `json:"email" validate:"required,email,max=254"`
	PhoneNumber    string `json:"phone_number" validate:"required,max=20"`
	Country        string `json:"country" validate:"required,max=40"`
	Postcode       string `json:"postcode" validate:"omitempty,max=20"`
	TownOrCity     string `json:"town_or_city" validate:"required,max=40"`
	StreetAddress1 string `json:"street_address1" validate:"required,max=80"`
	StreetAddress2 string `json:"street_address2" validate:"omitempty,max=80"`
	County         string `json:"county" validate:"omitempty,max=80"`
}

// Normalize trims every field in place.
func (c *CustomerDetails) Normalize() {
	c.FullName = strings.TrimSpace(c.FullName)
	c.Email = strings.TrimSpace(c.Email)
	c.PhoneNumber = strings.TrimSpace(c.PhoneNumber)
	c.Country = strings.TrimSpace(c.Country)
	c.Postcode = strings.TrimSpace(c.Postcode)
	c.TownOrCity = strings.TrimSpace(c.TownOrCity)
	c.StreetAddress1 = strings.TrimSpace(c.StreetAddress1)
	c.StreetAddress2 = strings.TrimSpace(c.StreetAddress2)
	c.County = strings.TrimSpace(c.County)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// ValidateCustomer normalizes details and returns a validation error keyed
// by form field when any field is missing or malformed.
func ValidateCustomer(details *CustomerDetails) error {
	if details == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer details are required")
	}
	details.Normalize()
	err := validate.Struct(details)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid customer details")
	}
	fields := map[string]string{}
	for _, fe := range errs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%d checkout field(s) invalid", len(fields))).WithDetails(map[string]any{
		"fields": fields,
	})
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "email":
		return "must be a valid email"
	}
	return "is invalid"
}
