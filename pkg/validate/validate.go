// Package validate runs go-playground/validator struct tags and turns the
// result into a field → message map suitable for a 422 response.
//
//	type VariantInput struct {
//	    Size     string  `json:"size"     validate:"required_without=Color"`
//	    Price    float64 `json:"price"    validate:"gt=0"`
//	    Quantity int     `json:"quantity" validate:"gte=0"`
//	}
//
// Field names in the map follow the json tags, nested paths included
// ("variants[0].price"). Besides the built-in rules, "objectid" checks for a
// 24 hex character Mongo id.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	once sync.Once
	v    *validator.Validate
)

func engine() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
			return primitive.IsValidObjectID(fl.Field().String())
		})
	})
	return v
}

// Struct validates s and returns a map of field → message. An empty map
// means s is valid.
func Struct(s any) map[string]string {
	errs := make(map[string]string)

	err := engine().Struct(s)
	if err == nil {
		return errs
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// InvalidValidationError: s was not a struct. Nothing to report.
		return errs
	}

	for _, fe := range verrs {
		field := fieldPath(fe)
		if _, seen := errs[field]; !seen {
			errs[field] = message(fe)
		}
	}
	return errs
}

// Var validates a single value against tag, e.g. Var(email, "required,email").
func Var(value any, tag string) error {
	return engine().Var(value, tag)
}

// HasErrors reports whether errs is non-empty.
func HasErrors(errs map[string]string) bool { return len(errs) > 0 }

// fieldPath strips the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	name := fe.Field()
	p := fe.Param()

	switch fe.Tag() {
	case "required", "required_with", "required_without":
		return fmt.Sprintf("The %s field is required.", name)
	case "email":
		return fmt.Sprintf("The %s must be a valid email address.", name)
	case "objectid":
		return fmt.Sprintf("The %s must be a valid id.", name)
	case "oneof":
		return fmt.Sprintf("The %s must be one of: %s.", name, strings.ReplaceAll(p, " ", ", "))
	case "min":
		if isString(fe) {
			return fmt.Sprintf("The %s must be at least %s characters.", name, p)
		}
		return fmt.Sprintf("The %s must be at least %s.", name, p)
	case "max":
		if isString(fe) {
			return fmt.Sprintf("The %s may not be greater than %s characters.", name, p)
		}
		return fmt.Sprintf("The %s may not be greater than %s.", name, p)
	case "len":
		return fmt.Sprintf("The %s must be %s characters.", name, p)
	case "gt":
		return fmt.Sprintf("The %s must be greater than %s.", name, p)
	case "gte":
		return fmt.Sprintf("The %s must be at least %s.", name, p)
	case "lt":
		return fmt.Sprintf("The %s must be less than %s.", name, p)
	case "lte":
		return fmt.Sprintf("The %s may not be greater than %s.", name, p)
	case "alphanum":
		return fmt.Sprintf("The %s may only contain letters and numbers.", name)
	case "numeric", "number":
		return fmt.Sprintf("The %s must be a number.", name)
	case "url":
		return fmt.Sprintf("The %s must be a valid URL.", name)
	}
	return fmt.Sprintf("The %s field is invalid (%s).", name, fe.Tag())
}

func isString(fe validator.FieldError) bool {
	return fe.Kind() == reflect.String
}
