package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Register custom validations
	registerCustomValidations()
}

func registerCustomValidations() {
	// Broadcast audience validation
	validate.RegisterValidation("audience", func(fl validator.FieldLevel) bool {
		audience := fl.Field().String()
		validAudiences := []string{"all", "riders", "customers", "admin"}
		for _, a := range validAudiences {
			if audience == a {
				return true
			}
		}
		return false
	})

	// Phone validation: digits with optional leading +, spaces and dashes
	validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		phone := fl.Field().String()
		if phone == "" {
			return true
		}
		digits := 0
		for i, r := range phone {
			switch {
			case r >= '0' && r <= '9':
				digits++
			case r == '+' && i == 0:
			case r == ' ' || r == '-':
			default:
				return false
			}
		}
		return digits >= 7 && digits <= 15
	})
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	errors := make(map[string]string)
	for _, err := range err.(validator.ValidationErrors) {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "email":
			errors[field] = "Invalid email format"
		case "min":
			errors[field] = "Value is too short (min: " + err.Param() + ")"
		case "max":
			errors[field] = "Value is too long (max: " + err.Param() + ")"
		case "gte":
			errors[field] = "Value must be at least " + err.Param()
		case "lte":
			errors[field] = "Value must be at most " + err.Param()
		case "url":
			errors[field] = "Invalid URL format"
		case "gt":
			errors[field] = "Value must be greater than " + err.Param()
		case "eqfield":
			errors[field] = "Value must match " + err.Param()
		case "audience":
			errors[field] = "Invalid audience. Must be: all, riders, customers, or admin"
		case "phone":
			errors[field] = "Invalid phone number"
		default:
			errors[field] = "Invalid value"
		}
	}

	return errors
}

// ValidateVar validates a single variable
func ValidateVar(field interface{}, tag string) error {
	return validate.Var(field, tag)
}
