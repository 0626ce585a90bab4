package validator

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError is a single field-level failure, surfaced to clients so
// forms can re-prompt with the offending field highlighted.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule"`
}

type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(ve))
	for i, e := range ve {
		parts[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validator wraps go-playground/validator with the domain rules.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	validate := validator.New()

	v := &Validator{validate: validate}
	v.registerRules()
	return v
}

// Validate runs struct-tag validation and returns ValidationErrors (nil on
// success) so callers can errors.As on the typed slice.
func (v *Validator) Validate(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		return toValidationErrors(err)
	}
	return nil
}

func (v *Validator) registerRules() {
	// Optional video reference must be an absolute http(s) URL.
	v.validate.RegisterValidation("video_url", func(fl validator.FieldLevel) bool {
		raw := fl.Field().String()
		if raw == "" {
			return true
		}
		u, err := url.Parse(raw)
		if err != nil {
			return false
		}
		return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
	})

	v.validate.RegisterValidation("role_name", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "admin", "manager", "staff":
			return true
		}
		return false
	})

	v.validate.RegisterValidation("document_category", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "policy", "guide", "form":
			return true
		}
		return false
	})
}

func toValidationErrors(err error) ValidationErrors {
	var out ValidationErrors

	fieldErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return ValidationErrors{{Field: "request", Message: err.Error(), Rule: "struct"}}
	}

	for _, fe := range fieldErrors {
		out = append(out, ValidationError{
			Field:   strings.ToLower(fe.Field()),
			Message: messageFor(fe),
			Value:   fe.Value(),
			Rule:    fe.Tag(),
		})
	}
	return out
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "len":
		return fmt.Sprintf("must contain exactly %s entries", fe.Param())
	case "video_url":
		return "must be an absolute http or https URL"
	case "role_name":
		return "must be one of admin, manager, staff"
	case "document_category":
		return "must be one of policy, guide, form"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
