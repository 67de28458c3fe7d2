package oto

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var payloadValidator = newPayloadValidator()

func newPayloadValidator() *validator.Validate {
	v := validator.New()

	// Report fields by their wire name so messages match what callers send.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		const maxSplits = 2
		name := strings.SplitN(fld.Tag.Get("json"), ",", maxSplits)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return v
}

// validatePayload checks s against its validate tags and returns a
// ValidationError naming the first failing field, in declaration order.
func validatePayload(s any) error {
	err := payloadValidator.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return NewValidationError("", err.Error())
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return requiredFieldError(fe.Field())
	case "gt":
		return NewValidationError(fe.Field(),
			fmt.Sprintf("'%s' field must be greater than %s", fe.Field(), fe.Param()))
	default:
		return NewValidationError(fe.Field(),
			fmt.Sprintf("'%s' field failed validation on '%s'", fe.Field(), fe.Tag()))
	}
}

func requireNonEmpty(field, value string) error {
	if value == "" {
		return requiredFieldError(field)
	}
	return nil
}
