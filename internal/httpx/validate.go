// Package httpx holds request parsing, validation and error rendering shared
// by every HTTP handler.
package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/campus-pay/campus_pay/internal/ledger"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		_ = v.RegisterValidation("positive_decimal", func(fl validator.FieldLevel) bool {
			d, ok := fl.Field().Interface().(decimal.Decimal)
			return ok && ledger.ValidAmount(d)
		})
		validate = v
	})
	return validate
}

// ValidateStruct checks validator tags and returns the first violation in a
// client-friendly form.
func ValidateStruct(payload any) error {
	if err := getValidator().Struct(payload); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return describe(fieldErrs[0])
		}
		return err
	}
	return nil
}

// ValidateVar checks a single value against a tag, e.g. "email".
func ValidateVar(value any, tag string) error {
	return getValidator().Var(value, tag)
}

// ParseBody decodes the JSON body into payload and validates it. Failures
// come back as 400 fiber errors.
func ParseBody(c *fiber.Ctx, payload any) error {
	if err := c.BodyParser(payload); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	if err := ValidateStruct(payload); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func describe(fe validator.FieldError) error {
	field := toSnakeCase(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", field)
	case "min":
		return fmt.Errorf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Errorf("%s must be at most %s characters", field, fe.Param())
	case "email":
		return fmt.Errorf("%s must be a valid email", field)
	case "positive_decimal":
		return fmt.Errorf("%s must be a positive amount with at most %d decimal places", field, ledger.MoneyScale)
	case "oneof":
		return fmt.Errorf("%s must be one of [%s]", field, fe.Param())
	default:
		return fmt.Errorf("%s failed %s check", field, fe.Tag())
	}
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}
