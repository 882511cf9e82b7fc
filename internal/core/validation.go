package core

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Column scales: quantities are NUMERIC(14,3), money NUMERIC(14,2).
const (
	quantityScale int32 = 3
	moneyScale    int32 = 2
)

var validate = newValidator()

// exceedsScale reports whether d has more decimal places than the column keeps.
func exceedsScale(d decimal.Decimal, places int32) bool {
	return !d.Equal(d.Truncate(places))
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	// scale=N reads the original decimal from the parent struct; the type func
	// above has already turned the field into a float.
	_ = v.RegisterValidation("scale", func(fl validator.FieldLevel) bool {
		places, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		parent := reflect.Indirect(fl.Parent())
		if parent.Kind() != reflect.Struct {
			return true
		}
		field := reflect.Indirect(parent.FieldByName(fl.StructFieldName()))
		if !field.IsValid() {
			return true
		}
		d, ok := field.Interface().(decimal.Decimal)
		if !ok {
			return true
		}
		return !exceedsScale(d, int32(places))
	})
	return v
}

// validateRequest runs the struct tags and reports failures as ErrInvalidAmount.
func validateRequest(op string, req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%s: validate request: %w", op, err)
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Tag() == "scale" {
			parts = append(parts, fmt.Sprintf("%s must have at most %s decimal places", fe.Namespace(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s must be %s %s", fe.Namespace(), tagWord(fe.Tag()), fe.Param()))
	}
	return invalidAmount(op, "%s", strings.Join(parts, "; "))
}

func tagWord(tag string) string {
	switch tag {
	case "gt":
		return ">"
	case "gte":
		return ">="
	default:
		return tag
	}
}
