package models

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("priority", func(fl validator.FieldLevel) bool {
		return ValidPriority(fl.Field().String())
	})
	_ = v.RegisterValidation("changefreq", func(fl validator.FieldLevel) bool {
		return slices.Contains(ChangeFrequencies, fl.Field().String())
	})
	return v
}

// ValidPriority reports whether s is a decimal in [0.1, 1.0].
func ValidPriority(s string) bool {
	p, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return false
	}
	return p >= 0.1 && p <= 1.0
}

// Validate checks v (a model struct or pointer to one) against its tags.
// The returned error lists the offending fields.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid fields: %s", strings.Join(fields, ", "))
}
