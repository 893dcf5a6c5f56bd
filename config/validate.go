package config

import (
	"fmt"
	"sync"

	validatorV10 "github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validatorV10.Validate
)

func validatorInstance() *validatorV10.Validate {
	validateOnce.Do(func() {
		validate = validatorV10.New(validatorV10.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks struct fields against their `validate` tags. Plugins run
// this on their option structs before starting.
func Validate(instance any) error {
	err := validatorInstance().Struct(instance)
	if err == nil {
		return nil
	}

	if verrs, ok := err.(validatorV10.ValidationErrors); ok && len(verrs) > 0 {
		ve := verrs[0]
		return fmt.Errorf("config: field %s failed rule %q (value %v)",
			ve.Field(), ve.Tag(), ve.Value())
	}
	return fmt.Errorf("config: validation failed: %w", err)
}
