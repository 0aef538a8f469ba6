package internal

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var choiceTypes = map[string]bool{
	"TEXT_ONLY":       true,
	"TEXT_WITH_IMAGE": true,
	"IMAGE_ONLY":      true,
}

func NewValidator() *validator.Validate {
	v := validator.New()

	_ = v.RegisterValidation("choice_type", func(fl validator.FieldLevel) bool {
		return choiceTypes[fl.Field().String()]
	})

	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	return v
}

func ValidateStruct(v *validator.Validate, s interface{}) error {
	err := v.Struct(s)
	if err != nil {
		return err
	}
	return nil
}
