package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Arnav10090/Customer-web-portal/internal/apperrors"
	"github.com/Arnav10090/Customer-web-portal/internal/models"
	"github.com/Arnav10090/Customer-web-portal/internal/utils"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("in_phone", func(fl validator.FieldLevel) bool {
		return utils.IsValidPhone(fl.Field().String())
	})
	_ = v.RegisterValidation("aadhar", func(fl validator.FieldLevel) bool {
		return utils.IsValidNationalID(fl.Field().String())
	})
	_ = v.RegisterValidation("plate", func(fl validator.FieldLevel) bool {
		return utils.IsValidPlate(fl.Field().String())
	})
	_ = v.RegisterValidation("lang", func(fl validator.FieldLevel) bool {
		_, ok := models.SupportedLanguages[fl.Field().String()]
		return ok
	})
	_ = v.RegisterValidation("identity_role", func(fl validator.FieldLevel) bool {
		return models.IsValidRole(models.IdentityRole(fl.Field().String()))
	})
	return v
}

var fieldMessages = map[string]string{
	"in_phone":      "телефон должен быть в формате +91XXXXXXXXXX",
	"aadhar":        "номер Aadhar должен содержать 12 цифр",
	"plate":         "госномер может содержать только латинские буквы, цифры, пробелы и дефисы",
	"lang":          "неподдерживаемый язык",
	"identity_role": "роль должна быть Driver или Helper",
	"required":      "обязательное поле",
	"email":         "некорректный email",
	"max":           "слишком длинное значение",
}

// validateStruct проверяет структуру и переводит ошибки валидатора в ValidationFailure
func validateStruct(prefix string, s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.Wrap(apperrors.KindValidation, "некорректные данные", err)
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg, ok := fieldMessages[fe.Tag()]
		if !ok {
			msg = "некорректное значение"
		}
		parts = append(parts, fmt.Sprintf("%s%s: %s", prefix, fe.Field(), msg))
	}
	return apperrors.Validation(strings.Join(parts, "; "))
}
