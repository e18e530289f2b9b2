package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Caolboy/LABERS-HOST/internal/apperrors"
	"github.com/go-playground/validator/v10"
)

// PasswordSymbols are the symbols a password must draw at least one from.
const PasswordSymbols = "@$!%*?&"

const passwordMinLength = 8

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("password_policy", validatePasswordPolicy)
	return &Validator{validate: v}
}

// Struct validates s and returns the first failure as a field-tagged
// validation error.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		return translate(validationErrs[0])
	}
	return apperrors.Validation("", err.Error())
}

// PasswordMeetsPolicy reports whether password has at least eight characters
// (runes, not bytes) including an ASCII letter, an ASCII digit and one of
// PasswordSymbols.
func PasswordMeetsPolicy(password string) bool {
	if utf8.RuneCountInString(password) < passwordMinLength {
		return false
	}
	var letter, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r) && r < unicode.MaxASCII:
			letter = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(PasswordSymbols, r):
			symbol = true
		}
	}
	return letter && digit && symbol
}

func validatePasswordPolicy(fl validator.FieldLevel) bool {
	return PasswordMeetsPolicy(fl.Field().String())
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}

func translate(fe validator.FieldError) *apperrors.Error {
	field := fe.Field()
	var message string

	switch fe.Tag() {
	case "required":
		message = fmt.Sprintf("The %s field is required.", field)
	case "min":
		if fe.Kind() == reflect.Slice {
			message = fmt.Sprintf("The %s field must have at least %s item(s).", field, fe.Param())
		} else {
			message = fmt.Sprintf("The %s field must be at least %s characters.", field, fe.Param())
		}
	case "max":
		message = fmt.Sprintf("The %s field must not be greater than %s characters.", field, fe.Param())
	case "gt":
		message = fmt.Sprintf("The %s field must be greater than %s.", field, fe.Param())
	case "len":
		message = fmt.Sprintf("The %s field must be %s characters.", field, fe.Param())
	case "oneof":
		message = fmt.Sprintf("The selected %s is invalid.", field)
	case "email":
		message = fmt.Sprintf("The %s field must be a valid email address.", field)
	case "lowercase":
		message = fmt.Sprintf("The %s field must be lowercase.", field)
	case "datetime":
		message = fmt.Sprintf("The %s field must match the format %s.", field, fe.Param())
	case "eq":
		message = fmt.Sprintf("The %s field must be accepted.", field)
	case "password_policy":
		message = fmt.Sprintf("The password must be at least %d characters long and contain at least one letter, one number, and one symbol (%s).", passwordMinLength, PasswordSymbols)
	default:
		message = fmt.Sprintf("The %s field is invalid.", field)
	}

	return apperrors.Validation(fieldPath(fe), message)
}

// fieldPath drops the top-level struct name from the namespace so nested
// fields read like "selected_items[0].id".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}
