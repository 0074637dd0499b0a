package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	validator "github.com/go-playground/validator/v10"
)

const (
	passwordMinLength   = 8
	passwordSpecialSet  = `!@#$%^&*(),.?":{}|<>`
	msgFillAllFields    = "Please fill in all fields."
	msgInvalidEmail     = "Please enter a valid email address."
	msgAgreeOfferTerms  = "You must accept the offer terms."
	msgAgreePrivacy     = "You must read and accept the privacy policy."
	msgAgreePersonal    = "You must agree to the personal data policy."
	msgInvalidFormInput = "Invalid request"
)

var agreementMessages = map[string]string{
	"AgreeOfferTerms":         msgAgreeOfferTerms,
	"AgreePrivacyPolicy":      msgAgreePrivacy,
	"AgreePersonalDataPolicy": msgAgreePersonal,
}

type requestValidator struct {
	*validator.Validate
}

func newRequestValidator() *requestValidator {
	validate := validator.New()

	// The tag is a compile-time constant, so registration cannot fail.
	_ = validate.RegisterValidation("strongpassword", func(fieldLevel validator.FieldLevel) bool {
		return checkPassword(fieldLevel.Field().String()) == ""
	})

	return &requestValidator{Validate: validate}
}

// Message turns the first validation failure into the text shown to the user.
func (v *requestValidator) Message(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return msgInvalidFormInput
	}

	// Empty text fields are reported together, ahead of anything else.
	for _, fieldError := range validationErrors {
		if fieldError.Tag() == "required" && fieldError.Kind() != reflect.Bool {
			return msgFillAllFields
		}
	}

	fieldError := validationErrors[0]
	switch {
	case fieldError.Tag() == "email":
		return msgInvalidEmail
	case fieldError.Tag() == "strongpassword":
		return checkPassword(fmt.Sprint(fieldError.Value()))
	case agreementMessages[fieldError.StructField()] != "":
		return agreementMessages[fieldError.StructField()]
	}

	return msgInvalidFormInput
}

// checkPassword returns why pwd is too weak, or "" when it is acceptable.
func checkPassword(pwd string) string {
	if utf8.RuneCountInString(pwd) < passwordMinLength {
		return fmt.Sprintf("Password must be at least %d characters long.", passwordMinLength)
	}

	var hasUpper, hasDigit, hasSpecial bool
	for _, r := range pwd {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune(passwordSpecialSet, r):
			hasSpecial = true
		}
	}

	switch {
	case !hasUpper:
		return "Password must contain at least one uppercase letter."
	case !hasDigit:
		return "Password must contain at least one digit."
	case !hasSpecial:
		return "Password must contain at least one special character (" + passwordSpecialSet + ")."
	}

	return ""
}
