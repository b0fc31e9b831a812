package auth

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	usernameChars    = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	displayNameChars = regexp.MustCompile(`^[A-Za-z0-9_\-@ ]+$`)
	passwordChars    = regexp.MustCompile(`^[A-Za-z0-9_\-@.,!?]+$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	for tag, pattern := range map[string]*regexp.Regexp{
		"username":     usernameChars,
		"display_name": displayNameChars,
		"password":     passwordChars,
	} {
		if err := v.RegisterValidation(tag, matches(pattern)); err != nil {
			panic(err)
		}
	}
	return v
}

func matches(pattern *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return pattern.MatchString(fl.Field().String())
	}
}

type credentials struct {
	Username    string `validate:"required,max=24,username"`
	DisplayName string `validate:"required,max=24,display_name"`
	Password    string `validate:"required,max=24,password"`
}

// validateCredentials maps the first failing field onto its sentinel error.
func validateCredentials(c credentials) error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok || len(fieldErrs) == 0 {
		return err
	}
	switch fieldErrs[0].StructField() {
	case "Username":
		return ErrInvalidUsername
	case "DisplayName":
		return ErrInvalidDisplayName
	default:
		return ErrInvalidPassword
	}
}
