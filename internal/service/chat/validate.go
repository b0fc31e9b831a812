package chat

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/vovakirdan/bitter-server/internal/core"
)

var (
	usernamePattern    = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	displayNamePattern = regexp.MustCompile(`^[A-Za-z0-9_\-@ ]+$`)
	messageBodyPattern = regexp.MustCompile(`^[A-Za-z0-9_\-@.,!?:; ]+$`)
	cursorPattern      = regexp.MustCompile(`^[0-9]+$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	mustRegister(v, "username_chars", usernamePattern)
	mustRegister(v, "display_name_chars", displayNamePattern)
	mustRegister(v, "body_chars", messageBodyPattern)
	mustRegister(v, "digits", cursorPattern)
	return v
}

func mustRegister(v *validator.Validate, tag string, pattern *regexp.Regexp) {
	err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return pattern.MatchString(fl.Field().String())
	})
	if err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// Tag order sets the check order: presence, charset, length.
type usernameInput struct {
	Username string `validate:"required,username_chars,max=24"`
}

type displayNameInput struct {
	DisplayName string `validate:"required,display_name_chars,max=24"`
}

type messageInput struct {
	Username string `validate:"required,username_chars,max=24"`
	Body     string `validate:"required,body_chars,max=120"`
}

type historyInput struct {
	Username string `validate:"required,username_chars,max=24"`
	Cursor   string `validate:"required,digits,max=10"`
}

type cursorInput struct {
	Cursor string `validate:"required,digits,max=10"`
}

var fieldLabels = map[string]string{
	"Username":    "Username",
	"DisplayName": "Display name",
	"Body":        "Message body",
	"Cursor":      "fetch_content_cursor",
}

var charsetMessages = map[string]string{
	"username_chars":     "can only contain alphanumerical characters and _",
	"display_name_chars": "can only contain alphanumerical characters, whitespace and _ - @",
	"body_chars":         "can only contain alphanumerical characters, space and _ - @ . , ! ? : ;",
	"digits":             "can only contain numerical characters",
}

var lengthLimits = map[string][2]int{
	"Username":    {1, 24},
	"DisplayName": {1, 24},
	"Body":        {1, 120},
	"Cursor":      {1, 10},
}

// normalizeUsername applies the username filters before validation.
func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// check validates input and converts the first failure into a validation error.
func check(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("validate input: %w", err)
	}

	fe := fieldErrs[0]
	label := fieldLabels[fe.StructField()]
	switch fe.Tag() {
	case "required":
		return core.NewError(core.ErrValidation, label+" is missing")
	case "max", "min":
		limits := lengthLimits[fe.StructField()]
		return core.NewError(core.ErrValidation,
			fmt.Sprintf("%s must be between %d and %d characters long", label, limits[0], limits[1]))
	default:
		return core.NewError(core.ErrValidation, label+" "+charsetMessages[fe.Tag()])
	}
}
