package validator

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// chatIDPattern matches numeric Telegram chat ids and public @channel names
var chatIDPattern = regexp.MustCompile(`^(-?[0-9]+|@[A-Za-z][A-Za-z0-9_]{4,})$`)

// Validator represents a validator instance
type Validator struct {
	validate *validator.Validate
}

// New creates a new validator instance
func New() *Validator {
	once.Do(func() {
		validate = validator.New()

		_ = validate.RegisterValidation("chatid", validateChatID)
		_ = validate.RegisterValidation("notify_url", validateNotifyURL)

		// Use config key names in error messages
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})

	return &Validator{
		validate: validate,
	}
}

// Struct validates a struct
func (v *Validator) Struct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return fmt.Errorf("invalid validation error: %w", err)
		}

		var errMsgs []string
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				errMsgs = append(errMsgs, formatError(fe))
			}
		}
		return fmt.Errorf("validation failed: %s", strings.Join(errMsgs, "; "))
	}
	return nil
}

// Var validates a single variable
func (v *Validator) Var(field any, tag string) error {
	return v.validate.Var(field, tag)
}

// formatError formats a validation error
func formatError(err validator.FieldError) string {
	field := strings.TrimPrefix(err.Namespace(), "Config.")
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, err.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, err.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, err.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "chatid":
		return fmt.Sprintf("%s must be a numeric chat id or @channel", field)
	case "notify_url":
		return fmt.Sprintf("%s must be an absolute http(s) URL", field)
	default:
		return fmt.Sprintf("%s failed on tag %s", field, err.Tag())
	}
}

// validateChatID checks Telegram chat identifiers
func validateChatID(fl validator.FieldLevel) bool {
	return chatIDPattern.MatchString(strings.TrimSpace(fl.Field().String()))
}

// validateNotifyURL checks outbound endpoint URLs
func validateNotifyURL(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	if raw == "" {
		return true
	}

	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != "" && u.Fragment == ""
}
