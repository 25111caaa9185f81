// Package validation holds the shared go-playground validator, configured with
// JSON field names and the "mailbox" rule.
package validation

import (
	"net/mail"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("mailbox", func(fl validator.FieldLevel) bool {
		return IsMailbox(fl.Field().String())
	})
	return v
}

// Validator returns the shared instance.
func Validator() *validator.Validate { return validate }

// IsMailbox reports whether s is a bare address such as a@b.org, without a
// display name or angle brackets.
func IsMailbox(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

// Email reports whether s passes the "required,mailbox" rules.
func Email(s string) bool {
	return validate.Var(s, "required,mailbox") == nil
}
