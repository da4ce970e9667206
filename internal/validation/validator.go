// Package validation checks decoded request bodies.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/tallyhq/tally/internal/account"
	"github.com/tallyhq/tally/internal/transaction"
)

// Error lists the failed fields by JSON name.
type Error struct {
	Fields map[string]string `json:"fields"`
}

func (e *Error) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}

	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, n+": "+e.Fields[n])
	}

	return "validation failed: " + strings.Join(parts, "; ")
}

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("coa_type", validateAccountType)
	_ = v.RegisterValidation("tx_status", validateStatus)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}

		return name
	})

	return &Validator{validate: v}
}

// Struct validates s and returns an *Error describing every failed field.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &Error{Fields: make(map[string]string, len(verrs))}

	for _, fe := range verrs {
		out.Fields[fieldPath(fe)] = message(fe)
	}

	return out
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}

	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "coa_type":
		return fmt.Sprintf("must be one of %v", account.Types())
	case "tx_status":
		return "must be uncategorized, categorized or split"
	case "oneof":
		return "must be one of " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "uuid":
		return "must be a UUID"
	case "datetime":
		return "must be a date formatted " + fe.Param()
	}

	return "failed " + fe.Tag()
}

func validateAccountType(fl validator.FieldLevel) bool {
	return account.Type(strings.ToLower(fl.Field().String())).Valid()
}

func validateStatus(fl validator.FieldLevel) bool {
	return transaction.Status(fl.Field().String()).Valid()
}
