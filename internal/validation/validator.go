// =============================================================================
// Speakboard - Validation Engine
// =============================================================================
//
// This module validates import records and configuration structs using
// struct tags (github.com/go-playground/validator/v10).
//
// VALIDATION STRATEGY:
//   - Record-level: an extracted row becomes a record only if every required
//     field is populated after trimming
//   - Config-level: the loaded configuration is checked before any command
//     runs, so misconfiguration fails fast with a readable message
//
// ERROR HANDLING:
//   - Field failures are collected into a ValidationErrors list
//   - Each entry names the field, the failed rule and the offending value
//
// =============================================================================

package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ginjaninja78/speakboard/internal/types"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError describes one field that failed one rule.
type ValidationError struct {
	// Field is the struct path of the field, e.g. "Config.Fetch.Timeout".
	Field string

	// Value is the offending value, formatted with %v.
	Value string

	// Rule is the validator tag that failed, e.g. "required".
	Rule string

	// Param is the rule parameter, e.g. "1" for "min=1".
	Param string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("field '%s' failed rule '%s=%s' (value: '%s')", e.Field, e.Rule, e.Param, e.Value)
	}
	return fmt.Sprintf("field '%s' failed rule '%s' (value: '%s')", e.Field, e.Rule, e.Value)
}

// ValidationErrors is the list of field failures for one struct.
type ValidationErrors []*ValidationError

// Error implements the error interface.
func (ve ValidationErrors) Error() string {
	msgs := make([]string, len(ve))
	for i, e := range ve {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// =============================================================================
// VALIDATOR
// =============================================================================

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// "notblank" rejects whitespace-only strings, which "required" accepts.
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() != reflect.String {
			return true
		}
		return strings.TrimSpace(field.String()) != ""
	})
	return v
}

// Struct validates any tagged struct.
//
// RETURNS:
//   - nil if the struct is valid.
//   - ValidationErrors listing every failing field.
//   - Any other error if v is not a struct.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, &ValidationError{
			Field: fe.Namespace(),
			Value: fmt.Sprintf("%v", fe.Value()),
			Rule:  fe.Tag(),
			Param: fe.Param(),
		})
	}
	return out
}

// IconRecord validates one extracted Icons-sheet record. All three fields
// must be non-empty.
func IconRecord(rec types.IconRecord) error {
	return Struct(rec)
}

// FolderRecord validates one extracted Folders-sheet record.
func FolderRecord(rec types.FolderRecord) error {
	return Struct(rec)
}
