package greeting

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// Input is the user-provided part of a greeting.
type Input struct {
	Name     string `json:"name" validate:"required,utf8,max=100"`
	Festival string `json:"festival" validate:"required,utf8,max=100"`
	Greeting string `json:"greeting" validate:"required,utf8,max=500"`
}

// FieldErrors maps an input field name to a human-readable validation message.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	msgs := make([]string, 0, len(fields))
	for _, field := range fields {
		msgs = append(msgs, fmt.Sprintf("%s: %s", field, e[field]))
	}
	return "invalid greeting input: " + strings.Join(msgs, "; ")
}

var fieldLabels = map[string]string{
	"name":     "Name",
	"festival": "Festival name",
	"greeting": "Greeting",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// the payload is JSON encoded, which would silently replace invalid bytes
	_ = v.RegisterValidation("utf8", func(fl validator.FieldLevel) bool {
		return utf8.ValidString(fl.Field().String())
	})
	return v
}

func (in Input) Normalize() Input {
	return Input{
		Name:     strings.TrimSpace(in.Name),
		Festival: strings.TrimSpace(in.Festival),
		Greeting: strings.TrimSpace(in.Greeting),
	}
}

// Validate normalizes the input and checks every field bound.
// It returns nil FieldErrors for a valid input.
func Validate(in Input) (Input, FieldErrors) {
	in = in.Normalize()
	err := validate.Struct(in)
	if err == nil {
		return in, nil
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return in, FieldErrors{"": err.Error()}
	}
	res := make(FieldErrors, len(validationErrs))
	for _, fieldErr := range validationErrs {
		res[fieldErr.Field()] = fieldMessage(fieldErr)
	}
	return in, res
}

func fieldMessage(fieldErr validator.FieldError) string {
	label, ok := fieldLabels[fieldErr.Field()]
	if !ok {
		label = fieldErr.Field()
	}
	switch fieldErr.Tag() {
	case "required":
		return label + " is required"
	case "utf8":
		return label + " contains invalid characters"
	case "max":
		return fmt.Sprintf("%s must be less than %s characters", label, fieldErr.Param())
	default:
		return fmt.Sprintf("%s is invalid", label)
	}
}
