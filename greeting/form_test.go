package greeting_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/omni/festival-greetings/greeting"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	for _, test := range []struct {
		Name           string
		Input          greeting.Input
		ExpectedErrors greeting.FieldErrors
	}{
		{
			Name:  "Valid input",
			Input: greeting.Input{Name: "Ana", Festival: "Diwali", Greeting: "Happy Diwali!"},
		},
		{
			Name:  "Boundary lengths",
			Input: greeting.Input{Name: strings.Repeat("a", 100), Festival: strings.Repeat("f", 100), Greeting: strings.Repeat("g", 500)},
		},
		{
			Name:  "Multibyte characters are counted as characters",
			Input: greeting.Input{Name: strings.Repeat("å", 100), Festival: "Diwali", Greeting: strings.Repeat("✨", 500)},
		},
		{
			Name:  "Empty name",
			Input: greeting.Input{Festival: "Diwali", Greeting: "Happy Diwali!"},
			ExpectedErrors: greeting.FieldErrors{
				"name": "Name is required",
			},
		},
		{
			Name:  "Whitespace only festival",
			Input: greeting.Input{Name: "Ana", Festival: "   ", Greeting: "Happy Diwali!"},
			ExpectedErrors: greeting.FieldErrors{
				"festival": "Festival name is required",
			},
		},
		{
			Name:  "Too long greeting",
			Input: greeting.Input{Name: "Ana", Festival: "Diwali", Greeting: strings.Repeat("g", 501)},
			ExpectedErrors: greeting.FieldErrors{
				"greeting": "Greeting must be less than 500 characters",
			},
		},
		{
			Name:  "Invalid UTF-8",
			Input: greeting.Input{Name: "An\xffa", Festival: "Diwali", Greeting: "Happy \xc3("},
			ExpectedErrors: greeting.FieldErrors{
				"name":     "Name contains invalid characters",
				"greeting": "Greeting contains invalid characters",
			},
		},
		{
			Name:  "All fields invalid",
			Input: greeting.Input{Name: strings.Repeat("a", 101), Festival: strings.Repeat("f", 101)},
			ExpectedErrors: greeting.FieldErrors{
				"name":     "Name must be less than 100 characters",
				"festival": "Festival name must be less than 100 characters",
				"greeting": "Greeting is required",
			},
		},
	} {
		t.Logf("Running sub-test %q", test.Name)
		_, errs := greeting.Validate(test.Input)
		if test.ExpectedErrors == nil {
			require.Nil(t, errs, "Failed %s", test.Name)
		} else {
			require.Equal(t, test.ExpectedErrors, errs, "Failed %s", test.Name)
		}
	}
}

func TestValidate_Normalizes(t *testing.T) {
	t.Parallel()

	in, errs := greeting.Validate(greeting.Input{Name: "  Ana ", Festival: "\tDiwali\n", Greeting: " Happy Diwali! "})
	require.Nil(t, errs)
	require.Equal(t, greeting.Input{Name: "Ana", Festival: "Diwali", Greeting: "Happy Diwali!"}, in)
}

func TestFieldErrors_Error(t *testing.T) {
	t.Parallel()

	errs := greeting.FieldErrors{
		"name":     "Name is required",
		"festival": "Festival name is required",
	}
	require.Equal(t, "invalid greeting input: festival: Festival name is required; name: Name is required", errs.Error())
}
