// Package validation wraps a go-playground/validator singleton with the
// custom rules of the catalog API and turns failures into field-keyed
// messages.
//
//	type SignupRequest struct {
//	    Username string `json:"username" validate:"required,max=150,username,notme"`
//	    Email    string `json:"email" validate:"required,max=254,email"`
//	}
//
//	if fields := validation.Struct(&req); fields != nil {
//	    return service.NewValidationError(fields)
//	}
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// NonFieldErrors is the key for errors that do not belong to one field.
const NonFieldErrors = "non_field_errors"

const msgNull = "This field may not be null."

// NullReporter is implemented by payloads that remember which fields were
// sent as an explicit null. Those fields are rejected.
type NullReporter interface {
	NullFields() []string
}

var (
	validate     *validator.Validate
	validateOnce sync.Once

	usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)
	slugPattern     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

	// now is swapped in tests that pin the calendar year.
	now = time.Now
)

// Roles accepted by the role tag.
var Roles = []string{"user", "moderator", "admin"}

// GetValidator returns the singleton validator instance. Field names in
// errors are the json tag names.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())

		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})

		mustRegister(v, "username", func(fl validator.FieldLevel) bool {
			return usernamePattern.MatchString(fl.Field().String())
		})
		mustRegister(v, "notme", func(fl validator.FieldLevel) bool {
			return fl.Field().String() != "me"
		})
		mustRegister(v, "slug", func(fl validator.FieldLevel) bool {
			return slugPattern.MatchString(fl.Field().String())
		})
		mustRegister(v, "pastyear", func(fl validator.FieldLevel) bool {
			return fl.Field().Int() <= int64(CurrentYear())
		})
		mustRegister(v, "role", func(fl validator.FieldLevel) bool {
			role := fl.Field().String()
			for _, r := range Roles {
				if r == role {
					return true
				}
			}
			return false
		})

		validate = v
	})
	return validate
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validator: %v", tag, err))
	}
}

// CurrentYear is the upper bound of the pastyear rule.
func CurrentYear() int {
	return now().Year()
}

// Struct validates s and returns nil when it is valid, otherwise the
// messages per json field name.
func Struct(s any) map[string][]string {
	fields := structErrors(s)
	if nr, ok := s.(NullReporter); ok {
		for _, name := range nr.NullFields() {
			if fields == nil {
				fields = map[string][]string{}
			}
			fields[name] = []string{msgNull}
		}
	}
	return fields
}

func structErrors(s any) map[string][]string {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string][]string{NonFieldErrors: {err.Error()}}
	}

	fields := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		name := fe.Field()
		// genre[1] reports under genre
		if i := strings.IndexByte(name, '['); i > 0 {
			name = name[:i]
		}
		fields[name] = append(fields[name], Message(fe))
	}
	return fields
}

// Message renders one validator failure as a user-facing sentence.
func Message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "min":
		if fe.Kind() == reflect.String {
			if fe.Param() == "1" {
				return "This field may not be blank."
			}
			return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "gt":
		return fmt.Sprintf("Ensure this value is greater than %s.", fe.Param())
	case "email":
		return "Enter a valid email address."
	case "username":
		return "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	case "notme":
		return `The username "me" is reserved.`
	case "slug":
		return "Enter a valid slug consisting of letters, numbers, underscores or hyphens."
	case "pastyear":
		return fmt.Sprintf("Year cannot be later than %d.", CurrentYear())
	case "role", "oneof":
		return fmt.Sprintf("%q is not a valid choice.", fmt.Sprint(fe.Value()))
	case "dive":
		return "Invalid value."
	default:
		return fmt.Sprintf("Failed on the %q rule.", fe.Tag())
	}
}
