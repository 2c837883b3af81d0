package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var mobilePattern = regexp.MustCompile(`^\+?[0-9][0-9 ()\-]{5,19}$`)

var weekdayTags = map[string]bool{
	"MO": true, "TU": true, "WE": true, "TH": true, "FR": true, "SA": true, "SU": true,
}

// IsMobile reports whether s looks like a phone number.
func IsMobile(s string) bool {
	return mobilePattern.MatchString(strings.TrimSpace(s))
}

// New returns a validator with the custom tags registered.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := Register(v); err != nil {
		panic(err)
	}
	return v
}

// RegisterWithGin installs the custom tags on gin's binding validator.
func RegisterWithGin() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin binding validator is not go-playground/validator")
	}
	return Register(v)
}

// Register adds ddmmyyyy, hhmm, weekday and mobile tags to v and reports
// field names by their json tag.
func Register(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	rules := map[string]validator.Func{
		"ddmmyyyy": layoutRule("02.01.2006"),
		"hhmm":     layoutRule("15:04"),
		"weekday": func(fl validator.FieldLevel) bool {
			return weekdayTags[strings.ToUpper(strings.TrimSpace(fl.Field().String()))]
		},
		"mobile": func(fl validator.FieldLevel) bool {
			return IsMobile(fl.Field().String())
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("failed to register %s: %w", tag, err)
		}
	}
	return nil
}

func layoutRule(layout string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		_, err := time.Parse(layout, strings.TrimSpace(fl.Field().String()))
		return err == nil
	}
}

// Describe turns validation failures into a message and per-field details.
// ok is false when err did not come from the validator.
func Describe(err error) (string, map[string]interface{}, bool) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "", nil, false
	}
	details := make(map[string]interface{}, len(verrs))
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = explain(fe)
		fields = append(fields, fe.Field())
	}
	return "invalid fields: " + strings.Join(fields, ", "), details, true
}

func explain(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if", "required_without":
		return "is required"
	case "ddmmyyyy":
		return "must be a date in DD.MM.YYYY format"
	case "hhmm":
		return "must be a time in HH:MM format"
	case "weekday":
		return "must be one of MO, TU, WE, TH, FR, SA, SU"
	case "mobile":
		return "must be a phone number"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "len":
		return "must have length " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "email":
		return "must be a valid email"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
