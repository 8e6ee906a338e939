package validator

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	usernamePattern   = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	passwordCharset   = regexp.MustCompile(`^[A-Za-z\d@$!%*#?&]+$`)
	passwordLetter    = regexp.MustCompile(`[A-Za-z]`)
	passwordDigit     = regexp.MustCompile(`\d`)
	passwordSpecial   = regexp.MustCompile(`[@$!%*#?&]`)
	personNamePattern = regexp.MustCompile(`^[a-zA-Z\s'-]+$`)
	phonePattern      = regexp.MustCompile(`^\+?[\d\s-]+$`)
)

// DateLayouts are the accepted dateOfBirth formats.
var DateLayouts = []string{"2006-01-02", time.RFC3339}

var (
	validate *validator.Validate
	ginOnce  sync.Once
	ginErr   error
)

func init() {
	validate = validator.New()
	if err := register(validate); err != nil {
		panic(err)
	}
}

// RegisterGin installs the custom tags on gin's binding validator so that
// `binding:"..."` struct tags can use them. Safe to call more than once.
func RegisterGin() error {
	ginOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			ginErr = errors.New("validator: gin binding engine is not go-playground/validator")
			return
		}
		ginErr = register(v)
	})
	return ginErr
}

func register(v *validator.Validate) error {
	v.RegisterTagNameFunc(jsonFieldName)

	rules := map[string]validator.Func{
		"username":   matchString(usernamePattern),
		"personname": matchString(personNamePattern),
		"phone":      matchString(phonePattern),
		"password":   strongPassword,
		"pastdate":   pastDate,
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

// Validate struct fields
func Validate(v interface{}) map[string]string {
	return Details(validate.Struct(v))
}

// Details flattens validation errors into field -> failed tag. Returns nil
// when err is not a validation error.
func Details(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fieldPath(fe)] = fe.Tag()
	}
	return out
}

// ParseDate parses a dateOfBirth value in one of DateLayouts.
func ParseDate(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range DateLayouts {
		t, err := time.Parse(layout, strings.TrimSpace(s))
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

func matchString(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(strings.TrimSpace(fl.Field().String()))
	}
}

func strongPassword(fl validator.FieldLevel) bool {
	p := fl.Field().String()
	return len(p) >= 8 &&
		passwordCharset.MatchString(p) &&
		passwordLetter.MatchString(p) &&
		passwordDigit.MatchString(p) &&
		passwordSpecial.MatchString(p)
}

func pastDate(fl validator.FieldLevel) bool {
	t, err := ParseDate(fl.Field().String())
	if err != nil {
		return false
	}
	return !t.After(time.Now())
}
