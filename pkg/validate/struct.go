// pkg/validate/struct.go

package validate

import (
	"fmt"
	"strings"
	"sync"

	cerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

var (
	structValidator *validator.Validate
	structOnce      sync.Once
)

// Struct validates v against its `validate` tags. Besides the stock tags it
// understands ipv4quad, startdate (date, time and offset all present) and keyalg.
func Struct(v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !cerr.As(err, &fieldErrs) {
		return cerr.Wrap(err, "struct validation")
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
	}
	return cerr.Newf("validation failed: %s", strings.Join(msgs, "; "))
}

func validatorInstance() *validator.Validate {
	structOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		mustRegister(v, "ipv4quad", func(fl validator.FieldLevel) bool {
			return ValidateIPv4(fl.Field().String())
		})
		mustRegister(v, "startdate", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return ValidateDateTime(s) && ValidateTimezone(s) == TimezoneValid
		})
		mustRegister(v, "keyalg", func(fl validator.FieldLevel) bool {
			return ValidateKeyAlgorithm(fl.Field().String())
		})
		structValidator = v
	})
	return structValidator
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}
