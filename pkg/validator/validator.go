package validator

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// qnameRegex matches the characters allowed in a queue or stream name:
// letters, digits, dots, underscores and hyphens, capped at 160 bytes.
var qnameRegex = regexp.MustCompile(`^[A-Za-z0-9._-]{1,160}$`)

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New()

	_ = v.RegisterValidation("qname", validateQName)

	return &Validator{
		validate: v,
	}
}

// ValidateStruct validates a struct using tags
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.validate.Struct(s)
}

// ValidateVar validates a single variable against a tag
func (v *Validator) ValidateVar(field interface{}, tag string) error {
	return v.validate.Var(field, tag)
}

func validateQName(fl validator.FieldLevel) bool {
	return qnameRegex.MatchString(fl.Field().String())
}
