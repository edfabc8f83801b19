package service

import (
	"errors"
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/mfgops/operations-dashboard/internal/core/domain"
)

// emailShape accepts local@domain.tld with no whitespace and a single @.
var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

type signupFields struct {
	Email     string `validate:"required,emailshape"`
	Password  string `validate:"required,min=6,bcryptlen"`
	FirstName string `validate:"required"`
	LastName  string `validate:"required"`
	Role      string `validate:"omitempty,role"`
}

type loginFields struct {
	Email    string `validate:"required"`
	Password string `validate:"required"`
}

// inputValidator maps go-playground/validator failures onto domain errors.
type inputValidator struct {
	v *validator.Validate
}

func newInputValidator() *inputValidator {
	v := validator.New()
	must(v.RegisterValidation("emailshape", func(fl validator.FieldLevel) bool {
		return emailShape.MatchString(fl.Field().String())
	}))
	must(v.RegisterValidation("bcryptlen", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= maxPasswordBytes
	}))
	must(v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return domain.Role(fl.Field().String()).Valid()
	}))
	return &inputValidator{v: v}
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// signup checks presence first, then email shape, password length and role.
// Password length is counted in characters for the minimum and bytes for the maximum.
func (iv *inputValidator) signup(in signupFields) error {
	err := iv.v.Struct(in)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}

	failed := make(map[string]string, len(ve))
	for _, fe := range ve {
		if fe.Tag() == "required" {
			return domain.ErrMissingFields
		}
		failed[fe.StructField()] = fe.Tag()
	}

	switch {
	case failed["Email"] != "":
		return domain.ErrInvalidEmail
	case failed["Password"] == "bcryptlen":
		return domain.ErrPasswordTooLong
	case failed["Password"] != "":
		return domain.ErrWeakPassword
	case failed["Role"] != "":
		return domain.ErrInvalidRole
	}
	return err
}

func (iv *inputValidator) login(in loginFields) error {
	if err := iv.v.Struct(in); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			return domain.ErrLoginFieldsRequired
		}
		return err
	}
	return nil
}
