package validator

import (
	"time"

	"github.com/go-playground/validator/v10"
	ierr "github.com/numera/numera/internal/errors"
	"github.com/numera/numera/internal/types"
)

var validate *validator.Validate

func NewValidator() *validator.Validate {
	validate = validator.New()
	registerLedgerRules(validate)
	return validate
}

func GetValidator() *validator.Validate {
	return validate
}

// registerLedgerRules installs the tag validators used by the request DTOs.
// Dates travel over the wire as DD/MM/YYYY strings.
func registerLedgerRules(v *validator.Validate) {
	_ = v.RegisterValidation("display_date", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(types.DisplayDateFormat, fl.Field().String())
		return err == nil
	})
}

func ValidateRequest(req interface{}) error {
	if validate == nil {
		return ierr.NewError("validator not initialized").
			WithHint("Validator must be initialized before using it").
			Mark(ierr.ErrSystem)
	}

	if err := validate.Struct(req); err != nil {
		details := make(map[string]any)
		var validateErrs validator.ValidationErrors
		if ierr.As(err, &validateErrs) {
			for _, err := range validateErrs {
				details[err.Field()] = err.Error()
			}
		}
		return ierr.WithError(err).
			WithHint("Request validation failed").
			WithReportableDetails(details).
			Mark(ierr.ErrValidation)
	}
	return nil
}
