package attendance

import (
	"github.com/go-playground/validator/v10"

	"github.com/smancaringin/presensi/core"
)

var (
	intentTag  = "intent"
	intentText = "invalid declared intent"
)

func init() {
	// register validators
	_ = core.Validate.RegisterValidation(intentTag, intentValidation)
	core.RegisterCustomTranslation(intentTag, intentText)
}

// intentValidation checks that the declared intent is a supported value.
func intentValidation(fl validator.FieldLevel) bool {
	if intent, ok := fl.Field().Interface().(Intent); ok {
		return intent.Valid()
	}
	return Intent(fl.Field().String()).Valid()
}
