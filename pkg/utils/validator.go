package utils

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate

	imeiPattern = regexp.MustCompile(`^[0-9]{14,16}$`)
)

func init() {
	validate = validator.New()

	if err := validate.RegisterValidation("imei", validateIMEI); err != nil {
		panic(err)
	}
	if err := validate.RegisterValidation("deviceid", validateDeviceID); err != nil {
		panic(err)
	}
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

func validateIMEI(fl validator.FieldLevel) bool {
	return imeiPattern.MatchString(fl.Field().String())
}

func validateDeviceID(fl validator.FieldLevel) bool {
	return IsValidIdentifier(fl.Field().String())
}
