package render

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var ltcAddressRegex = regexp.MustCompile(`^[LM3][a-km-zA-HJ-NP-Z1-9]{25,34}$`)

func configureValidator(validate *validator.Validate) {
	_ = validate.RegisterValidation("ltc_address", validateLtcAddress)
	validate.RegisterTagNameFunc(useJSONTagNames)
}

func useJSONTagNames(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	// skip if tag key says it should be ignored
	if name == "-" {
		return ""
	}
	return name
}

func validateLtcAddress(fl validator.FieldLevel) bool {
	return ltcAddressRegex.MatchString(fl.Field().String())
}
