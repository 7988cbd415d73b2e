package formdata

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/adamwoolhether/formwire/payload"
)

var validate *validator.Validate
var translator ut.Translator

func init() {
	validate = validator.New()
	var ok bool
	translator, ok = ut.New(en.New(), en.New()).GetTranslator("en")
	if !ok {
		panic("formdata: failed to get 'en' translator")
	}

	if err := en_translations.RegisterDefaultTranslations(validate, translator); err != nil {
		panic(err)
	}

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}

		return name
	})

	if err := validate.RegisterValidation("boundary", func(fl validator.FieldLevel) bool {
		return validateBoundary(fl.Field().String()) == nil
	}); err != nil {
		panic(err)
	}

	if err := validate.RegisterValidation("charset", func(fl validator.FieldLevel) bool {
		_, err := payload.LookupCharset(fl.Field().String())
		return err == nil
	}); err != nil {
		panic(err)
	}
}

// validateOptions checks the form options against their declared tags.
func validateOptions(opts options) error {
	if err := validate.Struct(opts); err != nil {
		verrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}

		msgs := make([]string, 0, len(verrors))
		for _, verror := range verrors {
			msgs = append(msgs, verror.Field()+": "+customErrForTag(verror.Tag(), verror))
		}

		return invalidParam("", "%s", strings.Join(msgs, "; "))
	}

	return nil
}

func customErrForTag(tag string, verror validator.FieldError) string {
	switch tag {
	case "required":
		return "This field is required"
	case "boundary":
		return "must be 1-70 RFC 2046 boundary characters"
	case "charset":
		return fmt.Sprintf("unknown charset %q", verror.Value())
	default:
		return verror.Translate(translator)
	}
}
