package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"ceseminars/internal/models"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// custom validation tags used in request bindings
const (
	seminarStatusTag    = "seminar_status"
	attendanceMethodTag = "attendance_method"
	makeupActionTag     = "makeup_action"
	periodTag           = "ce_period"
	notBlankTag         = "notblank"
)

var (
	translator   ut.Translator
	registerOnce sync.Once
	registerErr  error
)

// FieldError is one failed field in a request body.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Register installs the custom tags and english messages on gin's
// validator. It must run before the router binds any request; repeated
// calls are no-ops.
func Register() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = errors.New("gin binding engine is not go-playground/validator")
			return
		}
		registerErr = configure(v)
	})
	return registerErr
}

func configure(v *validator.Validate) error {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ = uni.GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(v, translator); err != nil {
		return err
	}

	// Report json names, not Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	validations := map[string]validator.Func{
		seminarStatusTag:    stringValid(func(s string) bool { return models.SeminarStatus(s).Valid() }),
		attendanceMethodTag: stringValid(func(s string) bool { return models.AttendanceMethod(s).Valid() }),
		makeupActionTag:     stringValid(func(s string) bool { return models.MakeupAction(s).Valid() }),
		periodTag:           stringValid(func(s string) bool { return models.Period(s).Valid() }),
		notBlankTag:         stringValid(func(s string) bool { return strings.TrimSpace(s) != "" }),
	}
	for tag, fn := range validations {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
		if err := v.RegisterTranslation(tag, translator, func(ut.Translator) error { return nil }, translateCustom); err != nil {
			return err
		}
	}
	return nil
}

func stringValid(ok func(string) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		if fl.Field().Kind() != reflect.String {
			return false
		}
		return ok(fl.Field().String())
	}
}

func translateCustom(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case seminarStatusTag:
		return fe.Field() + " must be one of draft, active, completed, archived"
	case attendanceMethodTag:
		return fe.Field() + " must be one of qr, manual, admin"
	case makeupActionTag:
		return fe.Field() + " must be one of approve, deny, complete, cancel, expire, update"
	case periodTag:
		return fe.Field() + " must be first_half or second_half"
	case notBlankTag:
		return fe.Field() + " cannot be blank"
	}
	return fe.Error()
}

// Errors flattens a binding error into per-field messages. It returns nil
// for errors that did not come from the validator, e.g. malformed JSON.
func Errors(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		msg := fe.Error()
		if translator != nil {
			msg = fe.Translate(translator)
		}
		out = append(out, FieldError{Field: fe.Field(), Message: msg})
	}
	return out
}
