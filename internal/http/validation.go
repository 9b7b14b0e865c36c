package http

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/example/lesson-scheduler/internal/application"
	"github.com/example/lesson-scheduler/internal/scheduler"
)

// custom validation tags
const (
	notBlankTag     = "notblank"
	dateTag         = "civildate"
	timeOfDayTag    = "hhmm"
	lessonStatusTag = "lesson_status"
)

// requestValidator checks request DTOs before they reach the services and
// renders failures as English messages keyed by JSON field name.
type requestValidator struct {
	validate   *validator.Validate
	translator ut.Translator
}

var (
	sharedValidator     *requestValidator
	sharedValidatorOnce sync.Once
)

func defaultValidator() *requestValidator {
	sharedValidatorOnce.Do(func() {
		sharedValidator = newRequestValidator()
	})
	return sharedValidator
}

func newRequestValidator() *requestValidator {
	validate := validator.New()

	english := en.New()
	uni := ut.New(english, english)
	translator, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(notBlankTag, notBlankValidation)
	_ = validate.RegisterValidation(dateTag, dateValidation)
	_ = validate.RegisterValidation(timeOfDayTag, timeOfDayValidation)
	_ = validate.RegisterValidation(lessonStatusTag, lessonStatusValidation)

	v := &requestValidator{validate: validate, translator: translator}
	v.registerCustomTranslations(notBlankTag, dateTag, timeOfDayTag, lessonStatusTag)
	return v
}

// registerCustomTranslations registers messages for the custom tags. The
// default English translations are already registered, so a noop register
// function is passed.
func (v *requestValidator) registerCustomTranslations(tags ...string) {
	registerFn := func(ut.Translator) error { return nil }
	for _, tag := range tags {
		_ = v.validate.RegisterTranslation(tag, v.translator, registerFn, translateCustomValidationErrs)
	}
}

// Struct validates payload and returns an *application.ValidationError
// describing every failing field, or nil.
func (v *requestValidator) Struct(payload any) error {
	err := v.validate.Struct(payload)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	vErr := &application.ValidationError{FieldErrors: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		field := fieldPath(fe)
		if _, exists := vErr.FieldErrors[field]; exists {
			continue
		}
		vErr.FieldErrors[field] = fe.Translate(v.translator)
	}
	return vErr
}

// fieldPath strips the root struct name from the namespace so nested and
// slice element fields read like "dates[1]".
func fieldPath(fe validator.FieldError) string {
	namespace := fe.Namespace()
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return fe.Field()
}

func translateCustomValidationErrs(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case notBlankTag:
		return fe.Field() + " cannot be blank"
	case dateTag:
		return fe.Field() + " must be a date in YYYY-MM-DD format"
	case timeOfDayTag:
		return fe.Field() + " must be a time in HH:MM format"
	case lessonStatusTag:
		return fe.Field() + " must be one of scheduled, in_progress, completed, cancelled"
	default:
		return ""
	}
}

// Custom Validators

func notBlankValidation(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(str) != ""
	}
	return false
}

func dateValidation(fl validator.FieldLevel) bool {
	str, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	_, err := scheduler.ParseDate(str)
	return err == nil
}

func timeOfDayValidation(fl validator.FieldLevel) bool {
	str, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	_, err := scheduler.ParseTimeOfDay(str)
	return err == nil
}

func lessonStatusValidation(fl validator.FieldLevel) bool {
	str, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	return application.LessonStatus(strings.ToLower(strings.TrimSpace(str))).Valid()
}
