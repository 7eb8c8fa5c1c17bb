package course

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/coursedesk/core"
)

var (
	sectionStatusTag  = "sectionstatus"
	sectionStatusText = "status must be public or private"

	lessonStatusTag  = "lessonstatus"
	lessonStatusText = "status must be public, private or preview"
)

// InitValidators registers the course validations on validate.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(sectionStatusTag, core.OneOfValidation(SectionStatuses...))
	core.RegisterCustomTranslation(validate, translator, sectionStatusTag, sectionStatusText)

	_ = validate.RegisterValidation(lessonStatusTag, core.OneOfValidation(LessonStatuses...))
	core.RegisterCustomTranslation(validate, translator, lessonStatusTag, lessonStatusText)
}
