package product

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/coursedesk/core"
)

var (
	productStatusTag  = "productstatus"
	productStatusText = "status must be public or private"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(productStatusTag, core.OneOfValidation(Statuses...))
	core.RegisterCustomTranslation(validate, translator, productStatusTag, productStatusText)
}
