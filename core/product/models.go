package product

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/coursedesk/core"
)

// Statuses
const (
	StatusPublic  = "public"
	StatusPrivate = "private"
)

var Statuses = []string{StatusPublic, StatusPrivate}

type Product struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	ImageURL       string    `json:"image_url"`
	PriceInDollars int       `json:"price_in_dollars"`
	Status         string    `json:"status"`
	CourseIDs      []string  `json:"course_ids"`
	CreatedAt      time.Time `json:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at"` // UTC
}

// NewProduct contains information needed to create or update a Product.
type NewProduct struct {
	Name           string   `json:"name" validate:"required,notblank"`
	Description    string   `json:"description" validate:"required,notblank"`
	ImageURL       string   `json:"image_url" validate:"required,url"`
	PriceInDollars int      `json:"price_in_dollars" validate:"gte=0"`
	Status         string   `json:"status" validate:"required,productstatus"`
	CourseIDs      []string `json:"course_ids" validate:"required,min=1,dive,required"`
}

type UpdateProduct NewProduct

func (np *NewProduct) Validate(validate *validator.Validate) error {
	np.clean()
	return validate.Struct(np)
}

func (up *UpdateProduct) Validate(validate *validator.Validate) error {
	(*NewProduct)(up).clean()
	return validate.Struct(up)
}

func (np *NewProduct) clean() {
	np.Name = core.CleanString(np.Name)
	np.Description = core.CleanString(np.Description)
	np.ImageURL = core.CleanString(np.ImageURL)
	np.Status = core.CleanString(np.Status, true /* lower */)
	np.CourseIDs = core.CleanStrings(np.CourseIDs)
}

// Orderable fields of Query
var Orderings = map[string]string{
	"name":             "name",
	"price_in_dollars": "price_in_dollars",
	"created_at":       "created_at",
}
