package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/coursedesk/core"
)

// Statuses
const (
	StatusPublic  = "public"
	StatusPrivate = "private"
	StatusPreview = "preview" // lessons only
)

var (
	SectionStatuses = []string{StatusPublic, StatusPrivate}
	LessonStatuses  = []string{StatusPublic, StatusPrivate, StatusPreview}
)

type (
	Course struct {
		ID          string    `json:"id" db:"id"`
		Name        string    `json:"name" db:"name"`
		Description string    `json:"description" db:"description"`
		CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
		UpdatedAt   time.Time `json:"updated_at" db:"updated_at"` // UTC
	}

	// CourseSummary is a Course as listed in the admin table.
	CourseSummary struct {
		Course
		SectionsCount int `json:"sections_count" db:"sections_count"`
		LessonsCount  int `json:"lessons_count" db:"lessons_count"`
		StudentsCount int `json:"students_count" db:"students_count"`
	}

	Section struct {
		ID        string    `json:"id" db:"id"`
		CourseID  string    `json:"course_id" db:"course_id"`
		Name      string    `json:"name" db:"name"`
		Status    string    `json:"status" db:"status"`
		Order     int       `json:"order" db:"order"`
		CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
		UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
	}

	Lesson struct {
		ID             string    `json:"id" db:"id"`
		SectionID      string    `json:"section_id" db:"section_id"`
		Name           string    `json:"name" db:"name"`
		Description    *string   `json:"description" db:"description"`
		YoutubeVideoID string    `json:"youtube_video_id" db:"youtube_video_id"`
		Status         string    `json:"status" db:"status"`
		Order          int       `json:"order" db:"order"`
		CreatedAt      time.Time `json:"created_at" db:"created_at"` // UTC
		UpdatedAt      time.Time `json:"updated_at" db:"updated_at"` // UTC
	}
)

// SectionIDs returns the ids of sections in their order.
func SectionIDs(sections []Section) []string {
	ids := make([]string, 0, len(sections))
	for _, s := range sections {
		ids = append(ids, s.ID)
	}
	return ids
}

// LessonIDs returns the ids of lessons in their order.
func LessonIDs(lessons []Lesson) []string {
	ids := make([]string, 0, len(lessons))
	for _, l := range lessons {
		ids = append(ids, l.ID)
	}
	return ids
}

type (
	NewCourse struct {
		Name        string `json:"name" validate:"required,notblank"`
		Description string `json:"description" validate:"required,notblank"`
	}

	UpdateCourse NewCourse

	NewSection struct {
		Name   string `json:"name" validate:"required,notblank"`
		Status string `json:"status" validate:"required,sectionstatus"`
	}

	UpdateSection NewSection

	NewLesson struct {
		Name           string  `json:"name" validate:"required,notblank"`
		Description    *string `json:"description"`
		YoutubeVideoID string  `json:"youtube_video_id" validate:"required,notblank"`
		Status         string  `json:"status" validate:"required,lessonstatus"`
		SectionID      string  `json:"section_id"` // moves the lesson on update when set
	}

	UpdateLesson NewLesson

	// SetOrder is the body of a full-order write.
	SetOrder struct {
		IDs []string `json:"ids" validate:"required"`
	}
)

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Description = core.CleanString(nc.Description)
	return validate.Struct(nc)
}

func (uc *UpdateCourse) Validate(validate *validator.Validate) error {
	uc.Name = core.CleanString(uc.Name)
	uc.Description = core.CleanString(uc.Description)
	return validate.Struct(uc)
}

func (ns *NewSection) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Status = core.CleanString(ns.Status, true /* lower */)
	return validate.Struct(ns)
}

func (us *UpdateSection) Validate(validate *validator.Validate) error {
	us.Name = core.CleanString(us.Name)
	us.Status = core.CleanString(us.Status, true /* lower */)
	return validate.Struct(us)
}

func (nl *NewLesson) Validate(validate *validator.Validate) error {
	nl.clean()
	return validate.Struct(nl)
}

func (ul *UpdateLesson) Validate(validate *validator.Validate) error {
	(*NewLesson)(ul).clean()
	return validate.Struct(ul)
}

func (nl *NewLesson) clean() {
	nl.Name = core.CleanString(nl.Name)
	nl.YoutubeVideoID = core.CleanString(nl.YoutubeVideoID)
	nl.Status = core.CleanString(nl.Status, true /* lower */)
	nl.SectionID = core.CleanString(nl.SectionID)
	if nl.Description != nil {
		desc := core.CleanString(*nl.Description)
		if desc == "" {
			nl.Description = nil
		} else {
			nl.Description = &desc
		}
	}
}
