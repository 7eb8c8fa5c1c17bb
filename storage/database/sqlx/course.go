package sqlxrepos

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/coursedesk/core"
	"github.com/trezcool/coursedesk/core/course"
)

const (
	courseColumns  = `id, name, description, created_at, updated_at`
	sectionColumns = `id, course_id, name, status, "order", created_at, updated_at`
	lessonColumns  = `id, section_id, name, description, youtube_video_id, status, "order", created_at, updated_at`

	queryCourses = `SELECT c.id, c.name, c.description, c.created_at, c.updated_at,
		(SELECT COUNT(*) FROM course_sections s WHERE s.course_id = c.id) AS sections_count,
		(SELECT COUNT(*) FROM lessons l JOIN course_sections s ON s.id = l.section_id WHERE s.course_id = c.id) AS lessons_count,
		(SELECT COUNT(*) FROM user_course_access a WHERE a.course_id = c.id) AS students_count
		FROM courses c
		ORDER BY c.name ASC`

	// setOrder writes a full order in one statement. It updates nothing unless
	// every id belongs to the parent; "order" becomes the id's index.
	setOrder = `WITH o AS (
			SELECT id, ord FROM unnest($2::uuid[]) WITH ORDINALITY AS o(id, ord)
		), ok AS (
			SELECT COUNT(*) = cardinality($2::uuid[]) AS all_in
			FROM %[1]s t JOIN o ON t.id = o.id
			WHERE t.%[2]s = $1
		)
		UPDATE %[1]s AS t SET "order" = o.ord - 1, updated_at = now()
		FROM o, ok
		WHERE ok.all_in AND t.id = o.id AND t.%[2]s = $1`
)

var (
	setSectionOrder = fmt.Sprintf(setOrder, "course_sections", "course_id")
	setLessonOrder  = fmt.Sprintf(setOrder, "lessons", "section_id")
)

type courseRepository struct {
	base
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(exec core.DBExecutor) *courseRepository {
	return &courseRepository{base{exec: exec}}
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Courses

func (repo courseRepository) QueryCourses(ctx context.Context, exec ...core.DBExecutor) ([]course.CourseSummary, error) {
	courses := make([]course.CourseSummary, 0)
	if err := repo.getExec(exec).SelectContext(ctx, &courses, queryCourses); err != nil {
		return nil, errors.Wrap(err, "selecting courses")
	}
	return courses, nil
}

func (repo courseRepository) GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (course.Course, error) {
	if !validID(id) {
		return course.Course{}, course.ErrCourseNotFound
	}
	var c course.Course
	q := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1`
	if err := repo.getExec(exec).GetContext(ctx, &c, q, id); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrCourseNotFound, "finding course")
	}
	return c, nil
}

func (repo courseRepository) CreateCourse(ctx context.Context, c course.Course, exec ...core.DBExecutor) (course.Course, error) {
	var out course.Course
	q := `INSERT INTO courses (name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + courseColumns
	if err := repo.getExec(exec).GetContext(ctx, &out, q, c.Name, c.Description, c.CreatedAt, c.UpdatedAt); err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return out, nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, c course.Course, exec ...core.DBExecutor) (course.Course, error) {
	if !validID(c.ID) {
		return course.Course{}, course.ErrCourseNotFound
	}
	var out course.Course
	q := `UPDATE courses SET name = $2, description = $3, updated_at = $4
		WHERE id = $1
		RETURNING ` + courseColumns
	if err := repo.getExec(exec).GetContext(ctx, &out, q, c.ID, c.Name, c.Description, c.UpdatedAt); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrCourseNotFound, "updating course")
	}
	return out, nil
}

func (repo courseRepository) DeleteCourse(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return repo.deleteByID(ctx, "courses", id, course.ErrCourseNotFound, exec)
}

// Sections

func (repo courseRepository) QuerySections(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]course.Section, error) {
	sections := make([]course.Section, 0)
	if !validID(courseID) {
		return sections, nil
	}
	q := `SELECT ` + sectionColumns + ` FROM course_sections WHERE course_id = $1 ORDER BY "order" ASC, created_at ASC`
	if err := repo.getExec(exec).SelectContext(ctx, &sections, q, courseID); err != nil {
		return nil, errors.Wrap(err, "selecting sections")
	}
	return sections, nil
}

func (repo courseRepository) GetSection(ctx context.Context, id string, exec ...core.DBExecutor) (course.Section, error) {
	if !validID(id) {
		return course.Section{}, course.ErrSectionNotFound
	}
	var s course.Section
	q := `SELECT ` + sectionColumns + ` FROM course_sections WHERE id = $1`
	if err := repo.getExec(exec).GetContext(ctx, &s, q, id); err != nil {
		return course.Section{}, trapNoRowsErr(err, course.ErrSectionNotFound, "finding section")
	}
	return s, nil
}

func (repo courseRepository) CreateSection(ctx context.Context, s course.Section, exec ...core.DBExecutor) (course.Section, error) {
	if !validID(s.CourseID) {
		return course.Section{}, course.ErrCourseNotFound
	}
	var out course.Section
	q := `INSERT INTO course_sections (course_id, name, status, "order", created_at, updated_at)
		VALUES ($1, $2, $3, (SELECT COALESCE(MAX("order"), -1) + 1 FROM course_sections WHERE course_id = $1), $4, $5)
		RETURNING ` + sectionColumns
	err := repo.getExec(exec).GetContext(ctx, &out, q, s.CourseID, s.Name, s.Status, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		if pqCode(err) == foreignKeyViolation {
			return course.Section{}, course.ErrCourseNotFound
		}
		return course.Section{}, errors.Wrap(err, "inserting section")
	}
	return out, nil
}

func (repo courseRepository) UpdateSection(ctx context.Context, s course.Section, exec ...core.DBExecutor) (course.Section, error) {
	if !validID(s.ID) {
		return course.Section{}, course.ErrSectionNotFound
	}
	var out course.Section
	q := `UPDATE course_sections SET name = $2, status = $3, updated_at = $4
		WHERE id = $1
		RETURNING ` + sectionColumns
	if err := repo.getExec(exec).GetContext(ctx, &out, q, s.ID, s.Name, s.Status, s.UpdatedAt); err != nil {
		return course.Section{}, trapNoRowsErr(err, course.ErrSectionNotFound, "updating section")
	}
	return out, nil
}

func (repo courseRepository) DeleteSection(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return repo.deleteByID(ctx, "course_sections", id, course.ErrSectionNotFound, exec)
}

func (repo courseRepository) SetSectionOrder(ctx context.Context, courseID string, ids []string, exec ...core.DBExecutor) error {
	return repo.setOrder(ctx, setSectionOrder, courseID, ids, exec)
}

func (repo courseRepository) setOrder(ctx context.Context, q, parentID string, ids []string, exec []core.DBExecutor) error {
	if !validID(parentID) {
		return errOrderRejected
	}
	for _, id := range ids {
		if !validID(id) {
			return errOrderRejected
		}
	}
	res, err := repo.getExec(exec).ExecContext(ctx, q, parentID, pq.Array(ids))
	if err != nil {
		return errors.Wrap(err, "writing order")
	}
	return checkAllUpdated(res, ids)
}

// Lessons

func (repo courseRepository) QueryLessons(ctx context.Context, sectionID string, exec ...core.DBExecutor) ([]course.Lesson, error) {
	lessons := make([]course.Lesson, 0)
	if !validID(sectionID) {
		return lessons, nil
	}
	q := `SELECT ` + lessonColumns + ` FROM lessons WHERE section_id = $1 ORDER BY "order" ASC, created_at ASC`
	if err := repo.getExec(exec).SelectContext(ctx, &lessons, q, sectionID); err != nil {
		return nil, errors.Wrap(err, "selecting lessons")
	}
	return lessons, nil
}

func (repo courseRepository) GetLesson(ctx context.Context, id string, exec ...core.DBExecutor) (course.Lesson, error) {
	if !validID(id) {
		return course.Lesson{}, course.ErrLessonNotFound
	}
	var l course.Lesson
	q := `SELECT ` + lessonColumns + ` FROM lessons WHERE id = $1`
	if err := repo.getExec(exec).GetContext(ctx, &l, q, id); err != nil {
		return course.Lesson{}, trapNoRowsErr(err, course.ErrLessonNotFound, "finding lesson")
	}
	return l, nil
}

func (repo courseRepository) CreateLesson(ctx context.Context, l course.Lesson, exec ...core.DBExecutor) (course.Lesson, error) {
	if !validID(l.SectionID) {
		return course.Lesson{}, course.ErrSectionNotFound
	}
	var out course.Lesson
	q := `INSERT INTO lessons (section_id, name, description, youtube_video_id, status, "order", created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, (SELECT COALESCE(MAX("order"), -1) + 1 FROM lessons WHERE section_id = $1), $6, $7)
		RETURNING ` + lessonColumns
	err := repo.getExec(exec).GetContext(ctx, &out, q,
		l.SectionID, l.Name, l.Description, l.YoutubeVideoID, l.Status, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		if pqCode(err) == foreignKeyViolation {
			return course.Lesson{}, course.ErrSectionNotFound
		}
		return course.Lesson{}, errors.Wrap(err, "inserting lesson")
	}
	return out, nil
}

func (repo courseRepository) UpdateLesson(ctx context.Context, l course.Lesson, exec ...core.DBExecutor) (course.Lesson, error) {
	if !validID(l.ID) {
		return course.Lesson{}, course.ErrLessonNotFound
	}
	if !validID(l.SectionID) {
		return course.Lesson{}, course.ErrSectionNotFound
	}
	var out course.Lesson
	q := `UPDATE lessons
		SET section_id = $2, name = $3, description = $4, youtube_video_id = $5, status = $6, "order" = $7, updated_at = $8
		WHERE id = $1
		RETURNING ` + lessonColumns
	err := repo.getExec(exec).GetContext(ctx, &out, q,
		l.ID, l.SectionID, l.Name, l.Description, l.YoutubeVideoID, l.Status, l.Order, l.UpdatedAt)
	if err != nil {
		if pqCode(err) == foreignKeyViolation {
			return course.Lesson{}, course.ErrSectionNotFound
		}
		return course.Lesson{}, trapNoRowsErr(err, course.ErrLessonNotFound, "updating lesson")
	}
	return out, nil
}

func (repo courseRepository) DeleteLesson(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return repo.deleteByID(ctx, "lessons", id, course.ErrLessonNotFound, exec)
}

func (repo courseRepository) SetLessonOrder(ctx context.Context, sectionID string, ids []string, exec ...core.DBExecutor) error {
	return repo.setOrder(ctx, setLessonOrder, sectionID, ids, exec)
}
