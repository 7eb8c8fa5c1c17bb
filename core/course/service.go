package course

import (
	"context"
	"fmt"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"

	"github.com/trezcool/coursedesk/core"
	"github.com/trezcool/coursedesk/core/cache"
	"github.com/trezcool/coursedesk/core/user"
)

var (
	// errors
	ErrNotFound        = errors.New("not found")
	ErrCourseNotFound  = errors.Wrap(ErrNotFound, "course")
	ErrSectionNotFound = errors.Wrap(ErrNotFound, "section")
	ErrLessonNotFound  = errors.Wrap(ErrNotFound, "lesson")
	ErrForbidden       = core.ErrForbidden

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		QueryCourses(ctx context.Context, exec ...core.DBExecutor) ([]CourseSummary, error)
		GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (Course, error)
		CreateCourse(ctx context.Context, c Course, exec ...core.DBExecutor) (Course, error)
		UpdateCourse(ctx context.Context, c Course, exec ...core.DBExecutor) (Course, error)
		DeleteCourse(ctx context.Context, id string, exec ...core.DBExecutor) error

		// QuerySections returns the sections of a course in their order.
		QuerySections(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Section, error)
		GetSection(ctx context.Context, id string, exec ...core.DBExecutor) (Section, error)
		// CreateSection appends s after the last section of its course.
		CreateSection(ctx context.Context, s Section, exec ...core.DBExecutor) (Section, error)
		UpdateSection(ctx context.Context, s Section, exec ...core.DBExecutor) (Section, error)
		DeleteSection(ctx context.Context, id string, exec ...core.DBExecutor) error
		// SetSectionOrder gives each section of ids the order of its index.
		SetSectionOrder(ctx context.Context, courseID string, ids []string, exec ...core.DBExecutor) error

		QueryLessons(ctx context.Context, sectionID string, exec ...core.DBExecutor) ([]Lesson, error)
		GetLesson(ctx context.Context, id string, exec ...core.DBExecutor) (Lesson, error)
		CreateLesson(ctx context.Context, l Lesson, exec ...core.DBExecutor) (Lesson, error)
		UpdateLesson(ctx context.Context, l Lesson, exec ...core.DBExecutor) (Lesson, error)
		DeleteLesson(ctx context.Context, id string, exec ...core.DBExecutor) error
		SetLessonOrder(ctx context.Context, sectionID string, ids []string, exec ...core.DBExecutor) error
	}

	Service struct {
		repo  Repository
		cache *cache.Cache
	}
)

func NewService(repo Repository, c *cache.Cache) *Service {
	return &Service{repo: repo, cache: c}
}

func (svc *Service) Cache() *cache.Cache { return svc.cache }

// Courses

func (svc *Service) QueryCourses(ctx context.Context) ([]CourseSummary, error) {
	tags := []string{
		cache.GlobalTag(cache.KindCourses),
		cache.GlobalTag(cache.KindSections),
		cache.GlobalTag(cache.KindLessons),
	}
	return cache.Fetch(svc.cache, "courses", tags, func() ([]CourseSummary, error) {
		return svc.repo.QueryCourses(ctx)
	})
}

func (svc *Service) GetCourse(ctx context.Context, id string) (Course, error) {
	tags := []string{cache.GlobalTag(cache.KindCourses), cache.IDTag(cache.KindCourses, id)}
	return cache.Fetch(svc.cache, "course:"+id, tags, func() (Course, error) {
		return svc.repo.GetCourse(ctx, id)
	})
}

func (svc *Service) CreateCourse(ctx context.Context, actor user.User, nc NewCourse) (Course, error) {
	if !CanCreate(actor) {
		return Course{}, ErrForbidden
	}
	now := NowFunc().UTC()
	c, err := svc.repo.CreateCourse(ctx, Course{
		Name:        nc.Name,
		Description: nc.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return Course{}, errors.Wrap(err, "creating course")
	}
	svc.cache.InvalidateTags(courseTags(c.ID)...)
	return c, nil
}

func (svc *Service) UpdateCourse(ctx context.Context, actor user.User, id string, uc UpdateCourse) (Course, error) {
	if !CanUpdate(actor) {
		return Course{}, ErrForbidden
	}
	c, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	c.Name = uc.Name
	c.Description = uc.Description
	c.UpdatedAt = NowFunc().UTC()
	if c, err = svc.repo.UpdateCourse(ctx, c); err != nil {
		return Course{}, errors.Wrap(err, "updating course")
	}
	svc.cache.InvalidateTags(courseTags(c.ID)...)
	return c, nil
}

func (svc *Service) DeleteCourse(ctx context.Context, actor user.User, id string) error {
	if !CanDelete(actor) {
		return ErrForbidden
	}
	if err := svc.repo.DeleteCourse(ctx, id); err != nil {
		return err
	}
	tags := append(courseTags(id), cache.ParentTag("course", id, cache.KindSections))
	svc.cache.InvalidateTags(tags...)
	return nil
}

// Sections

func (svc *Service) QuerySections(ctx context.Context, courseID string) ([]Section, error) {
	tags := []string{cache.GlobalTag(cache.KindSections), cache.ParentTag("course", courseID, cache.KindSections)}
	return cache.Fetch(svc.cache, "sections:"+courseID, tags, func() ([]Section, error) {
		return svc.repo.QuerySections(ctx, courseID)
	})
}

func (svc *Service) GetSection(ctx context.Context, id string) (Section, error) {
	return svc.repo.GetSection(ctx, id)
}

func (svc *Service) CreateSection(ctx context.Context, actor user.User, courseID string, ns NewSection) (Section, error) {
	if !CanCreate(actor) {
		return Section{}, ErrForbidden
	}
	if _, err := svc.repo.GetCourse(ctx, courseID); err != nil {
		return Section{}, err
	}
	now := NowFunc().UTC()
	s, err := svc.repo.CreateSection(ctx, Section{
		CourseID:  courseID,
		Name:      ns.Name,
		Status:    ns.Status,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Section{}, errors.Wrap(err, "creating section")
	}
	svc.cache.InvalidateTags(sectionTags(s.CourseID, s.ID)...)
	return s, nil
}

func (svc *Service) UpdateSection(ctx context.Context, actor user.User, id string, us UpdateSection) (Section, error) {
	if !CanUpdate(actor) {
		return Section{}, ErrForbidden
	}
	s, err := svc.repo.GetSection(ctx, id)
	if err != nil {
		return Section{}, err
	}
	s.Name = us.Name
	s.Status = us.Status
	s.UpdatedAt = NowFunc().UTC()
	if s, err = svc.repo.UpdateSection(ctx, s); err != nil {
		return Section{}, errors.Wrap(err, "updating section")
	}
	svc.cache.InvalidateTags(sectionTags(s.CourseID, s.ID)...)
	return s, nil
}

func (svc *Service) DeleteSection(ctx context.Context, actor user.User, id string) error {
	if !CanDelete(actor) {
		return ErrForbidden
	}
	s, err := svc.repo.GetSection(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.repo.DeleteSection(ctx, id); err != nil {
		return errors.Wrap(err, "deleting section")
	}
	tags := append(sectionTags(s.CourseID, s.ID), cache.ParentTag("section", s.ID, cache.KindLessons))
	svc.cache.InvalidateTags(tags...)
	return nil
}

// SetSectionOrder persists ids as the full order of the sections of a course.
// ids must hold every section of the course exactly once.
func (svc *Service) SetSectionOrder(ctx context.Context, actor user.User, courseID string, ids []string) error {
	if !CanReorder(actor) {
		return ErrForbidden
	}
	if _, err := svc.repo.GetCourse(ctx, courseID); err != nil {
		return err
	}
	current, err := svc.repo.QuerySections(ctx, courseID)
	if err != nil {
		return errors.Wrap(err, "querying sections")
	}
	if err = checkFullOrder("sections", SectionIDs(current), ids); err != nil {
		return err
	}
	if err = svc.repo.SetSectionOrder(ctx, courseID, ids); err != nil {
		return errors.Wrap(err, "setting section order")
	}
	svc.cache.InvalidateTags(ScopeTags(SectionScope(courseID))...)
	return nil
}

// Lessons

func (svc *Service) QueryLessons(ctx context.Context, sectionID string) ([]Lesson, error) {
	tags := []string{cache.GlobalTag(cache.KindLessons), cache.ParentTag("section", sectionID, cache.KindLessons)}
	return cache.Fetch(svc.cache, "lessons:"+sectionID, tags, func() ([]Lesson, error) {
		return svc.repo.QueryLessons(ctx, sectionID)
	})
}

func (svc *Service) GetLesson(ctx context.Context, id string) (Lesson, error) {
	return svc.repo.GetLesson(ctx, id)
}

func (svc *Service) CreateLesson(ctx context.Context, actor user.User, sectionID string, nl NewLesson) (Lesson, error) {
	if !CanCreate(actor) {
		return Lesson{}, ErrForbidden
	}
	if _, err := svc.repo.GetSection(ctx, sectionID); err != nil {
		return Lesson{}, err
	}
	now := NowFunc().UTC()
	l, err := svc.repo.CreateLesson(ctx, Lesson{
		SectionID:      sectionID,
		Name:           nl.Name,
		Description:    nl.Description,
		YoutubeVideoID: nl.YoutubeVideoID,
		Status:         nl.Status,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return Lesson{}, errors.Wrap(err, "creating lesson")
	}
	svc.cache.InvalidateTags(lessonTags(l.SectionID, l.ID)...)
	return l, nil
}

// UpdateLesson saves ul on the lesson. A lesson moved to another section is appended to it.
func (svc *Service) UpdateLesson(ctx context.Context, actor user.User, id string, ul UpdateLesson) (Lesson, error) {
	if !CanUpdate(actor) {
		return Lesson{}, ErrForbidden
	}
	l, err := svc.repo.GetLesson(ctx, id)
	if err != nil {
		return Lesson{}, err
	}
	prevSectionID := l.SectionID
	l.Name = ul.Name
	l.Description = ul.Description
	l.YoutubeVideoID = ul.YoutubeVideoID
	l.Status = ul.Status
	l.UpdatedAt = NowFunc().UTC()

	if ul.SectionID != "" && ul.SectionID != prevSectionID {
		if _, err = svc.repo.GetSection(ctx, ul.SectionID); err != nil {
			return Lesson{}, err
		}
		lessons, err := svc.repo.QueryLessons(ctx, ul.SectionID)
		if err != nil {
			return Lesson{}, errors.Wrap(err, "querying lessons")
		}
		l.SectionID = ul.SectionID
		l.Order = nextOrder(len(lessons), func(i int) int { return lessons[i].Order })
	}
	if l, err = svc.repo.UpdateLesson(ctx, l); err != nil {
		return Lesson{}, errors.Wrap(err, "updating lesson")
	}
	tags := lessonTags(l.SectionID, l.ID)
	if prevSectionID != l.SectionID {
		tags = append(tags, cache.ParentTag("section", prevSectionID, cache.KindLessons))
	}
	svc.cache.InvalidateTags(tags...)
	return l, nil
}

func (svc *Service) DeleteLesson(ctx context.Context, actor user.User, id string) error {
	if !CanDelete(actor) {
		return ErrForbidden
	}
	l, err := svc.repo.GetLesson(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.repo.DeleteLesson(ctx, id); err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	svc.cache.InvalidateTags(lessonTags(l.SectionID, l.ID)...)
	return nil
}

// SetLessonOrder persists ids as the full order of the lessons of a section.
// ids must hold every lesson of the section exactly once.
func (svc *Service) SetLessonOrder(ctx context.Context, actor user.User, sectionID string, ids []string) error {
	if !CanReorder(actor) {
		return ErrForbidden
	}
	if _, err := svc.repo.GetSection(ctx, sectionID); err != nil {
		return err
	}
	current, err := svc.repo.QueryLessons(ctx, sectionID)
	if err != nil {
		return errors.Wrap(err, "querying lessons")
	}
	if err = checkFullOrder("lessons", LessonIDs(current), ids); err != nil {
		return err
	}
	if err = svc.repo.SetLessonOrder(ctx, sectionID, ids); err != nil {
		return errors.Wrap(err, "setting lesson order")
	}
	svc.cache.InvalidateTags(ScopeTags(LessonScope(sectionID))...)
	return nil
}

// checkFullOrder fails unless ids holds each of current exactly once and nothing else.
func checkFullOrder(kind string, current, ids []string) error {
	want := mapset.NewThreadUnsafeSet(current...)
	got := mapset.NewThreadUnsafeSet(ids...)

	var msg string
	switch {
	case got.Cardinality() != len(ids):
		msg = fmt.Sprintf("duplicate %s in order", kind)
	case !got.Difference(want).IsEmpty():
		msg = fmt.Sprintf("unknown %s in order: %s", kind, joinSorted(got.Difference(want)))
	case !want.Difference(got).IsEmpty():
		msg = fmt.Sprintf("missing %s in order: %s", kind, joinSorted(want.Difference(got)))
	default:
		return nil
	}
	return core.NewValidationError(nil, core.FieldError{Field: "ids", Error: msg})
}

func joinSorted(s mapset.Set[string]) string {
	return strings.Join(mapset.Sorted(s), ", ")
}

func nextOrder(n int, orderAt func(i int) int) int {
	next := 0
	for i := 0; i < n; i++ {
		if o := orderAt(i); o >= next {
			next = o + 1
		}
	}
	return next
}

func courseTags(id string) []string {
	return []string{cache.GlobalTag(cache.KindCourses), cache.IDTag(cache.KindCourses, id)}
}

func sectionTags(courseID, id string) []string {
	return []string{
		cache.GlobalTag(cache.KindSections),
		cache.IDTag(cache.KindSections, id),
		cache.ParentTag("course", courseID, cache.KindSections),
	}
}

func lessonTags(sectionID, id string) []string {
	return []string{
		cache.GlobalTag(cache.KindLessons),
		cache.IDTag(cache.KindLessons, id),
		cache.ParentTag("section", sectionID, cache.KindLessons),
	}
}
