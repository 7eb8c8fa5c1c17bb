package memdb

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/coursedesk/core"
	"github.com/trezcool/coursedesk/core/course"
)

var errOrderRejected = errors.New("order rejected: ids do not all belong to the scope")

type courseRepository struct {
	db *courseTables
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db.course}
}

// Courses

func (repo *courseRepository) QueryCourses(_ context.Context, _ ...core.DBExecutor) ([]course.CourseSummary, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	summaries := make(map[string]*course.CourseSummary, len(repo.db.courses))
	for id, c := range repo.db.courses {
		summaries[id] = &course.CourseSummary{Course: *c, StudentsCount: repo.db.students[id]}
	}
	for _, s := range repo.db.sections {
		if sum, ok := summaries[s.CourseID]; ok {
			sum.SectionsCount++
		}
	}
	for _, l := range repo.db.lessons {
		if s, ok := repo.db.sections[l.SectionID]; ok {
			if sum, ok := summaries[s.CourseID]; ok {
				sum.LessonsCount++
			}
		}
	}

	out := make([]course.CourseSummary, 0, len(summaries))
	for _, sum := range summaries {
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (repo *courseRepository) GetCourse(_ context.Context, id string, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.courses[id]; ok {
		return *c, nil
	}
	return course.Course{}, course.ErrCourseNotFound
}

func (repo *courseRepository) CreateCourse(_ context.Context, c course.Course, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c.ID = uuid.New().String()
	repo.db.courses[c.ID] = &c
	return c, nil
}

func (repo *courseRepository) UpdateCourse(_ context.Context, c course.Course, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.courses[c.ID]; !ok {
		return course.Course{}, course.ErrCourseNotFound
	}
	repo.db.courses[c.ID] = &c
	return c, nil
}

func (repo *courseRepository) DeleteCourse(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.courses[id]; !ok {
		return course.ErrCourseNotFound
	}
	delete(repo.db.courses, id)
	delete(repo.db.students, id)
	for sid, s := range repo.db.sections {
		if s.CourseID == id {
			repo.deleteSection(sid)
		}
	}
	return nil
}

// Sections

func (repo *courseRepository) QuerySections(_ context.Context, courseID string, _ ...core.DBExecutor) ([]course.Section, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.sectionsOf(courseID), nil
}

// sectionsOf must be called with the tables lock held.
func (repo *courseRepository) sectionsOf(courseID string) []course.Section {
	sections := make([]course.Section, 0)
	for _, s := range repo.db.sections {
		if s.CourseID == courseID {
			sections = append(sections, *s)
		}
	}
	sort.Slice(sections, func(i, j int) bool { return sections[i].Order < sections[j].Order })
	return sections
}

func (repo *courseRepository) GetSection(_ context.Context, id string, _ ...core.DBExecutor) (course.Section, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.sections[id]; ok {
		return *s, nil
	}
	return course.Section{}, course.ErrSectionNotFound
}

func (repo *courseRepository) CreateSection(_ context.Context, s course.Section, _ ...core.DBExecutor) (course.Section, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.courses[s.CourseID]; !ok {
		return course.Section{}, course.ErrCourseNotFound
	}
	s.ID = uuid.New().String()
	s.Order = 0
	for _, other := range repo.sectionsOf(s.CourseID) {
		if other.Order >= s.Order {
			s.Order = other.Order + 1
		}
	}
	repo.db.sections[s.ID] = &s
	return s, nil
}

func (repo *courseRepository) UpdateSection(_ context.Context, s course.Section, _ ...core.DBExecutor) (course.Section, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.sections[s.ID]; !ok {
		return course.Section{}, course.ErrSectionNotFound
	}
	repo.db.sections[s.ID] = &s
	return s, nil
}

func (repo *courseRepository) DeleteSection(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.sections[id]; !ok {
		return course.ErrSectionNotFound
	}
	repo.deleteSection(id)
	return nil
}

// deleteSection must be called with the tables lock held.
func (repo *courseRepository) deleteSection(id string) {
	delete(repo.db.sections, id)
	for lid, l := range repo.db.lessons {
		if l.SectionID == id {
			delete(repo.db.lessons, lid)
		}
	}
}

func (repo *courseRepository) SetSectionOrder(_ context.Context, courseID string, ids []string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		if s, ok := repo.db.sections[id]; !ok || s.CourseID != courseID {
			return errOrderRejected
		}
	}
	for i, id := range ids {
		repo.db.sections[id].Order = i
	}
	return nil
}

// Lessons

func (repo *courseRepository) QueryLessons(_ context.Context, sectionID string, _ ...core.DBExecutor) ([]course.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.lessonsOf(sectionID), nil
}

// lessonsOf must be called with the tables lock held.
func (repo *courseRepository) lessonsOf(sectionID string) []course.Lesson {
	lessons := make([]course.Lesson, 0)
	for _, l := range repo.db.lessons {
		if l.SectionID == sectionID {
			lessons = append(lessons, *l)
		}
	}
	sort.Slice(lessons, func(i, j int) bool { return lessons[i].Order < lessons[j].Order })
	return lessons
}

func (repo *courseRepository) GetLesson(_ context.Context, id string, _ ...core.DBExecutor) (course.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if l, ok := repo.db.lessons[id]; ok {
		return *l, nil
	}
	return course.Lesson{}, course.ErrLessonNotFound
}

func (repo *courseRepository) CreateLesson(_ context.Context, l course.Lesson, _ ...core.DBExecutor) (course.Lesson, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.sections[l.SectionID]; !ok {
		return course.Lesson{}, course.ErrSectionNotFound
	}
	l.ID = uuid.New().String()
	l.Order = 0
	for _, other := range repo.lessonsOf(l.SectionID) {
		if other.Order >= l.Order {
			l.Order = other.Order + 1
		}
	}
	repo.db.lessons[l.ID] = &l
	return l, nil
}

func (repo *courseRepository) UpdateLesson(_ context.Context, l course.Lesson, _ ...core.DBExecutor) (course.Lesson, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.lessons[l.ID]; !ok {
		return course.Lesson{}, course.ErrLessonNotFound
	}
	if _, ok := repo.db.sections[l.SectionID]; !ok {
		return course.Lesson{}, course.ErrSectionNotFound
	}
	repo.db.lessons[l.ID] = &l
	return l, nil
}

func (repo *courseRepository) DeleteLesson(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.lessons[id]; !ok {
		return course.ErrLessonNotFound
	}
	delete(repo.db.lessons, id)
	return nil
}

func (repo *courseRepository) SetLessonOrder(_ context.Context, sectionID string, ids []string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		if l, ok := repo.db.lessons[id]; !ok || l.SectionID != sectionID {
			return errOrderRejected
		}
	}
	for i, id := range ids {
		repo.db.lessons[id].Order = i
	}
	return nil
}
