package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/trezcool/coursedesk/core/course"
	"github.com/trezcool/coursedesk/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateCourse(t *testing.T, repo course.Repository, name string) course.Course {
	t.Helper()
	now := time.Now().UTC()
	c, err := repo.CreateCourse(context.Background(), course.Course{
		Name:        name,
		Description: name + " description",
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return c
}

// CreateSections appends one public section per name to the course.
func CreateSections(t *testing.T, repo course.Repository, courseID string, names ...string) []course.Section {
	t.Helper()
	sections := make([]course.Section, 0, len(names))
	for _, name := range names {
		s, err := repo.CreateSection(context.Background(), course.Section{
			CourseID: courseID,
			Name:     name,
			Status:   course.StatusPublic,
		})
		if err != nil {
			t.Fatalf("CreateSections() failed: %v", err)
		}
		sections = append(sections, s)
	}
	return sections
}

// CreateLessons appends one public lesson per name to the section.
func CreateLessons(t *testing.T, repo course.Repository, sectionID string, names ...string) []course.Lesson {
	t.Helper()
	lessons := make([]course.Lesson, 0, len(names))
	for _, name := range names {
		l, err := repo.CreateLesson(context.Background(), course.Lesson{
			SectionID:      sectionID,
			Name:           name,
			YoutubeVideoID: "dQw4w9WgXcQ",
			Status:         course.StatusPublic,
		})
		if err != nil {
			t.Fatalf("CreateLessons() failed: %v", err)
		}
		lessons = append(lessons, l)
	}
	return lessons
}

// Logger records the messages it is given, by level.
type Logger struct {
	mu   sync.Mutex
	Msgs map[string][]string
}

func NewLogger() *Logger {
	return &Logger{Msgs: make(map[string][]string)}
}

func (l *Logger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Msgs[level] = append(l.Msgs[level], msg)
}

func (l *Logger) Messages(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.Msgs[level]...)
}

func (l *Logger) Debug(msg string, _ ...interface{}) { l.log("debug", msg) }
func (l *Logger) Info(msg string, _ ...interface{})  { l.log("info", msg) }
func (l *Logger) Warn(msg string, _ ...interface{})  { l.log("warn", msg) }
func (l *Logger) Error(msg string, _ ...interface{}) { l.log("error", msg) }
func (l *Logger) Fatal(msg string, _ ...interface{}) { l.log("fatal", msg) }
