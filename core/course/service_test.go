package course_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/coursedesk/core"
	"github.com/trezcool/coursedesk/core/cache"
	"github.com/trezcool/coursedesk/core/course"
	"github.com/trezcool/coursedesk/core/reorder"
	"github.com/trezcool/coursedesk/core/user"
	"github.com/trezcool/coursedesk/storage/database/memdb"
	"github.com/trezcool/coursedesk/tests"
)

var (
	admin   = user.User{ID: "admin", Username: "admin", Roles: []string{user.RoleAdmin}}
	student = user.User{ID: "student", Username: "student", Roles: []string{user.RoleStudent}}
)

func setup(t *testing.T) (*course.Service, course.Repository) {
	db, err := memdb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	repo := memdb.NewCourseRepository(db)
	return course.NewService(repo, cache.New(0, nil)), repo
}

func TestService_SetSectionOrder(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	crs := testutil.CreateCourse(t, repo, "Go")
	other := testutil.CreateCourse(t, repo, "Rust")
	sections := course.SectionIDs(testutil.CreateSections(t, repo, crs.ID, "A", "B", "C", "D"))
	foreign := course.SectionIDs(testutil.CreateSections(t, repo, other.ID, "X"))
	a, b, c, d := sections[0], sections[1], sections[2], sections[3]

	tests := []struct {
		name     string
		actor    user.User
		courseID string
		ids      []string
		wantErr  func(error) bool
		want     []string
	}{
		{
			name: "forbidden", actor: student, courseID: crs.ID, ids: []string{d, a, b, c},
			wantErr: func(err error) bool { return err == course.ErrForbidden }, want: sections,
		},
		{
			name: "unknown course", actor: admin, courseID: "lol", ids: []string{d, a, b, c},
			wantErr: func(err error) bool { return errors.Cause(err) == course.ErrNotFound }, want: sections,
		},
		{
			name: "missing id", actor: admin, courseID: crs.ID, ids: []string{d, a, b},
			wantErr: core.IsValidationError, want: sections,
		},
		{
			name: "foreign id", actor: admin, courseID: crs.ID, ids: []string{d, a, b, foreign[0]},
			wantErr: core.IsValidationError, want: sections,
		},
		{
			name: "duplicate id", actor: admin, courseID: crs.ID, ids: []string{d, a, b, c, c},
			wantErr: core.IsValidationError, want: sections,
		},
		{
			name: "full order", actor: admin, courseID: crs.ID, ids: []string{a, d, b, c},
			want: []string{a, d, b, c},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.SetSectionOrder(ctx, tt.actor, tt.courseID, tt.ids)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, tt.wantErr(err), "unexpected error: %v", err)
			} else {
				require.NoError(t, err)
			}
			got, err := svc.QuerySections(ctx, crs.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, course.SectionIDs(got))
		})
	}
}

func TestService_SetLessonOrder(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	crs := testutil.CreateCourse(t, repo, "Go")
	sec := testutil.CreateSections(t, repo, crs.ID, "Basics")[0]
	lessons := course.LessonIDs(testutil.CreateLessons(t, repo, sec.ID, "1", "2", "3"))

	// prime the cache
	_, err := svc.QueryLessons(ctx, sec.ID)
	require.NoError(t, err)

	err = svc.SetLessonOrder(ctx, admin, sec.ID, []string{lessons[2], lessons[0]})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing lessons in order")

	want := []string{lessons[2], lessons[0], lessons[1]}
	require.NoError(t, svc.SetLessonOrder(ctx, admin, sec.ID, want))
	got, err := svc.QueryLessons(ctx, sec.ID)
	require.NoError(t, err)
	assert.Equal(t, want, course.LessonIDs(got))
	for i, l := range got {
		assert.Equal(t, i, l.Order)
	}
}

func TestService_CreateSectionAppends(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()
	crs := testutil.CreateCourse(t, repo, "Go")

	_, err := svc.CreateSection(ctx, student, crs.ID, course.NewSection{Name: "A", Status: course.StatusPublic})
	assert.Equal(t, course.ErrForbidden, err)

	var ids []string
	for _, name := range []string{"A", "B", "C"} {
		s, err := svc.CreateSection(ctx, admin, crs.ID, course.NewSection{Name: name, Status: course.StatusPrivate})
		require.NoError(t, err)
		ids = append(ids, s.ID)
	}
	require.NoError(t, svc.SetSectionOrder(ctx, admin, crs.ID, []string{ids[2], ids[1], ids[0]}))

	s, err := svc.CreateSection(ctx, admin, crs.ID, course.NewSection{Name: "D", Status: course.StatusPublic})
	require.NoError(t, err)
	assert.Equal(t, 3, s.Order)

	got, err := svc.QuerySections(ctx, crs.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{ids[2], ids[1], ids[0], s.ID}, course.SectionIDs(got))
}

func TestService_QueryCourses(t *testing.T) {
	db, err := memdb.Open()
	require.NoError(t, err)
	repo := memdb.NewCourseRepository(db)
	svc := course.NewService(repo, cache.New(0, nil))
	ctx := context.Background()

	crs := testutil.CreateCourse(t, repo, "Go")
	testutil.CreateCourse(t, repo, "Assembly")
	secs := testutil.CreateSections(t, repo, crs.ID, "A", "B")
	testutil.CreateLessons(t, repo, secs[0].ID, "1", "2")
	db.GrantAccess(crs.ID, 3)

	got, err := svc.QueryCourses(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Assembly", got[0].Name)
	assert.Equal(t, course.CourseSummary{Course: crs, SectionsCount: 2, LessonsCount: 2, StudentsCount: 3}, got[1])

	// a write through the service drops the cached list
	_, err = svc.CreateLesson(ctx, admin, secs[1].ID, course.NewLesson{Name: "3", YoutubeVideoID: "v", Status: course.StatusPreview})
	require.NoError(t, err)
	got, err = svc.QueryCourses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, got[1].LessonsCount)
}

func TestService_UpdateLessonMovesSection(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()
	crs := testutil.CreateCourse(t, repo, "Go")
	secs := testutil.CreateSections(t, repo, crs.ID, "A", "B")
	l := testutil.CreateLessons(t, repo, secs[0].ID, "1")[0]
	testutil.CreateLessons(t, repo, secs[1].ID, "2", "3")

	moved, err := svc.UpdateLesson(ctx, admin, l.ID, course.UpdateLesson{
		Name: "1", YoutubeVideoID: "v", Status: course.StatusPublic, SectionID: secs[1].ID,
	})
	require.NoError(t, err)
	assert.Equal(t, secs[1].ID, moved.SectionID)
	assert.Equal(t, 2, moved.Order)

	left, err := svc.QueryLessons(ctx, secs[0].ID)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestPersister(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()
	crs := testutil.CreateCourse(t, repo, "Go")
	ids := course.SectionIDs(testutil.CreateSections(t, repo, crs.ID, "A", "B"))
	scope := course.SectionScope(crs.ID)

	tests := []struct {
		name  string
		actor user.User
		scope reorder.Scope
		ids   []string
		want  reorder.Outcome
	}{
		{name: "forbidden", actor: student, scope: scope, ids: []string{ids[1], ids[0]}, want: reorder.Failure("permission denied")},
		{name: "unknown kind", actor: admin, scope: reorder.Scope{Kind: "chapters", ParentID: crs.ID}, ids: ids, want: reorder.Failure(course.ReorderFailure("chapters"))},
		{name: "rejected", actor: admin, scope: scope, ids: ids[:1], want: reorder.Failure("ids: missing sections in order: " + ids[1])},
		{name: "ok", actor: admin, scope: scope, ids: []string{ids[1], ids[0]}, want: reorder.Success("Successfully reordered your sections")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := course.Persister(svc, tt.actor).SetFullOrder(ctx, tt.scope, tt.ids)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCacheInvalidator(t *testing.T) {
	c := cache.New(0, nil)
	c.Set("sections:c1", 1, course.ScopeTags(course.SectionScope("c1"))...)
	c.Set("sections:c2", 2, course.ScopeTags(course.SectionScope("c2"))...)
	c.Set("lessons:s1", 3, course.ScopeTags(course.LessonScope("s1"))...)

	course.CacheInvalidator(c).Invalidate(course.LessonScope("s1"))
	_, ok := c.Get("lessons:s1")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())

	// the global sections tag covers every course
	course.CacheInvalidator(c).Invalidate(course.SectionScope("c1"))
	assert.Equal(t, 0, c.Len())
}
