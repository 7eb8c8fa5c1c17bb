package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_InvalidateTags(t *testing.T) {
	c := New(0, nil)
	c.Set("courses", []string{"c1", "c2"}, GlobalTag(KindCourses))
	c.Set("course:c1", "c1", GlobalTag(KindCourses), IDTag(KindCourses, "c1"))
	c.Set("sections:c1", []string{"s1"}, ParentTag("course", "c1", KindSections))
	c.Set("sections:c2", []string{"s2"}, ParentTag("course", "c2", KindSections))

	assert.Equal(t, 1, c.InvalidateTags(ParentTag("course", "c1", KindSections)))
	_, ok := c.Get("sections:c1")
	assert.False(t, ok)
	_, ok = c.Get("sections:c2")
	assert.True(t, ok)

	assert.Equal(t, 2, c.InvalidateTags(GlobalTag(KindCourses), IDTag(KindCourses, "c1")))
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 0, c.InvalidateTags("unknown"))
}

func TestCache_Expiry(t *testing.T) {
	now := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New(time.Minute, func() time.Time { return now })
	c.Set("k", 1, "t")

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	now = now.Add(time.Minute)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 0, c.InvalidateTags("t"))
}

func TestCache_SetReplacesTags(t *testing.T) {
	c := New(0, nil)
	c.Set("k", 1, "old")
	c.Set("k", 2, "new")

	assert.Equal(t, 0, c.InvalidateTags("old"))
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.InvalidateTags("new"))
}

func TestFetch(t *testing.T) {
	c := New(0, nil)
	var loads int
	load := func() ([]string, error) {
		loads++
		return []string{"a", "b"}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := Fetch(c, "list", []string{"tag"}, load)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, got)
	}
	assert.Equal(t, 1, loads)

	c.InvalidateTags("tag")
	_, err := Fetch(c, "list", []string{"tag"}, load)
	require.NoError(t, err)
	assert.Equal(t, 2, loads)

	boom := errors.New("boom")
	_, err = Fetch(c, "other", nil, func() (int, error) { return 0, boom })
	assert.Equal(t, boom, err)
	_, ok := c.Get("other")
	assert.False(t, ok)
}

func TestFetch_InvalidatedWhileLoading(t *testing.T) {
	c := New(0, nil)
	tags := []string{ParentTag("course", "c1", KindSections)}
	stored := []string{"s1", "s2"}

	// a reorder commits and invalidates between the read and the cache write
	got, err := Fetch(c, "sections:c1", tags, func() ([]string, error) {
		old := append([]string(nil), stored...)
		stored = []string{"s2", "s1"}
		c.InvalidateTags(tags...)
		return old, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, got)
	_, ok := c.Get("sections:c1")
	assert.False(t, ok)

	got, err = Fetch(c, "sections:c1", tags, func() ([]string, error) {
		return append([]string(nil), stored...), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"s2", "s1"}, got)
	v, ok := c.Get("sections:c1")
	require.True(t, ok)
	assert.Equal(t, []string{"s2", "s1"}, v)
}

func TestTags(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{name: "global", got: GlobalTag(KindCourses), want: "global:courses"},
		{name: "id", got: IDTag(KindLessons, "l1"), want: "id:l1-lessons"},
		{name: "parent", got: ParentTag("course", "c1", KindSections), want: "course:c1-courseSections"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}
