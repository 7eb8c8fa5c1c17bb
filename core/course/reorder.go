package course

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/coursedesk/core"
	"github.com/trezcool/coursedesk/core/cache"
	"github.com/trezcool/coursedesk/core/reorder"
	"github.com/trezcool/coursedesk/core/user"
)

// Reorder scope kinds
const (
	ScopeSections = "sections"
	ScopeLessons  = "lessons"
)

// SectionScope is the ordered list of the sections of a course.
func SectionScope(courseID string) reorder.Scope {
	return reorder.Scope{Kind: ScopeSections, ParentID: courseID}
}

// LessonScope is the ordered list of the lessons of a section.
func LessonScope(sectionID string) reorder.Scope {
	return reorder.Scope{Kind: ScopeLessons, ParentID: sectionID}
}

// ReorderSuccess and ReorderFailure are the messages of a settled reorder of kind.
func ReorderSuccess(kind string) string {
	return fmt.Sprintf("Successfully reordered your %s", kind)
}

func ReorderFailure(kind string) string {
	return fmt.Sprintf("There was an error reordering your %s", kind)
}

// OrderOutcome turns the result of a full-order write into a reorder.Outcome.
// Rejections keep their message; other errors get the generic failure message.
func OrderOutcome(kind string, err error) reorder.Outcome {
	if err == nil {
		return reorder.Success(ReorderSuccess(kind))
	}
	cause := errors.Cause(err)
	if cause == ErrForbidden || cause == ErrNotFound || core.IsValidationError(err) {
		return reorder.Failure(err.Error())
	}
	return reorder.Failure(ReorderFailure(kind))
}

// Persister writes orders straight through svc on behalf of actor.
func Persister(svc *Service, actor user.User) reorder.Persister {
	return reorder.PersisterFunc(func(ctx context.Context, scope reorder.Scope, ids []string) reorder.Outcome {
		var err error
		switch scope.Kind {
		case ScopeSections:
			err = svc.SetSectionOrder(ctx, actor, scope.ParentID, ids)
		case ScopeLessons:
			err = svc.SetLessonOrder(ctx, actor, scope.ParentID, ids)
		default:
			err = errors.Errorf("unknown reorder scope %q", scope.Kind)
		}
		return OrderOutcome(scope.Kind, err)
	})
}

// CacheInvalidator drops the cached reads of a reordered scope from c.
func CacheInvalidator(c *cache.Cache) reorder.Invalidator {
	return reorder.InvalidatorFunc(func(scope reorder.Scope) {
		c.InvalidateTags(ScopeTags(scope)...)
	})
}

// ScopeTags are the cache tags covering the items of scope.
func ScopeTags(scope reorder.Scope) []string {
	switch scope.Kind {
	case ScopeSections:
		return []string{
			cache.GlobalTag(cache.KindSections),
			cache.ParentTag("course", scope.ParentID, cache.KindSections),
		}
	case ScopeLessons:
		return []string{
			cache.GlobalTag(cache.KindLessons),
			cache.ParentTag("section", scope.ParentID, cache.KindLessons),
		}
	}
	return nil
}
