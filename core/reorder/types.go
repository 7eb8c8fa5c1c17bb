// Package reorder keeps drag-and-drop orderings responsive while the authoritative
// order is persisted elsewhere.
//
// A Store shows the optimistic order right away and hands it to a Pipeline. The
// Pipeline commits at most one order per Scope at a time and folds any gestures that
// arrive in the meantime into a single trailing commit. The Store reconciles when
// each attempt resolves.
package reorder

import (
	"context"
	"fmt"
)

// Scope identifies one ordered list, e.g. the sections of a course.
type Scope struct {
	Kind     string
	ParentID string
}

func (s Scope) String() string {
	return fmt.Sprintf("%s:%s", s.Kind, s.ParentID)
}

// Outcome is the tagged result of a persistence call.
type Outcome struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

func (o Outcome) OK() bool { return !o.Error }

func Success(msg string) Outcome { return Outcome{Message: msg} }

func Failure(msg string) Outcome { return Outcome{Error: true, Message: msg} }

type (
	// Persister durably stores the full order of a scope.
	// It must reject identifiers that do not belong to the scope.
	Persister interface {
		SetFullOrder(ctx context.Context, scope Scope, ids []string) Outcome
	}

	// Invalidator is told when a scope's persisted order changed.
	Invalidator interface {
		Invalidate(scope Scope)
	}

	// Resolver receives exactly one Outcome per submitted attempt.
	Resolver interface {
		Resolve(seq uint64, out Outcome)
	}

	// Committer persists attempts asynchronously. Pipeline is the implementation.
	// Submit is called with the Store locked and must not call r.Resolve before returning.
	Committer interface {
		Submit(ctx context.Context, scope Scope, seq uint64, ids []string, r Resolver)
	}

	PersisterFunc   func(ctx context.Context, scope Scope, ids []string) Outcome
	InvalidatorFunc func(scope Scope)
)

func (f PersisterFunc) SetFullOrder(ctx context.Context, scope Scope, ids []string) Outcome {
	return f(ctx, scope, ids)
}

func (f InvalidatorFunc) Invalidate(scope Scope) { f(scope) }

// Status of a Store.
type Status string

const (
	StatusStable  Status = "stable"
	StatusPending Status = "pending"
)

// PendingReorder is one attempt between its optimistic apply and its resolution.
type PendingReorder struct {
	Seq      uint64
	Previous []string // confirmed order when the attempt was applied
	Proposed []string
}

// Notice is the user-visible result of a settled gesture.
type Notice struct {
	Seq     uint64
	Error   bool
	Message string
}

// Snapshot is what observers of a Store receive after each transition.
// Notice is only set on the transition that settled the latest attempt.
type Snapshot struct {
	Version   uint64
	Scope     Scope
	Displayed []string
	Confirmed []string
	Status    Status
	Notice    *Notice
}
