// Package memdb holds in-memory repositories for development and tests.
package memdb

import (
	"sync"

	"github.com/trezcool/coursedesk/core/course"
	"github.com/trezcool/coursedesk/core/product"
	"github.com/trezcool/coursedesk/core/user"
)

type (
	DB struct {
		user    *userTable
		course  *courseTables
		product *productTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	// courseTables share one lock since orders span rows of the same parent.
	courseTables struct {
		sync.RWMutex
		courses  map[string]*course.Course
		sections map[string]*course.Section
		lessons  map[string]*course.Lesson
		students map[string]int // course ID -> number of students with access
	}

	productTable struct {
		sync.RWMutex
		table map[string]*product.Product
	}
)

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{table: make(map[string]*user.User)},
		course: &courseTables{
			courses:  make(map[string]*course.Course),
			sections: make(map[string]*course.Section),
			lessons:  make(map[string]*course.Lesson),
			students: make(map[string]int),
		},
		product: &productTable{table: make(map[string]*product.Product)},
	}
	return db, nil
}

// GrantAccess records that n more students can access a course.
func (db *DB) GrantAccess(courseID string, n int) {
	db.course.Lock()
	defer db.course.Unlock()
	db.course.students[courseID] += n
}
