package cache

import "fmt"

// Tag kinds
const (
	KindUsers    = "users"
	KindCourses  = "courses"
	KindSections = "courseSections"
	KindLessons  = "lessons"
	KindProducts = "products"
)

// GlobalTag covers every entry of kind.
func GlobalTag(kind string) string {
	return fmt.Sprintf("global:%s", kind)
}

// IDTag covers the entries built from the entity id of kind.
func IDTag(kind, id string) string {
	return fmt.Sprintf("id:%s-%s", id, kind)
}

// ParentTag covers the entries listing the children of kind under a parent entity.
func ParentTag(parentKind, parentID, kind string) string {
	return fmt.Sprintf("%s:%s-%s", parentKind, parentID, kind)
}
