package course

import "github.com/trezcool/coursedesk/core/user"

func CanCreate(actor user.User) bool { return actor.IsAdmin() }

func CanUpdate(actor user.User) bool { return actor.IsAdmin() }

func CanDelete(actor user.User) bool { return actor.IsAdmin() }

// CanReorder reports whether actor may change the order of sections and lessons.
func CanReorder(actor user.User) bool { return actor.IsAdmin() }
