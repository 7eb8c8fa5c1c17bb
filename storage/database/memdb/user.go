package memdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/coursedesk/core"
	"github.com/trezcool/coursedesk/core/user"
)

type userRepository struct {
	db *userTable
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db.user}
}

// find must be called with the table lock held.
func (repo *userRepository) find(filter user.GetFilter) (*user.User, bool) {
	if filter.ID != "" {
		usr, ok := repo.db.table[filter.ID]
		return usr, ok
	}
	for _, usr := range repo.db.table {
		switch {
		case filter.Username != "":
			if usr.Username == filter.Username {
				return usr, true
			}
		case filter.Email != "":
			if usr.Email == filter.Email {
				return usr, true
			}
		case filter.UsernameOrEmail != "":
			if usr.Username == filter.UsernameOrEmail || usr.Email == filter.UsernameOrEmail {
				return usr, true
			}
		default:
			return nil, false
		}
	}
	return nil, false
}

// taken must be called with the table lock held.
func (repo *userRepository) taken(usr user.User) bool {
	for _, u := range repo.db.table {
		if u.ID == usr.ID {
			continue
		}
		if (usr.Username != "" && u.Username == usr.Username) || (usr.Email != "" && u.Email == usr.Email) {
			return true
		}
	}
	return false
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter, _ ...core.DBExecutor) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if usr, ok := repo.find(filter); ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	usr.ID = uuid.New().String()
	if repo.taken(usr) {
		return user.User{}, user.ErrUserExists
	}
	repo.db.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	if repo.taken(usr) {
		return user.User{}, user.ErrUserExists
	}
	repo.db.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID == "" {
		return repo.CreateUser(ctx, usr, exec...)
	}
	return repo.UpdateUser(ctx, usr, exec...)
}

func (repo *userRepository) DeleteUsersByID(_ context.Context, ids []string, _ ...core.DBExecutor) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var n int
	for _, id := range ids {
		if _, ok := repo.db.table[id]; ok {
			delete(repo.db.table, id)
			n++
		}
	}
	return n, nil
}
