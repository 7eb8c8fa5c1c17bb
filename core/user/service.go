package user

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/coursedesk/core"
)

var (
	// errors
	ErrNotFound           = errors.New("user not found")
	ErrUserExists         = errors.New("a user with this username or email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDeactivated = errors.New("account deactivated")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		GetUser(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (User, error)
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		UpdateOrCreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: core.CleanString(uname, true /* lower */)})
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = NowFunc().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// Authenticate checks the credentials of an active User and records the login.
func (svc *Service) Authenticate(ctx context.Context, uname, pwd string) (User, error) {
	usr, err := svc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by username or email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !usr.Active() {
		return User{}, ErrAccountDeactivated
	}
	usr, err = svc.SetLastLogin(ctx, usr)
	return usr, errors.Wrap(err, "setting lastLogin")
}

// SaveAdmin creates the admin account described by na, or resets the password and
// roles of the account that already uses its username or email.
func (svc *Service) SaveAdmin(ctx context.Context, na NewAdmin) (User, error) {
	usr, err := svc.repo.GetUser(ctx, GetFilter{Username: na.Username, Email: na.Email})
	if err != nil {
		if errors.Cause(err) != ErrNotFound {
			return User{}, errors.Wrap(err, "finding user")
		}
		now := NowFunc().UTC()
		usr = User{Name: na.Name, Username: na.Username, Email: na.Email, CreatedAt: now}
	}
	usr.Roles = AllRoles
	usr.UpdatedAt = NowFunc().UTC()
	usr.SetActive(true)
	if err = usr.SetPassword(na.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	return svc.repo.UpdateOrCreateUser(ctx, usr)
}

// ResetPassword sets a new password on the User with the given username or email.
func (svc *Service) ResetPassword(ctx context.Context, uname, pwd string) error {
	usr, err := svc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return err
	}
	if tag := passwordPolicy(pwd, usr.Name, usr.Username, usr.Email); tag != "" {
		return core.NewValidationError(nil, core.FieldError{Field: "password", Error: policyTexts[tag]})
	}
	if err = usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = NowFunc().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return errors.Wrap(err, "updating user")
}

var policyTexts = map[string]string{
	pwdMinLenTag:    pwdMinLenText,
	pwdNotAllNumTag: pwdNotAllNumText,
	pwdAttrSimTag:   pwdAttrSimText,
}
