package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/coursedesk/core"
	"github.com/trezcool/coursedesk/core/user"
	"github.com/trezcool/coursedesk/storage/database/memdb"
	"github.com/trezcool/coursedesk/tests"
)

func setup(t *testing.T) (*user.Service, user.Repository) {
	db, err := memdb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	repo := memdb.NewUserRepository(db)
	return user.NewService(repo), repo
}

func TestService_Authenticate(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	now := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)
	user.NowFunc = func() time.Time { return now }
	defer func() { user.NowFunc = time.Now }()

	usr := testutil.CreateUser(t, repo, "Jane", "jane", "jane@test.cd", "s3cr3t-pwd", []string{user.RoleAdmin}, true)
	testutil.CreateUser(t, repo, "Joe", "joe", "joe@test.cd", "s3cr3t-pwd", nil, false)

	tests := []struct {
		name    string
		uname   string
		pwd     string
		wantErr error
	}{
		{name: "unknown user", uname: "nobody", pwd: "s3cr3t-pwd", wantErr: user.ErrInvalidCredentials},
		{name: "wrong password", uname: "jane", pwd: "lol", wantErr: user.ErrInvalidCredentials},
		{name: "deactivated", uname: "joe", pwd: "s3cr3t-pwd", wantErr: user.ErrAccountDeactivated},
		{name: "username", uname: "jane", pwd: "s3cr3t-pwd"},
		{name: "email with spaces", uname: "  JANE@test.cd ", pwd: "s3cr3t-pwd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Authenticate(ctx, tt.uname, tt.pwd)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, usr.ID, got.ID)
			assert.Equal(t, now, got.LastLogin)
		})
	}
}

func TestService_SaveAdmin(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	created, err := svc.SaveAdmin(ctx, user.NewAdmin{Name: "Root", Username: "root", Password: "first-pwd"})
	require.NoError(t, err)
	assert.True(t, created.IsAdmin())
	assert.True(t, created.Active())

	// same username: the account is updated in place
	updated, err := svc.SaveAdmin(ctx, user.NewAdmin{Username: "root", Password: "second-pwd"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)

	got, err := repo.GetUser(ctx, user.GetFilter{ID: created.ID})
	require.NoError(t, err)
	assert.NoError(t, got.CheckPassword("second-pwd"))
}

func TestService_ResetPassword(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, repo, "Jane", "jane", "jane@test.cd", "s3cr3t-pwd", nil, true)

	tests := []struct {
		name      string
		uname     string
		pwd       string
		wantErr   error
		wantField bool
	}{
		{name: "unknown user", uname: "nobody", pwd: "n3w-secret", wantErr: user.ErrNotFound},
		{name: "too short", uname: "jane", pwd: "abc", wantField: true},
		{name: "numeric", uname: "jane", pwd: "1234567890", wantField: true},
		{name: "similar to email", uname: "jane", pwd: "jane@test.cd", wantField: true},
		{name: "ok", uname: "jane@test.cd", pwd: "n3w-secret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.ResetPassword(ctx, tt.uname, tt.pwd)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantField:
				assert.True(t, core.IsValidationError(err), "unexpected error: %v", err)
			default:
				require.NoError(t, err)
				got, err := repo.GetUser(ctx, user.GetFilter{ID: usr.ID})
				require.NoError(t, err)
				assert.NoError(t, got.CheckPassword(tt.pwd))
			}
		})
	}
}

func TestNewAdmin_Validate(t *testing.T) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	tests := []struct {
		name    string
		na      user.NewAdmin
		wantErr bool
	}{
		{name: "no username nor email", na: user.NewAdmin{Password: "n3w-secret", PasswordConfirm: "n3w-secret"}, wantErr: true},
		{name: "passwords differ", na: user.NewAdmin{Username: "root", Password: "n3w-secret", PasswordConfirm: "other"}, wantErr: true},
		{name: "weak password", na: user.NewAdmin{Username: "root", Password: "12345678", PasswordConfirm: "12345678"}, wantErr: true},
		{name: "bad email", na: user.NewAdmin{Email: "lol", Password: "n3w-secret", PasswordConfirm: "n3w-secret"}, wantErr: true},
		{name: "ok", na: user.NewAdmin{Username: " Root ", Password: "n3w-secret", PasswordConfirm: "n3w-secret"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.na.Validate(validate)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, "root", tt.na.Username)
			}
		})
	}
}
