package main

import (
	"fmt"
	"io"
	"strings"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/trezcool/coursedesk/core"
	"github.com/trezcool/coursedesk/core/cache"
	"github.com/trezcool/coursedesk/core/course"
	"github.com/trezcool/coursedesk/core/user"
	"github.com/trezcool/coursedesk/storage/database"
	sqlxrepos "github.com/trezcool/coursedesk/storage/database/sqlx"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp          = errors.New("help provided")
	errEmptyPassword = errors.New("password cannot be empty")
)

// app carries what the commands share. Repositories are opened on first use.
type app struct {
	conf       *core.Config
	logger     core.Logger
	validate   *validator.Validate
	translator ut.Translator
	cache      *cache.Cache

	openDB  func(conf *core.Config) (*sqlx.DB, error) // mockable
	db      *sqlx.DB
	usrRepo user.Repository
	courses course.Repository
}

func newApp(conf *core.Config, logger core.Logger) *app {
	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	course.InitValidators(validate, translator)

	return &app{
		conf:       conf,
		logger:     logger,
		validate:   validate,
		translator: translator,
		cache:      cache.New(conf.Cache.TTL, nil),
		openDB:     database.Open,
	}
}

func (a *app) database() (*sqlx.DB, error) {
	if a.db == nil {
		db, err := a.openDB(a.conf)
		if err != nil {
			return nil, err
		}
		a.db = db
	}
	return a.db, nil
}

func (a *app) userService() (*user.Service, error) {
	if a.usrRepo == nil {
		db, err := a.database()
		if err != nil {
			return nil, err
		}
		a.usrRepo = sqlxrepos.NewUserRepository(db)
	}
	return user.NewService(a.usrRepo), nil
}

func (a *app) courseService() (*course.Service, error) {
	if a.courses == nil {
		db, err := a.database()
		if err != nil {
			return nil, err
		}
		a.courses = sqlxrepos.NewCourseRepository(db)
	}
	return course.NewService(a.courses, a.cache), nil
}

func (a *app) close() {
	if a.db != nil {
		_ = a.db.Close()
		a.db = nil
	}
}

// validationMessage flattens translated validator errors into one line.
func (a *app) validationMessage(err error) error {
	vErrs, ok := errors.Cause(err).(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(vErrs))
	for _, vErr := range vErrs {
		msgs = append(msgs, vErr.Field()+": "+vErr.Translate(a.translator))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func readPassword(out io.Writer, prompt string) (string, error) {
	_, _ = fmt.Fprint(out, prompt)
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	_, _ = fmt.Fprintln(out)
	if err != nil {
		return "", errors.Wrap(err, "reading password")
	}
	if len(pwd) == 0 {
		return "", errEmptyPassword
	}
	return string(pwd), nil
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Coursedesk administration",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Help()
			return errHelp
		},
	}
	root.AddCommand(
		newCreateDBCmd(a),
		newMigrateCmd(a),
		newAddUserCmd(a),
		newResetPasswordCmd(a),
		newConsoleCmd(a),
	)
	return root
}
