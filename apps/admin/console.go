package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/coursedesk/apps/console"
	"github.com/trezcool/coursedesk/core/course"
	"github.com/trezcool/coursedesk/core/reorder"
	"github.com/trezcool/coursedesk/services/apiclient"
)

var runConsoleFunc = console.Run // mockable

// orderSource reads what the console shows.
type orderSource interface {
	Course(ctx context.Context, id string) (course.Course, error)
	Section(ctx context.Context, id string) (course.Section, error)
	Sections(ctx context.Context, courseID string) ([]course.Section, error)
	Lessons(ctx context.Context, sectionID string) ([]course.Lesson, error)
}

type serviceSource struct{ svc *course.Service }

func (s serviceSource) Course(ctx context.Context, id string) (course.Course, error) {
	return s.svc.GetCourse(ctx, id)
}

func (s serviceSource) Section(ctx context.Context, id string) (course.Section, error) {
	return s.svc.GetSection(ctx, id)
}

func (s serviceSource) Sections(ctx context.Context, courseID string) ([]course.Section, error) {
	return s.svc.QuerySections(ctx, courseID)
}

func (s serviceSource) Lessons(ctx context.Context, sectionID string) ([]course.Lesson, error) {
	return s.svc.QueryLessons(ctx, sectionID)
}

type consoleOptions struct {
	local    bool
	username string
}

func newConsoleCmd(a *app) *cobra.Command {
	var opts consoleOptions
	cmd := &cobra.Command{
		Use:   "console course|section ID",
		Short: "Reorder the sections of a course or the lessons of a section",
		Long: `Reorder the sections of a course or the lessons of a section.

By default orders are written through the API at console.apiURL, authenticated
with console.token or by logging in as --username. With --local they are
written straight to the database on behalf of --username.`,
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"course", "section"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConsole(cmd, args[0], args[1], opts)
		},
	}
	cmd.Flags().BoolVar(&opts.local, "local", false, "write to the database instead of the API")
	cmd.Flags().StringVar(&opts.username, "username", "", "the username or email to act as")
	return cmd
}

func (a *app) runConsole(cmd *cobra.Command, kind, id string, opts consoleOptions) error {
	ctx := cmd.Context()
	src, persister, invalidator, err := a.consoleBackend(cmd, opts)
	if err != nil {
		return err
	}

	title, scope, items, err := loadOrder(ctx, src, kind, id)
	if err != nil {
		return err
	}
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}

	p := reorder.NewPipeline(persister, a.logger, reorder.WithCommitTimeout(a.conf.Reorder.CommitTimeout))
	store := reorder.NewStore(scope, ids, p, a.logger, reorder.WithInvalidator(invalidator))
	m := console.New(ctx, title, items, store, func() bool { return p.Idle(scope) })

	err = runConsoleFunc(m)
	p.Wait()
	return err
}

func (a *app) consoleBackend(cmd *cobra.Command, opts consoleOptions) (orderSource, reorder.Persister, reorder.Invalidator, error) {
	ctx := cmd.Context()
	if opts.local {
		if opts.username == "" {
			return nil, nil, nil, errors.New("--username is required with --local")
		}
		usrSvc, err := a.userService()
		if err != nil {
			return nil, nil, nil, err
		}
		actor, err := usrSvc.GetByUsernameOrEmail(ctx, opts.username)
		if err != nil {
			return nil, nil, nil, errors.Wrap(err, "finding acting user")
		}
		if !course.CanReorder(actor) {
			return nil, nil, nil, course.ErrForbidden
		}
		svc, err := a.courseService()
		if err != nil {
			return nil, nil, nil, err
		}
		return serviceSource{svc}, course.Persister(svc, actor), course.CacheInvalidator(svc.Cache()), nil
	}

	client := apiclient.New(a.conf.Console.APIURL, a.cache, a.logger, apiclient.WithToken(a.conf.Console.Token))
	if opts.username != "" {
		pwd, err := readPassword(cmd.OutOrStdout(), "Enter password:")
		if err != nil {
			return nil, nil, nil, err
		}
		if err = client.Login(ctx, opts.username, pwd); err != nil {
			return nil, nil, nil, err
		}
	}
	return client, client, client.Invalidator(), nil
}

// loadOrder reads the ordered items of the course or section id.
func loadOrder(ctx context.Context, src orderSource, kind, id string) (string, reorder.Scope, []console.Item, error) {
	switch kind {
	case "course":
		crs, err := src.Course(ctx, id)
		if err != nil {
			return "", reorder.Scope{}, nil, errors.Wrap(err, "getting course")
		}
		sections, err := src.Sections(ctx, id)
		if err != nil {
			return "", reorder.Scope{}, nil, errors.Wrap(err, "querying sections")
		}
		items := make([]console.Item, len(sections))
		for i, s := range sections {
			items[i] = console.Item{ID: s.ID, Name: s.Name}
		}
		return fmt.Sprintf("Sections of %s", crs.Name), course.SectionScope(id), items, nil

	case "section":
		s, err := src.Section(ctx, id)
		if err != nil {
			return "", reorder.Scope{}, nil, errors.Wrap(err, "getting section")
		}
		lessons, err := src.Lessons(ctx, id)
		if err != nil {
			return "", reorder.Scope{}, nil, errors.Wrap(err, "querying lessons")
		}
		items := make([]console.Item, len(lessons))
		for i, l := range lessons {
			items[i] = console.Item{ID: l.ID, Name: l.Name}
		}
		return fmt.Sprintf("Lessons of %s", s.Name), course.LessonScope(id), items, nil
	}
	return "", reorder.Scope{}, nil, errors.Errorf("unknown console target %q: want course or section", kind)
}
