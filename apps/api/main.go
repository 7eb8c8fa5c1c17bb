package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	echoapi "github.com/trezcool/coursedesk/apps/api/echo"
	"github.com/trezcool/coursedesk/core"
	"github.com/trezcool/coursedesk/core/cache"
	"github.com/trezcool/coursedesk/core/course"
	"github.com/trezcool/coursedesk/core/product"
	"github.com/trezcool/coursedesk/core/user"
	logsvc "github.com/trezcool/coursedesk/services/logger"
	"github.com/trezcool/coursedesk/storage/database"
	"github.com/trezcool/coursedesk/storage/database/memdb"
	sqlxrepos "github.com/trezcool/coursedesk/storage/database/sqlx"
)

// engineMemory keeps everything in process, for demos and local development.
const engineMemory = "memory"

type repositories struct {
	users    user.Repository
	courses  course.Repository
	products product.Repository
	close    func() error
}

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(os.Stdout, conf)

	if err := run(conf, logger); err != nil {
		logger.Fatal("api", err)
	}
}

func run(conf *core.Config, logger core.Logger) error {
	// =========================================================================
	// Set up Dependencies

	repos, err := setUpRepositories(conf)
	if err != nil {
		return errors.Wrap(err, "setting up database")
	}
	defer func() {
		if err := repos.close(); err != nil {
			logger.Error("closing database", err)
		}
	}()

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	course.InitValidators(validate, translator)
	product.InitValidators(validate, translator)

	c := cache.New(conf.Cache.TTL, nil)
	courseSvc := course.NewService(repos.courses, c)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := echoapi.NewServer(conf.Server.Address, stop, &echoapi.Deps{
		Conf:       conf,
		Logger:     logger,
		Validate:   validate,
		Translator: translator,
		UserSvc:    user.NewService(repos.users),
		CourseSvc:  courseSvc,
		ProductSvc: product.NewService(repos.products, courseSvc, c),
	})

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	debugSrv := &http.Server{Addr: conf.Server.DebugHost, Handler: http.DefaultServeMux}

	// =========================================================================
	// Start API Service

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := debugSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("debug server closed", err)
		}
		return nil
	})
	g.Go(server.Start)

	// =========================================================================
	// Shutdown

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Start shutdown...")

		// give outstanding requests a deadline for completion
		sctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()
		_ = debugSrv.Shutdown(sctx)
		return errors.Wrap(server.Stop(sctx), "could not stop server gracefully")
	})
	return g.Wait()
}

func setUpRepositories(conf *core.Config) (*repositories, error) {
	if conf.Database.Engine == engineMemory {
		db, err := memdb.Open()
		if err != nil {
			return nil, err
		}
		return &repositories{
			users:    memdb.NewUserRepository(db),
			courses:  memdb.NewCourseRepository(db),
			products: memdb.NewProductRepository(db),
			close:    func() error { return nil },
		}, nil
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if err = database.Migrate(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &repositories{
		users:    sqlxrepos.NewUserRepository(db),
		courses:  sqlxrepos.NewCourseRepository(db),
		products: sqlxrepos.NewProductRepository(db),
		close:    db.Close,
	}, nil
}
