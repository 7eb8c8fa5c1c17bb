package echoapi

import (
	"context"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/coursedesk/core"
	"github.com/trezcool/coursedesk/core/course"
	"github.com/trezcool/coursedesk/core/product"
	"github.com/trezcool/coursedesk/core/user"
)

type (
	Deps struct {
		Conf           *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		DisableReqLogs bool

		UserSvc    *user.Service
		CourseSvc  *course.Service
		ProductSvc *product.Service
	}

	Server struct {
		addr string
		deps *Deps
		auth *tokenAuth
		app  *echo.Echo
	}
)

// NewServer builds the v1 API. signalShutdown is called when a handler hits a shutdown error.
func NewServer(addr string, signalShutdown func(), deps *Deps) *Server {
	s := &Server{
		addr: addr,
		deps: deps,
		auth: newTokenAuth(deps.Conf, deps.UserSvc),
		app:  echo.New(),
	}
	s.setup(signalShutdown)
	return s
}

func (s *Server) setup(signalShutdown func()) {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	if signalShutdown == nil {
		signalShutdown = func() {}
	}
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(s.auth.jwtConfig)

	registerUserAPI(v1, jwt, s.auth, s.deps.Validate)
	registerCourseAPI(v1, jwt, s.auth, s.deps.Logger, s.deps.CourseSvc, s.deps.Validate)
	registerProductAPI(v1, jwt, s.auth, s.deps.ProductSvc, s.deps.Validate)
}

func (s *Server) Start() error {
	err := s.app.Start(s.addr)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

// GenerateToken signs a token for usr with the server's key.
func (s *Server) GenerateToken(usr user.User) (string, error) {
	return s.auth.generateToken(s.auth.userClaims(usr))
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
