package testutil

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/coursedesk/apps/api/echo"
	"github.com/trezcool/coursedesk/core"
	"github.com/trezcool/coursedesk/core/cache"
	"github.com/trezcool/coursedesk/core/course"
	"github.com/trezcool/coursedesk/core/product"
	"github.com/trezcool/coursedesk/core/user"
	"github.com/trezcool/coursedesk/storage/database/memdb"
)

// API is a v1 server on in-memory repositories.
type API struct {
	*echoapi.Server

	DB        *memdb.DB
	Logger    *Logger
	UserRepo  user.Repository
	Courses   course.Repository
	CourseSvc *course.Service
}

func NewAPI(t *testing.T) *API {
	t.Helper()
	db, err := memdb.Open()
	if err != nil {
		t.Fatalf("NewAPI() failed: %v", err)
	}

	conf := &core.Config{
		Env:       "TEST",
		AppName:   "coursedesk",
		TestMode:  true,
		SecretKey: "test-secret",
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 24 * time.Hour,
		},
	}
	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	course.InitValidators(validate, translator)
	product.InitValidators(validate, translator)

	c := cache.New(0, nil)
	usrRepo := memdb.NewUserRepository(db)
	courses := memdb.NewCourseRepository(db)
	courseSvc := course.NewService(courses, c)
	logger := NewLogger()

	srv := echoapi.NewServer("", nil, &echoapi.Deps{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
		UserSvc:        user.NewService(usrRepo),
		CourseSvc:      courseSvc,
		ProductSvc:     product.NewService(memdb.NewProductRepository(db), courseSvc, c),
	})
	return &API{
		Server:    srv,
		DB:        db,
		Logger:    logger,
		UserRepo:  usrRepo,
		Courses:   courses,
		CourseSvc: courseSvc,
	}
}

// Token signs a token for usr.
func (api *API) Token(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := api.GenerateToken(usr)
	if err != nil {
		t.Fatalf("Token() failed: %v", err)
	}
	return token
}
