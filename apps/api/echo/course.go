package echoapi

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/coursedesk/core"
	"github.com/trezcool/coursedesk/core/course"
	"github.com/trezcool/coursedesk/core/user"
)

type courseApi struct {
	svc      *course.Service
	auth     *tokenAuth
	logger   core.Logger
	validate *validator.Validate
}

func registerCourseAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	auth *tokenAuth,
	logger core.Logger,
	svc *course.Service,
	validate *validator.Validate,
) {
	api := courseApi{svc: svc, auth: auth, logger: logger, validate: validate}
	admin := adminMiddleware(auth)

	cg := g.Group("/courses", jwt)
	cg.GET("", api.queryCourses)
	cg.POST("", api.createCourse, admin)
	cg.GET("/:id", api.retrieveCourse)
	cg.PUT("/:id", api.updateCourse, admin)
	cg.DELETE("/:id", api.destroyCourse, admin)
	cg.GET("/:id/sections", api.querySections)
	cg.POST("/:id/sections", api.createSection, admin)
	cg.PUT("/:id/sections/order", api.setSectionOrder, admin)

	sg := g.Group("/sections", jwt)
	sg.GET("/:id", api.retrieveSection)
	sg.PUT("/:id", api.updateSection, admin)
	sg.DELETE("/:id", api.destroySection, admin)
	sg.GET("/:id/lessons", api.queryLessons)
	sg.POST("/:id/lessons", api.createLesson, admin)
	sg.PUT("/:id/lessons/order", api.setLessonOrder, admin)

	lg := g.Group("/lessons", jwt)
	lg.GET("/:id", api.retrieveLesson)
	lg.PUT("/:id", api.updateLesson, admin)
	lg.DELETE("/:id", api.destroyLesson, admin)
}

// Courses

func (api *courseApi) queryCourses(ctx echo.Context) error {
	courses, err := api.svc.QueryCourses(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) createCourse(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	actor, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	c, err := api.svc.CreateCourse(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *courseApi) retrieveCourse(ctx echo.Context) error {
	c, err := api.svc.GetCourse(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding course")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) updateCourse(ctx echo.Context) error {
	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	actor, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	c, err := api.svc.UpdateCourse(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) destroyCourse(ctx echo.Context) error {
	actor, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err = api.svc.DeleteCourse(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Sections

func (api *courseApi) querySections(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	if _, err := api.svc.GetCourse(rctx, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "finding course")
	}
	sections, err := api.svc.QuerySections(rctx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying sections")
	}
	return ctx.JSON(http.StatusOK, sections)
}

func (api *courseApi) retrieveSection(ctx echo.Context) error {
	s, err := api.svc.GetSection(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding section")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *courseApi) createSection(ctx echo.Context) error {
	var data course.NewSection
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSection")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	actor, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	s, err := api.svc.CreateSection(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "creating section")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *courseApi) updateSection(ctx echo.Context) error {
	var data course.UpdateSection
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSection")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	actor, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	s, err := api.svc.UpdateSection(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating section")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *courseApi) destroySection(ctx echo.Context) error {
	actor, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err = api.svc.DeleteSection(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting section")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) setSectionOrder(ctx echo.Context) error {
	return api.setOrder(ctx, course.ScopeSections, api.svc.SetSectionOrder)
}

// Lessons

func (api *courseApi) queryLessons(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	if _, err := api.svc.GetSection(rctx, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "finding section")
	}
	lessons, err := api.svc.QueryLessons(rctx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying lessons")
	}
	return ctx.JSON(http.StatusOK, lessons)
}

func (api *courseApi) retrieveLesson(ctx echo.Context) error {
	l, err := api.svc.GetLesson(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding lesson")
	}
	return ctx.JSON(http.StatusOK, l)
}

func (api *courseApi) createLesson(ctx echo.Context) error {
	var data course.NewLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	actor, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	l, err := api.svc.CreateLesson(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "creating lesson")
	}
	return ctx.JSON(http.StatusCreated, l)
}

func (api *courseApi) updateLesson(ctx echo.Context) error {
	var data course.UpdateLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLesson")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	actor, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	l, err := api.svc.UpdateLesson(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating lesson")
	}
	return ctx.JSON(http.StatusOK, l)
}

func (api *courseApi) destroyLesson(ctx echo.Context) error {
	actor, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err = api.svc.DeleteLesson(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) setLessonOrder(ctx echo.Context) error {
	return api.setOrder(ctx, course.ScopeLessons, api.svc.SetLessonOrder)
}

// Full orders

type setOrderFunc = func(rctx context.Context, actor user.User, parentID string, ids []string) error

// setOrder writes the full order of the :id scope and answers with its outcome message.
func (api *courseApi) setOrder(ctx echo.Context, kind string, set setOrderFunc) error {
	var data course.SetOrder
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetOrder")
	}
	if data.IDs == nil {
		return core.NewValidationError(nil, core.FieldError{Field: "ids", Error: "this field is required"})
	}
	actor, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	err = set(ctx.Request().Context(), actor, ctx.Param("id"), data.IDs)
	out := course.OrderOutcome(kind, err)
	if out.OK() {
		return ctx.JSON(http.StatusOK, SuccessResponse{Success: out.Message})
	}

	code := domainErrorCode(errors.Cause(err))
	switch {
	case code != 0:
	case core.IsValidationError(err):
		code = http.StatusBadRequest
	default:
		code = http.StatusInternalServerError
		api.logger.Error(out.Message, errors.Wrap(err, "setting full order"), actor)
	}
	return ctx.JSON(code, ErrorResponse{Error: out.Message})
}
