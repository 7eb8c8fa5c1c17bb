package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/coursedesk/core/product"
)

type productApi struct {
	svc      *product.Service
	auth     *tokenAuth
	validate *validator.Validate
}

func registerProductAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	auth *tokenAuth,
	svc *product.Service,
	validate *validator.Validate,
) {
	api := productApi{svc: svc, auth: auth, validate: validate}

	pg := g.Group("/products", jwt, adminMiddleware(auth))
	pg.GET("", api.query)
	pg.POST("", api.create)
	pg.GET("/:id", api.retrieve)
	pg.PUT("/:id", api.update)
	pg.DELETE("/:id", api.destroy)
}

func (api *productApi) query(ctx echo.Context) error {
	products, err := api.svc.Query(ctx.Request().Context(), queryOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying products")
	}
	return ctx.JSON(http.StatusOK, products)
}

func (api *productApi) create(ctx echo.Context) error {
	var data product.NewProduct
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProduct")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	actor, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	p, err := api.svc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating product")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *productApi) retrieve(ctx echo.Context) error {
	p, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding product")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *productApi) update(ctx echo.Context) error {
	var data product.UpdateProduct
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProduct")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	actor, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	p, err := api.svc.Update(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating product")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *productApi) destroy(ctx echo.Context) error {
	actor, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err = api.svc.Delete(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting product")
	}
	return ctx.NoContent(http.StatusNoContent)
}
