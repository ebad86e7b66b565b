package echoapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/littledragons/core"
	"github.com/trezcool/littledragons/core/docstore"
)

const queryPath = "/v1/collections/:name/query"

type collectionAPI struct {
	db docstore.Database
}

func registerCollectionAPI(g *echo.Group, jwt echo.MiddlewareFunc, api collectionAPI) {
	cg := g.Group("/collections/:name", jwt, collectionMiddleware, accessMiddleware)
	cg.GET("", api.list)
	cg.POST("/query", api.query)

	// detail endpoints
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.put)
	cg.DELETE("/:id", api.destroy)
}

func (api *collectionAPI) collection(ctx echo.Context) docstore.Collection {
	return api.db.Collection(ctx.Param(collectionParam))
}

// Handlers

func (api *collectionAPI) list(ctx echo.Context) error {
	q := docstore.Query{}.Order(bindOrdering(ctx)...)
	if _, err := q.Normalized(); err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: orderingParam, Error: err.Error()})
	}
	docs, err := api.collection(ctx).Query(ctx.Request().Context(), q)
	if err != nil {
		return errors.Wrap(err, "querying documents")
	}
	return ctx.JSON(http.StatusOK, DocumentsResponse{Documents: docs})
}

func (api *collectionAPI) query(ctx echo.Context) error {
	var q docstore.Query
	if err := json.NewDecoder(ctx.Request().Body).Decode(&q); err != nil {
		return core.NewValidationError(errors.Wrap(err, "invalid query"))
	}
	docs, err := api.collection(ctx).Query(ctx.Request().Context(), q)
	if err != nil {
		return errors.Wrap(err, "querying documents")
	}
	return ctx.JSON(http.StatusOK, DocumentsResponse{Documents: docs})
}

func (api *collectionAPI) retrieve(ctx echo.Context) error {
	doc, err := api.collection(ctx).Get(ctx.Request().Context(), ctx.Param(idParam))
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting document")
	}
	return ctx.JSON(http.StatusOK, doc)
}

func (api *collectionAPI) put(ctx echo.Context) error {
	data, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return errors.Wrap(err, "reading document")
	}
	if _, err := docstore.Decode(data); err != nil || len(data) == 0 {
		return core.NewValidationError(errors.New("document must be a JSON object"))
	}
	if err := api.collection(ctx).Set(ctx.Request().Context(), ctx.Param(idParam), data); err != nil {
		return errors.Wrap(err, "storing document")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *collectionAPI) destroy(ctx echo.Context) error {
	if err := api.collection(ctx).Delete(ctx.Request().Context(), ctx.Param(idParam)); err != nil {
		return errors.Wrap(err, "deleting document")
	}
	return ctx.NoContent(http.StatusNoContent)
}
