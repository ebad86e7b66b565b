package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/littledragons/core/docstore"
)

const (
	collectionParam = "name"
	idParam         = "id"
)

// collectionMiddleware rejects unknown collections. Credentials are never served.
func collectionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		name := ctx.Param(collectionParam)
		if !docstore.IsKnownCollection(name) || name == docstore.Credentials {
			return errHttpNotFound
		}
		return next(ctx)
	}
}

// accessMiddleware lets teachers write every collection. Parents only read, except for
// their own user account; only teachers read other user accounts.
func accessMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return err
		}

		if ctx.Param(collectionParam) == docstore.Users {
			if claims.IsTeacher() {
				return next(ctx)
			}
			if ctx.Param(idParam) == claims.Subject {
				return next(ctx)
			}
			return errHttpForbidden
		}

		switch ctx.Request().Method {
		case http.MethodGet, http.MethodHead:
			return next(ctx)
		case http.MethodPost:
			if ctx.Path() == queryPath {
				return next(ctx)
			}
		}
		if claims.IsTeacher() {
			return next(ctx)
		}
		return errHttpForbidden
	}
}
