package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/littledragons/core"
	"github.com/trezcool/littledragons/core/auth"
	"github.com/trezcool/littledragons/core/user"
	"github.com/trezcool/littledragons/services/identity"
)

type accountAPI struct {
	conf     *core.Config
	logger   core.Logger
	ids      *identity.Provider
	users    *user.Repository
	validate *core.Validator
	tokens   tokenIssuer
}

func registerAccountAPI(g *echo.Group, jwt echo.MiddlewareFunc, api accountAPI) {
	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/register", api.register)
	ag.POST("/login", api.login)
	ag.POST("/verify", api.verify)

	// authed endpoints
	ag.POST("/resend", api.resend, jwt)
	ag.POST("/token-refresh", api.refreshToken, jwt)
	ag.GET("/me", api.me, jwt)
}

// Handlers

func (api *accountAPI) register(ctx echo.Context) error {
	var data RegisterRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RegisterRequest")
	}
	reg, err := data.Validate(api.validate)
	if err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	id, err := api.ids.CreateUser(reqCtx, reg.Email, reg.Password)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			return core.NewValidationError(nil, core.FieldError{Field: "email", Error: err.Error()})
		}
		return errors.Wrap(err, "creating identity")
	}
	first, last, _ := core.SplitFullName(reg.Name)
	acc := user.Account{UID: id.UID, Email: id.Email, Role: reg.Role, FirstName: first, LastName: last}
	if err := api.users.Add(reqCtx, acc); err != nil {
		return errors.Wrap(err, "storing user account")
	}

	if err := api.ids.SendVerification(reqCtx, id.UID); err != nil {
		// the account exists: the user can ask for another link
		api.logger.Error("Unable to send e-mail verification", err, acc)
	}

	token, err := api.tokens.generate(api.tokens.claims(acc, id.Verified))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, TokenResponse{Token: token, User: acc})
}

func (api *accountAPI) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	creds, err := data.Validate(api.validate)
	if err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	id, err := api.ids.SignIn(reqCtx, creds.Email, creds.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return errAuthenticationFailed
		}
		return errors.Wrap(err, "signing in")
	}
	acc, err := api.users.Get(reqCtx, id.UID)
	if err != nil {
		if core.IsNotFound(err, user.Kind) {
			return errNotRegistered
		}
		return errors.Wrap(err, "getting user account")
	}

	token, err := api.tokens.generate(api.tokens.claims(acc, id.Verified))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token, User: acc})
}

func (api *accountAPI) verify(ctx echo.Context) error {
	var data VerifyRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to VerifyRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.ids.Verify(ctx.Request().Context(), data.UID, data.Token); err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			return core.NewValidationError(nil, core.FieldError{Field: "token", Error: auth.ErrInvalidToken.Error()})
		}
		return errors.Wrap(err, "verifying e-mail")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "e-mail verified"})
}

func (api *accountAPI) resend(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	if err := api.ids.SendVerification(ctx.Request().Context(), claims.Subject); err != nil {
		return errors.Wrap(err, "sending e-mail verification")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "verification e-mail sent"})
}

func (api *accountAPI) refreshToken(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	if !api.tokens.refreshable(claims.OriginalIssuedAt) {
		return errRefreshExpired
	}

	reqCtx := ctx.Request().Context()
	id, err := api.ids.Lookup(reqCtx, claims.Subject)
	if err != nil {
		if errors.Is(err, auth.ErrNotAuthorized) {
			return errUnauthorized
		}
		return errors.Wrap(err, "looking up identity")
	}
	acc, err := api.users.Get(reqCtx, claims.Subject)
	if err != nil {
		if core.IsNotFound(err, user.Kind) {
			return errNotRegistered
		}
		return errors.Wrap(err, "getting user account")
	}

	token, err := api.tokens.generate(api.tokens.claims(acc, id.Verified, claims.OriginalIssuedAt))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token, User: acc})
}

func (api *accountAPI) me(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	acc, err := api.users.Get(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, acc)
}
