package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/littledragons/core"
	"github.com/trezcool/littledragons/core/user"
)

const (
	contextTokenKey = "userToken"
	audience        = "LittleDragons"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OriginalIssuedAt int64     `json:"oriat,omitempty"`
	Email            string    `json:"email,omitempty"`
	Role             user.Role `json:"role,omitempty"`
	Verified         bool      `json:"verified,omitempty"`
}

func (c Claims) IsTeacher() bool { return c.Role == user.RoleTeacher }

type tokenIssuer struct {
	appName                string
	secretKey              []byte
	expirationDelta        time.Duration
	refreshExpirationDelta time.Duration
}

func newTokenIssuer(conf *core.Config) tokenIssuer {
	return tokenIssuer{
		appName:                conf.AppName,
		secretKey:              []byte(conf.SecretKey),
		expirationDelta:        conf.Server.JWTExpirationDelta,
		refreshExpirationDelta: conf.Server.JWTRefreshExpirationDelta,
	}
}

func (ti tokenIssuer) middlewareConfig() middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    ti.secretKey,
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

func (ti tokenIssuer) claims(acc user.Account, verified bool, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    ti.appName,
			Subject:   acc.UID,
			Audience:  audience,
			ExpiresAt: now.Add(ti.expirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OriginalIssuedAt: oriat,
		Email:            acc.Email,
		Role:             acc.Role,
		Verified:         verified,
	}
}

// generate signs a JWT token string representing the claims.
func (ti tokenIssuer) generate(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString(ti.secretKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// refreshable reports whether a token first issued at origIat may still be refreshed.
func (ti tokenIssuer) refreshable(origIat int64) bool {
	return time.Now().Before(time.Unix(origIat, 0).Add(ti.refreshExpirationDelta))
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}
