package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/littledragons/core"
	"github.com/trezcool/littledragons/core/docstore"
	"github.com/trezcool/littledragons/core/session"
	"github.com/trezcool/littledragons/core/user"
)

const orderingParam = "ordering"

type (
	RegisterRequest struct {
		Name           string `json:"name"`
		Email          string `json:"email"`
		Password       string `json:"password"`
		PasswordRepeat string `json:"passwordRepeat"`
		Role           string `json:"role"` // parent (default) | teacher
	}

	LoginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	VerifyRequest struct {
		UID   string `json:"uid"`
		Token string `json:"token"`
	}

	TokenResponse struct {
		Token string       `json:"token"`
		User  user.Account `json:"user"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}

	DocumentsResponse struct {
		Documents []docstore.Doc `json:"documents"`
	}
)

func validationError(errs []core.FieldError) error {
	if len(errs) == 0 {
		return nil
	}
	// first error per field
	seen := make(map[string]bool, len(errs))
	fields := make([]core.FieldError, 0, len(errs))
	for _, fe := range errs {
		if !seen[fe.Field] {
			seen[fe.Field] = true
			fields = append(fields, fe)
		}
	}
	return core.NewValidationError(nil, fields...)
}

// Validate trims the request and returns the registration it describes.
func (r RegisterRequest) Validate(v *core.Validator) (session.Registration, error) {
	reg := session.Registration{
		Name:           r.Name,
		Email:          r.Email,
		Password:       r.Password,
		PasswordRepeat: r.PasswordRepeat,
		Role:           user.RoleParent,
	}
	reg.Trim()
	errs := v.CheckFields(session.RegistrationRules(reg))
	if r.Role != "" {
		role, err := user.ParseRole(r.Role)
		if err != nil {
			errs = append(errs, core.FieldError{Field: "role", Error: "invalid role"})
		}
		reg.Role = role
	}
	return reg, validationError(errs)
}

func (r LoginRequest) Validate(v *core.Validator) (session.Credentials, error) {
	c := session.Credentials{Email: core.CleanString(r.Email), Password: core.CleanString(r.Password)}
	return c, validationError(v.CheckFields(session.CredentialsRules(c)))
}

func (r VerifyRequest) Validate(v *core.Validator) error {
	return validationError(v.CheckFields([]core.FieldRule{
		{Field: "uid", Value: r.UID, Tag: "required"},
		{Field: "token", Value: r.Token, Tag: "required"},
	}))
}

// bindOrdering reads the "ordering" query param: "-date,title".
func bindOrdering(ctx echo.Context) []core.DBOrdering {
	return core.ParseOrdering(ctx.QueryParam(orderingParam))
}
