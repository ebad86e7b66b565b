package session

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/littledragons/core"
	"github.com/trezcool/littledragons/core/auth"
	"github.com/trezcool/littledragons/core/statesync"
	"github.com/trezcool/littledragons/core/student"
	"github.com/trezcool/littledragons/core/user"
)

// ErrEmailVerification is returned when the account was created but the verification mail could not be sent.
var ErrEmailVerification = errors.New("unable to send the verification e-mail")

const (
	FieldName           = "name"
	FieldEmail          = "email"
	FieldPassword       = "password"
	FieldPasswordRepeat = "passwordRepeat"
	FieldChildName      = "childName"
	FieldChildClass     = "childClass"
)

type Credentials struct {
	Email    string
	Password string
}

// LoginForm signs in. It cannot be submitted again once it succeeded.
type LoginForm struct {
	*statesync.Form[Credentials]
}

func NewLoginForm(authSvc *auth.Service, logger core.Logger, validator *core.Validator) *LoginForm {
	return &LoginForm{
		Form: statesync.NewForm(statesync.FormOptions[Credentials]{
			Name:      "login",
			Logger:    logger,
			Validator: validator,
			Trim:      trimCredentials,
			Rules:     CredentialsRules,
			Save: func(ctx context.Context, c Credentials) error {
				return authSvc.SignIn(ctx, c.Email, c.Password)
			},
			BlockAfterSuccess: true,
		}),
	}
}

func trimCredentials(c *Credentials) {
	c.Email = strings.TrimSpace(c.Email)
	c.Password = strings.TrimSpace(c.Password)
}

// CredentialsRules is the validation table of a sign-in.
func CredentialsRules(c Credentials) []core.FieldRule {
	return []core.FieldRule{
		{Field: FieldEmail, Value: c.Email, Tag: "required,email"},
		{Field: FieldPassword, Value: c.Password, Tag: "required"},
	}
}

func (f *LoginForm) UpdateEmail(email string) {
	f.Update(FieldEmail, func(c *Credentials) { c.Email = email })
}

func (f *LoginForm) UpdatePassword(password string) {
	f.Update(FieldPassword, func(c *Credentials) { c.Password = password })
}

type Registration struct {
	Name           string // "First Last"
	Email          string
	Password       string
	PasswordRepeat string
	Role           user.Role
}

func (r *Registration) Trim() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Password = strings.TrimSpace(r.Password)
	r.PasswordRepeat = strings.TrimSpace(r.PasswordRepeat)
}

// RegistrationRules is the validation table of a sign-up: the password follows the
// password policy, is not too similar to the e-mail and is repeated.
func RegistrationRules(r Registration) []core.FieldRule {
	return []core.FieldRule{
		{Field: FieldName, Value: r.Name, Tag: "required,fullname"},
		{Field: FieldEmail, Value: r.Email, Tag: "required,email"},
		{Field: FieldPassword, Value: r.Password, Tag: "required,password"},
		{Field: FieldPassword, Value: r.Password, Other: r.Email, Tag: "pwdtoosim"},
		{Field: FieldPasswordRepeat, Value: r.PasswordRepeat, Other: r.Password, Tag: "eqfield"},
	}
}

// RegisterForm signs up and mails the e-mail verification link. A failure to send
// the mail fails the submission with ErrEmailVerification; the account is kept.
type RegisterForm struct {
	*statesync.Form[Registration]
}

func NewRegisterForm(authSvc *auth.Service, logger core.Logger, validator *core.Validator) *RegisterForm {
	return &RegisterForm{
		Form: statesync.NewForm(statesync.FormOptions[Registration]{
			Name:      "registration",
			Logger:    logger,
			Validator: validator,
			Initial:   func() Registration { return Registration{Role: user.RoleParent} },
			Trim:      func(r *Registration) { r.Trim() },
			Rules:     RegistrationRules,
			Save: func(ctx context.Context, r Registration) error {
				first, last, _ := core.SplitFullName(r.Name)
				if _, err := authSvc.CreateUser(ctx, r.Email, r.Password, first, last, r.Role); err != nil {
					return err
				}
				if err := authSvc.SendEmailVerification(ctx); err != nil {
					return errors.Wrap(ErrEmailVerification, err.Error())
				}
				return nil
			},
		}),
	}
}

func (f *RegisterForm) UpdateName(name string) {
	f.Update(FieldName, func(r *Registration) { r.Name = name })
}

func (f *RegisterForm) UpdateEmail(email string) {
	f.Update(FieldEmail, func(r *Registration) { r.Email = email })
}

func (f *RegisterForm) UpdatePassword(password string) {
	f.Update(FieldPassword, func(r *Registration) { r.Password = password })
}

func (f *RegisterForm) UpdatePasswordRepeat(password string) {
	f.Update(FieldPasswordRepeat, func(r *Registration) { r.PasswordRepeat = password })
}

func (f *RegisterForm) UpdateRole(role user.Role) {
	f.Update("role", func(r *Registration) { r.Role = role })
}

type Profile struct {
	Account    user.Account // the account being edited
	Name       string       // "First Last"
	Email      string
	Avatar     []byte
	ChildName  string // parents only
	ChildClass string // parents only
}

// ProfileForm edits the signed-in user's profile. A parent names their child, who must be
// a registered student of the given class (user.ErrChildNotFound otherwise). Changing the
// e-mail may fail with core.ErrReauthenticationRequired.
type ProfileForm struct {
	*statesync.Form[Profile]
}

func NewProfileForm(authSvc *auth.Service, users *user.Repository, students *student.Repository, logger core.Logger, validator *core.Validator) *ProfileForm {
	return &ProfileForm{
		Form: statesync.NewForm(statesync.FormOptions[Profile]{
			Name:      "user profile",
			Logger:    logger,
			Validator: validator,
			Trim: func(p *Profile) {
				p.Name = strings.TrimSpace(p.Name)
				p.Email = strings.TrimSpace(p.Email)
				p.ChildName = strings.TrimSpace(p.ChildName)
				p.ChildClass = strings.TrimSpace(p.ChildClass)
			},
			Rules: func(p Profile) []core.FieldRule {
				rules := []core.FieldRule{
					{Field: FieldName, Value: p.Name, Tag: "required,fullname"},
					{Field: FieldEmail, Value: p.Email, Tag: "required,email"},
				}
				if p.Account.IsParent() {
					rules = append(rules,
						core.FieldRule{Field: FieldChildName, Value: p.ChildName, Tag: "omitempty,fullname"},
						core.FieldRule{Field: FieldChildClass, Value: p.ChildClass, Tag: "required,schoolclass"},
					)
				}
				return rules
			},
			Save: func(ctx context.Context, p Profile) error {
				acc := p.Account
				acc.ChildID = ""
				if acc.IsParent() && p.ChildName != "" {
					first, last, _ := core.SplitFullName(p.ChildName)
					found, err := students.Find(ctx, first, last, p.ChildClass)
					if err != nil {
						return err
					}
					if len(found) == 0 {
						return user.ErrChildNotFound
					}
					acc.ChildID = found[0].ID
				}

				if !strings.EqualFold(p.Email, p.Account.Email) {
					if err := authSvc.UpdateEmail(ctx, p.Email); err != nil {
						return err
					}
				}
				acc.FirstName, acc.LastName, _ = core.SplitFullName(p.Name)
				acc.Email = p.Email
				acc.SetAvatar(p.Avatar)
				return users.Update(ctx, acc)
			},
		}),
	}
}

// Edit fills the form from the session's user and child.
func (f *ProfileForm) Edit(acc user.Account, child *student.Student) error {
	avatar, err := acc.AvatarBytes()
	if err != nil {
		return errors.Wrap(err, "decoding avatar")
	}
	p := Profile{Account: acc, Name: acc.FullName(), Email: acc.Email, Avatar: avatar}
	if child != nil {
		p.ChildName = child.FullName()
		p.ChildClass = child.ClassID
	}
	f.Load(p)
	return nil
}

func (f *ProfileForm) UpdateName(name string) {
	f.Update(FieldName, func(p *Profile) { p.Name = name })
}

func (f *ProfileForm) UpdateEmail(email string) {
	f.Update(FieldEmail, func(p *Profile) { p.Email = email })
}

func (f *ProfileForm) UpdateAvatar(img []byte) {
	f.Update("avatar", func(p *Profile) { p.Avatar = img })
}

func (f *ProfileForm) UpdateChildName(name string) {
	f.Update(FieldChildName, func(p *Profile) { p.ChildName = name })
}

func (f *ProfileForm) UpdateChildClass(class string) {
	f.Update(FieldChildClass, func(p *Profile) { p.ChildClass = class })
}
