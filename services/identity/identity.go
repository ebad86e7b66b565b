// Package identity is the e-mail and password identity backend: bcrypt hashed credentials
// stored in the credentials collection and e-mail confirmation links.
package identity

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/littledragons/core"
	"github.com/trezcool/littledragons/core/auth"
	"github.com/trezcool/littledragons/core/docstore"
)

const Kind = "credential"

type Credential struct {
	UID          string         `json:"uid"`
	Email        string         `json:"email"`
	PasswordHash []byte         `json:"passwordHash"`
	Verified     bool           `json:"verified"`
	PendingEmail string         `json:"pendingEmail,omitempty"`
	LastSignIn   core.Timestamp `json:"lastSignIn"`
}

func (c Credential) identity() auth.Identity {
	return auth.Identity{UID: c.UID, Email: c.Email, Verified: c.Verified}
}

// SetPassword hashes and stores password.
func (c *Credential) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hashing password")
	}
	c.PasswordHash = hash
	return nil
}

func (c Credential) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword(c.PasswordHash, []byte(password)) == nil
}

// confirmationData is rendered by the verify_email and change_email templates.
type confirmationData struct {
	Name  string
	UID   string
	Token string
}

type Provider struct {
	creds  *docstore.Repository[Credential]
	mailer core.EmailService
	tokens tokenGenerator
	recent time.Duration
}

var _ auth.Provider = (*Provider)(nil) // interface compliance check

func New(db docstore.Database, mailer core.EmailService, conf *core.Config) (*Provider, error) {
	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(db, "db"),
		vala.IsNotNil(mailer, "mailer"),
		vala.IsNotNil(conf, "conf"),
	).Check(); err != nil {
		return nil, err
	}
	if err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(conf.SecretKey, "conf.SecretKey"),
	).Check(); err != nil {
		return nil, err
	}

	return &Provider{
		creds: docstore.NewRepository(db.Collection(docstore.Credentials), docstore.RepositoryOptions[Credential]{
			Kind:   Kind,
			ID:     func(c Credential) string { return c.UID },
			WithID: func(c Credential, id string) Credential { c.UID = id; return c },
		}),
		mailer: mailer,
		tokens: tokenGenerator{secret: []byte(conf.SecretKey), ttl: conf.Auth.VerificationTokenTTL},
		recent: conf.Auth.RecentLoginWindow,
	}, nil
}

func (p *Provider) CreateUser(ctx context.Context, email, password string) (auth.Identity, error) {
	email = core.CleanString(email, true)
	if _, err := p.findByEmail(ctx, email); err == nil {
		return auth.Identity{}, auth.ErrEmailTaken
	} else if !core.IsNotFound(err) {
		return auth.Identity{}, err
	}

	cred := Credential{Email: email, LastSignIn: core.NewTimestamp(NowFunc())}
	if err := cred.SetPassword(password); err != nil {
		return auth.Identity{}, err
	}
	cred, err := p.creds.Add(ctx, cred)
	if err != nil {
		return auth.Identity{}, err
	}
	return cred.identity(), nil
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (auth.Identity, error) {
	cred, err := p.findByEmail(ctx, core.CleanString(email, true))
	if err != nil {
		if core.IsNotFound(err) {
			return auth.Identity{}, auth.ErrInvalidCredentials
		}
		return auth.Identity{}, err
	}
	if !cred.CheckPassword(password) {
		return auth.Identity{}, auth.ErrInvalidCredentials
	}

	cred.LastSignIn = core.NewTimestamp(NowFunc())
	if err := p.creds.Update(ctx, cred); err != nil {
		return auth.Identity{}, err
	}
	return cred.identity(), nil
}

func (p *Provider) Lookup(ctx context.Context, uid string) (auth.Identity, error) {
	cred, err := p.creds.Get(ctx, uid)
	if err != nil {
		if core.IsNotFound(err) {
			return auth.Identity{}, auth.ErrNotAuthorized
		}
		return auth.Identity{}, err
	}
	return cred.identity(), nil
}

func (p *Provider) SendVerification(ctx context.Context, uid string) error {
	cred, err := p.creds.Get(ctx, uid)
	if err != nil {
		return err
	}
	if cred.Verified {
		return nil
	}
	p.mail(cred, cred.Email, "Confirm your e-mail", "verify_email")
	return nil
}

func (p *Provider) RequestEmailChange(ctx context.Context, uid, email string) error {
	cred, err := p.creds.Get(ctx, uid)
	if err != nil {
		return err
	}
	if NowFunc().Sub(cred.LastSignIn.Time) > p.recent {
		return core.ErrReauthenticationRequired
	}

	email = core.CleanString(email, true)
	if other, err := p.findByEmail(ctx, email); err == nil && other.UID != uid {
		return auth.ErrEmailTaken
	}
	cred.PendingEmail = email
	if err := p.creds.Update(ctx, cred); err != nil {
		return err
	}
	p.mail(cred, email, "Confirm your new e-mail", "change_email")
	return nil
}

// Verify confirms the e-mail (or the pending e-mail change) the token was mailed for.
func (p *Provider) Verify(ctx context.Context, uid, token string) error {
	cred, err := p.creds.Get(ctx, uid)
	if err != nil {
		if core.IsNotFound(err) {
			return auth.ErrInvalidToken
		}
		return err
	}
	if err := p.tokens.verify(cred, token); err != nil {
		return errors.Wrap(auth.ErrInvalidToken, err.Error())
	}

	if cred.PendingEmail != "" {
		cred.Email = cred.PendingEmail
		cred.PendingEmail = ""
	}
	cred.Verified = true
	return p.creds.Update(ctx, cred)
}

// SetPassword replaces the password of the account registered with email.
func (p *Provider) SetPassword(ctx context.Context, email, password string) error {
	cred, err := p.findByEmail(ctx, core.CleanString(email, true))
	if err != nil {
		return err
	}
	if err := cred.SetPassword(password); err != nil {
		return err
	}
	return p.creds.Update(ctx, cred)
}

// MarkVerified verifies an account without a confirmation link, eg. for accounts created by an admin.
func (p *Provider) MarkVerified(ctx context.Context, uid string) error {
	cred, err := p.creds.Get(ctx, uid)
	if err != nil {
		return err
	}
	cred.Verified = true
	return p.creds.Update(ctx, cred)
}

func (p *Provider) findByEmail(ctx context.Context, email string) (Credential, error) {
	creds, err := p.creds.All(ctx, docstore.Where(docstore.Eq("email", email)))
	if err != nil {
		return Credential{}, err
	}
	if len(creds) == 0 {
		return Credential{}, core.NewNotFoundError(Kind, email)
	}
	return creds[0], nil
}

func (p *Provider) mail(cred Credential, to, subject, template string) {
	name := to
	if i := strings.Index(name, "@"); i > 0 {
		name = name[:i]
	}
	p.mailer.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Address: to}},
		Subject:      subject,
		TemplateName: template,
		TemplateData: confirmationData{Name: name, UID: cred.UID, Token: p.tokens.make(cred)},
	})
}
