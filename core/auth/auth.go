// Package auth tracks the signed-in identity and notifies listeners when it changes.
package auth

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/littledragons/core"
	"github.com/trezcool/littledragons/core/statesync"
	"github.com/trezcool/littledragons/core/user"
)

const DefaultPollInterval = 3 * time.Second

var (
	ErrNotAuthorized      = errors.New("not signed in")
	ErrInvalidCredentials = errors.New("invalid e-mail or password")
	ErrEmailTaken         = errors.New("e-mail already registered")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// Identity is an account of the identity backend.
type Identity struct {
	UID      string
	Email    string
	Verified bool
}

// Provider is the identity backend.
type Provider interface {
	CreateUser(ctx context.Context, email, password string) (Identity, error)
	SignIn(ctx context.Context, email, password string) (Identity, error)
	Lookup(ctx context.Context, uid string) (Identity, error)
	SendVerification(ctx context.Context, uid string) error
	// RequestEmailChange mails a confirmation link to email; the change applies once confirmed.
	// It fails with core.ErrReauthenticationRequired when the last sign-in is not recent.
	RequestEmailChange(ctx context.Context, uid, email string) error
}

// Service holds the current identity.
type Service struct {
	provider Provider
	users    *user.Repository

	mu      sync.RWMutex
	current *Identity

	listeners statesync.Bus[struct{}]
}

func NewService(provider Provider, users *user.Repository) *Service {
	return &Service{provider: provider, users: users}
}

func (s *Service) IsAuthorized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil
}

func (s *Service) IsVerified() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil && s.current.Verified
}

// UserUID returns the uid of the signed-in user, or "".
func (s *Service) UserUID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.UID
}

// CreateUser signs up and in, and stores the user account.
func (s *Service) CreateUser(ctx context.Context, email, password, firstName, lastName string, role user.Role) (user.Account, error) {
	id, err := s.provider.CreateUser(ctx, email, password)
	if err != nil {
		return user.Account{}, err
	}
	acc := user.Account{
		UID:       id.UID,
		Email:     id.Email,
		Role:      role,
		FirstName: firstName,
		LastName:  lastName,
	}
	if err := s.users.Add(ctx, acc); err != nil {
		return acc, errors.Wrap(err, "storing user account")
	}
	s.setCurrent(&id)
	return acc, nil
}

func (s *Service) SignIn(ctx context.Context, email, password string) error {
	id, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	s.setCurrent(&id)
	return nil
}

// Restore makes uid the signed-in user without a password, eg. from a session token.
func (s *Service) Restore(ctx context.Context, uid string) error {
	id, err := s.provider.Lookup(ctx, uid)
	if err != nil {
		return err
	}
	s.setCurrent(&id)
	return nil
}

func (s *Service) SignOut() {
	s.setCurrent(nil)
}

// UpdateEmail starts an e-mail change that completes once the new address is verified.
func (s *Service) UpdateEmail(ctx context.Context, email string) error {
	uid := s.UserUID()
	if uid == "" {
		return ErrNotAuthorized
	}
	return s.provider.RequestEmailChange(ctx, uid, email)
}

// SendEmailVerification mails a verification link unless the user is verified already.
func (s *Service) SendEmailVerification(ctx context.Context) error {
	s.mu.RLock()
	cur := s.current
	s.mu.RUnlock()
	if cur == nil || cur.Verified {
		return nil
	}
	return s.provider.SendVerification(ctx, cur.UID)
}

// Reload refreshes the signed-in identity from the backend. It does not notify the listeners.
func (s *Service) Reload(ctx context.Context) error {
	uid := s.UserUID()
	if uid == "" {
		return nil
	}
	id, err := s.provider.Lookup(ctx, uid)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if s.current != nil && s.current.UID == uid {
		s.current = &id
	}
	s.mu.Unlock()
	return nil
}

// WaitVerified reloads the identity every interval and reports whether it is verified,
// until it is (nil) or ctx is done (ctx.Err()). Reload failures are logged and retried.
func (s *Service) WaitVerified(ctx context.Context, interval time.Duration, logger core.Logger, report func(verified bool)) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	for {
		if err := s.Reload(ctx); err != nil && logger != nil {
			logger.Error("Unable to reload user", err)
		}
		verified := s.IsVerified()
		report(verified)
		if verified {
			return nil
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// AddListener registers fn to be called after every sign-in or sign-out, in registration order.
func (s *Service) AddListener(fn func()) int {
	return s.listeners.Add(func(struct{}) { fn() })
}

func (s *Service) RemoveListener(id int) bool {
	return s.listeners.Remove(id)
}

func (s *Service) setCurrent(id *Identity) {
	s.mu.Lock()
	s.current = id
	s.mu.Unlock()
	s.listeners.Publish(struct{}{})
}
