// Package session holds the signed-in user's profile and the account forms.
package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/littledragons/core"
	"github.com/trezcool/littledragons/core/auth"
	"github.com/trezcool/littledragons/core/statesync"
	"github.com/trezcool/littledragons/core/student"
	"github.com/trezcool/littledragons/core/user"
)

var ErrNotRegistered = errors.New("user account not found")

type Status int

const (
	Initial Status = iota
	Loading
	Loaded
	Failed
)

func (s Status) String() string {
	switch s {
	case Initial:
		return "Initial"
	case Loading:
		return "Loading"
	case Loaded:
		return "Loaded"
	case Failed:
		return "Failed"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// State is the session: User (and Child, for a parent with a registered child) when Loaded;
// Err is auth.ErrNotAuthorized, ErrNotRegistered or a store error when Failed.
type State struct {
	Status Status
	User   user.Account
	Child  *student.Student
	Err    error
}

type Verification int

const (
	VerificationInitial Verification = iota
	Verified
	NotVerified
)

// ResendResult is the outcome of the last verification e-mail request.
type ResendResult int

const (
	ResendInitial ResendResult = iota
	ResendSuccess
	ResendFailed
)

type Holder struct {
	auth     *auth.Service
	users    *user.Repository
	students *student.Repository
	logger   core.Logger

	state        *statesync.Observable[State]
	verification *statesync.Observable[Verification]
	resend       *statesync.Observable[ResendResult]

	mu         sync.Mutex
	gen        atomic.Uint64
	listenerID int
	baseCtx    context.Context
}

func NewHolder(authSvc *auth.Service, users *user.Repository, students *student.Repository, logger core.Logger) *Holder {
	return &Holder{
		auth:         authSvc,
		users:        users,
		students:     students,
		logger:       logger,
		state:        statesync.NewObservable(State{}),
		verification: statesync.NewObservable(VerificationInitial),
		resend:       statesync.NewObservable(ResendInitial),
		baseCtx:      context.Background(),
	}
}

func (h *Holder) State() *statesync.Observable[State] { return h.state }

func (h *Holder) Verification() *statesync.Observable[Verification] { return h.verification }

func (h *Holder) Resend() *statesync.Observable[ResendResult] { return h.resend }

// Start reloads the session on every sign-in and sign-out until Stop is called or ctx is done.
func (h *Holder) Start(ctx context.Context) {
	h.Stop()
	h.mu.Lock()
	h.baseCtx = ctx
	h.listenerID = h.auth.AddListener(h.onAuthStateChanged)
	h.mu.Unlock()
}

func (h *Holder) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listenerID != 0 {
		h.auth.RemoveListener(h.listenerID)
		h.listenerID = 0
	}
}

func (h *Holder) onAuthStateChanged() {
	h.mu.Lock()
	ctx := h.baseCtx
	h.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	h.Load(ctx, h.state.Value().Status == Loaded)
}

// Load reads the profile of the signed-in user. Unless forced, it is a no-op while loading or loaded.
func (h *Holder) Load(ctx context.Context, force bool) {
	h.mu.Lock()
	if st := h.state.Value().Status; !force && (st == Loading || st == Loaded) {
		h.mu.Unlock()
		return
	}
	gen := h.gen.Add(1)
	h.state.Set(State{Status: Loading})
	h.mu.Unlock()

	next := h.load(ctx)
	h.state.Update(func(State) (State, bool) {
		return next, h.gen.Load() == gen
	})
}

func (h *Holder) load(ctx context.Context) State {
	uid := h.auth.UserUID()
	if uid == "" {
		return State{Status: Failed, Err: auth.ErrNotAuthorized}
	}

	acc, err := h.users.Get(ctx, uid)
	if err != nil {
		if core.IsNotFound(err, user.Kind) {
			return State{Status: Failed, Err: ErrNotRegistered}
		}
		h.logger.Error("Unable to load user profile", err)
		return State{Status: Failed, Err: err}
	}

	st := State{Status: Loaded, User: acc}
	if acc.ChildID != "" {
		child, err := h.students.Get(ctx, acc.ChildID)
		if err != nil {
			h.logger.Error("Unable to load child profile", err)
		} else {
			st.Child = &child
		}
	}
	return st
}

// Viewer returns who the role-scoped lists are loaded for. classID is the class a teacher
// selected; a parent always sees their child's class.
func (h *Holder) Viewer(classID string) (user.Viewer, bool) {
	st := h.state.Value()
	if st.Status != Loaded {
		return user.Viewer{}, false
	}
	if st.User.IsParent() {
		if st.Child == nil {
			return user.NewParentViewer(st.User.UID, "", ""), true
		}
		return user.NewParentViewer(st.User.UID, st.Child.ID, st.Child.ClassID), true
	}
	return user.NewTeacherViewer(st.User.UID, classID), true
}

// WatchVerification polls until the e-mail is verified or ctx is done.
func (h *Holder) WatchVerification(ctx context.Context, interval time.Duration) error {
	err := h.auth.WaitVerified(ctx, interval, h.logger, func(verified bool) {
		if verified {
			h.verification.Set(Verified)
		} else {
			h.verification.Set(NotVerified)
		}
	})
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (h *Holder) ResendVerification(ctx context.Context) {
	if err := h.auth.SendEmailVerification(ctx); err != nil {
		h.logger.Error("Unable to send e-mail verification", err)
		h.resend.Set(ResendFailed)
		return
	}
	h.resend.Set(ResendSuccess)
}

// SignOut ends the session.
func (h *Holder) SignOut() {
	h.auth.SignOut()
}
