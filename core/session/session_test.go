package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/littledragons/core"
	"github.com/trezcool/littledragons/core/auth"
	"github.com/trezcool/littledragons/core/docstore"
	"github.com/trezcool/littledragons/core/statesync"
	"github.com/trezcool/littledragons/core/student"
	"github.com/trezcool/littledragons/core/user"
	"github.com/trezcool/littledragons/services/email"
	"github.com/trezcool/littledragons/services/identity"
	"github.com/trezcool/littledragons/tests"
)

type env struct {
	db       *testutil.FailingDB
	provider *identity.Provider
	auth     *auth.Service
	users    *user.Repository
	students *student.Repository
	logger   *testutil.Recorder
}

func setup(t *testing.T) env {
	conf := core.NewTestConfig()
	db := testutil.NewFailingDB(testutil.OpenDB(t), errors.New("unavailable"))
	logger := testutil.Logger(t)
	provider, err := identity.New(db, emailsvc.NewOutbox(conf, logger), conf)
	require.NoError(t, err)
	users := user.NewRepository(db)
	return env{
		db:       db,
		provider: provider,
		auth:     auth.NewService(provider, users),
		users:    users,
		students: student.NewRepository(db),
		logger:   logger,
	}
}

func (e env) newHolder() *Holder {
	return NewHolder(e.auth, e.users, e.students, e.logger)
}

// register creates a parent whose child is Иван Петров of 7А.
func (e env) register(t *testing.T) (user.Account, student.Student) {
	ctx := context.Background()
	child, err := e.students.Add(ctx, student.Student{FirstName: "Иван", LastName: "Петров", ClassID: "7А"})
	require.NoError(t, err)
	acc, err := e.auth.CreateUser(ctx, "anna@example.com", "Pa$$w0rd", "Анна", "Петрова", user.RoleParent)
	require.NoError(t, err)
	acc.ChildID = child.ID
	require.NoError(t, e.users.Update(ctx, acc))
	return acc, child
}

func statuses(h *Holder) *[]Status {
	var got []Status
	h.State().Subscribe(func(s State) { got = append(got, s.Status) })
	return &got
}

func TestHolder_Load(t *testing.T) {
	t.Run("not authorized", func(t *testing.T) {
		e := setup(t)
		h := e.newHolder()
		got := statuses(h)

		h.Load(context.Background(), false)

		assert.Equal(t, []Status{Initial, Loading, Failed}, *got)
		assert.Equal(t, auth.ErrNotAuthorized, h.State().Value().Err)
	})

	t.Run("not registered", func(t *testing.T) {
		e := setup(t)
		id, err := e.provider.CreateUser(context.Background(), "anna@example.com", "Pa$$w0rd")
		require.NoError(t, err)
		require.NoError(t, e.auth.Restore(context.Background(), id.UID))
		h := e.newHolder()

		h.Load(context.Background(), false)

		assert.Equal(t, ErrNotRegistered, h.State().Value().Err)
	})

	t.Run("loaded with child", func(t *testing.T) {
		e := setup(t)
		acc, child := e.register(t)
		h := e.newHolder()

		h.Load(context.Background(), false)

		st := h.State().Value()
		require.Equal(t, Loaded, st.Status)
		assert.Equal(t, acc, st.User)
		require.NotNil(t, st.Child)
		assert.Equal(t, child, *st.Child)

		viewer, ok := h.Viewer("")
		assert.True(t, ok)
		assert.Equal(t, user.NewParentViewer(acc.UID, child.ID, "7А"), viewer)
	})

	t.Run("child load failure", func(t *testing.T) {
		e := setup(t)
		e.register(t)
		e.db.Fail(docstore.Students, "get")
		h := e.newHolder()

		h.Load(context.Background(), false)

		st := h.State().Value()
		assert.Equal(t, Loaded, st.Status)
		assert.Nil(t, st.Child)
		assert.Equal(t, []string{"Unable to load child profile"}, e.logger.Errors())
	})

	t.Run("store failure", func(t *testing.T) {
		e := setup(t)
		e.register(t)
		e.db.Fail(docstore.Users, "get")
		h := e.newHolder()

		h.Load(context.Background(), false)

		st := h.State().Value()
		assert.Equal(t, Failed, st.Status)
		assert.ErrorIs(t, st.Err, e.db.Err)
	})

	t.Run("guard", func(t *testing.T) {
		e := setup(t)
		e.register(t)
		h := e.newHolder()
		got := statuses(h)

		h.Load(context.Background(), false)
		h.Load(context.Background(), false)
		assert.Equal(t, []Status{Initial, Loading, Loaded}, *got)

		h.Load(context.Background(), true)
		assert.Equal(t, []Status{Initial, Loading, Loaded, Loading, Loaded}, *got)
	})
}

func TestHolder_Start(t *testing.T) {
	e := setup(t)
	acc, _ := e.register(t)
	e.auth.SignOut()

	h := e.newHolder()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.Start(ctx)
	defer h.Stop()

	require.NoError(t, e.auth.SignIn(ctx, "anna@example.com", "Pa$$w0rd"))
	st := h.State().Value()
	require.Equal(t, Loaded, st.Status)
	assert.Equal(t, acc.UID, st.User.UID)

	e.auth.SignOut()
	assert.Equal(t, auth.ErrNotAuthorized, h.State().Value().Err)

	h.Stop()
	require.NoError(t, e.auth.SignIn(ctx, "anna@example.com", "Pa$$w0rd"))
	assert.Equal(t, Failed, h.State().Value().Status, "stopped holders do not reload")
}

func TestHolder_Viewer_teacher(t *testing.T) {
	e := setup(t)
	acc, err := e.auth.CreateUser(context.Background(), "olga@example.com", "Pa$$w0rd", "Ольга", "Смирнова", user.RoleTeacher)
	require.NoError(t, err)
	h := e.newHolder()

	_, ok := h.Viewer("7А")
	assert.False(t, ok, "no viewer before the session is loaded")

	h.Load(context.Background(), false)
	viewer, ok := h.Viewer("7А")
	assert.True(t, ok)
	assert.Equal(t, user.NewTeacherViewer(acc.UID, "7А"), viewer)
}

func TestHolder_ResendVerification(t *testing.T) {
	e := setup(t)
	e.register(t)
	h := e.newHolder()

	h.ResendVerification(context.Background())
	assert.Equal(t, ResendSuccess, h.Resend().Value())

	e.db.Fail(docstore.Credentials, "get")
	h.ResendVerification(context.Background())
	assert.Equal(t, ResendFailed, h.Resend().Value())
	assert.Equal(t, []string{"Unable to send e-mail verification"}, e.logger.Errors())
}

func TestHolder_WatchVerification(t *testing.T) {
	e := setup(t)
	acc, _ := e.register(t)
	h := e.newHolder()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- h.WatchVerification(ctx, 5*time.Millisecond) }()

	testutil.WaitFor(t, h.Verification(), func(v Verification) bool { return v == NotVerified })
	require.NoError(t, e.provider.MarkVerified(context.Background(), acc.UID))
	testutil.WaitFor(t, h.Verification(), func(v Verification) bool { return v == Verified })
	assert.NoError(t, <-done)
}

func TestLoginForm_Submit(t *testing.T) {
	e := setup(t)
	e.register(t)
	e.auth.SignOut()

	tests := []struct {
		name        string
		email       string
		password    string
		wantInvalid []string
		wantStatus  statesync.SubmitStatus
	}{
		{name: "empty", wantInvalid: []string{FieldEmail, FieldPassword}},
		{name: "not an e-mail", email: "anna", password: "x", wantInvalid: []string{FieldEmail}},
		{name: "blank password", email: "anna@example.com", password: "   ", wantInvalid: []string{FieldPassword}},
		{name: "wrong password", email: "anna@example.com", password: "nope", wantStatus: statesync.SubmitFailed},
		{name: "valid", email: " anna@example.com ", password: "Pa$$w0rd", wantStatus: statesync.SubmitSuccess},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewLoginForm(e.auth, e.logger, nil)
			f.UpdateEmail(tt.email)
			f.UpdatePassword(tt.password)
			f.Submit(context.Background())

			assert.Equal(t, contains(tt.wantInvalid, FieldEmail), f.Invalid(FieldEmail))
			assert.Equal(t, contains(tt.wantInvalid, FieldPassword), f.Invalid(FieldPassword))
			assert.Equal(t, tt.wantStatus, f.State().Value().Status)
			assert.Equal(t, tt.wantStatus == statesync.SubmitSuccess, e.auth.IsAuthorized())
			e.auth.SignOut()
		})
	}
}

func TestLoginForm_Submit_blockedAfterSuccess(t *testing.T) {
	e := setup(t)
	e.register(t)
	e.auth.SignOut()
	f := NewLoginForm(e.auth, e.logger, nil)

	f.UpdateEmail("anna@example.com")
	f.UpdatePassword("Pa$$w0rd")
	f.Submit(context.Background())
	require.Equal(t, statesync.SubmitSuccess, f.State().Value().Status)

	var calls int
	id := e.auth.AddListener(func() { calls++ })
	defer e.auth.RemoveListener(id)
	f.UpdateEmail("anna@example.com")
	f.UpdatePassword("Pa$$w0rd")
	f.Submit(context.Background())
	assert.Equal(t, 0, calls, "no second sign-in")
}

func TestRegisterForm_Submit(t *testing.T) {
	tests := []struct {
		name        string
		reg         Registration
		wantInvalid []string
	}{
		{name: "empty", wantInvalid: []string{FieldName, FieldEmail, FieldPassword}},
		{
			name:        "single name",
			reg:         Registration{Name: "Анна", Email: "anna@example.com", Password: "Pa$$w0rd", PasswordRepeat: "Pa$$w0rd"},
			wantInvalid: []string{FieldName},
		},
		{
			name:        "weak password",
			reg:         Registration{Name: "Анна Петрова", Email: "anna@example.com", Password: "password", PasswordRepeat: "password"},
			wantInvalid: []string{FieldPassword},
		},
		{
			name:        "password like the e-mail",
			reg:         Registration{Name: "Анна Петрова", Email: "annapetrova@example.com", Password: "AnnaPetrova1!", PasswordRepeat: "AnnaPetrova1!"},
			wantInvalid: []string{FieldPassword},
		},
		{
			name:        "repeat mismatch",
			reg:         Registration{Name: "Анна Петрова", Email: "anna@example.com", Password: "Pa$$w0rd", PasswordRepeat: "Pa$$w0rd!"},
			wantInvalid: []string{FieldPasswordRepeat},
		},
		{
			name: "valid",
			reg:  Registration{Name: " Анна  Петрова ", Email: "anna@example.com", Password: "Pa$$w0rd", PasswordRepeat: "Pa$$w0rd", Role: user.RoleTeacher},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := setup(t)
			f := NewRegisterForm(e.auth, e.logger, nil)
			assert.Equal(t, user.RoleParent, f.Draft().Role, "parent by default")

			f.UpdateName(tt.reg.Name)
			f.UpdateEmail(tt.reg.Email)
			f.UpdatePassword(tt.reg.Password)
			f.UpdatePasswordRepeat(tt.reg.PasswordRepeat)
			if tt.reg.Role != "" {
				f.UpdateRole(tt.reg.Role)
			}
			f.Submit(context.Background())

			for _, fld := range []string{FieldName, FieldEmail, FieldPassword, FieldPasswordRepeat} {
				assert.Equal(t, contains(tt.wantInvalid, fld), f.Invalid(fld), fld)
			}
			if len(tt.wantInvalid) > 0 {
				assert.False(t, e.auth.IsAuthorized())
				return
			}
			require.Equal(t, statesync.SubmitSuccess, f.State().Value().Status)
			acc, err := e.users.Get(context.Background(), e.auth.UserUID())
			require.NoError(t, err)
			assert.Equal(t, "Анна", acc.FirstName)
			assert.Equal(t, "Петрова", acc.LastName)
			assert.Equal(t, user.RoleTeacher, acc.Role)
		})
	}
}

func TestRegisterForm_Submit_failures(t *testing.T) {
	fill := func(f *RegisterForm) {
		f.UpdateName("Анна Петрова")
		f.UpdateEmail("anna@example.com")
		f.UpdatePassword("Pa$$w0rd")
		f.UpdatePasswordRepeat("Pa$$w0rd")
	}

	t.Run("verification mail", func(t *testing.T) {
		e := setup(t)
		e.db.Fail(docstore.Credentials, "get")
		f := NewRegisterForm(e.auth, e.logger, nil)
		fill(f)
		f.Submit(context.Background())

		st := f.State().Value()
		assert.Equal(t, statesync.SubmitFailed, st.Status)
		assert.ErrorIs(t, st.Err, ErrEmailVerification)
		assert.True(t, e.auth.IsAuthorized(), "the account is created")
	})

	t.Run("e-mail taken", func(t *testing.T) {
		e := setup(t)
		e.register(t)
		f := NewRegisterForm(e.auth, e.logger, nil)
		fill(f)
		f.Submit(context.Background())

		st := f.State().Value()
		assert.Equal(t, statesync.SubmitFailed, st.Status)
		assert.ErrorIs(t, st.Err, auth.ErrEmailTaken)
		assert.NotErrorIs(t, st.Err, ErrEmailVerification)
	})
}

func TestProfileForm_Submit(t *testing.T) {
	tests := []struct {
		name       string
		childName  string
		childClass string
		email      string
		stale      bool
		wantStatus statesync.SubmitStatus
		wantErr    error
		wantChild  bool
	}{
		{name: "child found", childName: "Иван Петров", childClass: "7А", email: "anna@example.com", wantStatus: statesync.SubmitSuccess, wantChild: true},
		{name: "child in another class", childName: "Иван Петров", childClass: "8А", email: "anna@example.com", wantStatus: statesync.SubmitFailed, wantErr: user.ErrChildNotFound},
		{name: "no child", childClass: "7А", email: "anna@example.com", wantStatus: statesync.SubmitSuccess},
		{name: "new e-mail", childName: "Иван Петров", childClass: "7А", email: "anna.k@example.com", wantStatus: statesync.SubmitSuccess, wantChild: true},
		{name: "new e-mail, stale sign-in", childName: "Иван Петров", childClass: "7А", email: "anna.k@example.com", stale: true, wantStatus: statesync.SubmitFailed, wantErr: core.ErrReauthenticationRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := setup(t)
			acc, child := e.register(t)
			acc.ChildID = ""
			require.NoError(t, e.users.Update(context.Background(), acc))
			if tt.stale {
				identity.NowFunc = func() time.Time { return time.Now().Add(time.Hour) }
				defer func() { identity.NowFunc = time.Now }()
			}

			f := NewProfileForm(e.auth, e.users, e.students, e.logger, nil)
			require.NoError(t, f.Edit(acc, nil))
			f.UpdateChildName(tt.childName)
			f.UpdateChildClass(tt.childClass)
			f.UpdateEmail(tt.email)
			f.UpdateAvatar([]byte{0x89, 'P', 'N', 'G'})
			f.Submit(context.Background())

			st := f.State().Value()
			require.Equal(t, tt.wantStatus, st.Status, "err: %v", st.Err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, st.Err, tt.wantErr)
			}

			stored, err := e.users.Get(context.Background(), acc.UID)
			require.NoError(t, err)
			if tt.wantStatus != statesync.SubmitSuccess {
				assert.Equal(t, acc, stored, "unchanged")
				return
			}
			assert.Equal(t, tt.email, stored.Email)
			avatar, err := stored.AvatarBytes()
			require.NoError(t, err)
			assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, avatar)
			if tt.wantChild {
				assert.Equal(t, child.ID, stored.ChildID)
			} else {
				assert.Empty(t, stored.ChildID)
			}
		})
	}
}

func TestProfileForm_Submit_validation(t *testing.T) {
	e := setup(t)
	teacher := user.Account{UID: "t1", Email: "olga@example.com", Role: user.RoleTeacher, FirstName: "Ольга", LastName: "Смирнова"}
	parent := user.Account{UID: "p1", Email: "anna@example.com", Role: user.RoleParent, FirstName: "Анна", LastName: "Петрова"}

	tests := []struct {
		name        string
		acc         user.Account
		childName   string
		childClass  string
		wantInvalid []string
	}{
		{name: "teacher needs no child", acc: teacher},
		{name: "parent needs a class", acc: parent, wantInvalid: []string{FieldChildClass}},
		{name: "parent child single name", acc: parent, childName: "Иван", childClass: "7А", wantInvalid: []string{FieldChildName}},
		{name: "parent bad class", acc: parent, childClass: "7a", wantInvalid: []string{FieldChildClass}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewProfileForm(e.auth, e.users, e.students, e.logger, nil)
			require.NoError(t, f.Edit(tt.acc, nil))
			f.UpdateChildName(tt.childName)
			f.UpdateChildClass(tt.childClass)
			f.UpdateName("Имя")
			f.Submit(context.Background())

			assert.True(t, f.Invalid(FieldName))
			assert.False(t, f.Invalid(FieldEmail))
			assert.Equal(t, contains(tt.wantInvalid, FieldChildName), f.Invalid(FieldChildName))
			assert.Equal(t, contains(tt.wantInvalid, FieldChildClass), f.Invalid(FieldChildClass))
		})
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
