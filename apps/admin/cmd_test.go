package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/littledragons/apps/api/echo"
	"github.com/trezcool/littledragons/core"
	"github.com/trezcool/littledragons/core/event"
	"github.com/trezcool/littledragons/core/schoolclass"
	"github.com/trezcool/littledragons/core/student"
	"github.com/trezcool/littledragons/core/subject"
	"github.com/trezcool/littledragons/core/user"
	"github.com/trezcool/littledragons/services/email"
	"github.com/trezcool/littledragons/services/identity"
	"github.com/trezcool/littledragons/storage/database"
	"github.com/trezcool/littledragons/tests"
)

const fixturesTOML = `
classes = ["7А", "7Б"]
subjects = ["Математика", "Физика"]

[[students]]
first_name = "Иван"
last_name = "Петров"
class = "7А"

[[students]]
first_name = "Мария"
last_name = "Иванова"
class = "7Б"

[[events]]
title = "Выпускной"
date = 2021-05-25T09:00:00Z
`

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	pwd        string
}

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	conf := core.NewTestConfig()
	logger := testutil.Logger(t)
	db := testutil.OpenDB(t)
	ids, err := identity.New(db, emailsvc.NewOutbox(conf, logger), conf)
	require.NoError(t, err)

	var out bytes.Buffer
	return &commandLine{
		conf:  conf,
		db:    db,
		ids:   ids,
		users: user.NewRepository(db),
		out:   &out,
	}, &out
}

func writeFixtures(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "fixtures.toml")
	require.NoError(t, os.WriteFile(path, []byte(fixturesTOML), 0o600))
	return path
}

func mockPassword(t *testing.T, pwd string) {
	orig := readPasswordFunc
	t.Cleanup(func() { readPasswordFunc = orig })
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte(pwd), nil }
}

func runTests(t *testing.T, cli *commandLine, tests []cliTest, check func(t *testing.T, tt cliTest)) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPassword(t, tt.pwd)
			err := cli.run(append([]string{"admin"}, tt.args...))
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrStr)
			default:
				require.NoError(t, err)
				if check != nil {
					check(t, tt)
				}
			}
		})
	}
}

func Test_commandLine_root(t *testing.T) {
	cli, _ := setup(t)
	runTests(t, cli, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErrStr: `unknown command "lol"`},
	}, nil)
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	t.Run("memory engine", func(t *testing.T) {
		assert.Equal(t, errNoSQL, cli.run([]string{"admin", "migrate", "up"}))
	})

	conf := core.NewTestConfig()
	conf.Database.Engine = database.EngineSQLite
	conf.Database.SQLitePath = filepath.Join(t.TempDir(), "admin.db")
	sqlDB, err := database.OpenSQL(conf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	cli.conf, cli.sqlDB = conf, sqlDB

	orig := gooseRunFunc
	t.Cleanup(func() { gooseRunFunc = orig })
	gooseRunFunc = func(command string, db *sql.DB, engine string, args ...string) error {
		if engine != database.EngineSQLite {
			return fmt.Errorf("unexpected engine %q", engine)
		}
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	runTests(t, cli, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "1"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
	}, nil)

	t.Run("real migrations", func(t *testing.T) {
		gooseRunFunc = orig
		require.NoError(t, cli.run([]string{"admin", "migrate", "up"}))
		require.NoError(t, cli.run([]string{"admin", "migrate", "version"}))
	})
}

func Test_commandLine_addUser(t *testing.T) {
	cli, out := setup(t)
	ctx := context.Background()

	runTests(t, cli, []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "--email", "olga@example.com", "--name", "Ольга Смирнова"}, wantErr: errHelp},
		{name: "invalid role", args: []string{"adduser", "--email", "olga@example.com", "--name", "Ольга Смирнова", "--role", "admin"}, pwd: "Pa$$w0rd", wantErr: user.ErrInvalidRole},
		{name: "single name", args: []string{"adduser", "--email", "olga@example.com", "--name", "Ольга"}, pwd: "Pa$$w0rd", wantErrStr: "not a full name"},
		{name: "create teacher", args: []string{"adduser", "--email", "Olga@Example.com", "--name", "Ольга Смирнова"}, pwd: "Pa$$w0rd"},
		{name: "update as parent", args: []string{"adduser", "--email", "olga@example.com", "--name", "Ольга Смирнова", "--role", "parent", "--child", "s1"}, pwd: "n3w-Pa$$"},
	}, func(t *testing.T, tt cliTest) {
		id, err := cli.ids.SignIn(ctx, "olga@example.com", tt.pwd)
		require.NoError(t, err)
		assert.True(t, id.Verified)

		acc, err := cli.users.Get(ctx, id.UID)
		require.NoError(t, err)
		assert.Equal(t, "Ольга", acc.FirstName)
		assert.Equal(t, "Смирнова", acc.LastName)
	})

	accounts, err := cli.users.All(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, user.RoleParent, accounts[0].Role)
	assert.Equal(t, "s1", accounts[0].ChildID)
	assert.Contains(t, out.String(), "created teacher olga@example.com")
	assert.Contains(t, out.String(), "updated parent olga@example.com")
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, _ := setup(t)
	ctx := context.Background()
	_, err := cli.ids.CreateUser(ctx, "anna@example.com", "Pa$$w0rd")
	require.NoError(t, err)

	runTests(t, cli, []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "e-mail but no password", args: []string{"resetpassword", "--email", "anna@example.com"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "--email", "lol@example.com"}, pwd: "lol", wantErrStr: "not found"},
		{name: "reset", args: []string{"resetpassword", "--email", "ANNA@example.com"}, pwd: "lmao"},
	}, func(t *testing.T, tt cliTest) {
		_, err := cli.ids.SignIn(ctx, "anna@example.com", tt.pwd)
		assert.NoError(t, err)
	})
}

func assertSeeded(t *testing.T, cli *commandLine) {
	ctx := context.Background()

	classes, err := schoolclass.NewRepository(cli.db).All(ctx)
	require.NoError(t, err)
	assert.Len(t, classes, 2)

	subjects, err := subject.NewRepository(cli.db).All(ctx)
	require.NoError(t, err)
	assert.Len(t, subjects, 2)

	students, err := student.NewRepository(cli.db).All(ctx)
	require.NoError(t, err)
	assert.Len(t, students, 2)

	events, err := event.NewRepository(cli.db).All(ctx, core.TimeRange{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Выпускной", events[0].Title)
	assert.Equal(t, int64(1621933200000), events[0].Date.Millis())
}

func Test_commandLine_seed(t *testing.T) {
	cli, out := setup(t)
	path := writeFixtures(t)

	runTests(t, cli, []cliTest{
		{name: "no file", args: []string{"seed"}, wantErr: errHelp},
		{name: "missing file", args: []string{"seed", "-f", filepath.Join(t.TempDir(), "nope.toml")}, wantErr: os.ErrNotExist},
		{name: "remote without e-mail", args: []string{"seed", "-f", path, "--remote"}, wantErr: errHelp},
		{name: "seed", args: []string{"seed", "-f", path}},
	}, nil)
	assertSeeded(t, cli)

	// students are not duplicated
	require.NoError(t, cli.run([]string{"admin", "seed", "--file", path}))
	assert.Contains(t, out.String(), "0 students (2 skipped)")
}

func Test_commandLine_seed_invalidFile(t *testing.T) {
	cli, _ := setup(t)
	path := filepath.Join(t.TempDir(), "fixtures.toml")
	require.NoError(t, os.WriteFile(path, []byte("teachers = [\"Ольга\"]\n"), 0o600))

	err := cli.run([]string{"admin", "seed", "-f", path})
	assert.Error(t, err, "unknown keys are rejected")
}

func Test_commandLine_seed_remote(t *testing.T) {
	cli, _ := setup(t)
	ctx := context.Background()

	// the API shares the CLI's database
	srv := httptest.NewServer(echoapi.NewServer(echoapi.ServerDeps{
		Conf:           cli.conf,
		Logger:         testutil.Logger(t),
		DB:             cli.db,
		Identity:       cli.ids,
		Users:          cli.users,
		DisableReqLogs: true,
	}))
	t.Cleanup(srv.Close)
	cli.conf.Remote.BaseURL = srv.URL

	mockPassword(t, "Pa$$w0rd")
	require.NoError(t, cli.run([]string{"admin", "adduser", "--email", "olga@example.com", "--name", "Ольга Смирнова"}))

	path := writeFixtures(t)
	require.NoError(t, cli.run([]string{"admin", "seed", "-f", path, "--remote", "--email", "olga@example.com"}))
	assertSeeded(t, cli)

	t.Run("parents cannot seed", func(t *testing.T) {
		id, err := cli.ids.CreateUser(ctx, "anna@example.com", "Pa$$w0rd")
		require.NoError(t, err)
		require.NoError(t, cli.users.Add(ctx, user.Account{UID: id.UID, Email: id.Email, Role: user.RoleParent, FirstName: "Анна", LastName: "Петрова"}))

		err = cli.run([]string{"admin", "seed", "-f", path, "--remote", "--email", "anna@example.com"})
		assert.ErrorContains(t, err, "permission denied")
	})
}
