package main

import (
	"database/sql"
	"fmt"
	"io"
	"syscall"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/trezcool/littledragons/core"
	"github.com/trezcool/littledragons/core/docstore"
	"github.com/trezcool/littledragons/core/user"
	"github.com/trezcool/littledragons/services/identity"
	"github.com/trezcool/littledragons/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword     // mockable
	gooseRunFunc     = database.RunMigrations // mockable

	errHelp  = errors.New("help provided")
	errNoSQL = errors.New("the memory engine has no migrations")

	okColor   = color.New(color.FgGreen).SprintFunc()
	warnColor = color.New(color.FgYellow).SprintFunc()
)

type commandLine struct {
	conf  *core.Config
	db    docstore.Database
	sqlDB *sql.DB // nil for the memory engine
	ids   *identity.Provider
	users *user.Repository
	out   io.Writer
}

func (cli *commandLine) run(args []string) error {
	root := cli.rootCmd()
	root.SetArgs(args[1:])
	return root.Execute()
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Little Dragons administration",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return errHelp
		},
	}
	root.SetOut(cli.out)
	root.SetErr(cli.out)

	root.AddCommand(cli.migrateCmd())
	root.AddCommand(cli.seedCmd())
	root.AddCommand(cli.addUserCmd())
	root.AddCommand(cli.resetPasswordCmd())
	return root
}

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS]",
		Short: "Run a goose command (up, up-to VERSION, down, status..) on the SQL database",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Usage()
				return errHelp
			}
			return cli.migrate(args)
		},
	}
}

func (cli *commandLine) seedCmd() *cobra.Command {
	var file, email string
	var remote bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load school classes, subjects, students and events from a TOML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" || (remote && email == "") {
				_ = cmd.Usage()
				return errHelp
			}
			var pwd string
			if remote {
				var err error
				if pwd, err = cli.readPassword(cmd); err != nil {
					return err
				}
			}
			return cli.seed(cmd.Context(), file, remote, email, pwd)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "fixtures file")
	cmd.Flags().BoolVar(&remote, "remote", false, "seed the API configured by remote.baseURL instead of the database")
	cmd.Flags().StringVar(&email, "email", "", "teacher account used with --remote. The password will be prompted next.")
	return cmd
}

func (cli *commandLine) addUserCmd() *cobra.Command {
	var (
		email, name, role, childID string
	)
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create or update a verified account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || name == "" {
				_ = cmd.Usage()
				return errHelp
			}
			r, err := user.ParseRole(role)
			if err != nil {
				return err
			}
			pwd, err := cli.readPassword(cmd)
			if err != nil {
				return err
			}
			return cli.addUser(cmd.Context(), newAccount{email: email, name: name, role: r, childID: childID, password: pwd})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "The user's e-mail. The password will be prompted next.")
	cmd.Flags().StringVar(&name, "name", "", "The user's full name")
	cmd.Flags().StringVar(&role, "role", string(user.RoleTeacher), "teacher | parent")
	cmd.Flags().StringVar(&childID, "child", "", "student id of a parent's child")
	return cmd
}

func (cli *commandLine) resetPasswordCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "resetpassword",
		Short: "Reset a user's password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				_ = cmd.Usage()
				return errHelp
			}
			pwd, err := cli.readPassword(cmd)
			if err != nil {
				return err
			}
			return cli.resetPassword(cmd.Context(), email, pwd)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "The user's e-mail. The password will be prompted next.")
	return cmd
}

func (cli *commandLine) readPassword(cmd *cobra.Command) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		_ = cmd.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}

func (cli *commandLine) printf(format string, args ...interface{}) {
	fmt.Fprintf(cli.out, format, args...)
}
