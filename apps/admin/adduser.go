package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/littledragons/core"
	"github.com/trezcool/littledragons/core/auth"
	"github.com/trezcool/littledragons/core/user"
)

type newAccount struct {
	email    string
	name     string
	role     user.Role
	childID  string
	password string
}

// addUser updates or creates a verified account.
func (cli *commandLine) addUser(ctx context.Context, na newAccount) error {
	first, last, ok := core.SplitFullName(na.name)
	if !ok {
		return errors.Errorf("%q is not a full name", na.name)
	}

	created := true
	id, err := cli.ids.CreateUser(ctx, na.email, na.password)
	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		created = false
		if err = cli.ids.SetPassword(ctx, na.email, na.password); err != nil {
			return err
		}
		if id, err = cli.ids.SignIn(ctx, na.email, na.password); err != nil {
			return err
		}
	case err != nil:
		return err
	}
	if err := cli.ids.MarkVerified(ctx, id.UID); err != nil {
		return err
	}

	acc, err := cli.users.Get(ctx, id.UID)
	if err != nil && !core.IsNotFound(err) {
		return err
	}
	acc.UID = id.UID
	acc.Email = id.Email
	acc.Role = na.role
	acc.FirstName = first
	acc.LastName = last
	if na.role == user.RoleParent {
		acc.ChildID = na.childID
	} else {
		acc.ChildID = ""
	}
	if err := cli.users.Update(ctx, acc); err != nil {
		return err
	}

	if created {
		cli.printf("%s created %s %s\n", okColor("✓"), acc.Role, acc.Email)
	} else {
		cli.printf("%s updated %s %s\n", warnColor("!"), acc.Role, acc.Email)
	}
	return nil
}
