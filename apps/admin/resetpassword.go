package main

import (
	"context"
)

func (cli *commandLine) resetPassword(ctx context.Context, email, pwd string) error {
	if err := cli.ids.SetPassword(ctx, email, pwd); err != nil {
		return err
	}
	cli.printf("%s password reset for %s\n", okColor("✓"), email)
	return nil
}
