package main

func (cli *commandLine) migrate(args []string) error {
	if cli.sqlDB == nil {
		return errNoSQL
	}
	if err := gooseRunFunc(args[0], cli.sqlDB, cli.conf.Database.Engine, args[1:]...); err != nil {
		return err
	}
	cli.printf("%s migrate %s\n", okColor("✓"), args[0])
	return nil
}
