package main

import (
	"fmt"
	"log"
	"os"

	"github.com/trezcool/littledragons/core"
	"github.com/trezcool/littledragons/core/user"
	"github.com/trezcool/littledragons/services/email"
	"github.com/trezcool/littledragons/services/identity"
	"github.com/trezcool/littledragons/services/logger"
	"github.com/trezcool/littledragons/storage/database"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	db, err := database.Open(conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	defer db.Close()

	cli := commandLine{
		conf:  conf,
		db:    db,
		users: user.NewRepository(db),
		out:   os.Stdout,
	}
	if conf.Database.Engine != database.EngineMemory {
		if cli.sqlDB, err = database.OpenSQL(conf); err != nil {
			logger.Fatal(fmt.Sprintf("opening SQL database: %v", err), err)
		}
		defer cli.sqlDB.Close()
	}
	if cli.ids, err = identity.New(db, emailsvc.NewService(conf, logger), conf); err != nil {
		logger.Fatal(fmt.Sprintf("setting up identity: %v", err), err)
	}

	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
