package main

import (
	"context"
	"os"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/trezcool/littledragons/core"
	"github.com/trezcool/littledragons/core/docstore"
	"github.com/trezcool/littledragons/core/event"
	"github.com/trezcool/littledragons/core/schoolclass"
	"github.com/trezcool/littledragons/core/student"
	"github.com/trezcool/littledragons/core/subject"
	"github.com/trezcool/littledragons/storage/remote"
)

type (
	fixtures struct {
		Classes  []string         `toml:"classes"`
		Subjects []string         `toml:"subjects"`
		Students []studentFixture `toml:"students"`
		Events   []eventFixture   `toml:"events"`
	}

	studentFixture struct {
		FirstName string `toml:"first_name"`
		LastName  string `toml:"last_name"`
		Class     string `toml:"class"`
	}

	eventFixture struct {
		Title string    `toml:"title"`
		Date  time.Time `toml:"date"`
	}
)

func loadFixtures(path string) (fixtures, error) {
	var fx fixtures
	f, err := os.Open(path)
	if err != nil {
		return fx, err
	}
	defer f.Close()

	if err := toml.NewDecoder(f).DisallowUnknownFields().Decode(&fx); err != nil {
		return fx, errors.Wrapf(err, "decoding %s", path)
	}
	return fx, nil
}

// seed stores the fixtures. Classes, subjects and existing students are skipped when already present.
func (cli *commandLine) seed(ctx context.Context, path string, remote bool, email, pwd string) error {
	fx, err := loadFixtures(path)
	if err != nil {
		return err
	}

	db := cli.db
	if remote {
		rdb, err := remotedb.SignIn(ctx, cli.conf, email, pwd)
		if err != nil {
			return errors.Wrap(err, "signing in to the API")
		}
		defer rdb.Close()
		db = rdb
	}
	return seedDB(ctx, db, fx, cli.printf)
}

func seedDB(ctx context.Context, db docstore.Database, fx fixtures, printf func(string, ...interface{})) error {
	classes := schoolclass.NewRepository(db)
	for _, name := range fx.Classes {
		if err := classes.Add(ctx, schoolclass.SchoolClass{Name: name}); err != nil {
			return err
		}
	}
	printf("%s %d classes\n", okColor("✓"), len(fx.Classes))

	subjects := subject.NewRepository(db)
	for _, name := range fx.Subjects {
		if err := subjects.Add(ctx, subject.Subject{Name: name}); err != nil {
			return err
		}
	}
	printf("%s %d subjects\n", okColor("✓"), len(fx.Subjects))

	students := student.NewRepository(db)
	var added int
	for _, s := range fx.Students {
		existing, err := students.Find(ctx, s.FirstName, s.LastName, s.Class)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			continue
		}
		if _, err := students.Add(ctx, student.Student{FirstName: s.FirstName, LastName: s.LastName, ClassID: s.Class}); err != nil {
			return err
		}
		added++
	}
	printf("%s %d students (%d skipped)\n", okColor("✓"), added, len(fx.Students)-added)

	events := event.NewRepository(db)
	for _, e := range fx.Events {
		if _, err := events.Add(ctx, event.Event{Title: e.Title, Date: core.NewTimestamp(e.Date)}); err != nil {
			return err
		}
	}
	printf("%s %d events\n", okColor("✓"), len(fx.Events))
	return nil
}
