package repository_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/ctfboard/internal/adapters/repository"
	. "github.com/smartystreets/goconvey/convey"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "challenges.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

func TestLoadCatalog(t *testing.T) {
	Convey("Given a catalog file", t, func() {
		path := writeCatalog(t, `
challenges:
  - id: warmup
    name: Warm up
    public_key: AwTtUaLtzpHyxVY0oQvEP398tPPK8iLKjsjgmvjn+y8=
    salt: KoVNy6Blq3vFpmdgAXO9MQ==
    ops_limit: 2
    mem_limit: 67108864
  - id: second
    name: Second
    combined_public_key: "02aa"
`)

		Convey("When it is loaded", func() {
			cs, err := repository.LoadCatalog(path)

			Convey("Then every challenge is decoded", func() {
				So(err, ShouldBeNil)
				So(cs, ShouldHaveLength, 2)
				So(cs[0].ID, ShouldEqual, "warmup")
				So(cs[0].OpsLimit, ShouldEqual, 2)
				So(cs[0].MemLimit, ShouldEqual, 67108864)
				So(cs[0].Salt, ShouldEqual, "KoVNy6Blq3vFpmdgAXO9MQ==")
				So(cs[1].CombinedPublicKey, ShouldEqual, "02aa")
			})

			Convey("Then it can seed a store", func() {
				store := repository.NewMemoryStore()
				So(repository.Seed(context.Background(), store, cs), ShouldBeNil)
				c, err := store.Challenge(context.Background(), "second")
				So(err, ShouldBeNil)
				So(c.Name, ShouldEqual, "Second")
			})
		})
	})

	Convey("Given a catalog with duplicate ids", t, func() {
		path := writeCatalog(t, "challenges:\n  - id: a\n  - id: a\n")

		Convey("Then loading fails", func() {
			_, err := repository.LoadCatalog(path)
			So(errors.Is(err, repository.ErrInvalidRecord), ShouldBeTrue)
		})
	})

	Convey("Given a missing file", t, func() {
		Convey("Then loading fails", func() {
			_, err := repository.LoadCatalog(filepath.Join(t.TempDir(), "none.yaml"))
			So(err, ShouldNotBeNil)
		})
	})
}

func TestLoadRoster(t *testing.T) {
	Convey("Given a roster file", t, func() {
		path := writeCatalog(t, `
teams:
  - name: red
    token: tok-alice
    countries: [BR, PT]
  - name: blue
    token: tok-bob
`)

		Convey("Then every team is decoded", func() {
			teams, err := repository.LoadRoster(path)
			So(err, ShouldBeNil)
			So(teams, ShouldHaveLength, 2)
			So(teams[0], ShouldResemble, repository.RosterEntry{Name: "red", Token: "tok-alice", Countries: []string{"BR", "PT"}})
			So(teams[1].Countries, ShouldBeEmpty)
		})
	})

	Convey("Given a roster entry without a token", t, func() {
		path := writeCatalog(t, "teams:\n  - name: red\n")

		Convey("Then loading fails", func() {
			_, err := repository.LoadRoster(path)
			So(errors.Is(err, repository.ErrInvalidRecord), ShouldBeTrue)
		})
	})
}
