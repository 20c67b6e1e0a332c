package repository_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/ctfboard/internal/adapters/repository"
	"github.com/okian/ctfboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func TestMemoryLedger(t *testing.T) {
	Convey("Given an empty memory store", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore(repository.WithClock(fixedClock(1_700_000_000_000)))

		Convey("When a team has no solves", func() {
			set, err := store.SolvesOf(ctx, "team")

			Convey("Then an empty set is returned", func() {
				So(err, ShouldBeNil)
				So(set, ShouldBeEmpty)
			})
		})

		Convey("When a solve is registered", func() {
			got, err := store.RegisterSolve(ctx, "team", "c1", "proof")

			Convey("Then the moment is returned keyed by challenge", func() {
				So(err, ShouldBeNil)
				So(got, ShouldResemble, model.SolveSet{"c1": 1_700_000_000_000})
			})

			Convey("Then a second registration conflicts", func() {
				_, err := store.RegisterSolve(ctx, "team", "c1", "proof")
				So(err, ShouldEqual, repository.ErrAlreadySolved)
			})

			Convey("Then it shows up in every read", func() {
				set, _ := store.SolvesOf(ctx, "team")
				So(set, ShouldResemble, model.SolveSet{"c1": 1_700_000_000_000})
				all, _ := store.AllSolves(ctx)
				So(all, ShouldResemble, model.Ledger{"team": {"c1": 1_700_000_000_000}})
				withProof, _ := store.SolvesWithProof(ctx)
				So(withProof, ShouldResemble, []model.Solve{{TeamID: "team", ChallengeID: "c1", Moment: 1_700_000_000_000, Proof: "proof"}})
			})
		})

		Convey("When ids are missing", func() {
			_, err := store.RegisterSolve(ctx, "", "c1", "p")

			Convey("Then the record is invalid", func() {
				So(err, ShouldEqual, repository.ErrInvalidRecord)
			})
		})

		Convey("When many goroutines register the same solve", func() {
			const workers = 64
			var ok, conflicts atomic.Int32
			var wg sync.WaitGroup
			start := make(chan struct{})
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					_, err := store.RegisterSolve(ctx, "team", "c1", "proof")
					switch {
					case err == nil:
						ok.Add(1)
					case errors.Is(err, repository.ErrAlreadySolved):
						conflicts.Add(1)
					}
				}()
			}
			close(start)
			wg.Wait()

			Convey("Then exactly one succeeds", func() {
				So(ok.Load(), ShouldEqual, 1)
				So(conflicts.Load(), ShouldEqual, workers-1)
			})
		})
	})
}

func TestMemoryTeamsAndChallenges(t *testing.T) {
	Convey("Given a store seeded with challenges", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore(repository.WithChallenges(
			model.Challenge{ID: "b"}, model.Challenge{ID: "a"},
		))

		Convey("Then challenges are listed by id", func() {
			cs, err := store.Challenges(ctx)
			So(err, ShouldBeNil)
			So(cs, ShouldHaveLength, 2)
			So(cs[0].ID, ShouldEqual, "a")
		})

		Convey("Then unknown challenges are not found", func() {
			_, err := store.Challenge(ctx, "zzz")
			So(err, ShouldEqual, repository.ErrChallengeNotFound)
		})

		Convey("When a team registers", func() {
			team, err := store.RegisterTeam(ctx, model.NewTeam("red", []string{"BR"}, "u1"))
			So(err, ShouldBeNil)

			Convey("Then its id derives from its name", func() {
				So(team.ID, ShouldEqual, model.TeamID("red"))
				got, err := store.Team(ctx, team.ID)
				So(err, ShouldBeNil)
				So(got.HasMember("u1"), ShouldBeTrue)
			})

			Convey("Then the same name cannot register again", func() {
				_, err := store.RegisterTeam(ctx, model.NewTeam("red", nil, "u2"))
				So(err, ShouldEqual, repository.ErrTeamExists)
			})

			Convey("Then its member cannot register another team", func() {
				_, err := store.RegisterTeam(ctx, model.NewTeam("blue", nil, "u1"))
				So(err, ShouldEqual, repository.ErrAlreadyMember)
				_, err = store.Team(ctx, model.TeamID("blue"))
				So(err, ShouldEqual, repository.ErrTeamNotFound)
			})
		})

		Convey("When one member registers many teams at once", func() {
			var wins int32
			var wg sync.WaitGroup
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					if _, err := store.RegisterTeam(ctx, model.NewTeam(fmt.Sprintf("team-%d", i), nil, "u9")); err == nil {
						atomic.AddInt32(&wins, 1)
					}
				}(i)
			}
			wg.Wait()

			Convey("Then exactly one team is created", func() {
				So(atomic.LoadInt32(&wins), ShouldEqual, 1)
				teams, err := store.Teams(ctx)
				So(err, ShouldBeNil)
				So(teams, ShouldHaveLength, 1)
			})
		})

		Convey("Then unknown teams are not found", func() {
			_, err := store.Team(ctx, "nope")
			So(err, ShouldEqual, repository.ErrTeamNotFound)
		})
	})
}
