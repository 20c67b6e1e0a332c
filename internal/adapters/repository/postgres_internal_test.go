package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/lib/pq"
	"github.com/okian/ctfboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestUniqueViolation(t *testing.T) {
	Convey("Given driver errors", t, func() {
		Convey("Then SQLSTATE 23505 is a unique violation, even wrapped", func() {
			err := fmt.Errorf("exec: %w", &pq.Error{Code: "23505"})
			So(isUniqueViolation(err), ShouldBeTrue)
		})

		Convey("Then other codes and plain errors are not", func() {
			So(isUniqueViolation(&pq.Error{Code: "23503"}), ShouldBeFalse)
			So(isUniqueViolation(errors.New("boom")), ShouldBeFalse)
			So(isUniqueViolation(nil), ShouldBeFalse)
		})
	})
}

// TestPostgresStore runs against a live database when
// CTFBOARD_TEST_POSTGRES_DSN is set.
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("CTFBOARD_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CTFBOARD_TEST_POSTGRES_DSN not set")
	}
	Convey("Given a postgres store", t, func() {
		ctx := context.Background()
		s, err := NewPostgresStore(ctx, dsn)
		So(err, ShouldBeNil)
		Reset(func() {
			_, _ = s.db.ExecContext(ctx, `TRUNCATE solves, team_members, teams, challenges`)
			_ = s.Close()
		})

		Convey("When a solve is registered twice", func() {
			_, err1 := s.RegisterSolve(ctx, "t", "c", "p")
			_, err2 := s.RegisterSolve(ctx, "t", "c", "p")

			Convey("Then the constraint rejects the second", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldEqual, ErrAlreadySolved)
			})
		})

		Convey("When a team registers twice", func() {
			_, err1 := s.RegisterTeam(ctx, model.NewTeam("red", []string{"BR"}, "u1"))
			_, err2 := s.RegisterTeam(ctx, model.NewTeam("red", nil, "u2"))

			Convey("Then the second conflicts and members are kept", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldEqual, ErrTeamExists)
				team, err := s.Team(ctx, model.TeamID("red"))
				So(err, ShouldBeNil)
				So(team.Members, ShouldResemble, []string{"u1"})
				So(team.Countries, ShouldResemble, []string{"BR"})
			})
		})

		Convey("When a member registers a second team", func() {
			_, err1 := s.RegisterTeam(ctx, model.NewTeam("red", nil, "u1"))
			_, err2 := s.RegisterTeam(ctx, model.NewTeam("blue", nil, "u1"))

			Convey("Then the uid index rejects it and no team is left behind", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldEqual, ErrAlreadyMember)
				_, err := s.Team(ctx, model.TeamID("blue"))
				So(err, ShouldEqual, ErrTeamNotFound)
			})
		})

		Convey("When a challenge is upserted", func() {
			So(s.UpsertChallenge(ctx, model.Challenge{ID: "c1", OpsLimit: 2, MemLimit: 8192}), ShouldBeNil)

			Convey("Then it reads back", func() {
				c, err := s.Challenge(ctx, "c1")
				So(err, ShouldBeNil)
				So(c.MemLimit, ShouldEqual, 8192)
				_, err = s.Challenge(ctx, "none")
				So(err, ShouldEqual, ErrChallengeNotFound)
			})
		})
	})
}
