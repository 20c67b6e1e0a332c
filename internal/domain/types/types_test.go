package types_test

import (
	"encoding/json"
	"testing"

	types "github.com/okian/ctfboard/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestScoreboardJSON(t *testing.T) {
	Convey("Given a scoreboard", t, func() {
		sb := types.Scoreboard{
			Tasks: []string{"c1"},
			Standings: []types.Standing{{
				Pos:        1,
				Team:       "red",
				Score:      515,
				TaskStats:  map[string]types.TaskStat{"c1": {Points: 515, Time: 1000}},
				LastAccept: 1000,
			}},
		}

		Convey("When it is encoded", func() {
			raw, err := json.Marshal(sb)
			So(err, ShouldBeNil)

			Convey("Then it uses the wire field names", func() {
				So(string(raw), ShouldEqual,
					`{"tasks":["c1"],"standings":[{"pos":1,"team":"red","score":515,"taskStats":{"c1":{"points":515,"time":1000}},"lastAccept":1000}]}`)
			})
		})
	})

	Convey("Given an error response", t, func() {
		body := types.ErrorResponse{Errors: []types.ErrorItem{{Code: "semantic", Message: "Invalid proof"}}}

		Convey("Then it encodes as an errors array", func() {
			raw, err := json.Marshal(body)
			So(err, ShouldBeNil)
			So(string(raw), ShouldEqual, `{"errors":[{"code":"semantic","message":"Invalid proof"}]}`)
		})
	})
}
