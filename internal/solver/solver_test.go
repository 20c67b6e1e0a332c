package solver_test

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/okian/ctfboard/internal/adapters/http/api"
	"github.com/okian/ctfboard/internal/adapters/identity"
	"github.com/okian/ctfboard/internal/adapters/repository"
	"github.com/okian/ctfboard/internal/adapters/session"
	service "github.com/okian/ctfboard/internal/app"
	"github.com/okian/ctfboard/internal/domain/model"
	"github.com/okian/ctfboard/internal/domain/proof"
	"github.com/okian/ctfboard/internal/solver"
	"github.com/okian/ctfboard/pkg/flagkey"
	"github.com/okian/ctfboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const (
	flag           = "CTF{solver}"
	combineContext = "ctfboard-solver"
	token          = "tok-alice"
)

func TestMain(m *testing.M) {
	if err := logger.InitWith(io.Discard, "text"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type scoreboard struct {
	url  string
	team model.Team
	chal model.Challenge
}

func newScoreboard(t *testing.T) *scoreboard {
	t.Helper()
	chal, err := proof.Provision(model.Challenge{ID: "warmup", Name: "Warm up", OpsLimit: 1, MemLimit: flagkey.MinMemLimit}, flag, []byte(combineContext))
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	store := repository.NewMemoryStore(repository.WithChallenges(chal))
	team, err := store.RegisterTeam(context.Background(), model.NewTeam("red", nil, "alice"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	sealer, err := session.NewSealer([]byte("server-secret"))
	if err != nil {
		t.Fatalf("sealer: %v", err)
	}
	svc := service.New(
		service.WithStore(store),
		service.WithSealer(sealer),
		service.WithVerifier(identity.NewStaticVerifier(identity.WithToken(token, "alice"))),
		service.WithInteractive(proof.NewInteractive([]byte(combineContext))),
		service.WithLogger(logger.Nop()),
	)
	r := mux.NewRouter()
	srv := api.NewServer(svc, api.WithProtocol(api.ProtocolBoth), api.WithLogger(logger.Nop()))
	srv.Register(context.Background(), r)
	ts := httptest.NewServer(srv.Handler(r))
	t.Cleanup(ts.Close)
	return &scoreboard{url: ts.URL, team: team, chal: chal}
}

func (s *scoreboard) config(protocol string) *solver.Config {
	return &solver.Config{
		BaseURL:        s.url,
		Token:          token,
		TeamID:         s.team.ID,
		ChallengeID:    s.chal.ID,
		Flag:           flag,
		Protocol:       protocol,
		CombineContext: combineContext,
		Workers:        1,
		Timeout:        5 * time.Second,
	}
}

func TestRun(t *testing.T) {
	Convey("Given a running scoreboard", t, func() {
		sb := newScoreboard(t)
		ctx := context.Background()

		for _, protocol := range []string{solver.ProtocolInteractive, solver.ProtocolSigned} {
			Convey("When the "+protocol+" proof is submitted once", func() {
				stats, err := solver.Run(ctx, sb.config(protocol))

				Convey("Then it is accepted and appears on the scoreboard", func() {
					So(err, ShouldBeNil)
					So(stats.Accepted, ShouldEqual, 1)
					So(stats.Solved, ShouldContainKey, sb.chal.ID)

					board, err := solver.NewClient(sb.url, "", time.Second).Scoreboard(ctx)
					So(err, ShouldBeNil)
					So(board.Standings, ShouldHaveLength, 1)
					So(board.Standings[0].Team, ShouldEqual, "red")
				})

				Convey("Then a second run is rejected as already solved", func() {
					stats, err := solver.Run(ctx, sb.config(protocol))
					So(errors.Is(err, solver.ErrNotAccepted), ShouldBeTrue)
					So(stats.Rejected, ShouldEqual, 1)
				})
			})

			Convey("When "+protocol+" attempts race each other", func() {
				cfg := sb.config(protocol)
				cfg.Workers = 8
				stats, err := solver.Run(ctx, cfg)

				Convey("Then exactly one is accepted", func() {
					So(err, ShouldBeNil)
					So(stats.Attempts, ShouldEqual, 8)
					So(stats.Accepted, ShouldEqual, 1)
					So(stats.Rejected, ShouldEqual, 7)
					So(stats.Failed, ShouldEqual, 0)
				})
			})

			Convey("When the "+protocol+" flag is wrong", func() {
				cfg := sb.config(protocol)
				cfg.Flag = "CTF{nope}"
				stats, err := solver.Run(ctx, cfg)

				Convey("Then it fails before submitting", func() {
					So(errors.Is(err, proof.ErrWrongFlag), ShouldBeTrue)
					So(stats.Attempts, ShouldEqual, 0)
				})
			})
		}

		Convey("When the token is missing", func() {
			cfg := sb.config(solver.ProtocolInteractive)
			cfg.Token = ""
			stats, err := solver.Run(ctx, cfg)

			Convey("Then the attempt is rejected", func() {
				So(errors.Is(err, solver.ErrNotAccepted), ShouldBeTrue)
				So(stats.Rejected, ShouldEqual, 1)
			})
		})

		Convey("When the team is unknown to the signed protocol", func() {
			cfg := sb.config(solver.ProtocolSigned)
			cfg.TeamID = "deadbeef"
			_, err := solver.Run(ctx, cfg)

			Convey("Then the solver stops before signing", func() {
				So(errors.Is(err, solver.ErrTeamUnknown), ShouldBeTrue)
			})
		})

		Convey("When the challenge does not exist", func() {
			cfg := sb.config(solver.ProtocolSigned)
			cfg.ChallengeID = "missing"
			_, err := solver.Run(ctx, cfg)

			Convey("Then the API error carries the status", func() {
				var apiErr *solver.APIError
				So(errors.As(err, &apiErr), ShouldBeTrue)
				So(apiErr.Status, ShouldEqual, 404)
				So(apiErr.Message(), ShouldEqual, "Not found")
			})
		})

		Convey("When the protocol is unknown", func() {
			cfg := sb.config("carrier-pigeon")
			_, err := solver.Run(ctx, cfg)

			Convey("Then it is refused", func() {
				So(errors.Is(err, solver.ErrUnknownProtocol), ShouldBeTrue)
			})
		})
	})
}

func TestProvision(t *testing.T) {
	Convey("Given a draft file with flags", t, func() {
		dir := t.TempDir()
		in := filepath.Join(dir, "drafts.yaml")
		out := filepath.Join(dir, "challenges.yaml")
		drafts := `
challenges:
  - id: warmup
    name: Warm up
    flag: "CTF{warm}"
    ops_limit: 1
    mem_limit: 8192
  - id: crypto
    name: Crypto
    flag: "CTF{crypto}"
    ops_limit: 1
    mem_limit: 8192
`
		So(os.WriteFile(in, []byte(drafts), 0o600), ShouldBeNil)
		ctx := context.Background()

		Convey("When it is provisioned with a combine context", func() {
			provisioned, err := solver.Provision(ctx, &solver.ProvisionConfig{Input: in, Output: out, CombineContext: combineContext})
			So(err, ShouldBeNil)
			So(provisioned, ShouldHaveLength, 2)

			Convey("Then the scoreboard can load the written catalog", func() {
				loaded, err := repository.LoadCatalog(out)
				So(err, ShouldBeNil)
				So(loaded, ShouldHaveLength, 2)
				So(loaded[0].ID, ShouldEqual, "warmup")
				So(loaded[0].Interactive(), ShouldBeTrue)
				So(loaded[0].ServerPrivateKey, ShouldEqual, provisioned[0].ServerPrivateKey)
			})

			Convey("Then the flag is not written out", func() {
				raw, err := os.ReadFile(out)
				So(err, ShouldBeNil)
				So(string(raw), ShouldNotContainSubstring, "CTF{warm}")
			})

			Convey("Then the right flag proves the loaded challenge", func() {
				loaded, _ := repository.LoadCatalog(out)
				_, err := proof.NewInteractiveClient("CTF{crypto}", loaded[1], []byte(combineContext), nil)
				So(err, ShouldBeNil)
				_, err = proof.NewSignedHashProof("red", "CTF{warm}", loaded[0])
				So(err, ShouldBeNil)
			})
		})

		Convey("When it is provisioned without a combine context", func() {
			provisioned, err := solver.Provision(ctx, &solver.ProvisionConfig{Input: in, Output: out})

			Convey("Then only signed-hash material is produced", func() {
				So(err, ShouldBeNil)
				So(provisioned[0].PublicKey, ShouldNotBeEmpty)
				So(provisioned[0].Interactive(), ShouldBeFalse)
			})
		})
	})

	Convey("Given a draft without a flag", t, func() {
		dir := t.TempDir()
		in := filepath.Join(dir, "drafts.yaml")
		So(os.WriteFile(in, []byte("challenges:\n  - id: broken\n"), 0o600), ShouldBeNil)

		_, err := solver.Provision(context.Background(), &solver.ProvisionConfig{Input: in, Output: filepath.Join(dir, "out.yaml")})

		Convey("Then provisioning is refused", func() {
			So(errors.Is(err, solver.ErrMissingFlag), ShouldBeTrue)
		})
	})
}
