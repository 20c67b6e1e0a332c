package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/ctfboard/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.Protocol, convey.ShouldEqual, config.ProtocolInteractive)
			convey.So(cfg.SessionTTL, convey.ShouldEqual, 2*time.Minute)
			convey.So(cfg.SessionBackend, convey.ShouldEqual, config.BackendMemory)
			convey.So(cfg.LedgerBackend, convey.ShouldEqual, config.BackendMemory)
			convey.So(cfg.ScoreCacheTTL, convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.AuditCacheTTL, convey.ShouldEqual, 5*time.Second)
			convey.So(cfg.ScoringK, convey.ShouldEqual, 80)
			convey.So(cfg.ScoringV, convey.ShouldEqual, 3)
			convey.So(cfg.ScoringMinPoints, convey.ShouldEqual, 50)
			convey.So(cfg.ScoringMaxPoints, convey.ShouldEqual, 500)
			convey.So(cfg.CORSOrigins, convey.ShouldResemble, []string{"*"})
		})

		convey.Convey("Then it needs a server secret for the interactive protocol", func() {
			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "server_secret")
		})

		convey.Convey("Then the signed protocol runs without one", func() {
			cfg.Protocol = config.ProtocolSigned
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *config.Config {
		cfg := config.New(context.Background())
		cfg.ServerSecret = "s3cret"
		cfg.CombineContext = "ctx"
		return cfg
	}

	convey.Convey("Given a valid config", t, func() {
		convey.So(valid().Validate(), convey.ShouldBeNil)

		cases := []struct {
			name   string
			mutate func(*config.Config)
			want   string
		}{
			{"unknown protocol", func(c *config.Config) { c.Protocol = "carrier-pigeon" }, "protocol"},
			{"unknown session backend", func(c *config.Config) { c.SessionBackend = "etcd" }, "session_backend"},
			{"redis without address", func(c *config.Config) {
				c.SessionBackend = config.BackendRedis
				c.RedisAddr = ""
			}, "redis_addr"},
			{"postgres without dsn", func(c *config.Config) { c.LedgerBackend = config.BackendPostgres }, "postgres_dsn"},
			{"inverted event window", func(c *config.Config) {
				c.EventStart = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
				c.EventEnd = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
			}, "event_start"},
			{"zero session ttl", func(c *config.Config) { c.SessionTTL = 0 }, "session_ttl"},
			{"min above max points", func(c *config.Config) { c.ScoringMinPoints = 600 }, "scoring"},
			{"bad log format", func(c *config.Config) { c.LogFormat = "xml" }, "log_format"},
		}

		for _, tc := range cases {
			convey.Convey("When it has "+tc.name, func() {
				cfg := valid()
				tc.mutate(cfg)
				err := cfg.Validate()

				convey.Convey("Then validation names the key", func() {
					convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
					convey.So(err.Error(), convey.ShouldContainSubstring, tc.want)
				})
			})
		}
	})
}
