package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/okian/ctfboard/internal/adapters/session"
	"github.com/redis/go-redis/v9"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// exerciseStore runs the behaviour every Store must share.
func exerciseStore(store session.Store, expire func(time.Duration)) {
	ctx := context.Background()

	Convey("When a value is set", func() {
		So(store.Set(ctx, "k", []byte("v"), time.Minute), ShouldBeNil)

		Convey("Then it can be read repeatedly", func() {
			v, err := store.Get(ctx, "k")
			So(err, ShouldBeNil)
			So(string(v), ShouldEqual, "v")
			v, err = store.Get(ctx, "k")
			So(err, ShouldBeNil)
			So(string(v), ShouldEqual, "v")
		})

		Convey("Then Take returns it once", func() {
			v, err := store.Take(ctx, "k")
			So(err, ShouldBeNil)
			So(string(v), ShouldEqual, "v")
			_, err = store.Take(ctx, "k")
			So(errors.Is(err, session.ErrNotFound), ShouldBeTrue)
		})

		Convey("Then Delete removes it", func() {
			So(store.Delete(ctx, "k"), ShouldBeNil)
			_, err := store.Get(ctx, "k")
			So(errors.Is(err, session.ErrNotFound), ShouldBeTrue)
		})

		Convey("Then it disappears after the TTL", func() {
			expire(time.Minute + time.Second)
			_, err := store.Get(ctx, "k")
			So(errors.Is(err, session.ErrNotFound), ShouldBeTrue)
			_, err = store.Take(ctx, "k")
			So(errors.Is(err, session.ErrNotFound), ShouldBeTrue)
		})
	})

	Convey("When many goroutines take the same key", func() {
		So(store.Set(ctx, "race", []byte("x"), time.Minute), ShouldBeNil)

		var wins int32
		var wg sync.WaitGroup
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := store.Take(ctx, "race"); err == nil {
					atomic.AddInt32(&wins, 1)
				}
			}()
		}
		wg.Wait()

		Convey("Then exactly one wins", func() {
			So(atomic.LoadInt32(&wins), ShouldEqual, 1)
		})
	})

	Convey("When an unknown key is read", func() {
		_, err := store.Get(ctx, "missing")

		Convey("Then it is not found", func() {
			So(errors.Is(err, session.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestMemoryStore(t *testing.T) {
	Convey("Given a memory store with a controlled clock", t, func() {
		clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
		store := session.NewMemoryStore(session.WithClock(clock.Now), session.WithSweepEvery(2))

		exerciseStore(store, clock.Advance)

		Convey("When expired entries exist and writes continue", func() {
			ctx := context.Background()
			So(store.Set(ctx, "a", []byte("1"), time.Second), ShouldBeNil)
			clock.Advance(2 * time.Second)
			So(store.Set(ctx, "b", []byte("2"), time.Minute), ShouldBeNil)

			Convey("Then the sweep drops them", func() {
				So(store.Len(), ShouldEqual, 1)
			})
		})
	})
}

func TestRedisStore(t *testing.T) {
	Convey("Given a redis store", t, func() {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client.Close()
		store := session.NewRedisStore(client, "ctfboard:session:")

		exerciseStore(store, mr.FastForward)

		Convey("When a prefixed value is set", func() {
			So(store.Set(context.Background(), "ns", []byte("v"), time.Minute), ShouldBeNil)

			Convey("Then the key is prefixed", func() {
				So(mr.Exists("ctfboard:session:ns"), ShouldBeTrue)
			})
		})

		Convey("When redis is unreachable", func() {
			mr.Close()
			_, err := store.Get(context.Background(), "k")

			Convey("Then the error is not a miss", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, session.ErrNotFound), ShouldBeFalse)
			})
		})
	})
}

func TestSealer(t *testing.T) {
	Convey("Given a sealer", t, func() {
		s, err := session.NewSealer([]byte("server-secret"))
		So(err, ShouldBeNil)
		plain := []byte(`{"clientPublicKey":"02ab"}`)

		Convey("When a payload is sealed", func() {
			sealed, err := s.Seal("team_chal_1", plain)
			So(err, ShouldBeNil)

			Convey("Then it opens under the same key", func() {
				got, err := s.Open("team_chal_1", sealed)
				So(err, ShouldBeNil)
				So(string(got), ShouldEqual, string(plain))
			})

			Convey("Then the plaintext is not visible", func() {
				So(string(sealed), ShouldNotContainSubstring, "clientPublicKey")
			})

			Convey("Then it does not open under another session key", func() {
				_, err := s.Open("team_chal_2", sealed)
				So(errors.Is(err, session.ErrSealed), ShouldBeTrue)
			})

			Convey("Then a flipped byte is detected", func() {
				sealed[len(sealed)-1] ^= 1
				_, err := s.Open("team_chal_1", sealed)
				So(errors.Is(err, session.ErrSealed), ShouldBeTrue)
			})

			Convey("Then another secret cannot open it", func() {
				other, _ := session.NewSealer([]byte("other"))
				_, err := other.Open("team_chal_1", sealed)
				So(errors.Is(err, session.ErrSealed), ShouldBeTrue)
			})
		})

		Convey("When the input is truncated", func() {
			_, err := s.Open("k", []byte{1, 2})

			Convey("Then it is rejected", func() {
				So(errors.Is(err, session.ErrSealed), ShouldBeTrue)
			})
		})
	})

	Convey("Given an empty secret", t, func() {
		_, err := session.NewSealer(nil)

		Convey("Then construction fails", func() {
			So(err, ShouldNotBeNil)
		})
	})
}
