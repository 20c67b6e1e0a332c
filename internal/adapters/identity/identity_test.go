package identity_test

import (
	"context"
	"testing"

	"github.com/okian/ctfboard/internal/adapters/identity"
	"github.com/okian/ctfboard/internal/domain/failure"
	. "github.com/smartystreets/goconvey/convey"
)

func TestStaticVerifier(t *testing.T) {
	Convey("Given a static verifier", t, func() {
		v := identity.NewStaticVerifier(
			identity.WithTokens(map[string]string{"tok-alice": "alice", "tok-bob": "bob"}),
			identity.WithUnverified("bob"),
		)
		ctx := context.Background()

		Convey("When a known verified token is presented", func() {
			id, err := v.Verify(ctx, "tok-alice")

			Convey("Then the identity is returned", func() {
				So(err, ShouldBeNil)
				So(id.UID, ShouldEqual, "alice")
				So(id.Verified, ShouldBeTrue)
			})
		})

		Convey("When an unverified user's token is presented", func() {
			id, err := v.Verify(ctx, "tok-bob")

			Convey("Then the identity is flagged unverified", func() {
				So(err, ShouldBeNil)
				So(id.Verified, ShouldBeFalse)
			})
		})

		Convey("When an unknown token is presented", func() {
			_, err := v.Verify(ctx, "nope")

			Convey("Then it is an authorization error", func() {
				So(failure.Is(err, failure.Authorization, identity.MsgInvalidToken), ShouldBeTrue)
			})
		})

		Convey("When no token is presented", func() {
			_, err := v.Verify(ctx, "")

			Convey("Then the token is reported missing", func() {
				So(failure.Is(err, failure.Authorization, failure.MsgMissingToken), ShouldBeTrue)
			})
		})

		Convey("When a token is added at runtime", func() {
			v.Add("tok-carol", "carol", true)
			id, err := v.Verify(ctx, "tok-carol")

			Convey("Then it resolves", func() {
				So(err, ShouldBeNil)
				So(id.UID, ShouldEqual, "carol")
				So(id.Verified, ShouldBeTrue)
			})

			Convey("Then marking the user unverified takes effect", func() {
				v.Add("tok-carol-2", "carol", false)
				id, err := v.Verify(ctx, "tok-carol")
				So(err, ShouldBeNil)
				So(id.Verified, ShouldBeFalse)
			})
		})

		Convey("When an unverified user is added as verified", func() {
			v.Add("tok-late", "late", false)
			before, err := v.Verify(ctx, "tok-late")
			So(err, ShouldBeNil)
			v.Add("tok-late", "late", true)
			after, err := v.Verify(ctx, "tok-late")
			So(err, ShouldBeNil)

			Convey("Then the flag flips", func() {
				So(before.Verified, ShouldBeFalse)
				So(after.Verified, ShouldBeTrue)
			})
		})
	})
}

func TestFromProviderCode(t *testing.T) {
	Convey("Given provider error codes", t, func() {
		Convey("Then token failures are authorization errors", func() {
			for _, code := range []string{identity.CodeTokenExpired, identity.CodeTokenRevoked, identity.CodeInvalidToken, identity.CodeArgumentError} {
				So(failure.KindOf(identity.FromProviderCode(code, "x")), ShouldEqual, failure.Authorization)
			}
		})

		Convey("Then bad account data is semantic with the provider message", func() {
			err := identity.FromProviderCode(identity.CodeInvalidEmail, "bad email")
			So(failure.Is(err, failure.Semantic, "bad email"), ShouldBeTrue)
		})

		Convey("Then a missing user is not found", func() {
			So(failure.KindOf(identity.FromProviderCode(identity.CodeUserNotFound, "gone")), ShouldEqual, failure.NotFound)
		})

		Convey("Then unknown codes are internal and opaque", func() {
			err := identity.FromProviderCode("auth/quota", "slow down")
			So(failure.KindOf(err), ShouldEqual, failure.Internal)
			So(failure.MessageOf(err), ShouldEqual, failure.MsgInternal)
		})
	})
}

func TestBearerToken(t *testing.T) {
	Convey("Given authorization headers", t, func() {
		So(identity.BearerToken("Bearer abc"), ShouldEqual, "abc")
		So(identity.BearerToken("bearer  abc "), ShouldEqual, "abc")
		So(identity.BearerToken("Basic abc"), ShouldEqual, "")
		So(identity.BearerToken(""), ShouldEqual, "")
	})
}
