package failure_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/okian/ctfboard/internal/domain/failure"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFailure(t *testing.T) {
	Convey("Given a semantic error", t, func() {
		err := failure.SemanticErr("proof.verify", failure.MsgInvalidProof)

		Convey("When it is wrapped by callers", func() {
			wrapped := fmt.Errorf("outer: %w", failure.Wrap("app.submit", err))

			Convey("Then kind and message survive", func() {
				So(failure.KindOf(wrapped), ShouldEqual, failure.Semantic)
				So(failure.MessageOf(wrapped), ShouldEqual, failure.MsgInvalidProof)
				So(failure.Is(wrapped, failure.Semantic, failure.MsgInvalidProof), ShouldBeTrue)
			})

			Convey("Then the original is still in the chain", func() {
				So(errors.Is(wrapped, err), ShouldBeTrue)
			})
		})

		Convey("Then its text names the operation", func() {
			So(err.Error(), ShouldEqual, "proof.verify: Invalid proof")
		})
	})

	Convey("Given an unclassified error", t, func() {
		cause := errors.New("connection reset")
		err := failure.Wrap("ledger.register", cause)

		Convey("Then it is internal and opaque", func() {
			So(failure.KindOf(err), ShouldEqual, failure.Internal)
			So(failure.MessageOf(err), ShouldEqual, failure.MsgInternal)
			So(errors.Is(err, cause), ShouldBeTrue)
		})

		Convey("Then wrapping nil yields nil", func() {
			So(failure.Wrap("x", nil), ShouldBeNil)
		})
	})

	Convey("Given the constructors", t, func() {
		Convey("Then each tags its kind", func() {
			So(failure.KindOf(failure.SemanticErr("op", "m")), ShouldEqual, failure.Semantic)
			So(failure.KindOf(failure.AuthorizationErr("op", "m")), ShouldEqual, failure.Authorization)
			So(failure.KindOf(failure.NotFoundErr("op", "m")), ShouldEqual, failure.NotFound)
			So(failure.KindOf(failure.ValidationErr("op", "m")), ShouldEqual, failure.Validation)
			So(failure.MessageOf(failure.NotFoundErr("op", failure.MsgNotFound)), ShouldEqual, failure.MsgNotFound)
		})
	})

	Convey("Given the kinds", t, func() {
		Convey("Then each has a stable wire code", func() {
			So(failure.Semantic.String(), ShouldEqual, "semantic")
			So(failure.Authorization.String(), ShouldEqual, "authorization")
			So(failure.NotFound.String(), ShouldEqual, "not-found")
			So(failure.Validation.String(), ShouldEqual, "validation")
			So(failure.RateLimited.String(), ShouldEqual, "rate-limit")
			So(failure.Internal.String(), ShouldEqual, "internal")
		})
	})
}
