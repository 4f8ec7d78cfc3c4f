package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindMatchingThroughWrapping(t *testing.T) {
	base := Conflict("insufficient capacity")
	wrapped := fmt.Errorf("creating hold: %w", base)

	if !errors.Is(wrapped, Conflict("")) {
		t.Fatal("wrapped conflict must still match on kind")
	}
	if errors.Is(wrapped, NotFound("")) {
		t.Fatal("conflict must not match a different kind")
	}
	if KindOf(wrapped) != KindConflict {
		t.Fatalf("got kind %s", KindOf(wrapped))
	}
	if MessageOf(wrapped) != "insufficient capacity" {
		t.Fatalf("got message %q", MessageOf(wrapped))
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Unauthorized("no token"), http.StatusUnauthorized},
		{Forbidden("not yours"), http.StatusForbidden},
		{NotFound("missing"), http.StatusNotFound},
		{Conflict("duplicate"), http.StatusConflict},
		{Internal("boom", errors.New("cause")), http.StatusInternalServerError},
		{errors.New("unclassified"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Errorf("%v: got %d, want %d", tc.err, got, tc.want)
		}
	}
}
