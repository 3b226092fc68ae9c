package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{InvalidPayload, http.StatusBadRequest},
		{Conflict, http.StatusBadRequest},
		{NotFound, http.StatusNotFound},
		{Unauthorized, http.StatusUnauthorized},
		{Forbidden, http.StatusForbidden},
		{PermissionDenied, http.StatusUnauthorized},
		{Internal, http.StatusInternalServerError},
	}

	for _, tc := range tests {
		if got := tc.kind.Status(); got != tc.want {
			t.Errorf("%s.Status() = %d, want %d", tc.kind, got, tc.want)
		}
	}
}

func TestKindOfAndMessageOf_Wrapped(t *testing.T) {
	cause := errors.New("duplicate key")
	err := fmt.Errorf("signup: %w", Wrap(Conflict, MsgUserExists, cause))

	if got := KindOf(err); got != Conflict {
		t.Fatalf("KindOf = %s, want conflict", got)
	}
	if got := MessageOf(err); got != MsgUserExists {
		t.Fatalf("MessageOf = %q, want %q", got, MsgUserExists)
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected cause to be reachable through Unwrap")
	}
	if !Is(err, Conflict) || Is(err, NotFound) {
		t.Fatal("Is reported the wrong kind")
	}
}

func TestKindOfAndMessageOf_Unclassified(t *testing.T) {
	err := errors.New("pq: connection refused")

	if got := KindOf(err); got != Internal {
		t.Fatalf("KindOf = %s, want internal", got)
	}
	if got := MessageOf(err); got != MsgTryAgain {
		t.Fatalf("MessageOf = %q, want %q", got, MsgTryAgain)
	}
}
