package resolve

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

var (
	errBase     = errors.New("base failure")
	errSpecific = fmt.Errorf("%w: specific case", errBase)
)

func TestRegistry_MatchesWrappedErrors(t *testing.T) {
	reg := NewRegistry().On(errBase, func(_ Request, err error) *Resolution {
		return &Resolution{Status: http.StatusConflict, Code: "BASE", Message: err.Error()}
	})

	res, ok := reg.Resolve(testReq, fmt.Errorf("wrapped: %w", errBase))
	if !ok {
		t.Fatal("expected registry to resolve wrapped error")
	}
	if res.Code != "BASE" {
		t.Fatalf("unexpected code: %s", res.Code)
	}
}

func TestRegistry_RegistrationOrder(t *testing.T) {
	reg := NewRegistry().
		On(errSpecific, func(_ Request, _ error) *Resolution {
			return &Resolution{Status: http.StatusBadRequest, Code: "SPECIFIC"}
		}).
		On(errBase, func(_ Request, _ error) *Resolution {
			return &Resolution{Status: http.StatusInternalServerError, Code: "BROAD"}
		})

	res, ok := reg.Resolve(testReq, errSpecific)
	if !ok {
		t.Fatal("expected registry to resolve")
	}
	if res.Code != "SPECIFIC" {
		t.Fatalf("expected first (narrow) registration to win, got %s", res.Code)
	}

	res, ok = reg.Resolve(testReq, errBase)
	if !ok {
		t.Fatal("expected registry to resolve base error")
	}
	if res.Code != "BROAD" {
		t.Fatalf("expected broad registration for base error, got %s", res.Code)
	}
}

func TestRegistry_NilHandlerResultDeclines(t *testing.T) {
	fallthroughCalled := false
	reg := NewRegistry().
		On(errBase, func(_ Request, _ error) *Resolution {
			return nil
		}).
		On(errBase, func(_ Request, _ error) *Resolution {
			fallthroughCalled = true
			return &Resolution{Status: http.StatusBadRequest, Code: "SECOND_CHANCE"}
		})

	res, ok := reg.Resolve(testReq, errBase)
	if !ok {
		t.Fatal("expected second registration to resolve")
	}
	if !fallthroughCalled || res.Code != "SECOND_CHANCE" {
		t.Fatalf("expected fall-through to next registration, got %+v", res)
	}
}

func TestRegistry_UnknownErrorDeclines(t *testing.T) {
	reg := NewRegistry().On(errBase, func(_ Request, _ error) *Resolution {
		return &Resolution{Status: http.StatusBadRequest}
	})

	if _, ok := reg.Resolve(testReq, errors.New("unrelated")); ok {
		t.Fatal("expected registry to decline unknown error")
	}
}
