package resolve

import (
	"errors"
	"net/http"
	"testing"

	"go.uber.org/zap"
)

// scriptedResolver resolves or declines according to its script and
// records how often it was consulted.
type scriptedResolver struct {
	name  string
	res   *Resolution
	calls int
}

func (s *scriptedResolver) Name() string {
	return s.name
}

func (s *scriptedResolver) Resolve(_ Request, _ error) (*Resolution, bool) {
	s.calls++
	if s.res == nil {
		return nil, false
	}
	return s.res, true
}

type panickingResolver struct {
	calls int
}

func (p *panickingResolver) Name() string {
	return "panicking"
}

func (p *panickingResolver) Resolve(_ Request, _ error) (*Resolution, bool) {
	p.calls++
	panic("resolver defect")
}

var testReq = Request{Method: "GET", Path: "/api/v1/incidents", Handler: "test"}

func TestChain_FirstMatchWins(t *testing.T) {
	first := &scriptedResolver{name: "first"}
	second := &scriptedResolver{name: "second", res: &Resolution{Status: http.StatusBadRequest, Code: "SECOND"}}
	third := &scriptedResolver{name: "third", res: &Resolution{Status: http.StatusTeapot, Code: "THIRD"}}

	chain := NewChain(zap.NewNop(), first, second, third)

	res, resolvedBy, ok := chain.Resolve(testReq, errors.New("boom"))
	if !ok {
		t.Fatal("expected chain to resolve")
	}
	if res.Status != http.StatusBadRequest || res.Code != "SECOND" {
		t.Fatalf("unexpected resolution: %+v", res)
	}
	if resolvedBy != "second" {
		t.Fatalf("expected resolution by 'second', got %q", resolvedBy)
	}
	if first.calls != 1 {
		t.Fatalf("expected first resolver consulted once, got %d", first.calls)
	}
	if third.calls != 0 {
		t.Fatal("resolver after the winning one must never be invoked")
	}
}

func TestChain_AllDecline(t *testing.T) {
	first := &scriptedResolver{name: "first"}
	second := &scriptedResolver{name: "second"}

	chain := NewChain(zap.NewNop(), first, second)

	res, _, ok := chain.Resolve(testReq, errors.New("boom"))
	if ok {
		t.Fatalf("expected chain to report unresolved, got %+v", res)
	}
	if first.calls != 1 || second.calls != 1 {
		t.Fatalf("expected every resolver consulted once, got %d and %d", first.calls, second.calls)
	}
}

func TestChain_EmptyChainDeclines(t *testing.T) {
	chain := NewChain(zap.NewNop())

	if _, _, ok := chain.Resolve(testReq, errors.New("boom")); ok {
		t.Fatal("empty chain must report unresolved")
	}
}

func TestChain_PanickingResolverSkipped(t *testing.T) {
	defective := &panickingResolver{}
	backup := &scriptedResolver{name: "backup", res: &Resolution{Status: http.StatusConflict, Code: "BACKUP"}}

	chain := NewChain(zap.NewNop(), defective, backup)

	res, resolvedBy, ok := chain.Resolve(testReq, errors.New("boom"))
	if !ok {
		t.Fatal("expected chain to survive a panicking resolver")
	}
	if resolvedBy != "backup" || res.Code != "BACKUP" {
		t.Fatalf("expected backup resolution, got %q / %+v", resolvedBy, res)
	}
	if defective.calls != 1 {
		t.Fatalf("expected defective resolver consulted once, got %d", defective.calls)
	}
}

func TestChain_Idempotent(t *testing.T) {
	first := &scriptedResolver{name: "first"}
	second := &scriptedResolver{name: "second", res: &Resolution{Status: http.StatusNotFound, Code: "NOT_FOUND"}}

	chain := NewChain(zap.NewNop(), first, second)
	failure := errors.New("boom")

	_, firstPick, ok := chain.Resolve(testReq, failure)
	if !ok {
		t.Fatal("expected chain to resolve")
	}
	_, secondPick, ok := chain.Resolve(testReq, failure)
	if !ok {
		t.Fatal("expected chain to resolve again")
	}
	if firstPick != secondPick {
		t.Fatalf("same failure through same chain picked different resolvers: %q then %q", firstPick, secondPick)
	}
}

// Mirrors the default wiring: registry declines, the status map claims
// the failure with 400 and the framework stage is never reached.
func TestChain_DefaultOrderScenario(t *testing.T) {
	errBadInput := errors.New("bad input")

	registry := NewRegistry() // no registrations, always declines
	statusMap := NewStatusMap().Map(errBadInput, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed.")
	framework := &scriptedResolver{name: "framework", res: &Resolution{Status: http.StatusInternalServerError}}

	chain := NewChain(zap.NewNop(), registry, statusMap, framework)

	res, resolvedBy, ok := chain.Resolve(testReq, errBadInput)
	if !ok {
		t.Fatal("expected chain to resolve")
	}
	if res.Status != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", res.Status)
	}
	if resolvedBy != "statusmap" {
		t.Fatalf("expected resolution by statusmap, got %q", resolvedBy)
	}
	if framework.calls != 0 {
		t.Fatal("framework resolver must never be invoked once statusmap resolved")
	}
}
