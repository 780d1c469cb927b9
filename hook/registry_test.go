package hook

import (
	"context"
	"errors"
	"testing"
)

type claimHook struct {
	name    string
	handles []string
	err     error
}

func (h *claimHook) Name() string { return h.name }

func (h *claimHook) OnUsernameClaimed(_ context.Context, _, handle, _ string) error {
	h.handles = append(h.handles, handle)
	return h.err
}

type debitHook struct {
	name    string
	amounts []int64
}

func (h *debitHook) Name() string { return h.name }

func (h *debitHook) OnTokensDebited(_ context.Context, _ string, amount, _ int64) error {
	h.amounts = append(h.amounts, amount)
	return nil
}

func TestRegisterAndGet(t *testing.T) {
	r := NewRegistry()

	h := &claimHook{name: "audit"}
	if err := r.Register(h); err != nil {
		t.Fatal(err)
	}

	if got := r.Get("audit"); got != h {
		t.Error("Get should return the registered hook")
	}
	if got := r.Get("missing"); got != nil {
		t.Error("Get on unknown name should return nil")
	}
	if r.Count() != 1 {
		t.Errorf("Count = %d, want 1", r.Count())
	}
}

func TestRegisterDuplicateName(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(&claimHook{name: "audit"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(&debitHook{name: "audit"}); err == nil {
		t.Error("duplicate registration should fail")
	}
}

func TestEmitDispatchesByInterface(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	claims := &claimHook{name: "claims"}
	debits := &debitHook{name: "debits"}
	if err := r.Register(claims); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(debits); err != nil {
		t.Fatal(err)
	}

	r.EmitUsernameClaimed(ctx, "u1", "ada", "")
	r.EmitTokensDebited(ctx, "u1", 4, 6)

	if len(claims.handles) != 1 || claims.handles[0] != "ada" {
		t.Errorf("claim hook handles = %v, want [ada]", claims.handles)
	}
	if len(claims.handles) != 1 {
		t.Error("claim hook must not receive debit events")
	}
	if len(debits.amounts) != 1 || debits.amounts[0] != 4 {
		t.Errorf("debit hook amounts = %v, want [4]", debits.amounts)
	}
}

func TestEmitSwallowsHookErrors(t *testing.T) {
	r := NewRegistry()

	failing := &claimHook{name: "failing", err: errors.New("boom")}
	ok := &claimHook{name: "ok"}
	if err := r.Register(failing); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(ok); err != nil {
		t.Fatal(err)
	}

	// A failing hook is logged and never blocks later hooks.
	r.EmitUsernameClaimed(context.Background(), "u1", "ada", "")

	if len(ok.handles) != 1 {
		t.Error("later hooks must still run after a failure")
	}
}

func TestList(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&claimHook{name: "a"})
	_ = r.Register(&debitHook{name: "b"})

	names := r.List()
	if len(names) != 2 {
		t.Fatalf("List = %v, want 2 names", names)
	}
}
