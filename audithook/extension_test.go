package audithook

import (
	"context"
	"errors"
	"testing"
)

type capture struct {
	events []*AuditEvent
	err    error
}

func (c *capture) Record(_ context.Context, event *AuditEvent) error {
	c.events = append(c.events, event)
	return c.err
}

func TestUsernameClaimedEvent(t *testing.T) {
	rec := &capture{}
	ext := New(rec)
	ctx := context.Background()

	if err := ext.OnUsernameClaimed(ctx, "u1", "ada", "old"); err != nil {
		t.Fatal(err)
	}

	if len(rec.events) != 1 {
		t.Fatalf("recorded %d events, want 1", len(rec.events))
	}
	evt := rec.events[0]
	if evt.Action != ActionUsernameClaimed {
		t.Errorf("Action = %q, want %q", evt.Action, ActionUsernameClaimed)
	}
	if evt.Resource != ResourceUsername {
		t.Errorf("Resource = %q, want %q", evt.Resource, ResourceUsername)
	}
	if evt.ResourceID != "ada" {
		t.Errorf("ResourceID = %q, want ada", evt.ResourceID)
	}
	if evt.Outcome != OutcomeSuccess {
		t.Errorf("Outcome = %q, want %q", evt.Outcome, OutcomeSuccess)
	}
	if evt.Metadata["previous"] != "old" {
		t.Errorf("Metadata[previous] = %v, want old", evt.Metadata["previous"])
	}
}

func TestDebitDeniedIsWarning(t *testing.T) {
	rec := &capture{}
	ext := New(rec)

	if err := ext.OnDebitDenied(context.Background(), "u1", 100, 6); err != nil {
		t.Fatal(err)
	}

	evt := rec.events[0]
	if evt.Severity != SeverityWarning {
		t.Errorf("Severity = %q, want %q", evt.Severity, SeverityWarning)
	}
	if evt.Outcome != OutcomeFailure {
		t.Errorf("Outcome = %q, want %q", evt.Outcome, OutcomeFailure)
	}
	if evt.Metadata["requested"] != int64(100) {
		t.Errorf("Metadata[requested] = %v, want 100", evt.Metadata["requested"])
	}
}

func TestEnabledActionsFilter(t *testing.T) {
	rec := &capture{}
	ext := New(rec, WithEnabledActions(ActionTokensDebited))
	ctx := context.Background()

	_ = ext.OnUsernameClaimed(ctx, "u1", "ada", "")
	_ = ext.OnTokensDebited(ctx, "u1", 4, 6)

	if len(rec.events) != 1 {
		t.Fatalf("recorded %d events, want 1", len(rec.events))
	}
	if rec.events[0].Action != ActionTokensDebited {
		t.Errorf("Action = %q, want %q", rec.events[0].Action, ActionTokensDebited)
	}
}

func TestDisabledActionsFilter(t *testing.T) {
	rec := &capture{}
	ext := New(rec, WithDisabledActions(ActionSessionRefreshed))
	ctx := context.Background()

	_ = ext.OnSessionRefreshed(ctx, nil)
	_ = ext.OnSignedOut(ctx)

	if len(rec.events) != 1 {
		t.Fatalf("recorded %d events, want 1", len(rec.events))
	}
	if rec.events[0].Action != ActionSessionSignedOut {
		t.Errorf("Action = %q, want %q", rec.events[0].Action, ActionSessionSignedOut)
	}
}

func TestRecorderFailureIsSwallowed(t *testing.T) {
	rec := &capture{err: errors.New("trail unavailable")}
	ext := New(rec)

	// A broken audit backend must never surface into the session pipeline.
	if err := ext.OnSignedOut(context.Background()); err != nil {
		t.Errorf("OnSignedOut = %v, want nil", err)
	}
}

func TestRecorderFunc(t *testing.T) {
	var got *AuditEvent
	ext := New(RecorderFunc(func(_ context.Context, event *AuditEvent) error {
		got = event
		return nil
	}))

	_ = ext.OnShortcutDeleted(context.Background(), "u1", "ql_123")

	if got == nil || got.ResourceID != "ql_123" {
		t.Errorf("RecorderFunc event = %+v, want ResourceID ql_123", got)
	}
}
