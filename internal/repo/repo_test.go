package repo_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"twaforge/internal/db"
	"twaforge/internal/events"
	"twaforge/internal/migrate"
	"twaforge/internal/repo"
)

func newRepo(t *testing.T) repo.Repo {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo.Repo{DB: conn}
}

func TestSlotRoundTrip(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	if _, ok, err := r.GetSlot(ctx, "k"); err != nil || ok {
		t.Fatalf("expected empty slot, ok=%v err=%v", ok, err)
	}
	if err := r.PutSlot(ctx, "k", []byte("one")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := r.PutSlot(ctx, "k", []byte("two")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	v, ok, err := r.GetSlot(ctx, "k")
	if err != nil || !ok || string(v) != "two" {
		t.Fatalf("got %q ok=%v err=%v", v, ok, err)
	}
	if err := r.DeleteSlot(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := r.GetSlot(ctx, "k"); ok {
		t.Fatalf("slot still present after delete")
	}
}

func TestSessionLifecycle(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	if err := r.InsertSession(ctx, "s1", []byte(`{"step":"welcome"}`)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := r.UpdateSession(ctx, "s1", []byte(`{"step":"url_input"}`)); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := r.GetSession(ctx, "s1")
	if err != nil || string(got) != `{"step":"url_input"}` {
		t.Fatalf("get: %s %v", got, err)
	}
	if err := r.UpdateSession(ctx, "missing", []byte(`{}`)); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := r.GetSession(ctx, "missing"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	n, err := r.DeleteSessionsBefore(ctx, time.Now().Add(time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("expire: n=%d err=%v", n, err)
	}
}

func TestLatestEventsFilters(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	w := events.Writer{DB: r.DB}
	for _, e := range []struct{ typ, session string }{
		{events.WizardStarted, "a"},
		{events.WizardURLSet, "a"},
		{events.WizardStarted, "b"},
	} {
		if err := w.Append(ctx, e.typ, e.session, events.EventPayload{"n": 1}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	all, err := r.LatestEvents(ctx, repo.EventFilters{})
	if err != nil || len(all) != 3 {
		t.Fatalf("all: %d %v", len(all), err)
	}
	if all[0].SessionID != "b" {
		t.Fatalf("expected newest first, got %+v", all[0])
	}
	started, _ := r.LatestEvents(ctx, repo.EventFilters{Type: events.WizardStarted})
	if len(started) != 2 {
		t.Fatalf("type filter: %d", len(started))
	}
	sessionA, _ := r.LatestEvents(ctx, repo.EventFilters{SessionID: "a", Limit: 1})
	if len(sessionA) != 1 || sessionA[0].Type != events.WizardURLSet {
		t.Fatalf("session filter: %+v", sessionA)
	}
}
