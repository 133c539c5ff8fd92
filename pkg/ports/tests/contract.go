package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/vigil/pkg/domain"
	"github.com/aretw0/vigil/pkg/ports"
)

// SessionStoreContractTest is a reusable suite that verifies an adapter
// complies with ports.SessionStore. Every store implementation runs it.
func SessionStoreContractTest(t *testing.T, store ports.SessionStore) {
	t.Helper()
	ctx := context.Background()

	event := domain.TriggerEvent{SubjectID: "subj-1", Phone: "+15550001111"}
	decision := domain.FallbackDecision()

	t.Run("Load_NotFound", func(t *testing.T) {
		_, err := store.Load(ctx, "missing")
		if !errors.Is(err, domain.ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("Create_Load", func(t *testing.T) {
		s := domain.NewCallSession("sess-1", event, decision)
		if err := store.Create(ctx, s); err != nil {
			t.Fatalf("create failed: %v", err)
		}

		loaded, err := store.Load(ctx, "sess-1")
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if loaded.SubjectID != "subj-1" || loaded.State != domain.StateCreated {
			t.Errorf("loaded session mismatch: %+v", loaded)
		}
	})

	t.Run("Create_Duplicate", func(t *testing.T) {
		s := domain.NewCallSession("sess-1", event, decision)
		err := store.Create(ctx, s)
		if !errors.Is(err, domain.ErrDuplicateSession) {
			t.Fatalf("expected ErrDuplicateSession, got %v", err)
		}
	})

	t.Run("Save_Replaces", func(t *testing.T) {
		s, err := store.Load(ctx, "sess-1")
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		s.Transition(domain.StateDialing)
		if err := store.Save(ctx, s); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		loaded, err := store.Load(ctx, "sess-1")
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if loaded.State != domain.StateDialing {
			t.Errorf("expected dialing, got %s", loaded.State)
		}
	})

	t.Run("Load_Isolation", func(t *testing.T) {
		first, err := store.Load(ctx, "sess-1")
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		first.AttemptsMade = 99

		second, err := store.Load(ctx, "sess-1")
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if second.AttemptsMade == 99 {
			t.Error("mutating a loaded session leaked into the store")
		}
	})

	t.Run("Rekey_Moves", func(t *testing.T) {
		if err := store.Rekey(ctx, "sess-1", "CA-carrier-1"); err != nil {
			t.Fatalf("rekey failed: %v", err)
		}

		if _, err := store.Load(ctx, "sess-1"); !errors.Is(err, domain.ErrSessionNotFound) {
			t.Errorf("old key still reachable after rekey: %v", err)
		}
		loaded, err := store.Load(ctx, "CA-carrier-1")
		if err != nil {
			t.Fatalf("new key not reachable after rekey: %v", err)
		}
		if loaded.SubjectID != "subj-1" {
			t.Errorf("rekeyed record mismatch: %+v", loaded)
		}
	})

	t.Run("Rekey_MissingSource", func(t *testing.T) {
		err := store.Rekey(ctx, "sess-1", "CA-carrier-2")
		if !errors.Is(err, domain.ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("Rekey_Conflict", func(t *testing.T) {
		s := domain.NewCallSession("sess-2", event, decision)
		if err := store.Create(ctx, s); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		err := store.Rekey(ctx, "sess-2", "CA-carrier-1")
		if !errors.Is(err, domain.ErrRekeyConflict) {
			t.Fatalf("expected ErrRekeyConflict, got %v", err)
		}
		// Source must survive a failed rekey.
		if _, err := store.Load(ctx, "sess-2"); err != nil {
			t.Errorf("source lost after failed rekey: %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		ids, err := store.List(ctx)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		lookup := make(map[string]bool, len(ids))
		for _, id := range ids {
			lookup[id] = true
		}
		if !lookup["CA-carrier-1"] || !lookup["sess-2"] {
			t.Errorf("list missing sessions: %v", ids)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := store.Delete(ctx, "CA-carrier-1"); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if _, err := store.Load(ctx, "CA-carrier-1"); !errors.Is(err, domain.ErrSessionNotFound) {
			t.Errorf("session reachable after delete: %v", err)
		}
		// Deleting an unknown ID is a no-op.
		if err := store.Delete(ctx, "never-existed"); err != nil {
			t.Errorf("delete of unknown id errored: %v", err)
		}
	})
}
