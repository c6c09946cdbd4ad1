package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/onelogin/internal/core/domain"
	"github.com/yndnr/onelogin/internal/core/service"
	"github.com/yndnr/onelogin/internal/storage"
	"github.com/yndnr/onelogin/internal/storage/memory"
	"github.com/yndnr/onelogin/internal/telemetry/metric"
	"github.com/yndnr/onelogin/pkg/crypto/adaptive"
	"github.com/yndnr/onelogin/pkg/token"
)

func engines(t *testing.T) map[string]storage.KV {
	t.Helper()
	cfg := storage.DefaultBadgerConfig(t.TempDir())
	cfg.GCInterval = time.Hour
	badger, err := storage.NewBadgerEngine(cfg, nil)
	if err != nil {
		t.Fatalf("NewBadgerEngine() error = %v", err)
	}
	t.Cleanup(func() { badger.Close() })

	return map[string]storage.KV{
		"memory": memory.New(),
		"badger": badger,
	}
}

func TestKVSessionStore(t *testing.T) {
	for name, kv := range engines(t) {
		t.Run(name, func(t *testing.T) {
			store := storage.NewKVSessionStore(kv, "")
			ctx := context.Background()

			if string(store.Key("42")) != "session_tokens/42" {
				t.Errorf("Key() = %s", store.Key("42"))
			}

			if _, found, err := store.Get(ctx, "42"); found || err != nil {
				t.Fatalf("Get(empty) = %v, %v", found, err)
			}
			if err := store.Put(ctx, "42", []byte(`{"v":1}`)); err != nil {
				t.Fatalf("Put() error = %v", err)
			}
			raw, found, err := store.Get(ctx, "42")
			if err != nil || !found || string(raw) != `{"v":1}` {
				t.Fatalf("Get() = %s, %v, %v", raw, found, err)
			}

			if err := store.Update(ctx, "42", func(old []byte, found bool) ([]byte, error) {
				return nil, nil
			}); err != nil {
				t.Fatalf("Update() error = %v", err)
			}
			if _, found, _ := store.Get(ctx, "42"); found {
				t.Error("Update() returning nil should delete")
			}

			if err := store.Delete(ctx, "42"); err != nil {
				t.Errorf("Delete(missing) error = %v", err)
			}
		})
	}
}

func TestKVSessionStore_WithRegistry(t *testing.T) {
	hasher, err := token.NewHasher(token.SHA3_256)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Unix(1_700_000_000, 0)

	for name, kv := range engines(t) {
		t.Run(name, func(t *testing.T) {
			store := storage.NewKVSessionStore(kv, "test/")
			reg := service.NewRegistry(store, hasher, service.WithClock(func() time.Time { return now }))
			ctx := context.Background()

			if !reg.Atomic() {
				t.Fatal("KV session store should take the atomic path")
			}
			for _, tok := range []string{"desktop", "phone", "tablet"} {
				if _, _, err := reg.Establish(ctx, "u1", tok, domain.Record{}); err != nil {
					t.Fatalf("Establish(%s) error = %v", tok, err)
				}
			}

			outcome, err := reg.DestroyOthers(ctx, "u1", "phone")
			if err != nil || outcome != service.OutcomeKept {
				t.Fatalf("DestroyOthers() = %s, %v", outcome, err)
			}
			set, _ := reg.LoadValidSessions(ctx, "u1")
			if len(set) != 1 {
				t.Errorf("sessions after login = %d, want 1", len(set))
			}

			outcome, _ = reg.DestroyOthers(ctx, "u1", "stolen")
			if outcome != service.OutcomeWiped {
				t.Errorf("outcome = %s, want wiped", outcome)
			}
			if _, err := kv.Get(ctx, store.Key("u1")); !errors.Is(err, storage.ErrKeyNotFound) {
				t.Error("wipe should delete the key")
			}
		})
	}
}

func TestSealed(t *testing.T) {
	key := make([]byte, adaptive.KeySize)
	key[0] = 7
	c, err := adaptive.New(key)
	if err != nil {
		t.Fatal(err)
	}

	for name, kv := range engines(t) {
		t.Run(name, func(t *testing.T) {
			inner := storage.NewKVSessionStore(kv, "")
			sealed := storage.NewSealed(inner, c)
			ctx := context.Background()
			plain := []byte(`{"abc":{"expiration":1999999999}}`)

			if err := sealed.Put(ctx, "u1", plain); err != nil {
				t.Fatalf("Put() error = %v", err)
			}
			raw, _, err := inner.Get(ctx, "u1")
			if err != nil {
				t.Fatal(err)
			}
			if string(raw) == string(plain) {
				t.Error("value should be sealed at rest")
			}

			got, found, err := sealed.Get(ctx, "u1")
			if err != nil || !found || string(got) != string(plain) {
				t.Fatalf("Get() = %s, %v, %v", got, found, err)
			}

			if err := sealed.Update(ctx, "u1", func(old []byte, found bool) ([]byte, error) {
				if !found || string(old) != string(plain) {
					t.Errorf("Update() saw (%s, %v)", old, found)
				}
				return []byte(`{}`), nil
			}); err != nil {
				t.Fatalf("Update() error = %v", err)
			}
			if got, _, _ := sealed.Get(ctx, "u1"); string(got) != `{}` {
				t.Errorf("Get() after Update() = %s", got)
			}

			// A value copied to another user must not open.
			raw, _, _ = inner.Get(ctx, "u1")
			_ = inner.Put(ctx, "u2", raw)
			if got, found, err := sealed.Get(ctx, "u2"); err != nil || !found || len(got) != 0 {
				t.Errorf("Get() of a value moved between users = %q, %v, %v; want empty, found", got, found, err)
			}

			if _, found, err := sealed.Get(ctx, "missing"); found || err != nil {
				t.Errorf("Get(missing) = %v, %v", found, err)
			}
			if err := sealed.Delete(ctx, "u1"); err != nil {
				t.Errorf("Delete() error = %v", err)
			}
			if err := sealed.Ping(ctx); err != nil {
				t.Errorf("Ping() error = %v", err)
			}
		})
	}
}

func TestSealed_WithRegistry(t *testing.T) {
	c, err := adaptive.NewWithType(make([]byte, adaptive.KeySize), adaptive.CipherChaCha20)
	if err != nil {
		t.Fatal(err)
	}
	hasher, err := token.NewHasher(token.DefaultAlgorithm)
	if err != nil {
		t.Fatal(err)
	}
	store := storage.NewSealed(storage.NewKVSessionStore(memory.New(), ""), c)
	reg := service.NewRegistry(store, hasher)
	ctx := context.Background()

	if !reg.Atomic() {
		t.Fatal("sealed store should keep the atomic path")
	}
	if _, _, err := reg.Establish(ctx, "u1", "tok-a", domain.Record{}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := reg.Establish(ctx, "u1", "tok-b", domain.Record{}); err != nil {
		t.Fatal(err)
	}
	if outcome, err := reg.DestroyOthers(ctx, "u1", "tok-b"); err != nil || outcome != service.OutcomeKept {
		t.Fatalf("DestroyOthers() = %s, %v", outcome, err)
	}
	set, err := reg.LoadValidSessions(ctx, "u1")
	if err != nil || len(set) != 1 {
		t.Errorf("LoadValidSessions() = %v, %v", set, err)
	}
}

func TestSealed_UnreadableValueIsMalformed(t *testing.T) {
	c, err := adaptive.New(make([]byte, adaptive.KeySize))
	if err != nil {
		t.Fatal(err)
	}
	hasher, err := token.NewHasher(token.DefaultAlgorithm)
	if err != nil {
		t.Fatal(err)
	}

	for _, atomic := range []bool{true, false} {
		name := "plain"
		if atomic {
			name = "atomic"
		}
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			kv := memory.New()
			inner := storage.NewKVSessionStore(kv, "")
			m := metric.NewRegistry()
			reg := service.NewRegistry(storage.NewSealed(inner, c), hasher,
				service.WithAtomic(atomic), service.WithMetrics(m))

			// Written before sealing was enabled.
			if err := inner.Put(ctx, "u1", []byte(`{"abc":1999999999}`)); err != nil {
				t.Fatal(err)
			}

			set, err := reg.LoadValidSessions(ctx, "u1")
			if err != nil || len(set) != 0 {
				t.Fatalf("LoadValidSessions() = %v, %v; want empty set", set, err)
			}
			if got := testutil.ToFloat64(m.SessionsMalformed); got != 1 {
				t.Errorf("malformed = %v, want 1", got)
			}

			outcome, err := reg.DestroyOthers(ctx, "u1", "tok")
			if err != nil || outcome != service.OutcomeWiped {
				t.Fatalf("DestroyOthers() = %s, %v; want wiped", outcome, err)
			}
			if _, err := kv.Get(ctx, inner.Key("u1")); !errors.Is(err, storage.ErrKeyNotFound) {
				t.Error("wipe should delete the unreadable value")
			}

			if err := inner.Put(ctx, "u1", []byte("garbage")); err != nil {
				t.Fatal(err)
			}
			if _, _, err := reg.Establish(ctx, "u1", "tok", domain.Record{}); err != nil {
				t.Fatalf("Establish() over an unreadable value error = %v", err)
			}
			if set, err := reg.LoadValidSessions(ctx, "u1"); err != nil || len(set) != 1 {
				t.Errorf("LoadValidSessions() after Establish() = %v, %v", set, err)
			}
		})
	}
}
