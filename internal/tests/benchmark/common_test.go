package benchmark

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"testing"
	"time"

	"github.com/yndnr/onelogin/internal/core/domain"
	"github.com/yndnr/onelogin/internal/core/service"
	"github.com/yndnr/onelogin/internal/storage"
	"github.com/yndnr/onelogin/internal/storage/memory"
	"github.com/yndnr/onelogin/pkg/crypto/adaptive"
	"github.com/yndnr/onelogin/pkg/token"
)

// SessionsPerUser are the per-user session counts exercised. Real users
// rarely hold more than a handful; the larger values show scaling.
var SessionsPerUser = []int{1, 5, 20, 100}

// backend builds a fresh session store.
type backend struct {
	name string
	open func(b *testing.B) service.AtomicSessionStore
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var backends = []backend{
	{"memory", func(b *testing.B) service.AtomicSessionStore {
		return storage.NewKVSessionStore(memory.New(), "")
	}},
	{"badger", func(b *testing.B) service.AtomicSessionStore {
		engine, err := storage.NewBadgerEngine(storage.BadgerConfig{InMemory: true}, quietLogger())
		if err != nil {
			b.Fatalf("NewBadgerEngine: %v", err)
		}
		b.Cleanup(func() { engine.Close() })
		return storage.NewKVSessionStore(engine, "")
	}},
	{"sealed-memory", func(b *testing.B) service.AtomicSessionStore {
		key := make([]byte, adaptive.KeySize)
		c, err := adaptive.New(key)
		if err != nil {
			b.Fatalf("adaptive.New: %v", err)
		}
		return storage.NewSealed(storage.NewKVSessionStore(memory.New(), ""), c)
	}},
}

// newRegistry returns a registry over store using the atomic path when
// atomic is set.
func newRegistry(b *testing.B, store service.SessionStore, atomic bool) *service.Registry {
	b.Helper()
	hasher, err := token.NewHasher(token.DefaultAlgorithm)
	if err != nil {
		b.Fatal(err)
	}
	return service.NewRegistry(store, hasher,
		service.WithLogger(quietLogger()),
		service.WithAtomic(atomic))
}

// newTokens generates n raw tokens.
func newTokens(b *testing.B, n int) []string {
	b.Helper()
	out := make([]string, n)
	for i := range out {
		tok, err := token.Generate()
		if err != nil {
			b.Fatal(err)
		}
		out[i] = tok
	}
	return out
}

// prefillUser establishes one session per token for userID.
func prefillUser(b *testing.B, reg *service.Registry, userID string, tokens []string) {
	b.Helper()
	ctx := context.Background()
	rec := sessionRecord(b)
	for _, tok := range tokens {
		if _, _, err := reg.Establish(ctx, userID, tok, rec); err != nil {
			b.Fatalf("Establish: %v", err)
		}
	}
}

// sessionRecord returns a record with typical login metadata.
func sessionRecord(b *testing.B) domain.Record {
	rec, err := domain.NewRecord(time.Now().Add(24*time.Hour).Unix(), map[string]any{
		"ip":    "192.0.2.10",
		"ua":    "Mozilla/5.0 (X11; Linux x86_64) BenchmarkTest/1.0",
		"login": time.Now().Unix(),
	})
	if err != nil {
		b.Fatal(err)
	}
	return rec
}

// reportMemory reports memory usage.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
}

// runWithSessionCounts runs benchFn for each per-user session count.
func runWithSessionCounts(b *testing.B, counts []int, benchFn func(b *testing.B, count int)) {
	for _, count := range counts {
		b.Run(fmt.Sprintf("sessions_%d", count), func(b *testing.B) {
			benchFn(b, count)
		})
	}
}
