package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/yndnr/onelogin/internal/core/domain"
	"github.com/yndnr/onelogin/internal/telemetry/logger"
	"github.com/yndnr/onelogin/internal/telemetry/metric"
)

// DefaultSessionTTL is the lifetime given to established sessions without an
// explicit expiration.
const DefaultSessionTTL = 14 * 24 * time.Hour

// Hasher derives the verifier of a raw session token.
// *token.Hasher implements it.
type Hasher interface {
	Hash(rawToken string) string
}

// Outcome is the result of enforcing the single-session policy on a login.
type Outcome int

const (
	// OutcomeWiped means the current token matched no valid session and
	// every session of the user was destroyed.
	OutcomeWiped Outcome = iota
	// OutcomeKept means the current session was kept and all others
	// destroyed.
	OutcomeKept
)

// String returns the outcome name used in logs and metrics.
func (o Outcome) String() string {
	if o == OutcomeKept {
		return "kept"
	}
	return "wiped"
}

// Registry tracks the sessions of each user and revokes all but the current
// one on login.
type Registry struct {
	store      SessionStore
	atomic     AtomicSessionStore
	hasher     Hasher
	now        func() time.Time
	logger     *slog.Logger
	metrics    *metric.Registry
	useAtomic  bool
	defaultTTL time.Duration
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithClock sets the time source used for expiry checks.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics sets the metrics registry. A nil registry records nothing.
func WithMetrics(m *metric.Registry) RegistryOption {
	return func(r *Registry) {
		r.metrics = m
	}
}

// WithAtomic controls whether read-modify-write cycles run inside
// AtomicSessionStore.Update when the store supports it. Enabled by default.
func WithAtomic(enabled bool) RegistryOption {
	return func(r *Registry) {
		r.useAtomic = enabled
	}
}

// WithDefaultTTL sets the lifetime used by Establish when the record has no
// expiration.
func WithDefaultTTL(ttl time.Duration) RegistryOption {
	return func(r *Registry) {
		if ttl > 0 {
			r.defaultTTL = ttl
		}
	}
}

// NewRegistry creates a Registry over store, deriving verifiers with hasher.
func NewRegistry(store SessionStore, hasher Hasher, opts ...RegistryOption) *Registry {
	r := &Registry{
		store:      store,
		hasher:     hasher,
		now:        time.Now,
		logger:     logger.Default().Slog(),
		useAtomic:  true,
		defaultTTL: DefaultSessionTTL,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.useAtomic {
		if as, ok := store.(AtomicSessionStore); ok {
			r.atomic = as
		}
	}
	return r
}

// Atomic reports whether read-modify-write cycles run atomically.
func (r *Registry) Atomic() bool {
	return r.atomic != nil
}

// Verifier returns the verifier of rawToken.
func (r *Registry) Verifier(rawToken string) string {
	return r.hasher.Hash(rawToken)
}

// LoadValidSessions returns the sessions of userID that are valid now.
//
// An absent or unreadable stored value yields an empty set. Only a store
// failure is an error.
func (r *Registry) LoadValidSessions(ctx context.Context, userID string) (domain.SessionSet, error) {
	if userID == "" {
		return nil, domain.ErrMissingArgument.WithDetails("user_id is required")
	}
	start := time.Now()
	defer r.metrics.ObserveDuration("load", start)

	raw, found, err := r.store.Get(ctx, userID)
	if err != nil {
		return nil, r.storeError(ctx, "get", userID, err)
	}
	set, stats := r.decode(raw, found)
	r.observePrune(ctx, userID, stats)
	return set, nil
}

// FindSession returns the valid session of userID with the given verifier.
// ok is false when there is none; that is not an error.
func (r *Registry) FindSession(ctx context.Context, userID, verifier string) (rec domain.Record, ok bool, err error) {
	set, err := r.LoadValidSessions(ctx, userID)
	if err != nil {
		return domain.Record{}, false, err
	}
	rec, ok = set.Get(verifier)
	return rec, ok, nil
}

// DestroyOthers enforces the single-session policy for a login of userID
// with rawToken.
//
// If rawToken matches a valid session, that session is kept and every other
// one destroyed. Otherwise every session of the user is destroyed.
func (r *Registry) DestroyOthers(ctx context.Context, userID, rawToken string) (Outcome, error) {
	if userID == "" {
		return OutcomeWiped, domain.ErrMissingArgument.WithDetails("user_id is required")
	}
	start := time.Now()
	defer r.metrics.ObserveDuration("destroy_others", start)

	verifier := r.hasher.Hash(rawToken)

	var outcome Outcome
	var err error
	if r.atomic != nil {
		err = r.mutate(ctx, userID, "destroy_others", func(set domain.SessionSet) domain.SessionSet {
			if _, ok := set.Get(verifier); ok {
				outcome = OutcomeKept
			} else {
				outcome = OutcomeWiped
			}
			return set.Only(verifier)
		})
	} else {
		var found bool
		if _, found, err = r.FindSession(ctx, userID, verifier); err == nil {
			if found {
				outcome = OutcomeKept
				err = r.KeepOnly(ctx, userID, verifier)
			} else {
				outcome = OutcomeWiped
				err = r.DestroyAll(ctx, userID)
			}
		}
	}
	if err != nil {
		return outcome, err
	}

	r.metrics.ObserveLogin(outcome.String())
	r.log(ctx).InfoContext(ctx, "single session enforced",
		"user_id", userID,
		"verifier", logger.ShortVerifier(verifier),
		"outcome", outcome.String(),
		"atomic", r.atomic != nil)
	return outcome, nil
}

// KeepOnly destroys every session of userID except the one with verifier.
// If that session has vanished or expired in the meantime, every session is
// destroyed.
func (r *Registry) KeepOnly(ctx context.Context, userID, verifier string) error {
	rec, ok, err := r.FindSession(ctx, userID, verifier)
	if err != nil {
		return err
	}
	if !ok {
		return r.UpdateSessions(ctx, userID, nil)
	}
	return r.UpdateSessions(ctx, userID, domain.SessionSet{verifier: rec})
}

// DestroyAll destroys every session of userID.
func (r *Registry) DestroyAll(ctx context.Context, userID string) error {
	return r.UpdateSessions(ctx, userID, nil)
}

// UpdateSessions replaces the stored sessions of userID with set.
// An empty set deletes the stored value.
func (r *Registry) UpdateSessions(ctx context.Context, userID string, set domain.SessionSet) error {
	if userID == "" {
		return domain.ErrMissingArgument.WithDetails("user_id is required")
	}
	if len(set) == 0 {
		if err := r.store.Delete(ctx, userID); err != nil {
			return r.storeError(ctx, "delete", userID, err)
		}
		return nil
	}

	raw, err := set.Encode()
	if err != nil {
		return domain.ErrSessionValidation.WithCause(err)
	}
	if err := r.store.Put(ctx, userID, raw); err != nil {
		return r.storeError(ctx, "put", userID, err)
	}
	return nil
}

// Establish records a session of userID for rawToken and returns its
// verifier and the stored record. An existing session with the same
// verifier is replaced. A zero expiration defaults to now plus the
// registry's default TTL.
func (r *Registry) Establish(ctx context.Context, userID, rawToken string, rec domain.Record) (string, domain.Record, error) {
	if userID == "" {
		return "", domain.Record{}, domain.ErrMissingArgument.WithDetails("user_id is required")
	}
	if rawToken == "" {
		return "", domain.Record{}, domain.ErrMissingArgument.WithDetails("token is required")
	}
	now := r.now()
	if rec.Expiration == 0 {
		rec.Expiration = now.Add(r.defaultTTL).Unix()
	}
	if !rec.IsValidAt(now.Unix()) {
		return "", domain.Record{}, domain.ErrSessionValidation.WithDetails("expiration is in the past")
	}

	start := time.Now()
	defer r.metrics.ObserveDuration("establish", start)

	verifier := r.hasher.Hash(rawToken)
	err := r.mutate(ctx, userID, "establish", func(set domain.SessionSet) domain.SessionSet {
		set[verifier] = rec.Clone()
		return set
	})
	if err != nil {
		return "", domain.Record{}, err
	}

	r.log(ctx).DebugContext(ctx, "session established",
		"user_id", userID,
		"verifier", logger.ShortVerifier(verifier),
		"expiration", rec.Expiration)
	return verifier, rec, nil
}

// Revoke destroys the session of userID for rawToken. removed reports
// whether a valid session was destroyed.
func (r *Registry) Revoke(ctx context.Context, userID, rawToken string) (removed bool, err error) {
	if userID == "" {
		return false, domain.ErrMissingArgument.WithDetails("user_id is required")
	}
	start := time.Now()
	defer r.metrics.ObserveDuration("revoke", start)

	verifier := r.hasher.Hash(rawToken)
	err = r.mutate(ctx, userID, "revoke", func(set domain.SessionSet) domain.SessionSet {
		_, removed = set[verifier]
		delete(set, verifier)
		return set
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// mutate applies fn to the valid sessions of userID and stores the result.
// It runs inside one store transaction when the registry is atomic.
func (r *Registry) mutate(ctx context.Context, userID, op string, fn func(domain.SessionSet) domain.SessionSet) error {
	if r.atomic == nil {
		set, err := r.LoadValidSessions(ctx, userID)
		if err != nil {
			return err
		}
		return r.UpdateSessions(ctx, userID, fn(set))
	}

	// fn may run once per store retry; only the stats of the attempt that
	// committed are recorded.
	var stats pruneStats
	err := r.atomic.Update(ctx, userID, func(raw []byte, found bool) ([]byte, error) {
		var set domain.SessionSet
		set, stats = r.decode(raw, found)
		next := fn(set)
		if len(next) == 0 {
			return nil, nil
		}
		return next.Encode()
	})
	if err != nil {
		return r.storeError(ctx, op, userID, err)
	}
	r.observePrune(ctx, userID, stats)
	return nil
}

// pruneStats describes what decode dropped from a stored value.
type pruneStats struct {
	domain.PruneStats
	unreadable bool
	size       int
}

// decode turns a stored value into the sessions valid now. It has no side
// effects so that it can run inside a retried store update.
func (r *Registry) decode(raw []byte, found bool) (domain.SessionSet, pruneStats) {
	if !found {
		return domain.SessionSet{}, pruneStats{}
	}
	entries, err := domain.DecodeEntries(raw)
	if err != nil {
		return domain.SessionSet{}, pruneStats{
			PruneStats: domain.PruneStats{Malformed: 1},
			unreadable: true,
			size:       len(raw),
		}
	}
	set, stats := domain.Prune(entries, r.now().Unix())
	return set, pruneStats{PruneStats: stats}
}

func (r *Registry) observePrune(ctx context.Context, userID string, stats pruneStats) {
	r.metrics.ObservePruned(stats.Expired, stats.Malformed)
	switch {
	case stats.unreadable:
		r.log(ctx).WarnContext(ctx, "ignoring unreadable session value",
			"user_id", userID,
			"size", stats.size)
	case stats.Malformed > 0:
		r.log(ctx).DebugContext(ctx, "dropped malformed session entries",
			"user_id", userID,
			"count", stats.Malformed)
	}
}

func (r *Registry) storeError(ctx context.Context, op, userID string, err error) error {
	if domain.IsDomainError(err, "") {
		return err
	}
	r.metrics.ObserveStoreError(op)
	r.log(ctx).ErrorContext(ctx, "session store failure",
		"op", op,
		"user_id", userID,
		"error", err)
	return domain.ErrStoreFailure.WithDetails(op).WithCause(err)
}

func (r *Registry) log(ctx context.Context) *slog.Logger {
	return logger.ForRequest(ctx, r.logger)
}
