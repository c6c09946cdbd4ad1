// Package domain defines the core domain models for onelogin.
package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
)

// ExpirationField is the record field holding the Unix expiration time.
const ExpirationField = "expiration"

// ErrMalformedSessions is returned by DecodeEntries when a stored value is
// not a JSON object. Callers in the registry treat it as an empty set.
var ErrMalformedSessions = errors.New("stored sessions are not a mapping")

// Record is a single session of a user.
//
// Expiration is a Unix timestamp in seconds. Every other stored field (ip,
// ua, login, ...) is carried in Extra exactly as stored; the registry never
// inspects or mutates it.
type Record struct {
	Expiration int64
	Extra      map[string]json.RawMessage
}

// NewRecord builds a record from an expiration and plain metadata values.
// The expiration key in meta, if any, is ignored.
func NewRecord(expiration int64, meta map[string]any) (Record, error) {
	rec := Record{Expiration: expiration}
	for k, v := range meta {
		if k == ExpirationField {
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return Record{}, ErrSessionValidation.WithDetails("metadata " + strconv.Quote(k)).WithCause(err)
		}
		if rec.Extra == nil {
			rec.Extra = make(map[string]json.RawMessage, len(meta))
		}
		rec.Extra[k] = raw
	}
	return rec, nil
}

// IsValidAt reports whether the record is still valid at now (Unix seconds).
// A record expiring exactly at now is still valid.
func (r Record) IsValidAt(now int64) bool {
	return r.Expiration >= now
}

// Meta returns the raw stored value of a metadata field.
func (r Record) Meta(key string) (json.RawMessage, bool) {
	v, ok := r.Extra[key]
	return v, ok
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	c := Record{Expiration: r.Expiration}
	if r.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(r.Extra))
		for k, v := range r.Extra {
			c.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return c
}

// MarshalJSON encodes the record as a flat object with its metadata fields.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(r.Extra)+1)
	for k, v := range r.Extra {
		out[k] = v
	}
	out[ExpirationField] = json.RawMessage(strconv.FormatInt(r.Expiration, 10))
	return json.Marshal(out)
}

// UnmarshalJSON decodes a full record object. Unlike Entry it is strict:
// a missing or non-integer expiration is an error.
func (r *Record) UnmarshalJSON(data []byte) error {
	rec, ok := parseRecord(data)
	if !ok {
		return ErrSessionValidation.WithDetails("record requires an integer expiration")
	}
	*r = rec
	return nil
}

// EntryKind tags the stored shape of a session entry.
type EntryKind uint8

const (
	// EntryInvalid is any shape that cannot be read as a session.
	EntryInvalid EntryKind = iota
	// EntryLegacy is the bare expiration integer shorthand.
	EntryLegacy
	// EntryRecord is a full record object.
	EntryRecord
)

// String returns the kind name.
func (k EntryKind) String() string {
	switch k {
	case EntryLegacy:
		return "legacy"
	case EntryRecord:
		return "record"
	default:
		return "invalid"
	}
}

// Entry is one stored session value before normalization.
type Entry struct {
	Kind   EntryKind
	Record Record
}

// UnmarshalJSON classifies the stored value. It never fails: shapes that are
// neither an integer nor a record object decode as EntryInvalid so a single
// bad entry cannot hide the rest of the set.
func (e *Entry) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*e = Entry{}
	if len(data) == 0 {
		return nil
	}

	switch c := data[0]; {
	case c == '-' || (c >= '0' && c <= '9'):
		exp, err := strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			return nil
		}
		e.Kind = EntryLegacy
		e.Record = Record{Expiration: exp}
	case c == '{':
		rec, ok := parseRecord(data)
		if !ok {
			return nil
		}
		e.Kind = EntryRecord
		e.Record = rec
	}
	return nil
}

// Normalize returns the canonical record of the entry.
// ok is false for EntryInvalid.
func (e Entry) Normalize() (rec Record, ok bool) {
	if e.Kind == EntryInvalid {
		return Record{}, false
	}
	return e.Record, true
}

func parseRecord(data []byte) (Record, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return Record{}, false
	}
	rawExp, ok := fields[ExpirationField]
	if !ok {
		return Record{}, false
	}
	exp, err := strconv.ParseInt(string(bytes.TrimSpace(rawExp)), 10, 64)
	if err != nil {
		return Record{}, false
	}
	delete(fields, ExpirationField)

	rec := Record{Expiration: exp}
	if len(fields) > 0 {
		rec.Extra = fields
	}
	return rec, true
}

// DecodeEntries parses a stored value into its entries.
// A value that is not a JSON object returns ErrMalformedSessions.
func DecodeEntries(raw []byte) (map[string]Entry, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, ErrMalformedSessions
	}
	var entries map[string]Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, errors.Join(ErrMalformedSessions, err)
	}
	return entries, nil
}

// PruneStats counts entries dropped while normalizing a stored value.
type PruneStats struct {
	Expired   int
	Malformed int
}

// Prune normalizes entries and keeps the ones valid at now.
func Prune(entries map[string]Entry, now int64) (SessionSet, PruneStats) {
	var stats PruneStats
	set := make(SessionSet, len(entries))
	for verifier, entry := range entries {
		rec, ok := entry.Normalize()
		if !ok || verifier == "" {
			stats.Malformed++
			continue
		}
		if !rec.IsValidAt(now) {
			stats.Expired++
			continue
		}
		set[verifier] = rec
	}
	return set, stats
}

// SessionSet maps verifier to record for one user.
type SessionSet map[string]Record

// Get returns the record for verifier.
func (s SessionSet) Get(verifier string) (Record, bool) {
	rec, ok := s[verifier]
	return rec, ok
}

// Only returns a set holding just verifier, or an empty set if absent.
func (s SessionSet) Only(verifier string) SessionSet {
	rec, ok := s[verifier]
	if !ok {
		return SessionSet{}
	}
	return SessionSet{verifier: rec}
}

// Verifiers returns the verifiers in sorted order.
func (s SessionSet) Verifiers() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Encode serializes the set into the stored value format.
func (s SessionSet) Encode() ([]byte, error) {
	if s == nil {
		s = SessionSet{}
	}
	return json.Marshal(map[string]Record(s))
}
