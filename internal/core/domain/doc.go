// Package domain defines the core domain models for onelogin.
//
// Domain models are pure value objects without any IO dependencies or
// framework coupling. This package contains:
//
//   - Record: one session of a user, keyed by its verifier
//   - SessionSet: all sessions of a user, as read from and written to a store
//   - Entry: the stored shape of a session (legacy bare expiration or full
//     record) and its normalization into a Record
//   - Errors: domain-specific error definitions
//
// The stored value of a user is a JSON object mapping verifier to entry:
//
//	{
//	  "9f86d0...": 1999999999,
//	  "2c26b4...": {"expiration": 1999999999, "ip": "203.0.113.7", "ua": "..."}
//	}
package domain
