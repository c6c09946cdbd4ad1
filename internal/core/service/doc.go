// Package service provides the session registry and login hook for onelogin.
//
// Services contain the business logic and orchestrate operations on domain
// models. They define interfaces for their storage and request-context
// dependencies, allowing for dependency injection and testability.
//
// This package contains:
//
//   - SessionStore, AtomicSessionStore: the per-user stored value collaborator
//   - Registry: loads, validates and selectively revokes a user's sessions
//   - LoginHook: resolves the current user and token and enforces the
//     single-session policy once per login
//
// Services hold no locks and no cache. Every operation reads the user's
// stored value fresh and replaces it as a whole.
package service
