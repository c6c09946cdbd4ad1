// Package buildinfo exposes build information for the onelogin binaries.
//
// Version, Commit and BuildTime are injected via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/onelogin/internal/infra/buildinfo.Version=v1.0.0"
//
// When Commit is not injected it falls back to the VCS revision the Go
// toolchain stamped into the binary.
package buildinfo
