// Package buildinfo exposes version information injected via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/nodestore-go/internal/infra/buildinfo.Version=v1.0.0"
//
// Fields left unset fall back to the module build info embedded by the
// Go toolchain.
package buildinfo
