// Package buildinfo exposes build information injected via ldflags:
//
//	go build -ldflags "-X github.com/big14way/afri-asset/internal/infra/buildinfo.Version=v1.0.0"
//
// Values not injected fall back to what the Go toolchain embedded in the
// binary.
package buildinfo
