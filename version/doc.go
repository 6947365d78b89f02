// Package version exposes build metadata set through -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/reqkit/version.Version=v1.2.0"
package version
