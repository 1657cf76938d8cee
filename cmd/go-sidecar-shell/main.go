// Package main provides the go-sidecar-shell CLI entry point.
//
// go-sidecar-shell launches a local backend server as a child process,
// waits for it to come up and hands its address to the user interface, or
// connects to a configured remote server instead.
package main

import (
	"os"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0" ./cmd/go-sidecar-shell
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
