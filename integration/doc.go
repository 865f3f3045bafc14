//go:build integration

// Package integration provides integration tests for the artifact cache.
//
// These tests require Docker and spin up a real Redis instance using
// testcontainers. Run with: go test -tags=integration ./integration/...
package integration
