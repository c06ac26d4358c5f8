package service

import (
	"testing"
)

// Goroutine leak detection lives in leak_test.go behind the "leaktests" tag.
// Run with: go test ./internal/service -tags=leaktests
func TestMain(m *testing.M) {
	m.Run()
}
