// ABOUTME: Tests for root command helpers
// ABOUTME: Verifies sync key resolution from the loaded config

package main

import (
	"strings"
	"testing"

	"github.com/harper/inkreader/internal/config"
)

func withConfig(t *testing.T, c *config.Config) {
	t.Helper()
	old := cfg
	cfg = c
	t.Cleanup(func() { cfg = old })
}

func TestSyncKey_NoConfig(t *testing.T) {
	withConfig(t, nil)

	if _, err := syncKey(); err == nil {
		t.Fatal("expected error without config")
	}
	if got := optionalSyncKey(); got != "" {
		t.Errorf("expected empty optional key, got %q", got)
	}
}

func TestSyncKey_Unset(t *testing.T) {
	withConfig(t, config.Default())

	_, err := syncKey()
	if err == nil {
		t.Fatal("expected error when no key is configured")
	}
	if !strings.Contains(err.Error(), "inkreader key new") {
		t.Errorf("expected error to point at 'inkreader key new', got %q", err)
	}
}

func TestSyncKey_Configured(t *testing.T) {
	c := config.Default()
	c.SyncKey = "abcd1234"
	withConfig(t, c)

	key, err := syncKey()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "abcd1234" {
		t.Errorf("expected configured key, got %q", key)
	}
	if got := optionalSyncKey(); got != "abcd1234" {
		t.Errorf("expected optional key to match, got %q", got)
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("0123456789abcdef"); got != "01234567" {
		t.Errorf("expected 8-char prefix, got %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("expected short IDs unchanged, got %q", got)
	}
}

func TestLabelArgs(t *testing.T) {
	got := labelArgs([]string{"Tech", "news,go", " "})
	want := []string{"go", "news", "tech"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, got)
	}
	if got := labelArgs(nil); len(got) != 0 {
		t.Errorf("expected no labels, got %v", got)
	}
}
