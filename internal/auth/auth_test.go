package auth

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestResolveAPIKey_ExplicitWins(t *testing.T) {
	t.Setenv(EnvGeminiAPIKey, "env-key")

	key, src, err := ResolveAPIKey("  typed-key  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "typed-key" {
		t.Errorf("expected trimmed explicit key, got %q", key)
	}
	if src != SourceExplicit {
		t.Errorf("expected source %q, got %q", SourceExplicit, src)
	}
}

func TestResolveAPIKeyFromEnv(t *testing.T) {
	const testKey = "test-api-key-12345"
	t.Setenv(EnvGeminiAPIKey, testKey)
	t.Setenv(EnvAPIKey, "other")

	key, src, err := ResolveAPIKey("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != testKey {
		t.Errorf("expected key %q, got %q", testKey, key)
	}
	if src != SourceEnv {
		t.Errorf("expected source %q, got %q", SourceEnv, src)
	}
}

func TestResolveAPIKeyFromLegacyEnv(t *testing.T) {
	t.Setenv(EnvGeminiAPIKey, "")
	t.Setenv(EnvAPIKey, "legacy-key")

	key, _, err := ResolveAPIKey("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "legacy-key" {
		t.Errorf("expected legacy key, got %q", key)
	}
}

func TestResolveAPIKeyNoSource(t *testing.T) {
	t.Setenv(EnvGeminiAPIKey, "")
	t.Setenv(EnvAPIKey, "")

	_, src, err := ResolveAPIKey("   ")
	if !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("expected ErrNoAPIKey, got %v", err)
	}
	if src != SourceNone {
		t.Errorf("expected no source, got %q", src)
	}
	if HasAPIKey("") {
		t.Error("HasAPIKey should be false with no sources")
	}
}

func TestHasAPIKeyIsSilent(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf).Level(zerolog.TraceLevel)
	prevLevel := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})

	t.Setenv(EnvGeminiAPIKey, "env-key")
	for i := 0; i < 10; i++ {
		if !HasAPIKey("") || !HasAPIKey("typed") {
			t.Fatal("expected a key to resolve")
		}
	}
	if buf.Len() != 0 {
		t.Errorf("HasAPIKey logged: %s", buf.String())
	}

	if _, _, err := ResolveAPIKey(""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte(EnvGeminiAPIKey)) {
		t.Errorf("expected ResolveAPIKey to log the source, got %q", buf.String())
	}
}
