package auth

import (
	"errors"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// Environment variables consulted when no key was entered explicitly, in order.
const (
	EnvGeminiAPIKey = "GEMINI_API_KEY"
	EnvAPIKey       = "API_KEY"
)

// ErrNoAPIKey is returned when neither an explicit nor an environment key exists.
var ErrNoAPIKey = errors.New("API key not found: enter a Gemini API key or set GEMINI_API_KEY")

// Source describes where a resolved key came from. It is safe to log.
type Source string

const (
	SourceNone     Source = ""
	SourceExplicit Source = "explicit"
	SourceEnv      Source = "environment"
)

// ResolveAPIKey returns the Gemini API key to use for a call.
// Priority order:
//  1. explicit (the key the user typed in for this session)
//  2. GEMINI_API_KEY environment variable
//  3. API_KEY environment variable
//
// The key itself is never logged.
func ResolveAPIKey(explicit string) (string, Source, error) {
	key, source, env := lookupAPIKey(explicit)
	switch source {
	case SourceExplicit:
		log.Debug().Msg("Using API key entered for this session")
	case SourceEnv:
		log.Debug().Str("env", env).Msg("Using API key from environment variable")
	default:
		return "", SourceNone, ErrNoAPIKey
	}
	return key, source, nil
}

// lookupAPIKey applies the ResolveAPIKey order without logging.
func lookupAPIKey(explicit string) (string, Source, string) {
	if key := strings.TrimSpace(explicit); key != "" {
		return key, SourceExplicit, ""
	}
	for _, env := range []string{EnvGeminiAPIKey, EnvAPIKey} {
		if key := strings.TrimSpace(os.Getenv(env)); key != "" {
			return key, SourceEnv, env
		}
	}
	return "", SourceNone, ""
}

// HasAPIKey reports whether ResolveAPIKey would succeed. It never logs.
func HasAPIKey(explicit string) bool {
	_, source, _ := lookupAPIKey(explicit)
	return source != SourceNone
}
