package cli

import (
	"context"

	"github.com/fpang/livery-studio/internal/auth"
	"github.com/fpang/livery-studio/internal/chat"
	"github.com/rs/zerolog/log"
)

// CheckAPIKey resolves the key (explicit first, then environment) and makes one
// cheap call to confirm it works.
func CheckAPIKey(ctx context.Context, explicit string) error {
	return checkAPIKey(ctx, explicit, chat.GenAIFactory)
}

func checkAPIKey(ctx context.Context, explicit string, factory chat.ClientFactory) error {
	apiKey, source, err := auth.ResolveAPIKey(explicit)
	if err != nil {
		return chat.NewCredentialError(err)
	}

	log.Info().Str("source", string(source)).Msg("Checking API key")
	return chat.CheckKey(ctx, factory, apiKey)
}

// InitAPIKeyCheck runs CheckAPIKey and exits fatally on failure.
func InitAPIKeyCheck(ctx context.Context, explicit string) {
	if err := CheckAPIKey(ctx, explicit); err != nil {
		HandleKeyCheckError(err)
	}
	log.Info().Msg("API key validation complete - ready for operations")
}
