package chat

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fpang/livery-studio/internal/metrics"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// KeyCheckModel is the text model the key check talks to.
const KeyCheckModel = "gemini-2.5-flash-lite"

// CheckKey sends one tiny text prompt with apiKey before any livery transfer
// is attempted. Failures are *Error values. A key the API refuses (400, 401
// or 403) is reported as KindCredential with the API error wrapped.
func CheckKey(ctx context.Context, newClient ClientFactory, apiKey string) error {
	if strings.TrimSpace(apiKey) == "" {
		return NewCredentialError(nil)
	}

	models, err := newClient(ctx, apiKey)
	if err != nil {
		return &Error{Kind: KindTransport, Message: "could not create Gemini client", Err: err}
	}

	start := time.Now()
	resp, err := models.GenerateContent(ctx, KeyCheckModel, genai.Text("hi"), nil)
	elapsed := time.Since(start)

	if err != nil {
		checkErr := classifyCallError(err)
		if keyRejected(err) {
			checkErr = &Error{Kind: KindCredential, Message: "API key rejected", Err: err}
		}
		log.Error().Err(err).Str("kind", checkErr.Kind.String()).Dur("duration", elapsed).Msg("API key check failed")
		emitKeyCheck(checkErr.Kind.String(), elapsed)
		return checkErr
	}

	if resp == nil || len(resp.Candidates) == 0 {
		log.Warn().Msg("API key check returned empty response")
		emitKeyCheck(KindEmptyResponse.String(), elapsed)
		return &Error{Kind: KindEmptyResponse, Message: "API returned empty response"}
	}

	emitKeyCheck("success", elapsed)
	log.Info().Dur("duration", elapsed).Msg("API key validated")
	return nil
}

func keyRejected(err error) bool {
	code, ok := APIStatus(err)
	return ok && (code == http.StatusBadRequest || code == http.StatusUnauthorized || code == http.StatusForbidden)
}

// KeyCheckReason turns a CheckKey failure into one line for the terminal.
func KeyCheckReason(err error) string {
	code, isAPI := APIStatus(err)
	switch {
	case IsKind(err, KindCredential) && isAPI:
		return "Invalid API key. Please check your API key and try again"
	case IsKind(err, KindCredential):
		return "No API key configured. Pass --api-key or set GEMINI_API_KEY"
	case IsKind(err, KindAPI) && code == http.StatusTooManyRequests:
		return "API quota exceeded. Please try again later or check your usage limits"
	case IsKind(err, KindAPI) && code >= http.StatusInternalServerError:
		return "Gemini API unavailable. Please try again later"
	case IsKind(err, KindAPI):
		return fmt.Sprintf("Gemini API rejected the key check (%d)", code)
	case IsKind(err, KindTransport):
		return "Network error. Please check your internet connection"
	case IsKind(err, KindEmptyResponse):
		return "API key validation failed: empty response"
	default:
		return "unexpected error during API key validation"
	}
}

func emitKeyCheck(result string, elapsed time.Duration) {
	metrics.New(metrics.Namespace).
		Dimension("Result", result).
		Metric("ApiKeyValidationMs", float64(elapsed.Milliseconds()), metrics.UnitMilliseconds).
		Count("ApiKeyValidationResult").
		Flush()
}
