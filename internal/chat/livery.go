package chat

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// DefaultResultMIMEType is used when the model omits a MIME type on its image part.
const DefaultResultMIMEType = "image/png"

// Image is one input picture for a livery transfer.
type Image struct {
	Data     []byte
	MIMEType string
}

// LiveryRequest carries everything one synthesis call needs.
type LiveryRequest struct {
	// APIKey is the resolved credential. Empty fails with KindCredential.
	APIKey          string
	Reference       Image
	Target          Image
	AdaptationLevel int
	Feedback        string
}

// Synthesizer performs a livery transfer and returns the result as a data URI.
type Synthesizer interface {
	TransferLivery(ctx context.Context, req LiveryRequest) (string, error)
}

// ContentGenerator is the subset of the genai Models service used here.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// ClientFactory builds a ContentGenerator bound to an API key.
type ClientFactory func(ctx context.Context, apiKey string) (ContentGenerator, error)

// NewGenAIClient creates a Gemini API client for the given key.
func NewGenAIClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

// GenAIFactory is the production ClientFactory.
func GenAIFactory(ctx context.Context, apiKey string) (ContentGenerator, error) {
	client, err := NewGenAIClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	return client.Models, nil
}

// LiveryClient calls the Gemini image model through the genai SDK.
// A client is built per call since the key can change between runs.
type LiveryClient struct {
	model     string
	newClient ClientFactory
}

// NewLiveryClient creates a LiveryClient for the given model. An empty model
// resolves through GetImageModelName.
func NewLiveryClient(model string) *LiveryClient {
	return NewLiveryClientWithFactory(model, GenAIFactory)
}

// NewLiveryClientWithFactory is NewLiveryClient with an injectable client factory.
func NewLiveryClientWithFactory(model string, factory ClientFactory) *LiveryClient {
	if model == "" {
		model = GetImageModelName()
	}
	return &LiveryClient{model: model, newClient: factory}
}

// Model returns the model ID requests are sent to.
func (c *LiveryClient) Model() string {
	return c.model
}

// TransferLivery sends the reference, the target and the rendered instruction in
// one request and returns the first inline image of the first candidate as a
// data URI.
func (c *LiveryClient) TransferLivery(ctx context.Context, req LiveryRequest) (string, error) {
	if strings.TrimSpace(req.APIKey) == "" {
		return "", NewCredentialError(nil)
	}

	instruction := BuildInstruction(req.AdaptationLevel, req.Feedback)
	tier := AdherenceTier(req.AdaptationLevel)

	startTime := time.Now()
	log.Info().
		Str("model", c.model).
		Int("reference_bytes", len(req.Reference.Data)).
		Str("reference_mime", req.Reference.MIMEType).
		Int("target_bytes", len(req.Target.Data)).
		Str("target_mime", req.Target.MIMEType).
		Int("level", req.AdaptationLevel).
		Str("tier", tier.String()).
		Bool("has_feedback", strings.TrimSpace(req.Feedback) != "").
		Msg("Sending livery transfer to Gemini")
	log.Debug().Str("instruction", instruction).Msg("Livery instruction")

	models, err := c.newClient(ctx, req.APIKey)
	if err != nil {
		return "", &Error{Kind: KindTransport, Message: "could not create Gemini client", Err: err}
	}

	parts := []*genai.Part{
		{InlineData: &genai.Blob{MIMEType: req.Reference.MIMEType, Data: req.Reference.Data}},
		{InlineData: &genai.Blob{MIMEType: req.Target.MIMEType, Data: req.Target.Data}},
		{Text: instruction},
	}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE"},
	}

	resp, err := models.GenerateContent(ctx, c.model, []*genai.Content{{Role: "user", Parts: parts}}, config)
	if err != nil {
		log.Error().Err(err).Dur("duration", time.Since(startTime)).Msg("Livery transfer call failed")
		return "", classifyCallError(err)
	}

	uri, text, ok := firstInlineImage(resp)
	if !ok {
		log.Warn().Str("text", truncateString(text, 200)).Msg("Gemini response carried no image")
		msg := "response contained no image data"
		if text != "" {
			msg = fmt.Sprintf("%s (text: %s)", msg, truncateString(text, 200))
		}
		return "", &Error{Kind: KindEmptyResponse, Message: msg}
	}

	log.Info().
		Int("result_chars", len(uri)).
		Dur("duration", time.Since(startTime)).
		Msg("Livery transfer complete")
	return uri, nil
}

// firstInlineImage scans the first candidate for a part with inline bytes.
// The returned text is any text the model sent instead.
func firstInlineImage(resp *genai.GenerateContentResponse) (uri, text string, ok bool) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", "", false
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return "", "", false
	}
	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if part == nil {
			continue
		}
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return DataURI(part.InlineData.MIMEType, part.InlineData.Data), "", true
		}
		sb.WriteString(part.Text)
	}
	return "", sb.String(), false
}

// DataURI wraps raw image bytes as a base64 data URI.
func DataURI(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = DefaultResultMIMEType
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
