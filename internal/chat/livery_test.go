package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"google.golang.org/genai"
)

type fakeModels struct {
	calls    int
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	resp     *genai.GenerateContentResponse
	err      error
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.model = model
	f.contents = contents
	f.config = config
	return f.resp, f.err
}

func (f *fakeModels) factory(keys *[]string) ClientFactory {
	return func(_ context.Context, apiKey string) (ContentGenerator, error) {
		if keys != nil {
			*keys = append(*keys, apiKey)
		}
		return f, nil
	}
}

func imageResponse(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Role: "model", Parts: parts}}},
	}
}

func testRequest() LiveryRequest {
	return LiveryRequest{
		APIKey:          "test-key",
		Reference:       Image{Data: []byte("ref"), MIMEType: "image/jpeg"},
		Target:          Image{Data: []byte("tgt"), MIMEType: "image/png"},
		AdaptationLevel: 50,
		Feedback:        "make it matte",
	}
}

func TestTransferLivery_Success(t *testing.T) {
	fake := &fakeModels{resp: imageResponse(
		&genai.Part{Text: "here you go"},
		&genai.Part{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte{1, 2, 3}}},
		&genai.Part{InlineData: &genai.Blob{MIMEType: "image/jpeg", Data: []byte{9}}},
	)}
	var keys []string
	client := NewLiveryClientWithFactory("test-model", fake.factory(&keys))

	got, err := client.TransferLivery(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "data:image/png;base64,AQID" {
		t.Errorf("got %q", got)
	}
	if fake.calls != 1 || fake.model != "test-model" {
		t.Errorf("calls=%d model=%s", fake.calls, fake.model)
	}
	if len(keys) != 1 || keys[0] != "test-key" {
		t.Errorf("factory keys = %v", keys)
	}

	parts := fake.contents[0].Parts
	if len(parts) != 3 {
		t.Fatalf("expected 3 parts, got %d", len(parts))
	}
	if string(parts[0].InlineData.Data) != "ref" || parts[0].InlineData.MIMEType != "image/jpeg" {
		t.Error("first part must be the reference image")
	}
	if string(parts[1].InlineData.Data) != "tgt" || parts[1].InlineData.MIMEType != "image/png" {
		t.Error("second part must be the target image")
	}
	if !strings.Contains(parts[2].Text, "BALANCED ADAPTATION") || !strings.Contains(parts[2].Text, `"make it matte"`) {
		t.Errorf("instruction part wrong:\n%s", parts[2].Text)
	}
	if len(fake.config.ResponseModalities) != 1 || fake.config.ResponseModalities[0] != "IMAGE" {
		t.Errorf("response modalities = %v", fake.config.ResponseModalities)
	}
}

func TestTransferLivery_DefaultMIME(t *testing.T) {
	fake := &fakeModels{resp: imageResponse(&genai.Part{InlineData: &genai.Blob{Data: []byte{1, 2, 3}}})}
	client := NewLiveryClientWithFactory("m", fake.factory(nil))

	got, err := client.TransferLivery(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(got, "data:image/png;base64,") {
		t.Errorf("got %q", got)
	}
}

func TestTransferLivery_NoCredential(t *testing.T) {
	fake := &fakeModels{}
	var keys []string
	client := NewLiveryClientWithFactory("m", fake.factory(&keys))

	req := testRequest()
	req.APIKey = "   "
	_, err := client.TransferLivery(context.Background(), req)
	if !IsKind(err, KindCredential) {
		t.Fatalf("expected credential error, got %v", err)
	}
	if fake.calls != 0 || len(keys) != 0 {
		t.Error("no client or call expected without a credential")
	}
}

func TestTransferLivery_EmptyResponse(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
	}{
		{"nil", nil},
		{"no candidates", &genai.GenerateContentResponse{}},
		{"text only", imageResponse(&genai.Part{Text: "I cannot do that"})},
		{"empty inline", imageResponse(&genai.Part{InlineData: &genai.Blob{MIMEType: "image/png"}})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewLiveryClientWithFactory("m", (&fakeModels{resp: tt.resp}).factory(nil))
			_, err := client.TransferLivery(context.Background(), testRequest())
			if !IsKind(err, KindEmptyResponse) {
				t.Fatalf("expected empty response error, got %v", err)
			}
		})
	}
}

func TestTransferLivery_CallErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"api value", genai.APIError{Code: 400, Message: "bad"}, KindAPI},
		{"api pointer", &genai.APIError{Code: 500}, KindAPI},
		{"transport", errors.New("dial tcp: connection refused"), KindTransport},
		{"cancelled", context.Canceled, KindTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewLiveryClientWithFactory("m", (&fakeModels{err: tt.err}).factory(nil))
			_, err := client.TransferLivery(context.Background(), testRequest())
			if !IsKind(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if !strings.Contains(err.Error(), tt.err.Error()) {
				t.Errorf("error should carry the underlying message, got %q", err.Error())
			}
		})
	}
}

func TestTransferLivery_FactoryError(t *testing.T) {
	client := NewLiveryClientWithFactory("m", func(context.Context, string) (ContentGenerator, error) {
		return nil, errors.New("boom")
	})
	_, err := client.TransferLivery(context.Background(), testRequest())
	if !IsKind(err, KindTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestGetImageModelName(t *testing.T) {
	t.Setenv(EnvImageModel, "")
	if got := GetImageModelName(); got != DefaultImageModel {
		t.Errorf("got %s, want %s", got, DefaultImageModel)
	}
	t.Setenv(EnvImageModel, ModelGemini3ProImage)
	if got := GetImageModelName(); got != ModelGemini3ProImage {
		t.Errorf("got %s", got)
	}
	if NewLiveryClientWithFactory("", nil).Model() != ModelGemini3ProImage {
		t.Error("empty model should resolve from environment")
	}
}
