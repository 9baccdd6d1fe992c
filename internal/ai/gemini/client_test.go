package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/jobpilot/internal/ai"
)

type fakeModels struct {
	mu     sync.Mutex
	resp   *genai.GenerateContentResponse
	err    error
	models []string
	texts  []string
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.models = append(f.models, model)
	for _, content := range contents {
		for _, part := range content.Parts {
			f.texts = append(f.texts, part.Text)
		}
	}
	return f.resp, f.err
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: content}},
	}
}

func TestGeneratorJoinsParts(t *testing.T) {
	models := &fakeModels{resp: textResponse(" {\"score\": ", "", "80} ")}
	g := newGenerator(models, "gemini-test", 0, zap.NewNop())

	output, err := g.GenerateContent(context.Background(), "  screen this job  ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if output != "{\"score\":\n80}" {
		t.Fatalf("unexpected output: %q", output)
	}

	if len(models.models) != 1 || models.models[0] != "gemini-test" {
		t.Fatalf("unexpected model calls: %+v", models.models)
	}

	if len(models.texts) != 1 || models.texts[0] != "screen this job" {
		t.Fatalf("unexpected prompt texts: %+v", models.texts)
	}
}

func TestGeneratorDefaultModel(t *testing.T) {
	g := newGenerator(&fakeModels{}, "  ", 0, nil)
	if g.Model() != defaultModel {
		t.Fatalf("expected default model, got %q", g.Model())
	}
}

func TestGeneratorEmptyResponse(t *testing.T) {
	g := newGenerator(&fakeModels{resp: textResponse("   ")}, "m", 0, nil)

	if _, err := g.GenerateContent(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error for empty response")
	}
}

func TestGeneratorRejectsEmptyPrompt(t *testing.T) {
	models := &fakeModels{resp: textResponse("ok")}
	g := newGenerator(models, "m", 0, nil)

	if _, err := g.GenerateContent(context.Background(), " \n "); err == nil {
		t.Fatal("expected error for empty prompt")
	}
	if len(models.models) != 0 {
		t.Fatalf("expected no calls, got %d", len(models.models))
	}
}

func TestGeneratorClassifiesRateLimit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		rateLimit bool
	}{
		{
			name:      "too many requests value",
			err:       genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED"},
			rateLimit: true,
		},
		{
			name:      "resource exhausted pointer wrapped",
			err:       fmt.Errorf("call: %w", &genai.APIError{Code: 0, Status: "RESOURCE_EXHAUSTED"}),
			rateLimit: true,
		},
		{
			name:      "internal error",
			err:       genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"},
			rateLimit: false,
		},
		{
			name:      "network error",
			err:       errors.New("connection reset"),
			rateLimit: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := newGenerator(&fakeModels{err: tt.err}, "m", 0, nil)

			_, err := g.GenerateContent(context.Background(), "prompt")
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, ai.ErrRateLimited); got != tt.rateLimit {
				t.Fatalf("expected rate limit=%v, got %v (%v)", tt.rateLimit, got, err)
			}
		})
	}
}
