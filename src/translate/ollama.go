package translate

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
)

const ollamaPrompt = "Translate the following Japanese text into natural English. " +
	"Keep line breaks. Reply with the translation only.\n\n"

// Ollama translates with a local model through the Ollama chat API.
type Ollama struct {
	client  *api.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// NewOllama accepts either the server root or a full /api/chat URL.
func NewOllama(ollamaURL, model string, logger *slog.Logger) (*Ollama, error) {
	parsed, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid ollama URL %q", ollamaURL)
	}
	base := &url.URL{Scheme: parsed.Scheme, Host: parsed.Host}
	return &Ollama{
		client:  api.NewClient(base, http.DefaultClient),
		model:   model,
		timeout: 120 * time.Second,
		logger:  logger,
	}, nil
}

func (o *Ollama) Translate(ctx context.Context, text string) (string, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	stream := false
	req := &api.ChatRequest{
		Model: o.model,
		Messages: []api.Message{
			{Role: "user", Content: ollamaPrompt + text},
		},
		Stream: &stream,
	}

	start := time.Now()
	var content string
	err := o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content += resp.Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: ollama chat error: %v", ErrTranslation, err)
	}
	out := clean(content)
	if out == "" {
		return "", fmt.Errorf("%w: empty response from ollama", ErrTranslation)
	}
	o.logger.Debug("ollama translated", "model", o.model, "duration", time.Since(start))
	return out, nil
}
