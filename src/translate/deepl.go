package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"screen-ocr-overlay/src/logutil"
)

// DeepL calls the DeepL v2 translate endpoint.
type DeepL struct {
	endpoint string
	key      string
	client   *http.Client
	logger   *slog.Logger
}

func NewDeepL(endpoint, key string, logger *slog.Logger) *DeepL {
	return &DeepL{
		endpoint: endpoint,
		key:      key,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}
}

type deeplResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
	Message string `json:"message"`
}

func (d *DeepL) Translate(ctx context.Context, text string) (string, error) {
	form := url.Values{}
	form.Set("text", text)
	form.Set("source_lang", "JA")
	form.Set("target_lang", "EN")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", ErrTranslation, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "DeepL-Auth-Key "+d.key)

	d.logger.Debug("deepl request", "key", logutil.RedactKey(d.key), "text", logutil.Truncate(text, 40))
	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: deepl request failed: %v", ErrTranslation, err)
	}
	defer resp.Body.Close()

	var parsed deeplResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: decode deepl response (status %d): %v", ErrTranslation, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: deepl returned status %d: %s", ErrTranslation, resp.StatusCode, parsed.Message)
	}
	if len(parsed.Translations) == 0 {
		return "", fmt.Errorf("%w: no translations in deepl response", ErrTranslation)
	}
	out := clean(parsed.Translations[0].Text)
	if out == "" {
		return "", fmt.Errorf("%w: empty translation", ErrTranslation)
	}
	return out, nil
}
