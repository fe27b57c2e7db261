// Package translate turns recognized Japanese text into English.
package translate

import (
	"context"
	"errors"
	"strings"
)

// ErrTranslation wraps every translator failure, including empty results.
var ErrTranslation = errors.New("translation failed")

// Translator performs one blocking translation call.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// Nop returns no translation. Used when translation is disabled at startup.
type Nop struct{}

func (Nop) Translate(context.Context, string) (string, error) {
	return "", errors.Join(ErrTranslation, errors.New("no translator configured"))
}

func clean(s string) string { return strings.TrimSpace(s) }
