// Package translation is the collaborator the pipeline hands
// transcribed text to. The pipeline depends only on the Translator
// interface; DictionaryTranslator is the in-process implementation
// backed by the wayuunaiki-Spanish dictionary table.
package translation

import (
	"context"
	"errors"
)

type Direction string

const (
	WayuuToSpanish Direction = "wayuu-to-spanish"
	SpanishToWayuu Direction = "spanish-to-wayuu"
)

var ErrEmptyText = errors.New("nothing to translate")

type Result struct {
	TranslatedText string  `json:"translatedText"`
	Confidence     float64 `json:"confidence"`
}

type Translator interface {
	Translate(ctx context.Context, text string, direction Direction) (Result, error)
}
