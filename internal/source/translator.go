package source

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/document"
	apperrors "github.com/Adithya-Monish-Kumar-K/spotlight/pkg/errors"
)

// Translator turns a source-local key and raw record into a canonical
// document. Translation is total: malformed records degrade to placeholder
// values instead of failing.
type Translator interface {
	Type() document.Type
	Translate(key string, raw json.RawMessage) document.Document
	// DocumentID is the canonical id for key. Remove events may carry no
	// record, so implementations must cope with an empty raw.
	DocumentID(key string, raw json.RawMessage) string
}

type TranslatorOption func(*translatorBase)

// WithClock overrides the clock used when a record carries no timestamp.
func WithClock(now func() time.Time) TranslatorOption {
	return func(b *translatorBase) {
		if now != nil {
			b.now = now
		}
	}
}

// NewTranslator returns the translator for t.
func NewTranslator(t document.Type, opts ...TranslatorOption) (Translator, error) {
	base := translatorBase{
		now:    time.Now,
		logger: slog.Default().With("component", "translator", "type", string(t)),
	}
	for _, opt := range opts {
		opt(&base)
	}
	switch t {
	case document.TypeMail:
		return &MailTranslator{base}, nil
	case document.TypeCourseWork:
		return &CourseWorkTranslator{base}, nil
	case document.TypeCourse:
		return &CourseTranslator{base}, nil
	}
	return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "no translator for type %q", t)
}

type translatorBase struct {
	now    func() time.Time
	logger *slog.Logger
}

// decodeRecord unmarshals raw into T. A record that does not decode is
// treated as empty.
func decodeRecord[T any](b translatorBase, key string, raw json.RawMessage) T {
	var rec T
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return rec
	}
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		b.logger.Warn("undecodable record, using defaults",
			"key", key,
			"error", err,
		)
		var empty T
		return empty
	}
	return rec
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
