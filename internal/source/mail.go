package source

import (
	"encoding/json"

	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/document"
)

type MailRecord struct {
	Subject      string `json:"subject"`
	Snippet      string `json:"snippet"`
	From         string `json:"from"`
	InternalDate Millis `json:"internalDate"`
	IsAcademic   bool   `json:"isAcademic"`
}

type MailTranslator struct {
	translatorBase
}

func (t *MailTranslator) Type() document.Type { return document.TypeMail }

func (t *MailTranslator) DocumentID(key string, _ json.RawMessage) string {
	return document.NewID(document.TypeMail, key)
}

func (t *MailTranslator) Translate(key string, raw json.RawMessage) document.Document {
	rec := decodeRecord[MailRecord](t.translatorBase, key, raw)
	doc := document.Document{
		ID:          t.DocumentID(key, raw),
		Type:        document.TypeMail,
		Title:       firstNonEmpty(rec.Subject, rec.Snippet, "(no subject)"),
		Subtitle:    firstNonEmpty(rec.From, "Mail"),
		Description: rec.Snippet,
		FromEmail:   rec.From,
		Path:        "/dashboard/inbox/" + key,
		UpdatedAt:   rec.InternalDate.Or(t.now),
	}
	if rec.IsAcademic {
		doc.Tags = []string{"academic"}
	}
	return doc
}
