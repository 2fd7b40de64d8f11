// Package document defines the canonical record shape every source is
// normalised into before it reaches the store and the inverted index.
package document

import (
	"net/http"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/spotlight/pkg/errors"
)

// Type discriminates the source a document came from. It never changes for a
// given id. The set is open: types without a built-in heading are grouped
// after the known ones under their own name.
type Type string

const (
	TypeMail       Type = "mail"
	TypeCourse     Type = "course"
	TypeCourseWork Type = "coursework"
)

var displayOrder = []Type{TypeMail, TypeCourseWork, TypeCourse}

var headings = map[Type]string{
	TypeMail:       "Mail",
	TypeCourseWork: "Coursework",
	TypeCourse:     "Courses",
}

// Types returns the known types in display order.
func Types() []Type {
	out := make([]Type, len(displayOrder))
	copy(out, displayOrder)
	return out
}

// Known reports whether t is one of the built-in types.
func (t Type) Known() bool {
	_, ok := headings[t]
	return ok
}

// Heading is the group label shown above results of this type.
func (t Type) Heading() string {
	if h, ok := headings[t]; ok {
		return h
	}
	return string(t)
}

type Document struct {
	ID          string   `json:"id"`
	Type        Type     `json:"type"`
	Title       string   `json:"title"`
	Subtitle    string   `json:"subtitle,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Path        string   `json:"path,omitempty"`
	UpdatedAt   int64    `json:"updated_at"`

	FromEmail  string `json:"from_email,omitempty"`
	CourseID   string `json:"course_id,omitempty"`
	CourseName string `json:"course_name,omitempty"`
	DueDate    string `json:"due_date,omitempty"`
}

// NewID namespaces a source-local key under its type.
func NewID(t Type, key string) string {
	return string(t) + ":" + key
}

// Validate rejects documents the coordinator must not apply.
func (d Document) Validate() error {
	if d.ID == "" {
		return apperrors.New(apperrors.ErrInvalidDocument, http.StatusBadRequest, "id is required")
	}
	if d.Type == "" || strings.ContainsAny(string(d.Type), ": \t\n") {
		return apperrors.Newf(apperrors.ErrInvalidDocument, http.StatusBadRequest, "invalid type %q for %s", d.Type, d.ID)
	}
	if !strings.HasPrefix(d.ID, string(d.Type)+":") || len(d.ID) == len(d.Type)+1 {
		return apperrors.Newf(apperrors.ErrInvalidDocument, http.StatusBadRequest, "id %s is not namespaced under %s", d.ID, d.Type)
	}
	return nil
}

// Text is the blob handed to the tokenizer. Casing is preserved; folding
// happens at tokenization time.
func (d Document) Text() string {
	parts := make([]string, 0, 7)
	for _, p := range []string{
		d.Title,
		d.Subtitle,
		d.Description,
		strings.Join(d.Tags, " "),
		d.FromEmail,
		d.CourseName,
		d.DueDate,
	} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n")
}

// Clone returns a copy that shares no slices with d.
func (d Document) Clone() Document {
	if d.Tags != nil {
		tags := make([]string, len(d.Tags))
		copy(tags, d.Tags)
		d.Tags = tags
	}
	return d
}
