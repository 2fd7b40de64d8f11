package source

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/document"
	apperrors "github.com/Adithya-Monish-Kumar-K/spotlight/pkg/errors"
)

var fixedNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func translator(t *testing.T, typ document.Type) Translator {
	t.Helper()
	tr, err := NewTranslator(typ, WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	return tr
}

func TestMailTranslator(t *testing.T) {
	tr := translator(t, document.TypeMail)

	doc := tr.Translate("abc", json.RawMessage(`{
		"subject": "Midterm Exam",
		"snippet": "Room 204",
		"from": "prof@uni.edu",
		"internalDate": "1714816800000",
		"isAcademic": true
	}`))
	assert.Equal(t, document.Document{
		ID:          "mail:abc",
		Type:        document.TypeMail,
		Title:       "Midterm Exam",
		Subtitle:    "prof@uni.edu",
		Description: "Room 204",
		FromEmail:   "prof@uni.edu",
		Tags:        []string{"academic"},
		Path:        "/dashboard/inbox/abc",
		UpdatedAt:   1714816800000,
	}, doc)
	require.NoError(t, doc.Validate())
}

func TestMailTranslator_Fallbacks(t *testing.T) {
	tr := translator(t, document.TypeMail)

	snippetOnly := tr.Translate("1", json.RawMessage(`{"snippet":"see attached"}`))
	assert.Equal(t, "see attached", snippetOnly.Title)
	assert.Equal(t, "Mail", snippetOnly.Subtitle)
	assert.Equal(t, fixedNow.UnixMilli(), snippetOnly.UpdatedAt)

	for _, raw := range []string{``, `null`, `{}`, `[1,2]`, `{"subject": 5}`} {
		doc := tr.Translate("2", json.RawMessage(raw))
		assert.Equal(t, "(no subject)", doc.Title, raw)
		assert.Equal(t, "mail:2", doc.ID, raw)
		assert.Nil(t, doc.Tags, raw)
	}
}

func TestCourseWorkTranslator(t *testing.T) {
	tr := translator(t, document.TypeCourseWork)

	doc := tr.Translate("cw9", json.RawMessage(`{
		"title": "Lab 3",
		"courseId": "phy101",
		"courseName": "Physics",
		"workType": "ASSIGNMENT",
		"dueDate": "2026-05-10",
		"updatedAt": {"seconds": 1714816800, "nanos": 500000000}
	}`))
	assert.Equal(t, "coursework:cw9", doc.ID)
	assert.Equal(t, "Physics", doc.Subtitle)
	assert.Equal(t, []string{"ASSIGNMENT"}, doc.Tags)
	assert.Equal(t, "/dashboard/classroom/phy101", doc.Path)
	assert.Equal(t, int64(1714816800500), doc.UpdatedAt)
	assert.Equal(t, "2026-05-10", doc.DueDate)

	bare := tr.Translate("cw1", json.RawMessage(`{"workType":"QUIZ"}`))
	assert.Equal(t, "(untitled)", bare.Title)
	assert.Equal(t, "QUIZ", bare.Subtitle)
	assert.Equal(t, "/dashboard/classroom", bare.Path)

	empty := tr.Translate("cw2", nil)
	assert.Equal(t, "Coursework", empty.Subtitle)
}

func TestCourseTranslator(t *testing.T) {
	tr := translator(t, document.TypeCourse)

	raw := json.RawMessage(`{"courseId":"phy101","title":"Physics I","section":"B","updatedAt":"2026-05-01T08:00:00Z"}`)
	doc := tr.Translate("meta-7", raw)
	assert.Equal(t, "course:phy101", doc.ID)
	assert.Equal(t, "Physics I", doc.Title)
	assert.Equal(t, "Physics I", doc.CourseName)
	assert.Equal(t, "B", doc.Subtitle)
	assert.Equal(t, []string{"classroom"}, doc.Tags)
	assert.Equal(t, "/dashboard/classroom/phy101", doc.Path)
	assert.Equal(t, time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC).UnixMilli(), doc.UpdatedAt)
	assert.Equal(t, "course:phy101", tr.DocumentID("meta-7", raw))

	bare := tr.Translate("meta-8", nil)
	assert.Equal(t, "course:meta-8", bare.ID)
	assert.Equal(t, "Course", bare.Title)
	assert.Equal(t, "Course", bare.Subtitle)
	assert.Equal(t, "course:meta-8", tr.DocumentID("meta-8", nil))
}

func TestNewTranslator_Unknown(t *testing.T) {
	_, err := NewTranslator("calendar")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestMillis(t *testing.T) {
	tests := []struct {
		in   string
		want Millis
	}{
		{`1714816800000`, 1714816800000},
		{`"1714816800000"`, 1714816800000},
		{`"2024-05-04T10:00:00Z"`, 1714816800000},
		{`{"seconds":1714816800,"nanos":0}`, 1714816800000},
		{`null`, 0},
		{`"yesterday"`, 0},
		{`true`, 0},
		{`[1]`, 0},
	}
	for _, tt := range tests {
		var m Millis
		require.NoError(t, json.Unmarshal([]byte(tt.in), &m), tt.in)
		assert.Equal(t, tt.want, m, tt.in)
	}
}
