package source

import (
	"encoding/json"

	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/document"
)

type CourseRecord struct {
	CourseID    string `json:"courseId"`
	CourseName  string `json:"courseName"`
	Title       string `json:"title"`
	Section     string `json:"section"`
	Description string `json:"description"`
	UpdatedAt   Millis `json:"updatedAt"`
}

// CourseTranslator keys documents by the record's courseId when present, so
// the same course reported under different source keys collapses to one id.
type CourseTranslator struct {
	translatorBase
}

func (t *CourseTranslator) Type() document.Type { return document.TypeCourse }

func (t *CourseTranslator) DocumentID(key string, raw json.RawMessage) string {
	rec := decodeRecord[CourseRecord](t.translatorBase, key, raw)
	return document.NewID(document.TypeCourse, firstNonEmpty(rec.CourseID, key))
}

func (t *CourseTranslator) Translate(key string, raw json.RawMessage) document.Document {
	rec := decodeRecord[CourseRecord](t.translatorBase, key, raw)
	courseID := firstNonEmpty(rec.CourseID, key)
	title := firstNonEmpty(rec.CourseName, rec.Title, "Course")
	return document.Document{
		ID:          document.NewID(document.TypeCourse, courseID),
		Type:        document.TypeCourse,
		Title:       title,
		Subtitle:    firstNonEmpty(rec.Section, "Course"),
		Description: rec.Description,
		CourseID:    courseID,
		CourseName:  title,
		Tags:        []string{"classroom"},
		Path:        classroomPath(courseID),
		UpdatedAt:   rec.UpdatedAt.Or(t.now),
	}
}
