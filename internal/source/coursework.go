package source

import (
	"encoding/json"

	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/document"
)

type CourseWorkRecord struct {
	Title       string `json:"title"`
	CourseID    string `json:"courseId"`
	CourseName  string `json:"courseName"`
	WorkType    string `json:"workType"`
	Description string `json:"description"`
	DueDate     string `json:"dueDate"`
	UpdatedAt   Millis `json:"updatedAt"`
}

type CourseWorkTranslator struct {
	translatorBase
}

func (t *CourseWorkTranslator) Type() document.Type { return document.TypeCourseWork }

func (t *CourseWorkTranslator) DocumentID(key string, _ json.RawMessage) string {
	return document.NewID(document.TypeCourseWork, key)
}

func (t *CourseWorkTranslator) Translate(key string, raw json.RawMessage) document.Document {
	rec := decodeRecord[CourseWorkRecord](t.translatorBase, key, raw)
	doc := document.Document{
		ID:          t.DocumentID(key, raw),
		Type:        document.TypeCourseWork,
		Title:       firstNonEmpty(rec.Title, "(untitled)"),
		Subtitle:    firstNonEmpty(rec.CourseName, rec.WorkType, "Coursework"),
		Description: rec.Description,
		CourseID:    rec.CourseID,
		CourseName:  rec.CourseName,
		DueDate:     rec.DueDate,
		Path:        classroomPath(rec.CourseID),
		UpdatedAt:   rec.UpdatedAt.Or(t.now),
	}
	if rec.WorkType != "" {
		doc.Tags = []string{rec.WorkType}
	}
	return doc
}

func classroomPath(courseID string) string {
	if courseID == "" {
		return "/dashboard/classroom"
	}
	return "/dashboard/classroom/" + courseID
}
