package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/spotlight/pkg/errors"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		doc     Document
		wantErr bool
	}{
		{"ok", Document{ID: "mail:1", Type: TypeMail, Title: "x"}, false},
		{"empty id", Document{Type: TypeMail}, true},
		{"extension type", Document{ID: "event:1", Type: "event", Title: "Standup"}, false},
		{"empty type", Document{ID: ":1"}, true},
		{"type with separator", Document{ID: "a:b:1", Type: "a:b"}, true},
		{"wrong namespace", Document{ID: "course:1", Type: TypeMail}, true},
		{"empty key", Document{ID: "mail:", Type: TypeMail}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.doc.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidDocument)
		})
	}
}

func TestText_SkipsEmptyParts(t *testing.T) {
	d := Document{
		Title:      "Lab 3",
		Tags:       []string{"assignment", "physics"},
		CourseName: "Physics",
	}
	assert.Equal(t, "Lab 3\nassignment physics\nPhysics", d.Text())
}

func TestTypes_DisplayOrder(t *testing.T) {
	assert.Equal(t, []Type{TypeMail, TypeCourseWork, TypeCourse}, Types())
	assert.Equal(t, "Courses", TypeCourse.Heading())
	assert.Equal(t, "event", Type("event").Heading())
}

func TestClone_DoesNotShareTags(t *testing.T) {
	d := Document{Tags: []string{"a"}}
	c := d.Clone()
	c.Tags[0] = "b"
	assert.Equal(t, "a", d.Tags[0])
}

func TestNewID(t *testing.T) {
	assert.Equal(t, "coursework:42", NewID(TypeCourseWork, "42"))
}
