package session

import "strings"

// KeyEvent is a platform-neutral key press.
type KeyEvent struct {
	Key   string
	Meta  bool
	Ctrl  bool
	Shift bool
	Alt   bool
}

// Focus describes the element that had focus when a key was pressed.
type Focus struct {
	Tag             string
	ContentEditable bool
}

// Editable reports whether typing into the focused element must not be
// intercepted.
func (f Focus) Editable() bool {
	if f.ContentEditable {
		return true
	}
	switch strings.ToUpper(f.Tag) {
	case "INPUT", "TEXTAREA", "SELECT":
		return true
	}
	return false
}

// IsToggleChord reports whether ev is Cmd+Shift+K on mac or Ctrl+Shift+K
// elsewhere.
func IsToggleChord(ev KeyEvent, mac bool) bool {
	mod := ev.Ctrl
	if mac {
		mod = ev.Meta
	}
	return mod && ev.Shift && strings.EqualFold(ev.Key, "k")
}
