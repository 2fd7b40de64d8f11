package source

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Millis is an epoch-millisecond timestamp that decodes from the shapes
// upstream sources use: a JSON number, a numeric string, an RFC 3339 string
// or a {"seconds", "nanos"} object. Anything else decodes as zero (absent).
type Millis int64

func (m *Millis) UnmarshalJSON(data []byte) error {
	*m = 0
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		*m = parseMillisString(s)
	case '{':
		var ts struct {
			Seconds int64 `json:"seconds"`
			Nanos   int64 `json:"nanos"`
		}
		if err := json.Unmarshal(data, &ts); err != nil {
			return nil
		}
		*m = Millis(ts.Seconds*1000 + ts.Nanos/int64(time.Millisecond))
	default:
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return nil
		}
		*m = Millis(f)
	}
	return nil
}

func parseMillisString(s string) Millis {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Millis(n)
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return Millis(t.UnixMilli())
	}
	return 0
}

// Or returns m, or fallback() when m is absent.
func (m Millis) Or(fallback func() time.Time) int64 {
	if m > 0 {
		return int64(m)
	}
	return fallback().UnixMilli()
}
