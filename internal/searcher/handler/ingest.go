package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/source/feed"
	apperrors "github.com/Adithya-Monish-Kumar-K/spotlight/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/spotlight/pkg/resilience"
)

const maxIngestBody = 4 << 20

// ChangePublisher is satisfied by *feed.Memory.
type ChangePublisher interface {
	Publish(ctx context.Context, c feed.Change) error
}

// Ingest accepts pushed changes for sources backed by an in-process feed.
type Ingest struct {
	handler *Handler
	mu      sync.RWMutex
	feeds   map[string]ChangePublisher
}

func NewIngest(h *Handler) *Ingest {
	return &Ingest{handler: h, feeds: make(map[string]ChangePublisher)}
}

// Register exposes p under the source name.
func (in *Ingest) Register(name string, p ChangePublisher) {
	in.mu.Lock()
	in.feeds[name] = p
	in.mu.Unlock()
}

func (in *Ingest) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/sources/{name}/changes", in.Publish)
}

// Publish accepts a single change or a JSON array of changes and returns
// once every change has been applied.
func (in *Ingest) Publish(w http.ResponseWriter, r *http.Request) {
	h := in.handler
	name := r.PathValue("name")
	in.mu.RLock()
	p, ok := in.feeds[name]
	in.mu.RUnlock()
	if !ok {
		h.writeAppError(w, apperrors.Newf(apperrors.ErrUnknownSource, http.StatusNotFound, "source %s does not accept pushed changes", name))
		return
	}

	changes, err := decodeChanges(http.MaxBytesReader(w, r.Body, maxIngestBody))
	if err != nil {
		h.writeAppError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, err.Error()))
		return
	}

	applied := 0
	err = resilience.WithTimeout(r.Context(), h.timeout, "ingest", func(ctx context.Context) error {
		for _, c := range changes {
			if err := p.Publish(ctx, c); err != nil {
				return err
			}
			applied++
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, feed.ErrClosed) {
			err = apperrors.Newf(apperrors.ErrSourceUnavailable, http.StatusServiceUnavailable, "source %s is closed", name)
		} else if errors.Is(err, context.DeadlineExceeded) {
			err = apperrors.New(apperrors.ErrTimeout, http.StatusServiceUnavailable, "ingest timed out")
		}
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusAccepted, map[string]any{"source": name, "applied": applied})
}

func decodeChanges(body io.Reader) ([]feed.Change, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, err
	}
	var changes []feed.Change
	if len(raw) > 0 && raw[0] == '[' {
		if err := json.Unmarshal(raw, &changes); err != nil {
			return nil, err
		}
	} else {
		var c feed.Change
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}
	for _, c := range changes {
		switch c.Op {
		case feed.OpAdded, feed.OpModified, feed.OpRemoved:
		default:
			return nil, errors.New("unknown op " + string(c.Op))
		}
	}
	return changes, nil
}
