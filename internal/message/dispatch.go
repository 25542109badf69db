package message

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/runnerr0/memorylane/internal/memory"
	"github.com/runnerr0/memorylane/internal/storage"
)

// Kind classifies a failed response.
type Kind string

const (
	KindNotFound  Kind = "not_found"
	KindMalformed Kind = "malformed_input"
	KindBackend   Kind = "backend"
	KindTimeout   Kind = "timeout"
)

const notFoundMessage = "Memory not found"

// Response is the result of any request. Payload fields are set per
// action; failures carry Error and ErrorKind.
type Response struct {
	Success   bool                   `json:"success"`
	Error     string                 `json:"error,omitempty"`
	ErrorKind Kind                   `json:"errorKind,omitempty"`
	ID        string                 `json:"id,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Memory    *storage.ContentRecord `json:"memory,omitempty"`
	Data      any                    `json:"data,omitempty"`
	Timestamp string                 `json:"timestamp,omitempty"`
}

// Service is the set of coordinator operations reachable by message.
type Service interface {
	Save(ctx context.Context, req memory.SaveRequest) (string, error)
	Update(ctx context.Context, id string, fields storage.Fields) (*storage.ContentRecord, error)
	Delete(ctx context.Context, id string) error
	ClearAll(ctx context.Context) (time.Time, error)
	GetStats(ctx context.Context) (storage.StorageStats, error)
	GetSavedContent(ctx context.Context) ([]storage.ContentRecord, error)
	GetData(ctx context.Context) (map[string]json.RawMessage, error)
	Search(ctx context.Context, q memory.SearchQuery) ([]storage.ContentRecord, error)
	TrackTab(ctx context.Context, tabID, url, title string) error
}

// Dispatcher routes requests to a Service.
type Dispatcher struct {
	svc Service
	log zerolog.Logger
}

// NewDispatcher returns a Dispatcher for svc.
func NewDispatcher(svc Service, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{svc: svc, log: log}
}

// Dispatch runs req and reports the outcome. It never panics.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			resp = Failure(fmt.Errorf("internal error: %v", r))
		}
	}()

	resp = d.dispatch(ctx, req)
	ev := d.log.Debug()
	if !resp.Success {
		ev = d.log.Warn().Str("error", resp.Error).Str("kind", string(resp.ErrorKind))
	}
	ev.Str("action", req.Action()).Bool("success", resp.Success).Msg("dispatched")
	return resp
}

func (d *Dispatcher) dispatch(ctx context.Context, req Request) Response {
	switch r := req.(type) {
	case SaveContent:
		id, err := d.svc.Save(ctx, r.Data)
		if err != nil {
			return Failure(err)
		}
		return Response{Success: true, ID: id}

	case UpdateMemory:
		rec, err := d.svc.Update(ctx, r.ID, r.Updates)
		if err != nil {
			return Failure(err)
		}
		return Response{Success: true, Message: "Memory updated successfully", Memory: rec}

	case DeleteMemory:
		if err := d.svc.Delete(ctx, r.ID); err != nil {
			return Failure(err)
		}
		return Response{Success: true, Message: "Memory deleted successfully", ID: r.ID}

	case GetStats:
		stats, err := d.svc.GetStats(ctx)
		if err != nil {
			return Failure(err)
		}
		return Response{Success: true, Data: stats}

	case ClearAllData:
		at, err := d.svc.ClearAll(ctx)
		if err != nil {
			return Failure(err)
		}
		return Response{
			Success:   true,
			Message:   "All data cleared successfully",
			Timestamp: storage.FormatTimestamp(at),
		}

	case GetSavedContent:
		content, err := d.svc.GetSavedContent(ctx)
		if err != nil {
			return Failure(err)
		}
		return Response{Success: true, Data: content}

	case GetData:
		data, err := d.svc.GetData(ctx)
		if err != nil {
			return Failure(err)
		}
		return Response{Success: true, Data: data}

	case Search:
		results, err := d.svc.Search(ctx, r.SearchQuery)
		if err != nil {
			return Failure(err)
		}
		return Response{Success: true, Data: results}

	case TrackTab:
		if err := d.svc.TrackTab(ctx, r.TabID, r.URL, r.Title); err != nil {
			return Failure(err)
		}
		return Response{Success: true}

	default:
		return Failure(fmt.Errorf("%w: unsupported request %T", memory.ErrMalformedInput, req))
	}
}

// Failure builds the response for err.
func Failure(err error) Response {
	kind := Classify(err)
	msg := err.Error()
	if kind == KindNotFound {
		msg = notFoundMessage
	}
	return Response{Success: false, Error: msg, ErrorKind: kind}
}

// Classify maps an error to its Kind.
func Classify(err error) Kind {
	switch {
	case errors.Is(err, memory.ErrNotFound):
		return KindNotFound
	case errors.Is(err, memory.ErrMalformedInput):
		return KindMalformed
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	default:
		return KindBackend
	}
}
