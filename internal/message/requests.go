// Package message defines the closed set of operations the dashboard and
// extension may request, and dispatches them to the coordinator.
package message

import (
	"encoding/json"
	"fmt"

	"github.com/runnerr0/memorylane/internal/memory"
	"github.com/runnerr0/memorylane/internal/storage"
)

// Action names used on the wire.
const (
	ActionSaveContent     = "saveContent"
	ActionUpdateMemory    = "updateMemory"
	ActionDeleteMemory    = "deleteMemory"
	ActionGetStats        = "getStats"
	ActionClearAllData    = "clearAllData"
	ActionGetSavedContent = "getSavedContent"
	ActionGetData         = "getData"
	ActionSearch          = "search"
	ActionTrackTab        = "trackTab"
)

// Request is one of the request types in this package.
type Request interface {
	Action() string
	sealed()
}

type SaveContent struct {
	Data memory.SaveRequest `json:"data"`
}

type UpdateMemory struct {
	ID      string         `json:"id"`
	Updates storage.Fields `json:"updates"`
}

type DeleteMemory struct {
	ID string `json:"id"`
}

type GetStats struct{}

type ClearAllData struct{}

type GetSavedContent struct{}

// GetData returns every stored collection.
type GetData struct{}

// Search filters saved content; its fields sit at the top level of the
// envelope.
type Search struct {
	memory.SearchQuery
}

// TrackTab marks a browser tab as active.
type TrackTab struct {
	TabID string `json:"tabId"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

func (SaveContent) Action() string     { return ActionSaveContent }
func (UpdateMemory) Action() string    { return ActionUpdateMemory }
func (DeleteMemory) Action() string    { return ActionDeleteMemory }
func (GetStats) Action() string        { return ActionGetStats }
func (ClearAllData) Action() string    { return ActionClearAllData }
func (GetSavedContent) Action() string { return ActionGetSavedContent }
func (GetData) Action() string         { return ActionGetData }
func (Search) Action() string          { return ActionSearch }
func (TrackTab) Action() string        { return ActionTrackTab }

func (SaveContent) sealed()     {}
func (UpdateMemory) sealed()    {}
func (DeleteMemory) sealed()    {}
func (GetStats) sealed()        {}
func (ClearAllData) sealed()    {}
func (GetSavedContent) sealed() {}
func (GetData) sealed()         {}
func (Search) sealed()          {}
func (TrackTab) sealed()        {}

// Decode parses an envelope of the form {"action": "...", ...fields}.
func Decode(raw []byte) (Request, error) {
	var env struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", memory.ErrMalformedInput, err)
	}
	return DecodeAction(env.Action, raw)
}

// DecodeAction parses raw as the request type named by action.
func DecodeAction(action string, raw []byte) (Request, error) {
	var req Request
	var err error
	switch action {
	case ActionSaveContent:
		req, err = unmarshal[SaveContent](raw)
	case ActionUpdateMemory:
		req, err = unmarshal[UpdateMemory](raw)
	case ActionDeleteMemory:
		req, err = unmarshal[DeleteMemory](raw)
	case ActionGetStats:
		req = GetStats{}
	case ActionClearAllData:
		req = ClearAllData{}
	case ActionGetSavedContent:
		req = GetSavedContent{}
	case ActionGetData:
		req = GetData{}
	case ActionSearch:
		req, err = unmarshal[Search](raw)
	case ActionTrackTab:
		req, err = unmarshal[TrackTab](raw)
	case "":
		return nil, fmt.Errorf("%w: missing action", memory.ErrMalformedInput)
	default:
		return nil, fmt.Errorf("%w: unknown action %q", memory.ErrMalformedInput, action)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", memory.ErrMalformedInput, action, err)
	}
	return req, nil
}

func unmarshal[T Request](raw []byte) (T, error) {
	var v T
	if len(raw) == 0 {
		return v, nil
	}
	err := json.Unmarshal(raw, &v)
	return v, err
}
