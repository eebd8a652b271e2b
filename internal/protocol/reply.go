package protocol

import (
	"encoding/json"

	"meypark-backend/internal/apperr"
	"meypark-backend/internal/model"
)

// Outcome is what handling one message produces. Nil fields are not sent.
type Outcome struct {
	Reply     any
	Broadcast any
}

// Result is a typed response such as {"type":"zone_updated","success":true,"zone":{...}}.
// Fields are flattened next to type and success. Kind classifies a failure and
// is not serialized.
type Result struct {
	Type    string
	Success bool
	Error   string
	Kind    apperr.Kind
	Fields  map[string]any
}

// MarshalJSON flattens Fields into the top-level object.
func (r Result) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+3)
	for k, v := range r.Fields {
		out[k] = v
	}
	out["type"] = r.Type
	out["success"] = r.Success
	if r.Error != "" {
		out["error"] = r.Error
	}
	return json.Marshal(out)
}

// OK builds a successful result.
func OK(typ string, fields map[string]any) Result {
	return Result{Type: typ, Success: true, Fields: fields}
}

// Fail builds a failed result carrying the client-safe text of err.
func Fail(typ string, err error) Result {
	return Result{Type: typ, Success: false, Error: apperr.PublicMessage(err), Kind: apperr.KindOf(err)}
}

// Notice is a message without a success flag, used for protocol errors.
type Notice struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ErrorNotice reports a frame the server could not handle.
func ErrorNotice(msg string) Notice {
	return Notice{Type: "error", Message: msg}
}

// FullData carries the whole state snapshot.
type FullData struct {
	Type string          `json:"type"`
	Data *model.Snapshot `json:"data"`
}

func NewFullData(snap *model.Snapshot) FullData {
	return FullData{Type: "full_data", Data: snap}
}

// Command is forwarded to the kiosk bound to a meter.
type Command struct {
	Type    string          `json:"type"`
	MeterID string          `json:"meterId"`
	Command string          `json:"command"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func NewCommand(meterID, command string, data json.RawMessage) Command {
	return Command{Type: "command", MeterID: meterID, Command: command, Data: data}
}
