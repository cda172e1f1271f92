package websocket

import (
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/sightline/culling"
	"github.com/segmentio/encoding/json"
)

const (
	ErrTypeInvalidMsg = "invalid_msg"
	ErrTypeUnknownMsg = "unknown_msg"
)

type MsgType string

const (
	// Sent by clients to measure latency. Answered with a pong.
	MsgTypePing MsgType = "ping"
	MsgTypePong MsgType = "pong"

	// Sent periodically by the server with the current pass tick.
	MsgTypeSyncClock MsgType = "sync_clock"

	// Sent by clients to get the render state of every renderer. Answered
	// with a snapshot.
	MsgTypeSnapshotRequest MsgType = "snapshot_request"
	MsgTypeSnapshot        MsgType = "snapshot"

	// Sent by the server after each culling pass that changed a render state.
	MsgTypePass MsgType = "pass"

	MsgTypeError MsgType = "error"
)

// Msg is a JSON message exchanged with a stream client.
type Msg struct {
	Type      MsgType         `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID uint32          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMsg creates a message with data encoded as JSON.
func NewMsg(msgType MsgType, requestID uint32, data any) (Msg, error) {
	msg := Msg{
		Type:      msgType,
		Timestamp: time.Now(),
		RequestID: requestID,
	}

	if data == nil {
		return msg, nil
	}

	b, err := json.Marshal(data)
	if err != nil {
		return Msg{}, errors.New("encoding message data failed").
			WithType(ErrTypeInvalidMsg).
			WithTag("msg_type", msgType).
			Wrap(err)
	}
	msg.Data = b
	return msg, nil
}

// DataTo decodes the message data into v.
func (m Msg) DataTo(v any) error {
	if len(m.Data) == 0 {
		return nil
	}

	if err := json.Unmarshal(m.Data, v); err != nil {
		return errors.New("decoding message data failed").
			WithType(ErrTypeInvalidMsg).
			WithTag("msg_type", m.Type).
			Wrap(err)
	}
	return nil
}

func (m Msg) TypeString() string {
	if m.Type == "" {
		return "unknown"
	}
	return string(m.Type)
}

// PassData is the data of a pass message.
type PassData struct {
	Tick       uint64                `json:"tick"`
	DurationMS float64               `json:"duration_ms"`
	Counts     map[string]int        `json:"counts"`
	Skipped    int                   `json:"skipped"`
	Changes    []culling.StateChange `json:"changes"`
}

func newPassData(res culling.PassResult) PassData {
	counts := make(map[string]int, len(res.Counts))
	for state, count := range res.Counts {
		counts[state.String()] = count
	}

	return PassData{
		Tick:       res.Tick,
		DurationMS: float64(res.Duration) / float64(time.Millisecond),
		Counts:     counts,
		Skipped:    res.Skipped,
		Changes:    res.Changes,
	}
}

type SyncClockData struct {
	Tick uint64 `json:"tick"`
}

type ErrorData struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Sender sends a message and returns the number of bytes written.
type Sender func(Msg) (int, error)

// Receiver waits for a message and returns it with the number of bytes read.
type Receiver func() (Msg, int, error)

// ResponseSender queues messages to be sent to a client.
type ResponseSender interface {
	SendMsg(Msg)
}
