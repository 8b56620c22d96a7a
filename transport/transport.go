// Package transport carries the election core's RPCs between nodes:
// an outbound Requester and an inbound Responder, split so the Engine
// never has to know which socket owns which direction.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Result is the normalized shape every inbound RPC callback returns to
// the Responder: a success flag plus an arbitrary payload. Nothing
// downstream of a callback ever branches on what shape the callback
// returned; only the payload's type decides how the body is encoded.
type Result struct {
	Success bool
	Data    any
}

// Ok builds a successful Result carrying data.
func Ok(data any) Result { return Result{Success: true, Data: data} }

// Fail builds a failed Result with no payload.
func Fail() Result { return Result{Success: false} }

// FromBool adapts a bare bool return into a Result: true becomes
// Ok(nil), false becomes Fail().
func FromBool(ok bool) Result { return Result{Success: ok} }

// Payload is the decoded JSON body of an inbound request, or the body
// about to be encoded for an outbound one.
type Payload = map[string]any

// Caller is the outbound RPC surface a Consensus Engine needs. It's
// satisfied by *Requester; tests substitute a fake to drive election
// logic without binding real sockets.
type Caller interface {
	Ping(ctx context.Context, host string, port int, timeout time.Duration) bool
	SendHeartbeat(ctx context.Context, host string, port int, data Payload, timeout time.Duration) (bool, Payload)
	RequestVote(ctx context.Context, host string, port int, data Payload, timeout time.Duration) (bool, Payload)
	Register(ctx context.Context, host string, port int, data Payload, timeout time.Duration) (bool, Payload)
}

// HeartbeatCallback handles a decoded /raft/heartbeat body.
type HeartbeatCallback func(data Payload) Result

// RequestVoteCallback handles a decoded /raft/request_vote body.
type RequestVoteCallback func(data Payload) Result

// RegisterCallback handles a decoded /raft/register body. Optional
// scaffolding for bootstrap-time peer registration.
type RegisterCallback func(data Payload) Result

// normalizePayload turns a nil payload into an empty map, matching the
// "none is normalized to {}" rule for outbound heartbeat/vote bodies.
func normalizePayload(data Payload) Payload {
	if data == nil {
		return Payload{}
	}
	return data
}

// bodyBytes renders a Result's Data field as a response body: JSON if
// it's a map or another JSON-marshalable non-string value, the string
// itself as text for a string, text of its string form otherwise.
func bodyBytes(data any) ([]byte, string, error) {
	if data == nil {
		return []byte{}, "text/plain; charset=utf-8", nil
	}
	switch v := data.(type) {
	case Payload:
		b, err := json.Marshal(v)
		return b, "application/json", err
	case string:
		return []byte(v), "text/plain; charset=utf-8", nil
	default:
		b, err := json.Marshal(v)
		if err == nil {
			return b, "application/json", nil
		}
		return []byte(fmt.Sprint(v)), "text/plain; charset=utf-8", nil
	}
}
