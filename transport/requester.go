package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"qcluster/logging"
)

// Requester issues the outbound RPCs a Consensus Engine needs: Ping,
// SendHeartbeat, RequestVote. Every call is bounded by its own timeout
// and never returns a network error to the caller — connection
// failures, timeouts, and non-200 responses all normalize to
// (false, nil), treating a failed RPC as "no vote" or "missed
// heartbeat" rather than a fatal error.
type Requester struct {
	client *http.Client
	logger *logging.Logger
}

// NewRequester builds a Requester. A fresh *http.Client is used so each
// call's timeout is enforced independently via context, not by a
// package-wide client timeout.
func NewRequester(logger *logging.Logger) *Requester {
	if logger == nil {
		logger = logging.New("transport.requester")
	}
	return &Requester{
		client: &http.Client{},
		logger: logger,
	}
}

// Ping probes a peer's health endpoint. Returns true iff a 200 was
// received within timeout.
func (r *Requester) Ping(ctx context.Context, host string, port int, timeout time.Duration) bool {
	ok, _ := r.do(ctx, host, port, http.MethodGet, "/ping", nil, timeout)
	return ok
}

// SendHeartbeat posts a heartbeat to a peer. A nil data map is
// normalized to {}; Go's type system rules out the "payload isn't a
// mapping at all" input-validation failure the wire contract otherwise
// has to guard against.
func (r *Requester) SendHeartbeat(ctx context.Context, host string, port int, data Payload, timeout time.Duration) (bool, Payload) {
	return r.do(ctx, host, port, http.MethodPost, "/raft/heartbeat", normalizePayload(data), timeout)
}

// RequestVote posts a vote request to a peer.
func (r *Requester) RequestVote(ctx context.Context, host string, port int, data Payload, timeout time.Duration) (bool, Payload) {
	return r.do(ctx, host, port, http.MethodPost, "/raft/request_vote", normalizePayload(data), timeout)
}

// Register posts the optional bootstrap registration RPC.
func (r *Requester) Register(ctx context.Context, host string, port int, data Payload, timeout time.Duration) (bool, Payload) {
	return r.do(ctx, host, port, http.MethodPost, "/raft/register", normalizePayload(data), timeout)
}

func (r *Requester) do(ctx context.Context, host string, port int, method, path string, data Payload, timeout time.Duration) (bool, Payload) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := fmt.Sprintf("http://%s:%d%s", host, port, path)

	var bodyReader io.Reader
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			r.logger.Debug("%s %s: failed to marshal request body: %v", method, url, err)
			return false, nil
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		r.logger.Debug("%s %s: failed to build request: %v", method, url, err)
		return false, nil
	}
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Debug("%s %s: request failed: %v", method, url, err)
		return false, nil
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		r.logger.Debug("%s %s: failed to read response body: %v", method, url, err)
		return false, nil
	}

	if resp.StatusCode != http.StatusOK {
		r.logger.Debug("%s %s: non-200 response: %d", method, url, resp.StatusCode)
		return false, nil
	}

	if len(raw) == 0 {
		return true, Payload{}
	}

	var decoded Payload
	if err := json.Unmarshal(raw, &decoded); err != nil {
		// Not every success body is JSON (e.g. "pong" on /ping); that's
		// fine, ok is still true, the body just carries no structured data.
		return true, nil
	}

	return true, decoded
}
