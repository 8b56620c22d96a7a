package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"qcluster/logging"
)

// Responder is the inbound side of the transport: an HTTP server
// dispatching the two Raft RPCs plus the health probe to callbacks
// registered by the Consensus Engine.
type Responder struct {
	mu              sync.RWMutex
	onHeartbeat     HeartbeatCallback
	onRequestVote   RequestVoteCallback
	onRegister      RegisterCallback
	logger          *logging.Logger
	server          *http.Server
	listenHost      string
	listenPort      int
	shutdownTimeout time.Duration
}

// NewResponder builds a Responder bound to listenHost:listenPort. No
// callbacks are registered yet; Start can be called before or after
// registering handlers, since registration is guarded by a mutex and
// the server won't see traffic until Start succeeds.
func NewResponder(listenHost string, listenPort int, logger *logging.Logger) *Responder {
	if logger == nil {
		logger = logging.New("transport.responder")
	}
	return &Responder{
		listenHost:      listenHost,
		listenPort:      listenPort,
		logger:          logger,
		shutdownTimeout: 2 * time.Second,
	}
}

// OnHeartbeat registers the callback invoked for POST /raft/heartbeat.
func (s *Responder) OnHeartbeat(cb HeartbeatCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onHeartbeat = cb
}

// OnRequestVote registers the callback invoked for POST /raft/request_vote.
func (s *Responder) OnRequestVote(cb RequestVoteCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRequestVote = cb
}

// OnRegister registers the callback invoked for POST /raft/register.
// Optional: if never set, the route responds 404.
func (s *Responder) OnRegister(cb RegisterCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRegister = cb
}

// Start binds the listener and begins serving in the background. It
// returns once the listener is bound; request handling continues on its
// own goroutine until Stop is called.
func (s *Responder) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", s.handlePing)
	mux.HandleFunc("/raft/heartbeat", s.handleHeartbeat)
	mux.HandleFunc("/raft/request_vote", s.handleRequestVote)
	mux.HandleFunc("/raft/register", s.handleRegister)

	addr := fmt.Sprintf("%s:%d", s.listenHost, s.listenPort)
	s.server = &http.Server{Addr: addr, Handler: mux}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("transport: failed to bind %s: %w", addr, err)
	}

	s.logger.Info("listening on %s", addr)

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts the server down.
func (s *Responder) Stop() {
	if s.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Warn("error during shutdown: %v", err)
	}
}

func (s *Responder) handlePing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}

func (s *Responder) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	data, err := decodeBody(r)
	if err != nil {
		s.logger.Debug("heartbeat: failed to decode body: %v", err)
		writeResult(w, s.logger, Fail())
		return
	}

	s.mu.RLock()
	cb := s.onHeartbeat
	s.mu.RUnlock()

	if cb == nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	writeResult(w, s.logger, cb(data))
}

func (s *Responder) handleRequestVote(w http.ResponseWriter, r *http.Request) {
	data, err := decodeBody(r)
	if err != nil {
		s.logger.Debug("request_vote: failed to decode body: %v", err)
		writeResult(w, s.logger, Fail())
		return
	}

	s.mu.RLock()
	cb := s.onRequestVote
	s.mu.RUnlock()

	if cb == nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	writeResult(w, s.logger, cb(data))
}

func (s *Responder) handleRegister(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	cb := s.onRegister
	s.mu.RUnlock()

	if cb == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	data, err := decodeBody(r)
	if err != nil {
		s.logger.Debug("register: failed to decode body: %v", err)
		writeResult(w, s.logger, Fail())
		return
	}

	writeResult(w, s.logger, cb(data))
}

func decodeBody(r *http.Request) (Payload, error) {
	defer r.Body.Close()
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return Payload{}, nil
	}
	var data Payload
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func writeResult(w http.ResponseWriter, logger *logging.Logger, result Result) {
	body, contentType, err := bodyBytes(result.Data)
	if err != nil {
		logger.Warn("failed to encode callback result: %v", err)
	}

	status := http.StatusBadRequest
	if result.Success {
		status = http.StatusOK
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
