// Package raft implements the consensus engine: a simplified Raft state
// machine (FOLLOWER/CANDIDATE/LEADER) that elects a single cluster
// leader by fanning out heartbeat and request-vote RPCs over a
// transport.Requester, and by answering the matching inbound RPCs
// through callbacks registered on a transport.Responder. It replicates
// no log and persists nothing; see the role loops in election.go for
// the per-state behavior.
package raft

import (
	"context"
	"sync"
	"time"

	"qcluster/logging"
	"qcluster/registry"
	"qcluster/transport"
)

const (
	// HeartbeatInterval is the fixed cadence at which a LEADER
	// broadcasts heartbeats to its peers.
	HeartbeatInterval = 50 * time.Millisecond

	// HeartbeatRPCTimeout bounds each individual outbound heartbeat call.
	HeartbeatRPCTimeout = 100 * time.Millisecond

	// DefaultMinTimeout and DefaultMaxTimeout bound the randomized
	// election timeout when a Config doesn't override them.
	DefaultMinTimeout = 150 * time.Millisecond
	DefaultMaxTimeout = 300 * time.Millisecond
)

// Config configures a new Engine.
type Config struct {
	SelfIdentifier string
	Registry       *registry.Registry
	Requester      transport.Caller
	MinTimeout     time.Duration
	MaxTimeout     time.Duration
	Logger         *logging.Logger
}

// Engine owns one node's election state: term, role, vote record, known
// leader, and the heartbeat signal. All mutations go through mu, so
// inbound callbacks (running on the transport's own goroutines) and the
// run loop never observe a torn transition.
type Engine struct {
	mu sync.Mutex

	term          uint64
	role          Role
	votedThisTerm bool
	knownLeader   string

	heartbeat *heartbeatSignal

	selfIdentifier string
	minTimeout     time.Duration
	maxTimeout     time.Duration

	registry  *registry.Registry
	requester transport.Caller
	logger    *logging.Logger

	cancel context.CancelFunc
}

// New builds an Engine in the initial state: term 0, FOLLOWER.
func New(cfg Config) *Engine {
	minTimeout := cfg.MinTimeout
	if minTimeout <= 0 {
		minTimeout = DefaultMinTimeout
	}
	maxTimeout := cfg.MaxTimeout
	if maxTimeout <= 0 {
		maxTimeout = DefaultMaxTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.New(cfg.SelfIdentifier)
	}

	return &Engine{
		role:           Follower,
		heartbeat:      newHeartbeatSignal(),
		selfIdentifier: cfg.SelfIdentifier,
		minTimeout:     minTimeout,
		maxTimeout:     maxTimeout,
		registry:       cfg.Registry,
		requester:      cfg.Requester,
		logger:         logger,
	}
}

// AttachHandlers registers this engine's inbound RPC callbacks on a
// Responder. Call before Responder.Start so no request races the
// registration.
func (e *Engine) AttachHandlers(r *transport.Responder) {
	r.OnHeartbeat(e.onHeartbeat)
	r.OnRequestVote(e.onRequestVote)
}

// Run drives the engine's main loop: one processState() call per
// iteration, until Shutdown is called or ctx is cancelled. It blocks
// until the loop exits, so callers typically run it in its own
// goroutine (the way the Cluster Facade does).
func (e *Engine) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()

	defer cancel()

	for {
		if ctx.Err() != nil {
			return
		}
		if e.getRole() == Terminating {
			return
		}
		e.processState(ctx)
	}
}

// Shutdown transitions the engine to TERMINATING and unblocks any
// in-flight wait so Run returns promptly.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	e.role = Terminating
	cancel := e.cancel
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// processState executes exactly one iteration of the state machine for
// whatever role the engine currently holds.
func (e *Engine) processState(ctx context.Context) {
	switch e.getRole() {
	case Follower:
		e.runFollower(ctx)
	case Candidate:
		e.runCandidate(ctx)
	case Leader:
		e.runLeader(ctx)
	}
}

// GetState returns a consistent snapshot of (term, role).
func (e *Engine) GetState() (uint64, Role) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.term, e.role
}

// IsLeader reports whether the engine currently believes itself to be
// the cluster leader.
func (e *Engine) IsLeader() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.role == Leader
}

// KnownLeader returns the identifier of the last leader whose heartbeat
// was accepted, if any.
func (e *Engine) KnownLeader() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.knownLeader == "" {
		return "", false
	}
	return e.knownLeader, true
}

func (e *Engine) getRole() Role {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.role
}
