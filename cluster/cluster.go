// Package cluster wires the Peer Registry, Transport, and Consensus
// Engine into the host-facing facade: Cluster. A host service embeds
// one Cluster per process and asks it IsLeader()/LeaderInfo() to decide
// how to route or redirect its own traffic.
package cluster

import (
	"context"
	"sync"
	"time"

	"qcluster/logging"
	"qcluster/raft"
	"qcluster/registry"
	"qcluster/transport"
)

// Config is the full construction configuration for a Cluster node.
type Config struct {
	Identifier string
	ListenHost string
	ListenPort int
	Peers      []registry.Descriptor
	MinTimeout float64 // seconds; 0 means raft.DefaultMinTimeout
	MaxTimeout float64 // seconds; 0 means raft.DefaultMaxTimeout
}

// Cluster is the host-facing facade over the election core.
type Cluster struct {
	identifier string
	registry   *registry.Registry
	requester  *transport.Requester
	responder  *transport.Responder
	engine     *raft.Engine
	logger     *logging.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New builds a Cluster from Config. It does not start anything; call
// Start to bind the transport's listener and launch the engine's loop.
func New(cfg Config) *Cluster {
	logger := logging.New(cfg.Identifier)

	reg := registry.New(cfg.Peers, logger)
	requester := transport.NewRequester(logger.WithFields(logging.Fields{"role": "requester"}))
	responder := transport.NewResponder(cfg.ListenHost, cfg.ListenPort, logger.WithFields(logging.Fields{"role": "responder"}))

	engine := raft.New(raft.Config{
		SelfIdentifier: cfg.Identifier,
		Registry:       reg,
		Requester:      requester,
		MinTimeout:     secondsToDuration(cfg.MinTimeout),
		MaxTimeout:     secondsToDuration(cfg.MaxTimeout),
		Logger:         logger.WithFields(logging.Fields{"role": "engine"}),
	})
	engine.AttachHandlers(responder)

	// The register RPC is scaffolding, not part of the election core:
	// the peer set is fixed at construction (registry.Registry is
	// immutable), so this never mutates membership. It still round-trips
	// a real response instead of a bare 404, in case a bootstrap script
	// out there depends on the route existing.
	responder.OnRegister(func(data transport.Payload) transport.Result {
		logger.Warn("ignoring /raft/register from %v: peer set is fixed at construction", data["identifier"])
		return transport.Ok(transport.Payload{"acknowledged": true})
	})

	return &Cluster{
		identifier: cfg.Identifier,
		registry:   reg,
		requester:  requester,
		responder:  responder,
		engine:     engine,
		logger:     logger,
	}
}

// Start binds the transport's listener and launches the engine's run
// loop in the background. It returns once the listener is bound.
func (c *Cluster) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}

	if err := c.responder.Start(); err != nil {
		c.mu.Unlock()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.running = true
	c.mu.Unlock()

	go func() {
		defer close(c.done)
		c.engine.Run(runCtx)
	}()

	c.logger.Info("cluster node %q started (%d peers known)", c.identifier, c.registry.Count())
	return nil
}

// Shutdown stops the engine's loop and the transport's listener, and
// blocks until both have stopped.
func (c *Cluster) Shutdown() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	cancel := c.cancel
	done := c.done
	c.mu.Unlock()

	c.engine.Shutdown()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	c.responder.Stop()
}

// IsLeader reports whether this node currently believes itself to be
// the cluster leader.
func (c *Cluster) IsLeader() bool {
	return c.engine.IsLeader()
}

// LeaderInfo returns the Peer describing the last accepted leader, if
// one is known and present in the registry. It returns (Peer{}, false)
// when no leader is known, or when the known leader is this node itself
// and this node is not present in its own peer registry (the registry
// models peers, not self).
func (c *Cluster) LeaderInfo() (registry.Peer, bool) {
	id, ok := c.engine.KnownLeader()
	if !ok {
		return registry.Peer{}, false
	}
	return c.registry.FindByIdentifier(id)
}

// Term returns the engine's current term, mostly useful for diagnostics.
func (c *Cluster) Term() uint64 {
	term, _ := c.engine.GetState()
	return term
}

func secondsToDuration(seconds float64) time.Duration {
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}
