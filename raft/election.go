package raft

import (
	"context"
	"sync"
	"time"

	"qcluster/registry"
	"qcluster/transport"
)

// runFollower waits for a heartbeat up to a randomized election
// timeout. If one arrives, the signal is consumed and the engine stays
// FOLLOWER. If the timer expires first, the engine becomes a CANDIDATE
// for the next term.
func (e *Engine) runFollower(ctx context.Context) {
	timeout := e.getTimeout()

	if e.heartbeat.Wait(ctx, timeout) {
		e.heartbeat.Clear()
		return
	}

	if ctx.Err() != nil {
		return
	}

	e.mu.Lock()
	if e.role != Follower {
		e.mu.Unlock()
		return
	}
	e.term++
	e.knownLeader = ""
	e.role = Candidate
	term := e.term
	e.mu.Unlock()

	e.logger.Debug("election timeout, becoming candidate for term %d", term)
}

// runCandidate runs one election attempt for the engine's current term:
// fan out RequestVote to every peer, wait until every call has answered
// or timed out (never cut short by an early majority), then tally. A lost
// election also sleeps out the rest of the timeout before retrying.
func (e *Engine) runCandidate(ctx context.Context) {
	e.mu.Lock()
	term := e.term
	e.votedThisTerm = true
	e.mu.Unlock()

	timeout := e.getTimeout()
	tStart := time.Now()
	e.heartbeat.Clear()

	peers := e.registry.Peers()
	e.logger.Info("starting election for term %d (%d peers)", term, len(peers))

	ballots := make([]bool, len(peers))
	var wg sync.WaitGroup
	for i, peer := range peers {
		wg.Add(1)
		go func(i int, peer registry.Peer) {
			defer wg.Done()
			ok, body := e.requester.RequestVote(ctx, peer.Host, peer.Port, transport.Payload{
				"identifier": e.selfIdentifier,
				"term":       term,
			}, timeout)
			ballots[i] = parseBallot(ok, body)
		}(i, peer)
	}
	wg.Wait()

	// The fan-out window may have let a concurrent inbound heartbeat or
	// a higher-term vote grant move us out of CANDIDATE entirely. Either
	// signal aborts the tally without promoting or retrying — the next
	// loop iteration re-evaluates whatever role we landed in.
	if e.heartbeat.IsSet() || e.getRole() != Candidate {
		e.logger.Debug("abandoning election tally for term %d: preempted", term)
		return
	}

	votes := 1
	for _, granted := range ballots {
		if granted {
			votes++
		}
	}
	ratio := float64(votes) / float64(len(peers)+1)

	if ratio > 0.5 {
		e.mu.Lock()
		if e.role == Candidate && e.term == term {
			e.role = Leader
			e.knownLeader = e.selfIdentifier
		}
		e.mu.Unlock()
		e.logger.Info("won election for term %d (%d/%d votes)", term, votes, len(peers)+1)
		return
	}

	remaining := timeout - time.Since(tStart)
	if remaining > 0 {
		sleepCtx(ctx, remaining)
	}

	e.mu.Lock()
	if e.role == Candidate && e.term == term {
		e.term++
	}
	e.mu.Unlock()
	e.logger.Debug("lost election for term %d (%d/%d votes), retrying", term, votes, len(peers)+1)
}

// runLeader broadcasts one round of heartbeats to every peer and sleeps
// out the remainder of the fixed heartbeat interval. A LEADER only ever
// steps down via an inbound callback observing a higher term.
func (e *Engine) runLeader(ctx context.Context) {
	e.mu.Lock()
	term := e.term
	e.mu.Unlock()

	tStart := time.Now()
	peers := e.registry.Peers()

	var wg sync.WaitGroup
	for _, peer := range peers {
		wg.Add(1)
		go func(peer registry.Peer) {
			defer wg.Done()
			e.requester.SendHeartbeat(ctx, peer.Host, peer.Port, transport.Payload{
				"identifier": e.selfIdentifier,
				"term":       term,
			}, HeartbeatRPCTimeout)
		}(peer)
	}
	wg.Wait()

	remaining := HeartbeatInterval - time.Since(tStart)
	if remaining > 0 {
		sleepCtx(ctx, remaining)
	}
}

// sleepCtx sleeps for d or until ctx is cancelled, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
