package raft

import (
	"math/rand"
	"time"

	"qcluster/transport"
)

// getTimeout samples a randomized duration uniformly from
// [minTimeout, maxTimeout]. Used both as a follower's election timeout
// and as a candidate's per-election fan-out budget.
func (e *Engine) getTimeout() time.Duration {
	e.mu.Lock()
	min, max := e.minTimeout, e.maxTimeout
	e.mu.Unlock()

	if max <= min {
		return min
	}
	spread := max - min
	return min + time.Duration(rand.Int63n(int64(spread)+1))
}

// parseBallot reports whether a RequestVote response counts as a
// granted vote: the call must have succeeded (ok) and the decoded body
// must carry vote_granted == true.
func parseBallot(ok bool, body transport.Payload) bool {
	if !ok || body == nil {
		return false
	}
	granted, _ := body["vote_granted"].(bool)
	return granted
}
