package raft

import "qcluster/transport"

// onHeartbeat is the inbound /raft/heartbeat handler. Whether a heartbeat
// is honored depends on the engine's current role and how the sender's
// term compares to ours.
func (e *Engine) onHeartbeat(data transport.Payload) transport.Result {
	leaderID, _ := data["identifier"].(string)
	leaderTerm := termField(data, -1)

	e.mu.Lock()
	defer e.mu.Unlock()

	accept := false
	switch e.role {
	case Candidate:
		accept = leaderTerm >= int64(e.term)
	case Leader:
		accept = leaderTerm > int64(e.term)
	case Follower:
		accept = leaderTerm >= int64(e.term)
	}

	if !accept {
		return transport.Fail()
	}

	if leaderTerm > int64(e.term) {
		e.votedThisTerm = false
	}
	e.role = Follower
	e.knownLeader = leaderID
	e.term = uint64(leaderTerm)
	e.heartbeat.Set()

	return transport.Ok(transport.Payload{"accepted": true})
}

// onRequestVote is the inbound /raft/request_vote handler. A strictly
// higher term always wins the engine's vote for that term; otherwise
// the vote is granted at most once per term.
func (e *Engine) onRequestVote(data transport.Payload) transport.Result {
	candidateID, _ := data["identifier"].(string)
	candidateTerm := termField(data, -1)

	e.mu.Lock()
	defer e.mu.Unlock()

	if candidateTerm > int64(e.term) {
		e.term = uint64(candidateTerm)
		e.role = Follower
		e.votedThisTerm = true
		e.logger.Debug("granting vote to %s for new term %d", candidateID, candidateTerm)
		return transport.Ok(transport.Payload{"vote_granted": true})
	}

	if candidateTerm < int64(e.term) || e.votedThisTerm {
		return transport.Ok(transport.Payload{"vote_granted": false})
	}

	e.votedThisTerm = true
	e.logger.Debug("granting vote to %s for term %d", candidateID, candidateTerm)
	return transport.Ok(transport.Payload{"vote_granted": true})
}

// termField reads a numeric "term" field out of a decoded JSON payload,
// falling back to def when absent or not a number. JSON numbers decode
// to float64, but int/int64/uint64 are accepted too since callers in
// this package pass a live uint64 term without round-tripping it
// through JSON first.
func termField(data transport.Payload, def int64) int64 {
	raw, ok := data["term"]
	if !ok {
		return def
	}
	switch v := raw.(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	case uint64:
		return int64(v)
	default:
		return def
	}
}
