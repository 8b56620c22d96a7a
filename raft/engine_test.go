package raft

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qcluster/registry"
	"qcluster/transport"
)

func newTestEngine(t *testing.T, self string, peerIDs []string, caller *fakeCaller, minTimeout, maxTimeout time.Duration) *Engine {
	t.Helper()

	descriptors := make([]registry.Descriptor, len(peerIDs))
	for i, id := range peerIDs {
		descriptors[i] = registry.Descriptor{Host: id, Port: 1, Identifier: id}
	}
	reg := registry.New(descriptors, nil)

	return New(Config{
		SelfIdentifier: self,
		Registry:       reg,
		Requester:      caller,
		MinTimeout:     minTimeout,
		MaxTimeout:     maxTimeout,
	})
}

func TestInitialState(t *testing.T) {
	e := newTestEngine(t, "a", nil, newFakeCaller(), 150*time.Millisecond, 300*time.Millisecond)
	term, role := e.GetState()
	assert.Equal(t, uint64(0), term)
	assert.Equal(t, Follower, role)
	assert.False(t, e.IsLeader())
}

// Scenario 1: alone with no peers.
func TestAloneBecomesLeader(t *testing.T) {
	e := newTestEngine(t, "solo", nil, newFakeCaller(), 50*time.Millisecond, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	require.Eventually(t, e.IsLeader, 300*time.Millisecond, 5*time.Millisecond)
	term, role := e.GetState()
	assert.Equal(t, uint64(1), term)
	assert.Equal(t, Leader, role)
}

// Scenario 2: unanimous quorum elects the candidate in one round.
func TestCandidateWinsUnanimousVote(t *testing.T) {
	caller := newFakeCaller()
	caller.voteGrant["b"] = true
	caller.voteGrant["c"] = true
	caller.voteGrant["d"] = true

	e := newTestEngine(t, "a", []string{"b", "c", "d"}, caller, 40*time.Millisecond, 40*time.Millisecond)

	e.mu.Lock()
	e.role = Candidate
	e.term = 1
	e.mu.Unlock()

	e.runCandidate(context.Background())

	term, role := e.GetState()
	assert.Equal(t, Leader, role)
	assert.Equal(t, uint64(1), term)
	leader, ok := e.KnownLeader()
	require.True(t, ok)
	assert.Equal(t, "a", leader)
}

// Scenario 3: split vote, candidate retries with an incremented term.
func TestCandidateLosesSplitVoteAndRetries(t *testing.T) {
	caller := newFakeCaller()
	caller.voteGrant["b"] = true
	caller.voteGrant["c"] = false
	caller.voteGrant["d"] = false

	e := newTestEngine(t, "a", []string{"b", "c", "d"}, caller, 40*time.Millisecond, 40*time.Millisecond)

	e.mu.Lock()
	e.role = Candidate
	e.term = 1
	e.mu.Unlock()

	e.runCandidate(context.Background())

	term, role := e.GetState()
	assert.Equal(t, Candidate, role)
	assert.Equal(t, uint64(2), term)
}

// Scenario 4: a concurrent valid heartbeat cancels an in-flight election.
// Peer "b" answers the vote request by first delivering a heartbeat for
// the same term through the engine's own inbound callback, simulating a
// message that arrives while the fan-out is still in flight.
func TestConcurrentHeartbeatCancelsElection(t *testing.T) {
	e := newTestEngine(t, "a", []string{"b", "c"}, nil, 40*time.Millisecond, 40*time.Millisecond)

	caller := newFakeCaller()
	caller.onRequestVote = func(host string, term any) (bool, transport.Payload) {
		if host == "b" {
			e.onHeartbeat(transport.Payload{"identifier": "b", "term": term})
		}
		return true, transport.Payload{"vote_granted": true}
	}
	e.requester = caller

	e.mu.Lock()
	e.role = Candidate
	e.term = 4
	e.mu.Unlock()

	e.runCandidate(context.Background())

	term, role := e.GetState()
	assert.Equal(t, Follower, role)
	assert.Equal(t, uint64(4), term)
	leader, ok := e.KnownLeader()
	require.True(t, ok)
	assert.Equal(t, "b", leader)
}

// Scenario 5: a higher term always wins, even against a sitting leader.
func TestHigherTermAlwaysWins(t *testing.T) {
	e := newTestEngine(t, "a", []string{"b"}, newFakeCaller(), 150*time.Millisecond, 300*time.Millisecond)

	e.mu.Lock()
	e.role = Leader
	e.term = 5
	e.votedThisTerm = true
	e.mu.Unlock()

	result := e.onHeartbeat(transport.Payload{"identifier": "b", "term": float64(7)})
	assert.True(t, result.Success)

	term, role := e.GetState()
	assert.Equal(t, uint64(7), term)
	assert.Equal(t, Follower, role)

	e.mu.Lock()
	voted := e.votedThisTerm
	e.mu.Unlock()
	assert.False(t, voted)
}

// Scenario 6: a follower grants a new-term vote even though it already
// voted in a prior term.
func TestVotesOnNewTermEvenIfAlreadyVoted(t *testing.T) {
	e := newTestEngine(t, "a", nil, newFakeCaller(), 150*time.Millisecond, 300*time.Millisecond)

	e.mu.Lock()
	e.role = Follower
	e.term = 86
	e.votedThisTerm = true
	e.mu.Unlock()

	result := e.onRequestVote(transport.Payload{"identifier": "c", "term": float64(87)})
	require.True(t, result.Success)
	body := result.Data.(transport.Payload)
	assert.Equal(t, true, body["vote_granted"])

	term, role := e.GetState()
	assert.Equal(t, uint64(87), term)
	assert.Equal(t, Follower, role)

	e.mu.Lock()
	voted := e.votedThisTerm
	e.mu.Unlock()
	assert.True(t, voted)
}

func TestRequestVote_DeniesLowerTermAndDoubleVote(t *testing.T) {
	e := newTestEngine(t, "a", nil, newFakeCaller(), 150*time.Millisecond, 300*time.Millisecond)

	e.mu.Lock()
	e.term = 10
	e.mu.Unlock()

	result := e.onRequestVote(transport.Payload{"identifier": "x", "term": float64(9)})
	body := result.Data.(transport.Payload)
	assert.Equal(t, false, body["vote_granted"])

	result = e.onRequestVote(transport.Payload{"identifier": "y", "term": float64(10)})
	body = result.Data.(transport.Payload)
	assert.Equal(t, true, body["vote_granted"])

	result = e.onRequestVote(transport.Payload{"identifier": "z", "term": float64(10)})
	body = result.Data.(transport.Payload)
	assert.Equal(t, false, body["vote_granted"])
}

func TestParseBallot(t *testing.T) {
	assert.True(t, parseBallot(true, transport.Payload{"vote_granted": true}))
	assert.False(t, parseBallot(false, transport.Payload{"vote_granted": true}))
	assert.False(t, parseBallot(true, nil))
	assert.False(t, parseBallot(true, transport.Payload{"vote_granted": false}))
	assert.False(t, parseBallot(true, transport.Payload{}))
}

func TestGetTimeoutWithinBounds(t *testing.T) {
	e := newTestEngine(t, "a", nil, newFakeCaller(), 150*time.Millisecond, 300*time.Millisecond)
	for i := 0; i < 200; i++ {
		d := e.getTimeout()
		assert.GreaterOrEqual(t, d, 150*time.Millisecond)
		assert.LessOrEqual(t, d, 300*time.Millisecond)
	}
}

func TestLeaderSendsHeartbeatToEveryPeer(t *testing.T) {
	caller := newFakeCaller()
	e := newTestEngine(t, "a", []string{"b", "c", "d"}, caller, 150*time.Millisecond, 300*time.Millisecond)

	e.mu.Lock()
	e.role = Leader
	e.term = 3
	e.mu.Unlock()

	e.runLeader(context.Background())
	assert.Equal(t, 3, caller.heartbeatCount())
}

func TestShutdownStopsRunLoop(t *testing.T) {
	e := newTestEngine(t, "a", nil, newFakeCaller(), 20*time.Millisecond, 20*time.Millisecond)

	done := make(chan struct{})
	go func() {
		e.Run(context.Background())
		close(done)
	}()

	// let it run at least one state transition before stopping it
	time.Sleep(30 * time.Millisecond)
	e.Shutdown()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Shutdown")
	}

	_, role := e.GetState()
	assert.Equal(t, Terminating, role)
}
