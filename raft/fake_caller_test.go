package raft

import (
	"context"
	"sync"
	"time"

	"qcluster/transport"
)

// fakeCaller is a scriptable transport.Caller used to drive election
// logic deterministically, without binding real sockets.
type fakeCaller struct {
	mu sync.Mutex

	// voteGrant, when set, decides the outcome of every RequestVote
	// call keyed by peer host (the peer's identifier is passed as host
	// in these tests for convenience).
	voteGrant map[string]bool
	// voteOK overrides ok for a given host; absent means true.
	voteOK map[string]bool
	// heartbeats records every SendHeartbeat invocation.
	heartbeats []string
	// onRequestVote, if set, is called synchronously for every vote
	// request instead of consulting voteGrant/voteOK.
	onRequestVote func(host string, term any) (bool, transport.Payload)
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{
		voteGrant: make(map[string]bool),
		voteOK:    make(map[string]bool),
	}
}

func (f *fakeCaller) Ping(ctx context.Context, host string, port int, timeout time.Duration) bool {
	return true
}

func (f *fakeCaller) SendHeartbeat(ctx context.Context, host string, port int, data transport.Payload, timeout time.Duration) (bool, transport.Payload) {
	f.mu.Lock()
	f.heartbeats = append(f.heartbeats, host)
	f.mu.Unlock()
	return true, transport.Payload{}
}

func (f *fakeCaller) RequestVote(ctx context.Context, host string, port int, data transport.Payload, timeout time.Duration) (bool, transport.Payload) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.onRequestVote != nil {
		return f.onRequestVote(host, data["term"])
	}

	ok := true
	if v, set := f.voteOK[host]; set {
		ok = v
	}
	granted := f.voteGrant[host]
	return ok, transport.Payload{"vote_granted": granted}
}

func (f *fakeCaller) Register(ctx context.Context, host string, port int, data transport.Payload, timeout time.Duration) (bool, transport.Payload) {
	return true, transport.Payload{}
}

func (f *fakeCaller) heartbeatCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.heartbeats)
}
