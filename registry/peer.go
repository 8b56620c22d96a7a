// Package registry holds the immutable set of peers a cluster node knows
// about at startup.
package registry

import "fmt"

// Peer describes one other node in the cluster. Peers are immutable once
// constructed; the metadata map is copied in so a caller mutating their
// own map afterwards cannot reach back into the Peer.
type Peer struct {
	Host       string
	Port       int
	Identifier string
	Metadata   map[string]any
}

// NewPeer validates a raw descriptor and returns a Peer. Construction
// fails if Host or Identifier is empty or Port is not positive.
func NewPeer(host string, port int, identifier string, metadata map[string]any) (Peer, error) {
	if host == "" {
		return Peer{}, fmt.Errorf("peer %q: host must not be empty", identifier)
	}
	if port <= 0 {
		return Peer{}, fmt.Errorf("peer %q: port must be positive, got %d", identifier, port)
	}
	if identifier == "" {
		return Peer{}, fmt.Errorf("peer at %s:%d: identifier must not be empty", host, port)
	}

	md := make(map[string]any, len(metadata))
	for k, v := range metadata {
		md[k] = v
	}

	return Peer{
		Host:       host,
		Port:       port,
		Identifier: identifier,
		Metadata:   md,
	}, nil
}

func (p Peer) String() string {
	return fmt.Sprintf("%s (%s:%d)", p.Identifier, p.Host, p.Port)
}
