package registry

import "qcluster/logging"

// Descriptor is a raw, unvalidated peer entry as it arrives from
// configuration.
type Descriptor struct {
	Host       string
	Port       int
	Identifier string
	Metadata   map[string]any
}

// Registry is the immutable set of peers a node was configured with.
// It is built once at startup by New and never mutated afterward.
type Registry struct {
	peers []Peer
	index map[string]int
}

// New validates each descriptor and builds a Registry from the ones that
// pass. An invalid descriptor or a duplicate identifier is logged and
// dropped rather than failing construction, so one bad config entry
// doesn't crash the process over cluster membership data.
func New(descriptors []Descriptor, logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.New("registry")
	}

	r := &Registry{
		peers: make([]Peer, 0, len(descriptors)),
		index: make(map[string]int, len(descriptors)),
	}

	for _, d := range descriptors {
		peer, err := NewPeer(d.Host, d.Port, d.Identifier, d.Metadata)
		if err != nil {
			logger.Warn("dropping invalid peer descriptor: %v", err)
			continue
		}
		if _, exists := r.index[peer.Identifier]; exists {
			logger.Warn("dropping duplicate peer identifier %q (%s:%d)", peer.Identifier, peer.Host, peer.Port)
			continue
		}
		r.index[peer.Identifier] = len(r.peers)
		r.peers = append(r.peers, peer)
	}

	return r
}

// Peers returns the registry's peers in construction order. The
// returned slice is a copy; mutating it does not affect the registry.
func (r *Registry) Peers() []Peer {
	out := make([]Peer, len(r.peers))
	copy(out, r.peers)
	return out
}

// Count returns the number of peers in the registry, O(1).
func (r *Registry) Count() int {
	return len(r.peers)
}

// FindByIdentifier looks up a peer by identifier through the registry's
// identifier index (a map lookup).
func (r *Registry) FindByIdentifier(id string) (Peer, bool) {
	idx, ok := r.index[id]
	if !ok {
		return Peer{}, false
	}
	return r.peers[idx], true
}
