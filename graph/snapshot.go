package graph

import (
	"time"

	"github.com/edenrobotics/egograph/ego"
)

// SnapshotNode is a vertex in the visualization payload. Size is derived from
// importance; the SELF node carries the personality block.
type SnapshotNode struct {
	ID          string                 `json:"id"`
	Type        string                 `json:"type"`
	Size        float64                `json:"size"`
	Personality *ego.PersonalityVector `json:"personality,omitempty"`
	Content     string                 `json:"content"`
	Importance  float64                `json:"importance"`
}

// SnapshotLink is an edge in the visualization payload. Weight is the
// effective weight: base weight decayed by age and re-weighted by the current
// personality.
type SnapshotLink struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"weight"`
	Type   string  `json:"type"`
}

// Snapshot is the full graph state for external inspection.
type Snapshot struct {
	Nodes       []SnapshotNode        `json:"nodes"`
	Links       []SnapshotLink        `json:"links"`
	Personality ego.PersonalityVector `json:"personality"`
}

// Snapshot returns the full node/edge state under a shared lock, so it never
// observes a partially committed mutation.
func (g *Graph) Snapshot() *Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	now := time.Now()
	snap := &Snapshot{
		Nodes:       make([]SnapshotNode, 0, len(g.nodes)),
		Links:       make([]SnapshotLink, 0, len(g.edges)),
		Personality: g.personality,
	}

	for _, n := range g.nodes {
		sn := SnapshotNode{
			ID:         n.ID,
			Type:       n.NodeType,
			Content:    truncate(n.Content, 50),
			Importance: n.Importance,
		}
		switch n.NodeType {
		case NodeTypeSelf:
			sn.Size = 50
			personality := g.personality
			sn.Personality = &personality
		case NodeTypeUser:
			sn.Size = 15
		default:
			sn.Size = 10 + n.Importance*20
		}
		snap.Nodes = append(snap.Nodes, sn)
	}

	for _, e := range g.edges {
		snap.Links = append(snap.Links, SnapshotLink{
			Source: e.Source,
			Target: e.Target,
			Weight: g.decayedWeight(e, now),
			Type:   e.EdgeType,
		})
	}
	return snap
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
