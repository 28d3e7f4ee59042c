package store

// MemoryNode is the persisted form of a committed graph memory.
// Importance is fixed at creation time and never rewritten.
type MemoryNode struct {
	ID         string
	Content    string
	NodeType   string
	Importance float64
	UserID     *string // nil for global memories
	CreatedTs  int64
}

// FindMemoryNode specifies the conditions for finding memory nodes.
type FindMemoryNode struct {
	ID            *string
	UserID        *string
	NodeType      *string
	MinImportance *float64
	Limit         int
}

// Edge is a persisted directed, typed relation between two graph nodes.
type Edge struct {
	ID        int64
	Source    string
	Target    string
	EdgeType  string
	Weight    float64
	CreatedTs int64
	UpdatedTs int64
}

// FindEdge specifies the conditions for finding edges.
type FindEdge struct {
	Source *string
	Target *string
}

// PersonalityTrait is one persisted Big-Five trait value on the SELF node.
type PersonalityTrait struct {
	Trait     string
	Value     float64
	UpdatedTs int64
}
