package store

// EpisodicMemory represents a low-priority record for an event that did
// not meet the graph acceptance threshold. Entries decay and are pruned;
// they are searchable but never traversed as graph edges.
type EpisodicMemory struct {
	ID         int64
	Content    string
	NodeType   string
	Importance float64
	UserID     *string
	CreatedTs  int64
}

// FindEpisodicMemory specifies the conditions for finding episodic memories.
type FindEpisodicMemory struct {
	ID           *int64
	UserID       *string
	Query        *string // substring match on content
	CreatedAfter int64   // only entries created after this unix timestamp
	Limit        int
	Offset       int
}

// DeleteEpisodicMemory specifies the conditions for deleting episodic memories.
type DeleteEpisodicMemory struct {
	ID            *int64
	CreatedBefore int64 // delete entries created before this unix timestamp
}
