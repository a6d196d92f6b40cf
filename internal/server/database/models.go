package database

import "time"

// Root is a registered directory that the server keeps a tree snapshot for.
type Root struct {
	Name      string
	Path      string
	Depth     int
	KeyHash   *string // nil when the root is open
	CreatedAt time.Time
}

// Lookup records a single lookup request against a root.
type Lookup struct {
	ID        int64
	RootName  string
	Query     string
	Scope     string
	Matches   int
	ErrorKind *string // nil on success
	CreatedAt time.Time
}

// Stats holds aggregate server statistics.
type Stats struct {
	TotalRoots    int64
	TotalLookups  int64
	FailedLookups int64
	LookupsToday  int64
}
