package tablestore

import "context"

// ConsistencyLevel defines which database a read may be served from.
type ConsistencyLevel int

const (
	// StrongConsistency requires reads from the primary database. This is the default
	// so a live query re-executed after a write always sees that write.
	StrongConsistency ConsistencyLevel = iota

	// EventualConsistency allows reads from a replica database when the storage has one
	// and the read is not part of a transaction.
	EventualConsistency
)

type contextKey string

// ConsistencyLevelKey is the context key used to store consistency level preferences.
const ConsistencyLevelKey contextKey = "tablestore.consistency_level"

// WithStrongConsistency returns a context that routes reads to the primary database.
//
// Example usage:
//
//	ctx = tablestore.WithStrongConsistency(ctx)
//	rows, err := prepared.ExecuteNow(ctx)
func WithStrongConsistency(ctx context.Context) context.Context {
	return context.WithValue(ctx, ConsistencyLevelKey, StrongConsistency)
}

// WithEventualConsistency returns a context that allows reads from a replica database.
// Writes and reads inside a transaction always go to the primary.
//
// Example usage:
//
//	ctx = tablestore.WithEventualConsistency(ctx)
//	count, err := prepared.ExecuteNow(ctx)
func WithEventualConsistency(ctx context.Context) context.Context {
	return context.WithValue(ctx, ConsistencyLevelKey, EventualConsistency)
}

// GetConsistencyLevel extracts the consistency level from the context, defaulting to StrongConsistency.
func GetConsistencyLevel(ctx context.Context) ConsistencyLevel {
	if level, ok := ctx.Value(ConsistencyLevelKey).(ConsistencyLevel); ok {
		return level
	}

	return StrongConsistency
}

func (c ConsistencyLevel) String() string {
	switch c {
	case StrongConsistency:
		return "strong"
	case EventualConsistency:
		return "eventual"
	default:
		return "unknown"
	}
}
