package audit

import "context"

// PartitionStore is the append-only log store behind the trail. One partition
// per UTC calendar day keeps every file operation bounded and scopes both
// corruption and retention to a single day's records.
//
// Implementations must serialize appends within a partition and make Replace
// atomic with respect to concurrent readers and appenders.
type PartitionStore interface {
	// Append adds one record line to a partition, creating it if needed.
	Append(ctx context.Context, partition string, line []byte) error

	// Partitions lists existing partition keys in unspecified order.
	Partitions(ctx context.Context) ([]string, error)

	// ReadLines returns every record line in a partition. A missing
	// partition yields no lines and no error. Readers may observe a
	// torn trailing line during a concurrent append; callers skip
	// unparseable lines.
	ReadLines(ctx context.Context, partition string) ([][]byte, error)

	// Replace atomically rewrites a partition with the given lines.
	// An empty set removes the partition.
	Replace(ctx context.Context, partition string, lines [][]byte) error
}

// PartitionKey formats a timestamp into its UTC calendar-day partition.
const partitionLayout = "2006-01-02"
