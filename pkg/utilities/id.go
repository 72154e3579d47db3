package utilities

import (
	"os"
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

var (
	nodeOnce sync.Once
	node     *snowflake.Node
)

// NewKSUID generates a new globally unique KSUID string.
func NewKSUID() string {
	return ksuid.New().String()
}

// NewSnowflakeID generates a snowflake ID string from the process-wide node.
// The node ID comes from SNOWFLAKE_NODE (default 1). If the node cannot be
// initialised it falls back to a KSUID string so an ID is always returned.
func NewSnowflakeID() string {
	nodeOnce.Do(func() {
		node = newNode(nodeIDFromEnv())
	})
	if node == nil {
		return NewKSUID()
	}
	return node.Generate().String()
}

func nodeIDFromEnv() int64 {
	nodeEnv := os.Getenv("SNOWFLAKE_NODE")
	if nodeEnv == "" {
		return 1
	}
	nodeID, err := strconv.ParseInt(nodeEnv, 10, 64)
	if err != nil {
		return 1
	}
	return nodeID
}

// newNode must be shared: a fresh node per call restarts the sequence and
// can hand out the same ID twice within one millisecond.
func newNode(nodeID int64) *snowflake.Node {
	n, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil
	}
	return n
}
