package uid

import (
	"math/rand"
	"time"

	"github.com/bwmarrin/snowflake"
)

// ID is a unique identifier for a database record. IDs are snowflakes, so
// they sort roughly by creation time.
type ID snowflake.ID

var node *snowflake.Node

func init() {
	snowflake.Epoch = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()

	var err error
	//nolint:gosec // the node id does not need to be cryptographically random
	node, err = snowflake.NewNode(rand.Int63n(1024))
	if err != nil {
		panic(err)
	}
}

// New returns an ID using a random node id. The node id is selected when the
// process starts, and won't change until the process is restarted.
func New() ID {
	return ID(node.Generate())
}

func (u ID) String() string {
	return snowflake.ID(u).Base58()
}

func Parse(b []byte) (ID, error) {
	id, err := snowflake.ParseBase58(b)
	return ID(id), err
}

func (u *ID) UnmarshalText(b []byte) error {
	id, err := Parse(b)
	if err != nil {
		return err
	}

	*u = id

	return nil
}

func (u ID) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}
