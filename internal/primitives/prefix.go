package primitives

import (
	"encoding/binary"

	"github.com/keysmith-io/keysmith/internal/models"
	"github.com/keysmith-io/keysmith/uid"
)

const (
	// prefixVersion tags the output prefix format so it can evolve without
	// breaking stored ciphertext.
	prefixVersion = 0x01

	// KeyedPrefixSize is the length of a non-raw output prefix: a version
	// byte followed by the big-endian key id.
	KeyedPrefixSize = 9
)

// OutputPrefix derives the routing identifier for a key. It is a pure
// function of the key id and prefix kind, stable for the key's lifetime;
// callers derive it once at key creation and persist the result.
func OutputPrefix(kind models.PrefixKind, id uid.ID) []byte {
	if kind == models.PrefixRaw {
		return nil
	}

	prefix := make([]byte, KeyedPrefixSize)
	prefix[0] = prefixVersion
	binary.BigEndian.PutUint64(prefix[1:], uint64(id))
	return prefix
}

// IsKeyedPrefix reports whether ciphertext starts with a keyed output
// prefix.
func IsKeyedPrefix(ciphertext []byte) bool {
	return len(ciphertext) > KeyedPrefixSize && ciphertext[0] == prefixVersion
}
