package models

// Keyset is a named collection of versioned keys that share an algorithm
// family. Exactly one of its keys is primary at any time; the partial unique
// index on keys(keyset_id) enforces that in storage.
type Keyset struct {
	Model

	Name string
	// Family identifies what kind of primitive the keyset's keys implement,
	// for example "AEAD/AES256-GCM". Every key in the keyset has the same
	// family.
	Family string
}
