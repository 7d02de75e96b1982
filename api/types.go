// Package api defines the request and response types of the admin HTTP API,
// and a client for calling it.
package api

import (
	"time"

	"github.com/keysmith-io/keysmith/uid"
)

type Keyset struct {
	ID      uid.ID    `json:"id"`
	Name    string    `json:"name"`
	Family  string    `json:"family"`
	Created time.Time `json:"created"`
}

type Key struct {
	ID      uid.ID    `json:"id"`
	Status  string    `json:"status"`
	Kind    string    `json:"kind"`
	Primary bool      `json:"primary"`
	Created time.Time `json:"created"`
}

type CreateKeysetRequest struct {
	// Name must be unique among live keysets.
	Name string `json:"name" binding:"required,keysetname"`
	// Template names the algorithm family and prefix kind of the first key,
	// for example AES256_GCM.
	Template string `json:"template" binding:"required"`
}

type AddKeyRequest struct {
	Template string `json:"template" binding:"required"`
}

type SetKeyStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=enabled disabled destroyed"`
}

// ExportedKeyset is the keyset in portable form. Material is only present
// when exported with material included; treat such exports as secrets.
type ExportedKeyset struct {
	Name   string        `json:"name"`
	Family string        `json:"family"`
	Keys   []ExportedKey `json:"keys"`
}

type ExportedKey struct {
	ID        uid.ID `json:"id"`
	Algorithm string `json:"algorithm"`
	Status    string `json:"status"`
	Kind      string `json:"kind"`
	Primary   bool   `json:"primary"`
	Material  []byte `json:"material,omitempty"`
}
