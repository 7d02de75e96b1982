// Package models defines the persisted entities: keysets, their keys, and
// the bootstrap data key that seals key material at rest.
package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/keysmith-io/keysmith/uid"
)

// Modelable is implemented by any struct that composes Model.
type Modelable interface {
	IsAModel()
}

type Model struct {
	ID uid.ID
	// CreatedAt is set by GORM to time.Now when a record is first created.
	// See https://gorm.io/docs/conventions.html#Timestamp-Tracking
	CreatedAt time.Time
	// UpdatedAt is set by GORM to time.Now when a record is updated.
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt
}

func (Model) IsAModel() {}

// BeforeCreate sets an ID if one does not already exist. The ID must be
// generated dynamically because not all supported databases can generate
// snowflake ids.
func (m *Model) BeforeCreate(_ *gorm.DB) error {
	if m.ID == 0 {
		m.ID = uid.New()
	}

	return nil
}
