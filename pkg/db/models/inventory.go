package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Device is an inventory record for one router or switch. Credentials here
// are per-device overrides; blank fields fall back to fleet defaults at
// connect time.
type Device struct {
	bun.BaseModel `bun:"table:inventory.devices,alias:d"`

	ID       string `bun:",pk"`
	Name     string `bun:",notnull"`
	Address  string `bun:",notnull"`
	Port     int    `bun:",nullzero"`
	Protocol string `bun:",notnull,default:'ssh'"`
	Platform string `bun:",nullzero"`

	Username       string `bun:",nullzero"`
	Password       string `bun:",nullzero"`
	EnablePassword string `bun:",nullzero"`

	// CountryCode groups devices for progress rollups.
	CountryCode string `bun:",nullzero"`

	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}

// JobRecord is the durable summary of a finished batch job. The full
// per-command detail lives in the artifact store; this row carries enough to
// list history and find the artifacts.
type JobRecord struct {
	bun.BaseModel `bun:"table:inventory.job_records,alias:jr"`

	ID         uuid.UUID `bun:"type:uuid,pk"`
	Status     string    `bun:",notnull"`
	DeviceIDs  []string  `bun:",array"`
	Commands   []string  `bun:",array"`
	BatchSize  int       `bun:",nullzero"`
	RateLimit  int       `bun:",nullzero"`
	Total      int       `bun:",notnull"`
	Completed  int       `bun:",notnull"`
	Failed     int       `bun:",notnull"`
	StartedAt  time.Time `bun:",nullzero"`
	FinishedAt time.Time `bun:",nullzero"`

	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}
