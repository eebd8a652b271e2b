package model

import "time"

// SnapshotRecord stores a serialized Snapshot in a database row.
type SnapshotRecord struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false"`
	Document  string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (SnapshotRecord) TableName() string { return "snapshots" }
