package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"meypark-backend/internal/model"
)

const snapshotRowID = 1

// GormCommitter keeps the snapshot in a single database row.
type GormCommitter struct {
	db *gorm.DB
}

// NewGormCommitter creates a committer backed by db. The snapshots table must exist.
func NewGormCommitter(db *gorm.DB) *GormCommitter {
	return &GormCommitter{db: db}
}

// Load reads the committed snapshot row.
func (g *GormCommitter) Load(ctx context.Context) (*model.Snapshot, error) {
	var rec model.SnapshotRecord
	err := g.db.WithContext(ctx).First(&rec, snapshotRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot row: %w", err)
	}

	var snap model.Snapshot
	if err := json.Unmarshal([]byte(rec.Document), &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot row: %w", err)
	}
	snap.Normalize()
	return &snap, nil
}

// Commit upserts the snapshot row.
func (g *GormCommitter) Commit(ctx context.Context, snap *model.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	rec := model.SnapshotRecord{ID: snapshotRowID, Document: string(data), UpdatedAt: time.Now().UTC()}
	return g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"document", "updated_at"}),
	}).Create(&rec).Error
}
