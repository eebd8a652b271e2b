package persist

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"meypark-backend/internal/model"
)

func sampleSnapshot() *model.Snapshot {
	snap := model.DefaultSnapshot(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	snap.Companies["C1"] = model.Company{ID: "C1", Name: "Mowiz"}
	snap.Zones["Z1"] = model.Zone{ID: "Z1", CompanyID: "C1", Name: "Centro", PricePerHour: 2.5}
	return snap
}

func TestFileCommitter_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "mock_data.json")
	fc := NewFileCommitter(path)
	ctx := context.Background()

	_, err := fc.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSnapshot)

	require.NoError(t, fc.Commit(ctx, sampleSnapshot()))
	loaded, err := fc.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Centro", loaded.Zones["Z1"].Name)
	assert.NotNil(t, loaded.ActiveSessions)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestFileCommitter_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mock_data.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileCommitter(path).Load(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSnapshot)
}

func TestLoadMeters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geographic_kiosks.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"K1":{"id":"K1","name":"Sol","gps":{"lat":40.41,"lng":-3.70},"status":"offline"}}`), 0o644))

	meters, err := LoadMeters(path)
	require.NoError(t, err)
	assert.Equal(t, model.MeterOffline, meters["K1"].Status)
	assert.Equal(t, 40.41, meters["K1"].GPS.Lat)
}

func TestGormCommitter_RoundTrip(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "snapshots.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.SnapshotRecord{}))

	gc := NewGormCommitter(db)
	ctx := context.Background()

	_, err = gc.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSnapshot)

	snap := sampleSnapshot()
	require.NoError(t, gc.Commit(ctx, snap))
	snap.Zones["Z1"] = model.Zone{ID: "Z1", CompanyID: "C1", Name: "Centro", PricePerHour: 3}
	require.NoError(t, gc.Commit(ctx, snap))

	loaded, err := gc.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3.0, loaded.Zones["Z1"].PricePerHour)

	var count int64
	db.Model(&model.SnapshotRecord{}).Count(&count)
	assert.Equal(t, int64(1), count)
}
