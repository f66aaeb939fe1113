package segments

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/reelbrand-ai/reelbrand-backend/pkg/db/models"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/enums"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/types"
)

func setupSegmentsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS video_segments (
  id TEXT PRIMARY KEY,
  project_id TEXT NOT NULL,
  segment_index INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending_first_frame',
  prompt TEXT,
  first_frame_task_handle TEXT,
  first_frame_url TEXT,
  closing_frame_task_handle TEXT,
  closing_frame_url TEXT,
  video_task_handle TEXT,
  video_url TEXT,
  contains_brand INTEGER NOT NULL DEFAULT 0,
  contains_product INTEGER NOT NULL DEFAULT 0,
  video_generation_approved INTEGER NOT NULL DEFAULT 0,
  retry_count INTEGER NOT NULL DEFAULT 0,
  error_message TEXT,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (project_id, segment_index)
);`
	require.NoError(t, db.Exec(schema).Error)
	require.NoError(t, db.Exec("DELETE FROM video_segments").Error)
	return db
}

func newSegment(projectID uuid.UUID, index int) models.VideoSegment {
	return models.VideoSegment{
		ID:        uuid.New(),
		ProjectID: projectID,
		Index:     index,
		Status:    enums.SegmentStatusPendingFirstFrame,
		Prompt: types.SegmentPrompt{
			Index:                 index,
			FirstFrameDescription: "a fully described opening frame for this beat",
		},
	}
}

func TestCreateBatchAndListOrdered(t *testing.T) {
	db := setupSegmentsTestDB(t)
	repository := NewRepository(db)
	projectID := uuid.New()

	segs := []models.VideoSegment{
		newSegment(projectID, 2),
		newSegment(projectID, 0),
		newSegment(projectID, 1),
	}
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return repository.CreateBatch(tx, segs)
	}))

	listed, err := repository.ListByProject(context.Background(), projectID)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	for i, seg := range listed {
		assert.Equal(t, i, seg.Index, "segments must come back in index order")
	}
	assert.Equal(t, "a fully described opening frame for this beat", listed[0].Prompt.FirstFrameDescription)
}

func TestSaveRoundTripsTransitions(t *testing.T) {
	db := setupSegmentsTestDB(t)
	repository := NewRepository(db)
	projectID := uuid.New()

	seg := newSegment(projectID, 0)
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return repository.CreateBatch(tx, []models.VideoSegment{seg})
	}))

	loaded, err := repository.GetByProjectAndIndex(context.Background(), projectID, 0)
	require.NoError(t, err)

	ApplyFrameSubmitted(loaded, "task-42")
	require.NoError(t, repository.Save(context.Background(), loaded))

	reloaded, err := repository.GetByProjectAndIndex(context.Background(), projectID, 0)
	require.NoError(t, err)
	assert.Equal(t, enums.SegmentStatusGeneratingFirstFrame, reloaded.Status)
	require.NotNil(t, reloaded.FirstFrameTaskHandle)
	assert.Equal(t, "task-42", *reloaded.FirstFrameTaskHandle)
}

func TestSetApproved(t *testing.T) {
	db := setupSegmentsTestDB(t)
	repository := NewRepository(db)
	projectID := uuid.New()

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return repository.CreateBatch(tx, []models.VideoSegment{newSegment(projectID, 0)})
	}))

	require.NoError(t, repository.SetApproved(context.Background(), projectID, 0, true))

	seg, err := repository.GetByProjectAndIndex(context.Background(), projectID, 0)
	require.NoError(t, err)
	assert.True(t, seg.VideoGenerationApproved)

	err = repository.SetApproved(context.Background(), projectID, 99, true)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
