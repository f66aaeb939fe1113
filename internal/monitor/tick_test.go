package monitor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelbrand-ai/reelbrand-backend/internal/brands"
	"github.com/reelbrand-ai/reelbrand-backend/internal/competitor"
	"github.com/reelbrand-ai/reelbrand-backend/internal/credits"
	"github.com/reelbrand-ai/reelbrand-backend/internal/frames"
	"github.com/reelbrand-ai/reelbrand-backend/internal/planner"
	"github.com/reelbrand-ai/reelbrand-backend/internal/projects"
	"github.com/reelbrand-ai/reelbrand-backend/internal/segments"
	"github.com/reelbrand-ai/reelbrand-backend/internal/videos"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/config"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/db"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/db/models"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/enums"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/genai"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/outbox"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/types"
)

var monitorTestTables = []string{
	`CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL,
  display_name TEXT,
  credit_balance INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS credit_transactions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  project_id TEXT,
  type TEXT NOT NULL,
  amount INTEGER NOT NULL,
  balance_after INTEGER NOT NULL,
  description TEXT,
  created_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS competitor_ads (
  id TEXT PRIMARY KEY,
  owner_user_id TEXT NOT NULL,
  title TEXT NOT NULL,
  source_video_url TEXT NOT NULL,
  reference_image_url TEXT,
  clone_mode INTEGER NOT NULL DEFAULT 0,
  shots TEXT,
  duration_seconds REAL NOT NULL DEFAULT 0,
  analyzed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS video_projects (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  brand_id TEXT,
  product_id TEXT,
  competitor_ad_id TEXT,
  video_model TEXT NOT NULL,
  aspect_ratio TEXT NOT NULL DEFAULT '16:9',
  language TEXT NOT NULL DEFAULT 'en',
  credit_cost INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'processing',
  current_step TEXT NOT NULL DEFAULT 'pending',
  progress INTEGER NOT NULL DEFAULT 0,
  is_segmented INTEGER NOT NULL,
  segment_count INTEGER NOT NULL DEFAULT 0,
  segment_duration_seconds INTEGER NOT NULL DEFAULT 5,
  segment_plan TEXT,
  segment_status_snapshot TEXT,
  video_task_handle TEXT,
  merge_task_handle TEXT,
  merged_video_url TEXT,
  retry_count INTEGER NOT NULL DEFAULT 0,
  recovery_count INTEGER NOT NULL DEFAULT 0,
  error_message TEXT,
  last_processed_at DATETIME,
  merge_started_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS video_segments (
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
);`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  attempts INTEGER NOT NULL DEFAULT 0,
  last_error TEXT,
  published_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS brands (
  id TEXT PRIMARY KEY,
  owner_user_id TEXT NOT NULL,
  name TEXT NOT NULL,
  logo_url TEXT,
  reference_image_urls TEXT,
  tone TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  brand_id TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT,
  image_urls TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
}

var monitorTestTableNames = []string{
	"users", "credit_transactions", "competitor_ads", "video_projects",
	"video_segments", "outbox_events", "brands", "products",
}

type fakeFrameDirector struct {
	submits []frames.Request
	results map[string]genai.JobStatus
	next    int
	err     error
}

func (f *fakeFrameDirector) Submit(_ context.Context, req frames.Request) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.submits = append(f.submits, req)
	f.next++
	return fmt.Sprintf("frame-%d", f.next), nil
}

func (f *fakeFrameDirector) Poll(_ context.Context, handle string) (*genai.JobStatus, error) {
	if status, ok := f.results[handle]; ok {
		status.Handle = handle
		return &status, nil
	}
	return &genai.JobStatus{Handle: handle, State: genai.JobStateProcessing}, nil
}

func (f *fakeFrameDirector) finish(handle string) {
	if f.results == nil {
		f.results = map[string]genai.JobStatus{}
	}
	f.results[handle] = genai.JobStatus{
		State: genai.JobStateSucceeded,
		URL:   "https://cdn.example.com/frames/" + handle + ".png",
	}
}

type fakeClipDirector struct {
	submits []videos.Request
	results map[string]genai.JobStatus
	next    int
	err     error
}

func (f *fakeClipDirector) Submit(_ context.Context, req videos.Request) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.submits = append(f.submits, req)
	f.next++
	return fmt.Sprintf("clip-%d", f.next), nil
}

func (f *fakeClipDirector) Poll(_ context.Context, _ enums.VideoModel, handle string) (*genai.JobStatus, error) {
	if status, ok := f.results[handle]; ok {
		status.Handle = handle
		return &status, nil
	}
	return &genai.JobStatus{Handle: handle, State: genai.JobStateProcessing}, nil
}

func (f *fakeClipDirector) finish(handle string) {
	if f.results == nil {
		f.results = map[string]genai.JobStatus{}
	}
	f.results[handle] = genai.JobStatus{
		State: genai.JobStateSucceeded,
		URL:   "https://cdn.example.com/clips/" + handle + ".mp4",
	}
}

func (f *fakeClipDirector) fail(handle, message string) {
	if f.results == nil {
		f.results = map[string]genai.JobStatus{}
	}
	f.results[handle] = genai.JobStatus{State: genai.JobStateFailed, Message: message}
}

type fakeMergeDirector struct {
	handle string
	result *genai.JobStatus
	urls   []string
}

func (f *fakeMergeDirector) SubmitMerge(_ context.Context, videoURLs []string) (string, error) {
	f.urls = videoURLs
	return f.handle, nil
}

func (f *fakeMergeDirector) PollMerge(_ context.Context, handle string) (*genai.JobStatus, error) {
	if f.result != nil {
		return f.result, nil
	}
	return &genai.JobStatus{Handle: handle, State: genai.JobStateProcessing}, nil
}

type monitorHarness struct {
	client  *db.Client
	svc     *Service
	psvc    *projects.Service
	segRepo *segments.Repository
	frames  *fakeFrameDirector
	clips   *fakeClipDirector
	merge   *fakeMergeDirector
}

func newMonitorHarness(t *testing.T) *monitorHarness {
	t.Helper()

	client, err := db.New(context.Background(), config.DBConfig{
		DSN:    "file::memory:?cache=shared",
		Driver: "sqlite",
	}, nil)
	require.NoError(t, err)
	for _, schema := range monitorTestTables {
		require.NoError(t, client.DB().Exec(schema).Error)
	}
	for _, name := range monitorTestTableNames {
		require.NoError(t, client.DB().Exec("DELETE FROM "+name).Error)
	}

	creditsSvc, err := credits.NewService(credits.Params{
		Repo:   credits.NewRepository(client.DB()),
		Config: config.CreditsConfig{SegmentedRatePerSecond: "2.5", SingleRatePerSecond: "1.5"},
	})
	require.NoError(t, err)
	outboxSvc := outbox.NewService(outbox.NewRepository(client.DB()), nil)

	frameFake := &fakeFrameDirector{}
	clipFake := &fakeClipDirector{}
	mergeFake := &fakeMergeDirector{handle: "merge-1"}

	svc, err := NewService(Params{
		DB:         client,
		Projects:   projects.NewRepository(client.DB()),
		Segments:   segments.NewRepository(client.DB()),
		Brands:     brands.NewRepository(client.DB()),
		Competitor: competitor.NewRepository(client.DB()),
		Credits:    creditsSvc,
		Outbox:     outboxSvc,
		Frames:     frameFake,
		Clips:      clipFake,
		Merge:      mergeFake,
	})
	require.NoError(t, err)

	psvc, err := projects.NewService(projects.Params{
		DB:         client,
		Repo:       projects.NewRepository(client.DB()),
		Segments:   segments.NewRepository(client.DB()),
		Brands:     brands.NewRepository(client.DB()),
		Competitor: competitor.NewRepository(client.DB()),
		Credits:    creditsSvc,
		Planner:    planner.New(planner.Params{}),
		Outbox:     outboxSvc,
		Merge:      mergeFake,
	})
	require.NoError(t, err)

	return &monitorHarness{
		client:  client,
		svc:     svc,
		psvc:    psvc,
		segRepo: segments.NewRepository(client.DB()),
		frames:  frameFake,
		clips:   clipFake,
		merge:   mergeFake,
	}
}

func (h *monitorHarness) seedUser(t *testing.T, balance int) uuid.UUID {
	t.Helper()
	user := models.User{
		ID:            uuid.New(),
		Email:         uuid.NewString() + "@example.com",
		CreditBalance: balance,
	}
	require.NoError(t, h.client.DB().Create(&user).Error)
	return user.ID
}

func (h *monitorHarness) admit(t *testing.T, userID uuid.UUID, segmentCount int) *models.VideoProject {
	t.Helper()
	shots := make(types.CompetitorShots, 0, segmentCount)
	for i := 0; i < segmentCount; i++ {
		shots = append(shots, types.CompetitorShot{
			Index:        i,
			StartSeconds: float64(i * 5),
			EndSeconds:   float64((i + 1) * 5),
			Description:  fmt.Sprintf("scene %d with plenty of visual detail", i),
		})
	}
	ad := models.CompetitorAd{
		ID:              uuid.New(),
		OwnerUserID:     userID,
		Title:           "reference spot",
		SourceVideoURL:  "https://cdn.example.com/ref.mp4",
		Shots:           shots,
		DurationSeconds: float64(segmentCount * 5),
	}
	require.NoError(t, h.client.DB().Create(&ad).Error)

	result, err := h.psvc.Admit(context.Background(), projects.AdmitRequest{
		UserID:                 userID,
		CompetitorAdID:         &ad.ID,
		VideoModel:             enums.VideoModelKling,
		AspectRatio:            enums.AspectRatioLandscape,
		Language:               "en",
		IsSegmented:            true,
		SegmentCount:           segmentCount,
		SegmentDurationSeconds: 5,
	})
	require.NoError(t, err)
	return result.Project
}

func (h *monitorHarness) tick(t *testing.T) {
	t.Helper()
	require.NoError(t, h.svc.Tick(context.Background()))
}

func (h *monitorHarness) reloadProject(t *testing.T, id uuid.UUID) *models.VideoProject {
	t.Helper()
	var project models.VideoProject
	require.NoError(t, h.client.DB().First(&project, "id = ?", id).Error)
	return &project
}

func (h *monitorHarness) listSegments(t *testing.T, projectID uuid.UUID) []models.VideoSegment {
	t.Helper()
	segs, err := h.segRepo.ListByProject(context.Background(), projectID)
	require.NoError(t, err)
	return segs
}

func TestTickSubmitsOpeningFrames(t *testing.T) {
	h := newMonitorHarness(t)
	userID := h.seedUser(t, 200)
	project := h.admit(t, userID, 3)

	h.tick(t)

	segs := h.listSegments(t, project.ID)
	require.Len(t, segs, 3)
	for _, seg := range segs {
		assert.Equal(t, enums.SegmentStatusGeneratingFirstFrame, seg.Status)
		require.NotNil(t, seg.FirstFrameTaskHandle)
	}
	assert.Len(t, h.frames.submits, 3)

	reloaded := h.reloadProject(t, project.ID)
	assert.Equal(t, enums.ProjectStatusProcessing, reloaded.Status)
	assert.Equal(t, enums.ProjectStepGeneratingSegmentFrames, reloaded.CurrentStep)
	assert.Equal(t, 25, reloaded.Progress)
	assert.NotNil(t, reloaded.LastProcessedAt)
}

func TestFrameCompletionMirrorsClosingFrames(t *testing.T) {
	h := newMonitorHarness(t)
	userID := h.seedUser(t, 200)
	project := h.admit(t, userID, 3)

	h.tick(t)
	segs := h.listSegments(t, project.ID)
	for _, seg := range segs {
		h.frames.finish(*seg.FirstFrameTaskHandle)
	}

	h.tick(t)

	segs = h.listSegments(t, project.ID)
	for i, seg := range segs {
		assert.Equal(t, enums.SegmentStatusFirstFrameReady, seg.Status, "segment %d", i)
		require.NotNil(t, seg.FirstFrameURL)
		assert.False(t, seg.VideoGenerationApproved, "new frames need re-approval")
	}

	// Mirroring: each predecessor's closing frame is its successor's
	// opening frame. Only the last segment got its own closing-frame job.
	require.NotNil(t, segs[0].ClosingFrameURL)
	assert.Equal(t, *segs[1].FirstFrameURL, *segs[0].ClosingFrameURL)
	require.NotNil(t, segs[1].ClosingFrameURL)
	assert.Equal(t, *segs[2].FirstFrameURL, *segs[1].ClosingFrameURL)
	assert.Nil(t, segs[0].ClosingFrameTaskHandle)
	assert.Nil(t, segs[1].ClosingFrameTaskHandle)
	require.NotNil(t, segs[2].ClosingFrameTaskHandle)
	lastSubmit := h.frames.submits[len(h.frames.submits)-1]
	assert.Equal(t, enums.FrameTypeClosing, lastSubmit.FrameType)

	reloaded := h.reloadProject(t, project.ID)
	assert.Equal(t, enums.ProjectStatusSegmentFramesReady, reloaded.Status)
	assert.Equal(t, enums.ProjectStepReviewingSegmentFrames, reloaded.CurrentStep)
	assert.Equal(t, 70, reloaded.Progress)

	var count int64
	require.NoError(t, h.client.DB().Model(&models.OutboxEvent{}).
		Where("aggregate_id = ? AND event_type = ?", project.ID, enums.EventProjectFramesReady).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// Re-running the pass is a no-op for mirroring and events.
	h.tick(t)
	require.NoError(t, h.client.DB().Model(&models.OutboxEvent{}).
		Where("aggregate_id = ? AND event_type = ?", project.ID, enums.EventProjectFramesReady).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestPartialFramesProgressBand(t *testing.T) {
	h := newMonitorHarness(t)
	userID := h.seedUser(t, 400)
	project := h.admit(t, userID, 4)

	h.tick(t)
	segs := h.listSegments(t, project.ID)
	h.frames.finish(*segs[0].FirstFrameTaskHandle)
	h.frames.finish(*segs[1].FirstFrameTaskHandle)

	h.tick(t)

	reloaded := h.reloadProject(t, project.ID)
	assert.Equal(t, 48, reloaded.Progress, "2 of 4 frames = 25 + round(45*0.5)")
}

func TestApprovedSegmentKicksVideoWithEndAnchor(t *testing.T) {
	h := newMonitorHarness(t)
	userID := h.seedUser(t, 200)
	project := h.admit(t, userID, 3)
	ctx := context.Background()

	h.tick(t)
	for _, seg := range h.listSegments(t, project.ID) {
		h.frames.finish(*seg.FirstFrameTaskHandle)
	}
	h.tick(t)

	require.NoError(t, h.psvc.ApproveSegmentVideo(ctx, userID, project.ID, 0, true))
	h.tick(t)

	segs := h.listSegments(t, project.ID)
	assert.Equal(t, enums.SegmentStatusGeneratingVideo, segs[0].Status)
	require.NotNil(t, segs[0].VideoTaskHandle)
	assert.Equal(t, enums.SegmentStatusFirstFrameReady, segs[1].Status, "unapproved segments stay put")

	require.Len(t, h.clips.submits, 1)
	submit := h.clips.submits[0]
	assert.Equal(t, *segs[0].FirstFrameURL, submit.FirstFrameURL)
	// Segment 0's closing frame was mirrored from segment 1's opening
	// frame, so the end anchor resolves to it.
	assert.Equal(t, *segs[0].ClosingFrameURL, videos.ResolveEndAnchor(submit.ClosingFrameURL, submit.NextOpeningFrameURL))
	assert.Equal(t, 5, submit.DurationSeconds)
	assert.Equal(t, enums.VideoModelKling, submit.Model)
}

func TestVideoRetryCapThenTerminal(t *testing.T) {
	h := newMonitorHarness(t)
	userID := h.seedUser(t, 200)
	project := h.admit(t, userID, 2)
	ctx := context.Background()

	h.tick(t)
	for _, seg := range h.listSegments(t, project.ID) {
		h.frames.finish(*seg.FirstFrameTaskHandle)
	}
	h.tick(t)
	require.NoError(t, h.psvc.ApproveSegmentVideo(ctx, userID, project.ID, 0, true))
	h.tick(t)

	// Fail every clip job with a retryable error; each pass burns one
	// retry and resubmits immediately.
	for attempt := 1; attempt <= segments.MaxVideoRetries; attempt++ {
		segs := h.listSegments(t, project.ID)
		require.NotNil(t, segs[0].VideoTaskHandle)
		h.clips.fail(*segs[0].VideoTaskHandle, "server error, please retry")
		h.tick(t)

		segs = h.listSegments(t, project.ID)
		assert.Equal(t, enums.SegmentStatusGeneratingVideo, segs[0].Status)
		assert.Equal(t, attempt, segs[0].RetryCount)
		require.NotNil(t, segs[0].ErrorMessage)
		assert.Contains(t, *segs[0].ErrorMessage, "retrying")
	}

	// Budget spent: the next failure is terminal and does not touch the
	// retry count.
	segs := h.listSegments(t, project.ID)
	h.clips.fail(*segs[0].VideoTaskHandle, "server error, please retry")
	h.tick(t)

	segs = h.listSegments(t, project.ID)
	assert.Equal(t, enums.SegmentStatusFailed, segs[0].Status)
	assert.Equal(t, segments.MaxVideoRetries, segs[0].RetryCount)
}

func TestNonRetryableVideoFailureIsTerminal(t *testing.T) {
	h := newMonitorHarness(t)
	userID := h.seedUser(t, 200)
	project := h.admit(t, userID, 2)
	ctx := context.Background()

	h.tick(t)
	for _, seg := range h.listSegments(t, project.ID) {
		h.frames.finish(*seg.FirstFrameTaskHandle)
	}
	h.tick(t)
	require.NoError(t, h.psvc.ApproveSegmentVideo(ctx, userID, project.ID, 0, true))
	h.tick(t)

	segs := h.listSegments(t, project.ID)
	h.clips.fail(*segs[0].VideoTaskHandle, "blocked by content policy")
	h.tick(t)

	segs = h.listSegments(t, project.ID)
	assert.Equal(t, enums.SegmentStatusFailed, segs[0].Status)
	assert.Zero(t, segs[0].RetryCount, "non-retryable failures never consume retries")
	require.NotNil(t, segs[0].ErrorMessage)
	assert.Equal(t, "generation rejected by the content filter", *segs[0].ErrorMessage)
}

func TestFailedSegmentIsTerminalWhileOthersContinue(t *testing.T) {
	h := newMonitorHarness(t)
	userID := h.seedUser(t, 200)
	project := h.admit(t, userID, 3)
	ctx := context.Background()

	segs := h.listSegments(t, project.ID)
	msg := "generation failed: transient glitch"
	segs[1].Status = enums.SegmentStatusFailed
	segs[1].ErrorMessage = &msg
	segs[1].RetryCount = 2
	require.NoError(t, h.segRepo.Save(ctx, &segs[1]))

	h.tick(t)

	segs = h.listSegments(t, project.ID)
	assert.Equal(t, enums.SegmentStatusFailed, segs[1].Status,
		"a failed segment is never reset")
	assert.Equal(t, 2, segs[1].RetryCount)
	require.NotNil(t, segs[1].ErrorMessage)
	assert.Equal(t, msg, *segs[1].ErrorMessage)

	assert.Equal(t, enums.SegmentStatusGeneratingFirstFrame, segs[0].Status)
	assert.Equal(t, enums.SegmentStatusGeneratingFirstFrame, segs[2].Status)

	reloaded := h.reloadProject(t, project.ID)
	assert.Equal(t, enums.ProjectStatusProcessing, reloaded.Status)
	assert.Zero(t, reloaded.RecoveryCount)
}

func TestFailedProjectReturnsToProcessing(t *testing.T) {
	h := newMonitorHarness(t)
	userID := h.seedUser(t, 200)
	project := h.admit(t, userID, 3)
	ctx := context.Background()

	segs := h.listSegments(t, project.ID)
	clipURL := "https://cdn.example.com/clips/done.mp4"
	segs[0].Status = enums.SegmentStatusVideoReady
	segs[0].VideoURL = &clipURL
	require.NoError(t, h.segRepo.Save(ctx, &segs[0]))

	require.NoError(t, h.client.DB().Model(&models.VideoProject{}).
		Where("id = ?", project.ID).
		Updates(map[string]any{
			"status":        enums.ProjectStatusFailed,
			"current_step":  enums.ProjectStepFailed,
			"error_message": "timed out after 31m0s in step generating_segment_frames",
		}).Error)

	h.tick(t)

	reloaded := h.reloadProject(t, project.ID)
	assert.Equal(t, enums.ProjectStatusProcessing, reloaded.Status,
		"a surviving segment brings the project back")
	assert.Equal(t, 1, reloaded.RecoveryCount)
	assert.Nil(t, reloaded.ErrorMessage)

	segs = h.listSegments(t, project.ID)
	assert.Equal(t, enums.SegmentStatusVideoReady, segs[0].Status)
	// The pending segments resumed in the same pass.
	assert.Equal(t, enums.SegmentStatusGeneratingFirstFrame, segs[1].Status)
	assert.Equal(t, enums.SegmentStatusGeneratingFirstFrame, segs[2].Status)
}

func TestFailedProjectWithNoSurvivorsStaysFailed(t *testing.T) {
	h := newMonitorHarness(t)
	userID := h.seedUser(t, 200)
	project := h.admit(t, userID, 3)
	ctx := context.Background()

	msg := "generation failed"
	for _, seg := range h.listSegments(t, project.ID) {
		seg.Status = enums.SegmentStatusFailed
		seg.ErrorMessage = &msg
		require.NoError(t, h.segRepo.Save(ctx, &seg))
	}
	require.NoError(t, h.client.DB().Model(&models.VideoProject{}).
		Where("id = ?", project.ID).
		Updates(map[string]any{
			"status":        enums.ProjectStatusFailed,
			"current_step":  enums.ProjectStepFailed,
			"error_message": "all segments failed",
		}).Error)

	h.tick(t)

	reloaded := h.reloadProject(t, project.ID)
	assert.Equal(t, enums.ProjectStatusFailed, reloaded.Status)
	assert.Equal(t, projects.MaxRecoveryCount, reloaded.RecoveryCount,
		"unrecoverable projects are parked out of the active set")
	assert.Zero(t, h.frames.submits)

	// Parked rows are no longer reconciled.
	h.tick(t)
	assert.Equal(t, enums.ProjectStatusFailed, h.reloadProject(t, project.ID).Status)
}

func TestUnfailRefusedPastRecoveryBudget(t *testing.T) {
	h := newMonitorHarness(t)
	userID := h.seedUser(t, 200)
	project := h.admit(t, userID, 2)

	require.NoError(t, h.client.DB().Model(&models.VideoProject{}).
		Where("id = ?", project.ID).
		Updates(map[string]any{
			"status":         enums.ProjectStatusFailed,
			"current_step":   enums.ProjectStepFailed,
			"error_message":  "timed out after 31m0s in step generating_segment_frames",
			"recovery_count": projects.MaxRecoveryCount,
		}).Error)

	h.tick(t)
	require.NoError(t, h.svc.TickProject(context.Background(), project.ID))

	reloaded := h.reloadProject(t, project.ID)
	assert.Equal(t, enums.ProjectStatusFailed, reloaded.Status)
	assert.Equal(t, projects.MaxRecoveryCount, reloaded.RecoveryCount)
	assert.Zero(t, h.frames.submits)
}

func TestAllSegmentsFailedFailsProjectAndRefundsOnce(t *testing.T) {
	h := newMonitorHarness(t)
	userID := h.seedUser(t, 100)
	project := h.admit(t, userID, 2)
	ctx := context.Background()

	var balanceAfterAdmit models.User
	require.NoError(t, h.client.DB().First(&balanceAfterAdmit, "id = ?", userID).Error)
	require.Equal(t, 75, balanceAfterAdmit.CreditBalance)

	msg := "generation failed"
	for _, seg := range h.listSegments(t, project.ID) {
		seg.Status = enums.SegmentStatusFailed
		seg.ErrorMessage = &msg
		require.NoError(t, h.segRepo.Save(ctx, &seg))
	}

	h.tick(t)
	// The next tick finds nothing to recover and parks the row; the refund
	// stays single.
	h.tick(t)

	reloaded := h.reloadProject(t, project.ID)
	assert.Equal(t, enums.ProjectStatusFailed, reloaded.Status)
	assert.Equal(t, enums.ProjectStepFailed, reloaded.CurrentStep)
	assert.Equal(t, projects.MaxRecoveryCount, reloaded.RecoveryCount)

	var user models.User
	require.NoError(t, h.client.DB().First(&user, "id = ?", userID).Error)
	assert.Equal(t, 100, user.CreditBalance, "balance returns to its pre-admission value")

	var refunds int64
	require.NoError(t, h.client.DB().Model(&models.CreditTransaction{}).
		Where("project_id = ? AND type = ?", project.ID, enums.CreditTransactionRefund).
		Count(&refunds).Error)
	assert.Equal(t, int64(1), refunds)

	var events int64
	require.NoError(t, h.client.DB().Model(&models.OutboxEvent{}).
		Where("aggregate_id = ? AND event_type = ?", project.ID, enums.EventProjectFailed).
		Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestRecoveryBudgetExhaustedFailsProject(t *testing.T) {
	h := newMonitorHarness(t)
	userID := h.seedUser(t, 200)
	project := h.admit(t, userID, 2)
	ctx := context.Background()

	require.NoError(t, h.client.DB().Model(&models.VideoProject{}).
		Where("id = ?", project.ID).
		Update("recovery_count", projects.MaxRecoveryCount).Error)

	msg := "generation failed"
	segs := h.listSegments(t, project.ID)
	segs[0].Status = enums.SegmentStatusFailed
	segs[0].ErrorMessage = &msg
	require.NoError(t, h.segRepo.Save(ctx, &segs[0]))

	h.tick(t)

	reloaded := h.reloadProject(t, project.ID)
	assert.Equal(t, enums.ProjectStatusFailed, reloaded.Status)
}

func TestStalenessFailsStuckProject(t *testing.T) {
	h := newMonitorHarness(t)
	userID := h.seedUser(t, 200)
	project := h.admit(t, userID, 2)

	// Recent activity does not matter: the ceiling is wall-clock time
	// since creation.
	createdAt := time.Now().Add(-35 * time.Minute)
	lastProcessed := time.Now().Add(-1 * time.Minute)
	require.NoError(t, h.client.DB().Model(&models.VideoProject{}).
		Where("id = ?", project.ID).
		Updates(map[string]any{
			"created_at":        createdAt,
			"last_processed_at": lastProcessed,
		}).Error)

	h.tick(t)

	reloaded := h.reloadProject(t, project.ID)
	assert.Equal(t, enums.ProjectStatusFailed, reloaded.Status)
	require.NotNil(t, reloaded.ErrorMessage)
	assert.Contains(t, *reloaded.ErrorMessage, "timed out after")
	assert.Contains(t, *reloaded.ErrorMessage, "in step")

	var user models.User
	require.NoError(t, h.client.DB().First(&user, "id = ?", userID).Error)
	assert.Equal(t, 200, user.CreditBalance)
}

func TestSegmentRecoveryRebuildsLostRows(t *testing.T) {
	h := newMonitorHarness(t)
	userID := h.seedUser(t, 200)
	project := h.admit(t, userID, 3)

	require.NoError(t, h.client.DB().Exec(
		"DELETE FROM video_segments WHERE project_id = ?", project.ID).Error)

	h.tick(t)

	segs := h.listSegments(t, project.ID)
	require.Len(t, segs, 3, "rows rebuilt from the stored plan")
	for i, seg := range segs {
		assert.Equal(t, i, seg.Index)
		assert.NotEmpty(t, seg.Prompt.FirstFrameDescription)
		// Rebuilt rows went straight into the frame pipeline this pass.
		assert.Equal(t, enums.SegmentStatusGeneratingFirstFrame, seg.Status)
	}
}

func TestMergeHandoffThenCompletion(t *testing.T) {
	h := newMonitorHarness(t)
	userID := h.seedUser(t, 200)
	project := h.admit(t, userID, 2)
	ctx := context.Background()

	clipURLs := []string{
		"https://cdn.example.com/clips/a.mp4",
		"https://cdn.example.com/clips/b.mp4",
	}
	frameURL := "https://cdn.example.com/frame.png"
	for i, seg := range h.listSegments(t, project.ID) {
		seg.Status = enums.SegmentStatusVideoReady
		seg.FirstFrameURL = &frameURL
		seg.VideoURL = &clipURLs[i]
		require.NoError(t, h.segRepo.Save(ctx, &seg))
	}

	h.tick(t)
	reloaded := h.reloadProject(t, project.ID)
	assert.Equal(t, enums.ProjectStatusAwaitingMerge, reloaded.Status)
	assert.Equal(t, 95, reloaded.Progress)
	assert.Nil(t, reloaded.MergeTaskHandle, "merge waits for the user")

	// User pulls the trigger; the monitor polls the job to completion.
	_, err := h.psvc.RequestMerge(ctx, userID, project.ID)
	require.NoError(t, err)
	assert.Equal(t, clipURLs, h.merge.urls)

	h.tick(t)
	reloaded = h.reloadProject(t, project.ID)
	assert.Equal(t, enums.ProjectStatusMergingSegments, reloaded.Status, "job still running")

	h.merge.result = &genai.JobStatus{
		State: genai.JobStateSucceeded,
		URL:   "https://cdn.example.com/final.mp4",
	}
	h.tick(t)

	reloaded = h.reloadProject(t, project.ID)
	assert.Equal(t, enums.ProjectStatusCompleted, reloaded.Status)
	assert.Equal(t, 100, reloaded.Progress)
	require.NotNil(t, reloaded.MergedVideoURL)
	assert.Equal(t, "https://cdn.example.com/final.mp4", *reloaded.MergedVideoURL)

	var events int64
	require.NoError(t, h.client.DB().Model(&models.OutboxEvent{}).
		Where("aggregate_id = ? AND event_type = ?", project.ID, enums.EventProjectCompleted).
		Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestMergeTimeoutFailsAndRefunds(t *testing.T) {
	h := newMonitorHarness(t)
	userID := h.seedUser(t, 100)
	project := h.admit(t, userID, 2)

	handle := "merge-stuck"
	startedAt := time.Now().Add(-20 * time.Minute)
	require.NoError(t, h.client.DB().Model(&models.VideoProject{}).
		Where("id = ?", project.ID).
		Updates(map[string]any{
			"status":            enums.ProjectStatusMergingSegments,
			"current_step":      enums.ProjectStepMergingSegments,
			"merge_task_handle": handle,
			"merge_started_at":  startedAt,
		}).Error)

	h.tick(t)

	reloaded := h.reloadProject(t, project.ID)
	assert.Equal(t, enums.ProjectStatusFailed, reloaded.Status)
	require.NotNil(t, reloaded.ErrorMessage)
	assert.Contains(t, *reloaded.ErrorMessage, "merge")

	var user models.User
	require.NoError(t, h.client.DB().First(&user, "id = ?", userID).Error)
	assert.Equal(t, 100, user.CreditBalance)
}

func TestSingleVideoEndToEnd(t *testing.T) {
	h := newMonitorHarness(t)
	userID := h.seedUser(t, 100)
	ctx := context.Background()

	result, err := h.psvc.Admit(ctx, projects.AdmitRequest{
		UserID:          userID,
		VideoModel:      enums.VideoModelVidu,
		AspectRatio:     enums.AspectRatioPortrait,
		Language:        "en",
		DurationSeconds: 10,
	})
	require.NoError(t, err)
	project := result.Project
	assert.Equal(t, 15, result.CreditsUsed, "1.5/s over 10s")
	assert.False(t, h.reloadProject(t, project.ID).IsSegmented,
		"single-video mode must survive the insert")

	// One auto-approved segment drives the whole run.
	segs := h.listSegments(t, project.ID)
	require.Len(t, segs, 1)
	assert.True(t, segs[0].VideoGenerationApproved)

	h.tick(t)
	segs = h.listSegments(t, project.ID)
	require.NotNil(t, segs[0].FirstFrameTaskHandle)
	h.frames.finish(*segs[0].FirstFrameTaskHandle)

	// Frame done, approval pre-opened: the clip goes out in the same pass.
	h.tick(t)
	segs = h.listSegments(t, project.ID)
	assert.Equal(t, enums.SegmentStatusGeneratingVideo, segs[0].Status)
	require.NotNil(t, segs[0].VideoTaskHandle)

	h.clips.finish(*segs[0].VideoTaskHandle)
	h.tick(t)

	reloaded := h.reloadProject(t, project.ID)
	assert.Equal(t, enums.ProjectStatusCompleted, reloaded.Status)
	assert.Equal(t, 100, reloaded.Progress)
	require.NotNil(t, reloaded.MergedVideoURL, "the single clip is the final video")
	assert.Len(t, h.frames.submits, 1, "no closing-frame job in single-video mode")
}

func TestTransientPollErrorsLeaveStateUntouched(t *testing.T) {
	h := newMonitorHarness(t)
	userID := h.seedUser(t, 200)
	project := h.admit(t, userID, 2)

	h.tick(t)
	before := h.listSegments(t, project.ID)
	firstPass := h.reloadProject(t, project.ID)
	require.NotNil(t, firstPass.LastProcessedAt)

	// No poll results registered: jobs stay processing across passes.
	h.tick(t)
	h.tick(t)

	after := h.listSegments(t, project.ID)
	for i := range before {
		assert.Equal(t, before[i].Status, after[i].Status)
		assert.Equal(t, *before[i].FirstFrameTaskHandle, *after[i].FirstFrameTaskHandle)
	}
	assert.Len(t, h.frames.submits, 2, "no duplicate submissions")

	// The last-processed stamp still moves on passes that change nothing.
	lastPass := h.reloadProject(t, project.ID)
	require.NotNil(t, lastPass.LastProcessedAt)
	assert.True(t, lastPass.LastProcessedAt.After(*firstPass.LastProcessedAt))
}

func TestTickProjectReconcilesSingleProject(t *testing.T) {
	h := newMonitorHarness(t)
	userID := h.seedUser(t, 200)
	project := h.admit(t, userID, 2)
	other := h.admit(t, userID, 2)

	require.NoError(t, h.svc.TickProject(context.Background(), project.ID))

	segs := h.listSegments(t, project.ID)
	for _, seg := range segs {
		assert.Equal(t, enums.SegmentStatusGeneratingFirstFrame, seg.Status)
	}
	for _, seg := range h.listSegments(t, other.ID) {
		assert.Equal(t, enums.SegmentStatusPendingFirstFrame, seg.Status, "untargeted project untouched")
	}

	// Terminal projects are a no-op.
	require.NoError(t, h.client.DB().Model(&models.VideoProject{}).
		Where("id = ?", project.ID).
		Update("status", enums.ProjectStatusCompleted).Error)
	require.NoError(t, h.svc.TickProject(context.Background(), project.ID))
	assert.Len(t, h.frames.submits, 2)
}
