package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/reelbrand-ai/reelbrand-backend/internal/frames"
	"github.com/reelbrand-ai/reelbrand-backend/internal/planner"
	"github.com/reelbrand-ai/reelbrand-backend/internal/projects"
	"github.com/reelbrand-ai/reelbrand-backend/internal/segments"
	"github.com/reelbrand-ai/reelbrand-backend/internal/videos"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/db/models"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/enums"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/genai"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/outbox"
)

// pass accumulates the state of one reconciliation over one project.
type pass struct {
	project *models.VideoProject
	segs    []models.VideoSegment
	refs    *projectRefs
	events  []outbox.DomainEvent
}

func (s *Service) reconcileProject(ctx context.Context, project *models.VideoProject) error {
	if project.Status == enums.ProjectStatusCompleted {
		return nil
	}

	if stale, reason := s.isStale(project); stale {
		return s.failProject(ctx, project, reason)
	}

	refs, err := s.loadProjectRefs(ctx, project)
	if err != nil {
		return err
	}

	p := &pass{project: project, refs: refs}
	p.segs, err = s.segs.ListByProject(ctx, project.ID)
	if err != nil {
		return fmt.Errorf("loading segments: %w", err)
	}

	if project.Status == enums.ProjectStatusFailed {
		recovered, err := s.unfail(ctx, p)
		if err != nil || !recovered {
			return err
		}
	}

	if len(p.segs) == 0 {
		if err := s.recoverSegments(ctx, p); err != nil {
			return err
		}
	}

	if done, err := s.recoverFailures(ctx, p); done || err != nil {
		return err
	}

	var errs error
	for i := range p.segs {
		if err := s.syncFrame(ctx, p, i); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("segment %d frame: %w", i, err))
		}
	}
	for i := range p.segs {
		if err := s.syncVideo(ctx, p, i); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("segment %d video: %w", i, err))
		}
	}

	if err := s.aggregate(ctx, p); err != nil {
		return multierr.Append(errs, err)
	}
	return errs
}

// isStale reports whether a processing project blew its wall-clock budget.
// The ceiling is measured from creation, so a run that keeps inching forward
// still times out. Manual gates (frame review, the merge trigger) are
// exempt; merge jobs have their own timeout.
func (s *Service) isStale(project *models.VideoProject) (bool, string) {
	if project.Status != enums.ProjectStatusProcessing {
		return false, ""
	}
	threshold := staleSegmentedAfter
	if !project.IsSegmented {
		threshold = staleSingleAfter
	}
	age := s.now().Sub(project.CreatedAt)
	if age > threshold {
		return true, fmt.Sprintf("timed out after %s in step %s",
			age.Round(time.Second), project.CurrentStep)
	}
	return false, ""
}

// unfail returns a failed project to processing when at least one segment is
// not terminally failed. Failed segments keep their state; only the project
// row moves, and every move spends recovery budget. The spent budget is
// written immediately so a re-fail later in the same pass cannot reopen it.
// Projects with nothing left to recover are parked at the cap so the active
// listing stops returning them.
func (s *Service) unfail(ctx context.Context, p *pass) (recovered bool, err error) {
	project := p.project

	recoverable := false
	for i := range p.segs {
		if p.segs[i].Status != enums.SegmentStatusFailed {
			recoverable = true
			break
		}
	}

	if !recoverable || project.RecoveryCount >= projects.MaxRecoveryCount {
		if project.RecoveryCount < projects.MaxRecoveryCount {
			err := s.projects.UpdateFields(ctx, project.ID, map[string]any{
				"recovery_count": projects.MaxRecoveryCount,
			})
			if err != nil {
				return false, fmt.Errorf("parking failed project: %w", err)
			}
		}
		return false, nil
	}

	project.Status = enums.ProjectStatusProcessing
	project.RecoveryCount++
	project.ErrorMessage = nil
	err = s.projects.UpdateFields(ctx, project.ID, map[string]any{
		"status":         enums.ProjectStatusProcessing,
		"recovery_count": project.RecoveryCount,
		"error_message":  nil,
	})
	if err != nil {
		return false, fmt.Errorf("recovering failed project: %w", err)
	}
	if s.logg != nil {
		s.logg.Warn(ctx, fmt.Sprintf("returning failed project to processing, recovery %d/%d",
			project.RecoveryCount, projects.MaxRecoveryCount))
	}
	return true, nil
}

// recoverSegments rebuilds lost segment rows. The stored plan is the source
// of truth; when it is unreadable or inconsistent the competitor timeline is
// re-derived, and generic defaults are the last resort. The text service is
// never called on recovery.
func (s *Service) recoverSegments(ctx context.Context, p *pass) error {
	project := p.project

	plan, err := planner.DecodePlan(project.SegmentPlan)
	if err != nil || len(plan) != project.SegmentCount {
		if len(p.refs.shots) > 0 {
			plan = planner.RebuildFromShots(p.refs.shots, project.SegmentCount,
				project.SegmentDurationSeconds, p.refs.productName)
		} else {
			plan = planner.DefaultPlan(project.SegmentCount,
				project.SegmentDurationSeconds, p.refs.productName)
		}
		encoded, encErr := planner.EncodePlan(plan)
		if encErr != nil {
			return fmt.Errorf("re-encoding recovered plan: %w", encErr)
		}
		project.SegmentPlan = encoded
	}

	rows := make([]models.VideoSegment, 0, len(plan))
	for _, prompt := range plan {
		rows = append(rows, models.VideoSegment{
			ID:                      uuid.New(),
			ProjectID:               project.ID,
			Index:                   prompt.Index,
			Status:                  enums.SegmentStatusPendingFirstFrame,
			Prompt:                  prompt,
			ContainsBrand:           prompt.ContainsBrand,
			ContainsProduct:         prompt.ContainsProduct,
			VideoGenerationApproved: !project.IsSegmented,
		})
	}
	err = s.dbc.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.segs.CreateBatch(tx, rows); err != nil {
			return err
		}
		return tx.Model(&models.VideoProject{}).
			Where("id = ?", project.ID).
			Update("segment_plan", project.SegmentPlan).Error
	})
	if err != nil {
		return fmt.Errorf("recreating segments: %w", err)
	}

	p.segs = rows
	if s.logg != nil {
		s.logg.Warn(ctx, fmt.Sprintf("rebuilt %d lost segments", len(rows)))
	}
	return nil
}

// recoverFailures fails the project outright when its segments leave no path
// to a final video: every segment terminally failed, or some failed with the
// recovery budget already spent. A failed segment is never reset; partial
// failures otherwise ride along until the wall-clock ceiling and the
// project-level recovery cycle settle the project. Returns done=true when
// the project reached a terminal state.
func (s *Service) recoverFailures(ctx context.Context, p *pass) (done bool, err error) {
	failed := 0
	for i := range p.segs {
		if p.segs[i].Status == enums.SegmentStatusFailed {
			failed++
		}
	}
	if failed == 0 {
		return false, nil
	}
	if failed == len(p.segs) {
		return true, s.failProject(ctx, p.project, "all segments failed")
	}
	if p.project.RecoveryCount >= projects.MaxRecoveryCount {
		return true, s.failProject(ctx, p.project, "segment recovery budget exhausted")
	}
	return false, nil
}

// syncFrame advances one segment's keyframe work: submit, wait on a
// predecessor, poll, mirror. Transient transport errors leave the segment
// untouched for the next pass.
func (s *Service) syncFrame(ctx context.Context, p *pass, i int) error {
	seg := &p.segs[i]

	prevOpeningURL := ""
	if i > 0 && p.segs[i-1].FirstFrameURL != nil {
		prevOpeningURL = *p.segs[i-1].FirstFrameURL
	}

	switch seg.Status {
	case enums.SegmentStatusPendingFirstFrame, enums.SegmentStatusAwaitingPrevFirstFrame:
		if i > 0 && segments.NeedsContinuationWait(seg, prevOpeningURL) {
			if seg.Status != enums.SegmentStatusAwaitingPrevFirstFrame {
				segments.ApplyAwaitingPredecessor(seg)
				return s.segs.Save(ctx, seg)
			}
			return nil
		}
		return s.submitFrame(ctx, p, seg, prevOpeningURL)

	case enums.SegmentStatusGeneratingFirstFrame:
		if seg.FirstFrameTaskHandle == nil {
			seg.Status = enums.SegmentStatusPendingFirstFrame
			return s.segs.Save(ctx, seg)
		}
		status, err := s.frames.Poll(ctx, *seg.FirstFrameTaskHandle)
		if err != nil {
			if genai.IsTransient(err) {
				return nil
			}
			segments.ApplyFrameFailure(seg, genai.SanitizeFailure(err.Error()))
			s.jobFailed("frame")
			return s.segs.Save(ctx, seg)
		}
		switch status.State {
		case genai.JobStateSucceeded:
			segments.ApplyFirstFrameReady(seg, status.URL)
			seg.VideoGenerationApproved = !p.project.IsSegmented
			if err := s.segs.Save(ctx, seg); err != nil {
				return err
			}
			if i > 0 && segments.MirrorClosingFrame(&p.segs[i-1], status.URL) {
				if err := s.segs.Save(ctx, &p.segs[i-1]); err != nil {
					return err
				}
			}
			if i == len(p.segs)-1 {
				return s.syncClosingFrame(ctx, p, seg)
			}
		case genai.JobStateFailed:
			segments.ApplyFrameFailure(seg, genai.SanitizeFailure(status.Message))
			s.jobFailed("frame")
			return s.segs.Save(ctx, seg)
		}
		return nil

	case enums.SegmentStatusFirstFrameReady:
		// Only the final segment owns a closing-frame job; everyone else
		// gets theirs mirrored from the successor's opening frame.
		if i == len(p.segs)-1 {
			return s.syncClosingFrame(ctx, p, seg)
		}
		return nil
	}
	return nil
}

func (s *Service) submitFrame(ctx context.Context, p *pass, seg *models.VideoSegment, prevOpeningURL string) error {
	handle, err := s.frames.Submit(ctx, frames.Request{
		Prompt:               seg.Prompt,
		FrameType:            enums.FrameTypeFirst,
		AspectRatio:          p.project.AspectRatio.String(),
		PrevOpeningFrameURL:  prevOpeningURL,
		BrandReferenceURLs:   p.refs.brandURLs,
		ProductReferenceURLs: p.refs.productURLs,
		CloneMode:            p.refs.cloneMode,
		CloneReferenceURL:    p.refs.cloneReferenceURL,
	})
	if err != nil {
		if genai.IsTransient(err) {
			return nil
		}
		segments.ApplyFrameFailure(seg, genai.SanitizeFailure(err.Error()))
		s.jobFailed("frame")
		return s.segs.Save(ctx, seg)
	}
	segments.ApplyFrameSubmitted(seg, handle)
	s.jobSubmitted("frame")
	return s.segs.Save(ctx, seg)
}

// syncClosingFrame drives the final segment's closing-frame job. A failed
// job clears its handle and is resubmitted next pass; if it keeps failing
// the clip simply runs in single-frame mode once approved. Single-video
// projects have no continuity to anchor and skip the job entirely.
func (s *Service) syncClosingFrame(ctx context.Context, p *pass, seg *models.VideoSegment) error {
	if !p.project.IsSegmented || seg.ClosingFrameURL != nil {
		return nil
	}

	if seg.ClosingFrameTaskHandle == nil {
		handle, err := s.frames.Submit(ctx, frames.Request{
			Prompt:               seg.Prompt,
			FrameType:            enums.FrameTypeClosing,
			AspectRatio:          p.project.AspectRatio.String(),
			BrandReferenceURLs:   p.refs.brandURLs,
			ProductReferenceURLs: p.refs.productURLs,
			CloneMode:            p.refs.cloneMode,
			CloneReferenceURL:    p.refs.cloneReferenceURL,
		})
		if err != nil {
			if genai.IsTransient(err) {
				return nil
			}
			s.jobFailed("frame")
			return fmt.Errorf("submitting closing frame: %w", err)
		}
		seg.ClosingFrameTaskHandle = &handle
		s.jobSubmitted("frame")
		return s.segs.Save(ctx, seg)
	}

	status, err := s.frames.Poll(ctx, *seg.ClosingFrameTaskHandle)
	if err != nil {
		if genai.IsTransient(err) {
			return nil
		}
		seg.ClosingFrameTaskHandle = nil
		return s.segs.Save(ctx, seg)
	}
	switch status.State {
	case genai.JobStateSucceeded:
		seg.ClosingFrameURL = &status.URL
		seg.ClosingFrameTaskHandle = nil
		return s.segs.Save(ctx, seg)
	case genai.JobStateFailed:
		seg.ClosingFrameTaskHandle = nil
		s.jobFailed("frame")
		return s.segs.Save(ctx, seg)
	}
	return nil
}

// syncVideo submits clip jobs for approved segments and polls running ones.
// Retryable failures resubmit up to the per-segment cap; non-retryable
// failures are terminal for the segment.
func (s *Service) syncVideo(ctx context.Context, p *pass, i int) error {
	seg := &p.segs[i]

	switch {
	case segments.ReadyForVideo(seg):
		return s.submitClip(ctx, p, i)

	case seg.Status == enums.SegmentStatusGeneratingVideo:
		if seg.VideoTaskHandle == nil {
			// A retry from the previous pass, or a crash between state
			// write and submission.
			return s.submitClip(ctx, p, i)
		}
		status, err := s.clips.Poll(ctx, p.project.VideoModel, *seg.VideoTaskHandle)
		if err != nil {
			if genai.IsTransient(err) {
				return nil
			}
			return s.handleClipFailure(ctx, p, i, err.Error())
		}
		switch status.State {
		case genai.JobStateSucceeded:
			segments.ApplyVideoSuccess(seg, status.URL)
			return s.segs.Save(ctx, seg)
		case genai.JobStateFailed:
			return s.handleClipFailure(ctx, p, i, status.Message)
		}
	}
	return nil
}

func (s *Service) handleClipFailure(ctx context.Context, p *pass, i int, rawMessage string) error {
	seg := &p.segs[i]
	s.jobFailed("video")

	retryable := genai.IsRetryableFailure(rawMessage)
	resubmit := segments.ApplyVideoFailure(seg, genai.SanitizeFailure(rawMessage), retryable)
	if err := s.segs.Save(ctx, seg); err != nil {
		return err
	}
	if resubmit {
		return s.submitClip(ctx, p, i)
	}
	return nil
}

func (s *Service) submitClip(ctx context.Context, p *pass, i int) error {
	seg := &p.segs[i]
	if seg.FirstFrameURL == nil {
		return fmt.Errorf("segment %d has no opening frame", seg.Index)
	}

	closingURL := ""
	if seg.ClosingFrameURL != nil {
		closingURL = *seg.ClosingFrameURL
	}
	nextOpeningURL := ""
	if i+1 < len(p.segs) && p.segs[i+1].FirstFrameURL != nil {
		nextOpeningURL = *p.segs[i+1].FirstFrameURL
	}

	handle, err := s.clips.Submit(ctx, videos.Request{
		Model:               p.project.VideoModel,
		Prompt:              seg.Prompt,
		AspectRatio:         p.project.AspectRatio.String(),
		DurationSeconds:     p.project.SegmentDurationSeconds,
		FirstFrameURL:       *seg.FirstFrameURL,
		ClosingFrameURL:     closingURL,
		NextOpeningFrameURL: nextOpeningURL,
	})
	if err != nil {
		if genai.IsTransient(err) {
			return nil
		}
		segments.ApplyVideoFailure(seg, genai.SanitizeFailure(err.Error()), false)
		s.jobFailed("video")
		return s.segs.Save(ctx, seg)
	}

	segments.ApplyVideoSubmitted(seg, handle)
	s.jobSubmitted("video")
	if err := s.segs.Save(ctx, seg); err != nil {
		return err
	}
	if !p.project.IsSegmented {
		p.project.VideoTaskHandle = &handle
	}
	return nil
}

func (s *Service) jobSubmitted(kind string) {
	if s.metrics != nil {
		s.metrics.IncJobSubmitted(kind)
	}
}

func (s *Service) jobFailed(kind string) {
	if s.metrics != nil {
		s.metrics.IncJobFailed(kind)
	}
}
