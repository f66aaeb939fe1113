package monitor

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/reelbrand-ai/reelbrand-backend/internal/segments"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/db/models"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/enums"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/genai"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/outbox"
)

// aggregate folds the per-segment state into the project row: progress,
// lifecycle status, the persisted snapshot and the merge handoff. It runs
// last in every pass.
func (s *Service) aggregate(ctx context.Context, p *pass) error {
	project := p.project
	snap := segments.BuildSnapshot(p.segs, s.now())
	progress := segments.ComputeProgress(snap.FramesReady, snap.VideosReady, snap.Total)

	switch project.Status {
	case enums.ProjectStatusProcessing, enums.ProjectStatusSegmentFramesReady:
		switch {
		case snap.Total > 0 && snap.VideosReady == snap.Total:
			if !project.IsSegmented {
				url := ""
				if p.segs[0].VideoURL != nil {
					url = *p.segs[0].VideoURL
				}
				return s.completeProject(ctx, project, url)
			}
			// Every clip rendered; the merge itself waits for the user.
			project.Status = enums.ProjectStatusAwaitingMerge
			project.CurrentStep = enums.ProjectStepAwaitingMerge

		case snap.FramesReady == snap.Total:
			if project.Status != enums.ProjectStatusSegmentFramesReady {
				project.Status = enums.ProjectStatusSegmentFramesReady
				p.events = append(p.events, outbox.DomainEvent{
					EventType:     enums.EventProjectFramesReady,
					AggregateType: enums.AggregateVideoProject,
					AggregateID:   project.ID,
					Data: map[string]any{
						"project_id": project.ID.String(),
						"frames":     snap.FramesReady,
					},
					Version: 1,
				})
			}
			if snap.VideosReady > 0 || anyGeneratingVideo(p.segs) {
				project.CurrentStep = enums.ProjectStepGeneratingSegmentVideos
			} else {
				project.CurrentStep = enums.ProjectStepReviewingSegmentFrames
			}

		default:
			if project.IsSegmented {
				project.CurrentStep = enums.ProjectStepGeneratingSegmentFrames
			} else {
				project.CurrentStep = enums.ProjectStepGeneratingVideo
			}
		}

	case enums.ProjectStatusMergingSegments:
		done, err := s.pollMerge(ctx, p)
		if done || err != nil {
			return err
		}
	}

	project.Progress = progress
	project.SegmentStatusSnapshot = &snap

	// Refreshed on every pass, even when nothing moved.
	now := s.now()
	project.LastProcessedAt = &now
	return s.persistProject(ctx, p)
}

func anyGeneratingVideo(segs []models.VideoSegment) bool {
	for i := range segs {
		if segs[i].Status == enums.SegmentStatusGeneratingVideo {
			return true
		}
	}
	return false
}

// pollMerge checks a running merge job. Returns done=true when the project
// reached a terminal state.
func (s *Service) pollMerge(ctx context.Context, p *pass) (bool, error) {
	project := p.project
	if s.merge == nil || project.MergeTaskHandle == nil {
		return false, nil
	}
	if project.MergeStartedAt != nil && s.now().Sub(*project.MergeStartedAt) > mergeTimeout {
		return true, s.failProject(ctx, project, fmt.Sprintf("merge did not finish within %s", mergeTimeout))
	}

	status, err := s.merge.PollMerge(ctx, *project.MergeTaskHandle)
	if err != nil {
		if genai.IsTransient(err) {
			return false, nil
		}
		return true, s.failProject(ctx, project, genai.SanitizeFailure(err.Error()))
	}
	switch status.State {
	case genai.JobStateSucceeded:
		return true, s.completeProject(ctx, project, status.URL)
	case genai.JobStateFailed:
		s.jobFailed("merge")
		return true, s.failProject(ctx, project, genai.SanitizeFailure(status.Message))
	}
	return false, nil
}

// persistProject writes the project row and stages any events from this pass
// in the same transaction.
func (s *Service) persistProject(ctx context.Context, p *pass) error {
	return s.dbc.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Save(p.project).Error; err != nil {
			return fmt.Errorf("saving project: %w", err)
		}
		if s.outbox == nil {
			return nil
		}
		for _, event := range p.events {
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return fmt.Errorf("staging %s event: %w", event.EventType, err)
			}
		}
		return nil
	})
}

// failProject terminally fails a project, refunds its credits exactly once
// and stages the failure event, all in one transaction.
func (s *Service) failProject(ctx context.Context, project *models.VideoProject, reason string) error {
	err := s.dbc.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.credits.RefundOnce(ctx, tx, project.UserID, project.ID, project.CreditCost); err != nil {
			return err
		}
		if err := tx.Model(&models.VideoProject{}).
			Where("id = ?", project.ID).
			Updates(map[string]any{
				"status":        enums.ProjectStatusFailed,
				"current_step":  enums.ProjectStepFailed,
				"error_message": reason,
			}).Error; err != nil {
			return err
		}
		if s.outbox != nil {
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventProjectFailed,
				AggregateType: enums.AggregateVideoProject,
				AggregateID:   project.ID,
				Data: map[string]any{
					"project_id": project.ID.String(),
					"reason":     reason,
					"refunded":   project.CreditCost,
				},
				Version: 1,
			})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failing project: %w", err)
	}

	project.Status = enums.ProjectStatusFailed
	project.CurrentStep = enums.ProjectStepFailed
	project.ErrorMessage = &reason
	if s.logg != nil {
		s.logg.Warn(ctx, "project failed: "+reason)
	}
	return nil
}

// completeProject records the final video and stages the completion event.
func (s *Service) completeProject(ctx context.Context, project *models.VideoProject, videoURL string) error {
	if videoURL == "" {
		return s.failProject(ctx, project, "final video url missing")
	}

	err := s.dbc.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Model(&models.VideoProject{}).
			Where("id = ?", project.ID).
			Updates(map[string]any{
				"status":           enums.ProjectStatusCompleted,
				"current_step":     enums.ProjectStepCompleted,
				"progress":         100,
				"merged_video_url": videoURL,
			}).Error; err != nil {
			return err
		}
		if s.outbox != nil {
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventProjectCompleted,
				AggregateType: enums.AggregateVideoProject,
				AggregateID:   project.ID,
				Data: map[string]any{
					"project_id": project.ID.String(),
					"video_url":  videoURL,
				},
				Version: 1,
			})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("completing project: %w", err)
	}

	project.Status = enums.ProjectStatusCompleted
	project.CurrentStep = enums.ProjectStepCompleted
	project.Progress = 100
	project.MergedVideoURL = &videoURL
	if s.logg != nil {
		s.logg.Info(ctx, "project completed")
	}
	return nil
}
