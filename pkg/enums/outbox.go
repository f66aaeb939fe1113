package enums

// OutboxEventType names the project lifecycle events published downstream.
type OutboxEventType string

const (
	EventProjectAdmitted    OutboxEventType = "project.admitted"
	EventProjectFramesReady OutboxEventType = "project.frames_ready"
	EventProjectCompleted   OutboxEventType = "project.completed"
	EventProjectFailed      OutboxEventType = "project.failed"
	EventCreditsRefunded    OutboxEventType = "credits.refunded"
)

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateVideoProject OutboxAggregateType = "video_project"
)

// OutboxStatus tracks publication state of an outbox row.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	OutboxStatusFailed    OutboxStatus = "failed"
	OutboxStatusTerminal  OutboxStatus = "terminal"
)
