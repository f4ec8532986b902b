package domain

import "time"

// Stage is the workflow bucket a project currently occupies.
type Stage string

const (
	StagePlanning   Stage = "planning"
	StageInProgress Stage = "in_progress"
	StageReview     Stage = "review"
	StageCompleted  Stage = "completed"
	StageArchived   Stage = "archived"
)

// KanbanStages are the fixed board buckets in display order. Archived
// projects never appear on the board.
var KanbanStages = []Stage{StagePlanning, StageInProgress, StageReview, StageCompleted}

func ValidStage(s Stage) bool {
	switch s {
	case StagePlanning, StageInProgress, StageReview, StageCompleted, StageArchived:
		return true
	}
	return false
}

type ProjectType string

const (
	TypeVideo     ProjectType = "video"
	TypeThumbnail ProjectType = "thumbnail"
	TypeStrategy  ProjectType = "strategy"
	TypeAnalytics ProjectType = "analytics"
	TypeContent   ProjectType = "content"
)

func ValidProjectType(t ProjectType) bool {
	switch t {
	case TypeVideo, TypeThumbnail, TypeStrategy, TypeAnalytics, TypeContent:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// PriorityRank orders priorities for sorting, urgent first.
func PriorityRank(p Priority) int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	}
	return 4
}

// PipelineProject is a trackable unit of creative work. Progress and Stage
// are independently settable: progress 100 does not imply completed and
// completed does not require progress 100.
type PipelineProject struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Type        ProjectType `json:"type" enum:"video,thumbnail,strategy,analytics,content"`
	Stage       Stage       `json:"stage" enum:"planning,in_progress,review,completed,archived"`
	Priority    Priority    `json:"priority" enum:"low,medium,high,urgent"`
	Platform    string      `json:"platform,omitempty"`
	Progress    int         `json:"progress" minimum:"0" maximum:"100"`
	DueDate     *time.Time  `json:"due_date,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
	Created     time.Time   `json:"created"`
	LastUpdated time.Time   `json:"last_updated"`

	EstimatedHours float64 `json:"estimated_hours"`
	ActualHours    float64 `json:"actual_hours"`

	Attachments int `json:"attachments"`
	Comments    int `json:"comments"`

	Archived bool `json:"archived,omitempty"`
}

// Active reports whether the project belongs to the default query set.
func (p PipelineProject) Active() bool {
	return !p.Archived && p.Stage != StageArchived
}

// Overdue reports whether the project is past its due date at the given
// evaluation time. Derived at read time, never stored.
func (p PipelineProject) Overdue(now time.Time) bool {
	return p.DueDate != nil && p.DueDate.Before(now) && p.Stage != StageCompleted
}

// DueSoon reports whether the due date falls within the next three days.
func (p PipelineProject) DueSoon(now time.Time) bool {
	if p.DueDate == nil || p.Stage == StageCompleted {
		return false
	}
	return !p.DueDate.Before(now) && p.DueDate.Sub(now) <= 72*time.Hour
}

// UploadedFile is the local index entry for a blob held by the external
// storage collaborator. Name is the display name; StorageKey is the name the
// blob actually lives under. Rename changes only Name — the divergence is a
// product decision, not drift.
type UploadedFile struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StorageKey string    `json:"storage_key"`
	Size       int64     `json:"size" minimum:"0"`
	Type       string    `json:"type,omitempty"`
	ProjectID  string    `json:"project_id"`
	URL        string    `json:"url,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type NotificationCategory string

const (
	CategorySuccess NotificationCategory = "success"
	CategoryWarning NotificationCategory = "warning"
	CategoryError   NotificationCategory = "error"
	CategoryInfo    NotificationCategory = "info"
)

// Notification is a user-facing record emitted as a side effect of state
// transitions. Owned by the dispatcher; the store never mutates these.
type Notification struct {
	ID        string               `json:"id"`
	Category  NotificationCategory `json:"category" enum:"success,warning,error,info"`
	Title     string               `json:"title"`
	Message   string               `json:"message"`
	Timestamp time.Time            `json:"timestamp"`
	Read      bool                 `json:"read"`
	Pinned    bool                 `json:"pinned"`
	Archived  bool                 `json:"archived,omitempty"`
}

// PlanTier identifies the billing plan used for quota lookups.
type PlanTier string

const (
	PlanFree   PlanTier = "free"
	PlanPro    PlanTier = "pro"
	PlanAgency PlanTier = "agency"
)

func ValidPlanTier(p PlanTier) bool {
	switch p {
	case PlanFree, PlanPro, PlanAgency:
		return true
	}
	return false
}
