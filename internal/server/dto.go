package server

import (
	"time"

	"studiohub/internal/domain"
	"studiohub/internal/store"
)

// Request payloads

type CreateProjectRequest struct {
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Type           string     `json:"type" enum:"video,thumbnail,strategy,analytics,content"`
	Priority       string     `json:"priority,omitempty" enum:"low,medium,high,urgent"`
	Platform       string     `json:"platform,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	Tags           []string   `json:"tags,omitempty"`
	EstimatedHours float64    `json:"estimated_hours,omitempty"`
}

func (r CreateProjectRequest) draft() store.Draft {
	return store.Draft{
		Title:          r.Title,
		Description:    r.Description,
		Type:           domain.ProjectType(r.Type),
		Priority:       domain.Priority(r.Priority),
		Platform:       r.Platform,
		DueDate:        r.DueDate,
		Tags:           r.Tags,
		EstimatedHours: r.EstimatedHours,
	}
}

type EditProjectRequest struct {
	ID             *string    `json:"id,omitempty"`
	Created        *time.Time `json:"created,omitempty"`
	Title          *string    `json:"title,omitempty"`
	Description    *string    `json:"description,omitempty"`
	Type           *string    `json:"type,omitempty" enum:"video,thumbnail,strategy,analytics,content"`
	Priority       *string    `json:"priority,omitempty" enum:"low,medium,high,urgent"`
	Platform       *string    `json:"platform,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	ClearDueDate   bool       `json:"clear_due_date,omitempty"`
	Tags           []string   `json:"tags,omitempty"`
	EstimatedHours *float64   `json:"estimated_hours,omitempty"`
	ActualHours    *float64   `json:"actual_hours,omitempty"`
	Comments       *int       `json:"comments,omitempty"`
}

func (r EditProjectRequest) patch() store.Patch {
	p := store.Patch{
		ID:             r.ID,
		Created:        r.Created,
		Title:          r.Title,
		Description:    r.Description,
		Platform:       r.Platform,
		DueDate:        r.DueDate,
		ClearDueDate:   r.ClearDueDate,
		Tags:           r.Tags,
		EstimatedHours: r.EstimatedHours,
		ActualHours:    r.ActualHours,
		Comments:       r.Comments,
	}
	if r.Type != nil {
		t := domain.ProjectType(*r.Type)
		p.Type = &t
	}
	if r.Priority != nil {
		pr := domain.Priority(*r.Priority)
		p.Priority = &pr
	}
	return p
}

type SetStageRequest struct {
	Stage string `json:"stage" enum:"planning,in_progress,review,completed,archived"`
}

type SetProgressRequest struct {
	Progress int `json:"progress"`
}

type RenameFileRequest struct {
	Name string `json:"name"`
}

// Response payloads

type StorageUsageResponse struct {
	UsedBytes  int64 `json:"used_bytes"`
	QuotaBytes int64 `json:"quota_bytes"`
}

type NotificationListResponse struct {
	Items  []domain.Notification `json:"items"`
	Unread int                   `json:"unread"`
}
