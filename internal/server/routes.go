package server

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"studiohub/internal/app"
	"studiohub/internal/domain"
	"studiohub/internal/view"
)

type projectBody struct {
	Body domain.PipelineProject `json:"body"`
}

func projectOut(p domain.PipelineProject) *projectBody {
	return &projectBody{Body: p}
}

func registerProjects(api huma.API, a *app.App) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-project",
		Method:        http.MethodPost,
		Path:          "/projects",
		Summary:       "Create project",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body CreateProjectRequest `json:"body"`
	}) (*projectBody, error) {
		p, err := a.Projects.Create(ctx, input.Body.draft())
		if err != nil {
			return nil, handleError(err)
		}
		return projectOut(p), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List projects",
		Description: "Active projects, optionally filtered. Filters are exact matches and combine with AND.",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Stage    string `query:"stage" enum:"planning,in_progress,review,completed,archived,"`
		Type     string `query:"type" enum:"video,thumbnail,strategy,analytics,content,"`
		Priority string `query:"priority" enum:"low,medium,high,urgent,"`
		Platform string `query:"platform"`
		Archived bool   `query:"archived" doc:"Include archived projects"`
	}) (*struct {
		Body []domain.PipelineProject `json:"body"`
	}, error) {
		projects := a.Projects.Active(ctx)
		if input.Archived {
			projects = a.Projects.All(ctx)
		}
		projects = view.Filter(projects, view.Criteria{
			Stage:    domain.Stage(input.Stage),
			Type:     domain.ProjectType(input.Type),
			Priority: domain.Priority(input.Priority),
			Platform: input.Platform,
		})
		return &struct {
			Body []domain.PipelineProject `json:"body"`
		}{Body: projects}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}",
		Summary:     "Get project",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*projectBody, error) {
		p, err := a.Projects.Get(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return projectOut(p), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "edit-project",
		Method:      http.MethodPatch,
		Path:        "/projects/{project_id}",
		Summary:     "Edit project",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string             `path:"project_id"`
		Body      EditProjectRequest `json:"body"`
	}) (*projectBody, error) {
		p, err := a.Projects.Edit(ctx, input.ProjectID, input.Body.patch())
		if err != nil {
			return nil, handleError(err)
		}
		return projectOut(p), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-project-stage",
		Method:      http.MethodPut,
		Path:        "/projects/{project_id}/stage",
		Summary:     "Move project to a stage",
		Description: "Any stage may move to any other stage.",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string          `path:"project_id"`
		Body      SetStageRequest `json:"body"`
	}) (*projectBody, error) {
		p, err := a.Projects.UpdateStage(ctx, input.ProjectID, domain.Stage(input.Body.Stage))
		if err != nil {
			return nil, handleError(err)
		}
		return projectOut(p), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-project-progress",
		Method:      http.MethodPut,
		Path:        "/projects/{project_id}/progress",
		Summary:     "Set project progress",
		Description: "Out-of-range values are clamped to [0,100], never rejected.",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string             `path:"project_id"`
		Body      SetProgressRequest `json:"body"`
	}) (*projectBody, error) {
		p, err := a.Projects.UpdateProgress(ctx, input.ProjectID, input.Body.Progress)
		if err != nil {
			return nil, handleError(err)
		}
		return projectOut(p), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "duplicate-project",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/duplicate",
		Summary:       "Duplicate project",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*projectBody, error) {
		p, err := a.Projects.Duplicate(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return projectOut(p), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "archive-project",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/archive",
		Summary:     "Archive project",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*projectBody, error) {
		p, err := a.Projects.Archive(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return projectOut(p), nil
	})
}

func registerViews(api huma.API, a *app.App) {
	huma.Register(api, huma.Operation{
		OperationID: "board",
		Method:      http.MethodGet,
		Path:        "/board",
		Summary:     "Kanban board",
	}, func(ctx context.Context, input *struct {
		Type     string `query:"type" enum:"video,thumbnail,strategy,analytics,content,"`
		Priority string `query:"priority" enum:"low,medium,high,urgent,"`
		Platform string `query:"platform"`
	}) (*struct {
		Body []view.KanbanColumn `json:"body"`
	}, error) {
		projects := view.Filter(a.Projects.Active(ctx), view.Criteria{
			Type:     domain.ProjectType(input.Type),
			Priority: domain.Priority(input.Priority),
			Platform: input.Platform,
		})
		return &struct {
			Body []view.KanbanColumn `json:"body"`
		}{Body: view.Kanban(projects)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-view",
		Method:      http.MethodGet,
		Path:        "/list",
		Summary:     "Flat list projection",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Sort     string `query:"sort" enum:"title,priority,due_date,progress,created,"`
		Desc     bool   `query:"desc"`
		Stage    string `query:"stage" enum:"planning,in_progress,review,completed,archived,"`
		Type     string `query:"type" enum:"video,thumbnail,strategy,analytics,content,"`
		Priority string `query:"priority" enum:"low,medium,high,urgent,"`
		Platform string `query:"platform"`
	}) (*struct {
		Body []domain.PipelineProject `json:"body"`
	}, error) {
		projects := view.Filter(a.Projects.Active(ctx), view.Criteria{
			Stage:    domain.Stage(input.Stage),
			Type:     domain.ProjectType(input.Type),
			Priority: domain.Priority(input.Priority),
			Platform: input.Platform,
		})
		return &struct {
			Body []domain.PipelineProject `json:"body"`
		}{Body: view.List(projects, view.SortKey(input.Sort), input.Desc)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "timeline",
		Method:      http.MethodGet,
		Path:        "/timeline",
		Summary:     "Timeline projection",
		Description: "Projects in ascending due-date order; projects without a due date sort last.",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.PipelineProject `json:"body"`
	}, error) {
		return &struct {
			Body []domain.PipelineProject `json:"body"`
		}{Body: view.Timeline(a.Projects.Active(ctx))}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "stats",
		Method:      http.MethodGet,
		Path:        "/stats",
		Summary:     "Summary stats",
	}, func(ctx context.Context, input *struct {
		Stage    string `query:"stage" enum:"planning,in_progress,review,completed,archived,"`
		Type     string `query:"type" enum:"video,thumbnail,strategy,analytics,content,"`
		Priority string `query:"priority" enum:"low,medium,high,urgent,"`
		Platform string `query:"platform"`
	}) (*struct {
		Body view.Stats `json:"body"`
	}, error) {
		projects := view.Filter(a.Projects.Active(ctx), view.Criteria{
			Stage:    domain.Stage(input.Stage),
			Type:     domain.ProjectType(input.Type),
			Priority: domain.Priority(input.Priority),
			Platform: input.Platform,
		})
		now := time.Now()
		if a.Projects.Now != nil {
			now = a.Projects.Now()
		}
		return &struct {
			Body view.Stats `json:"body"`
		}{Body: view.Aggregate(projects, now, a.Config.Scoring)}, nil
	})
}

func registerFiles(api huma.API, a *app.App) {
	huma.Register(api, huma.Operation{
		OperationID: "list-files",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/files",
		Summary:     "List project files",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body []domain.UploadedFile `json:"body"`
	}, error) {
		if a.Files == nil {
			return nil, newAPIError(http.StatusNotImplemented, "storage_unconfigured", "no storage backend configured", nil)
		}
		if _, err := a.Projects.Get(ctx, input.ProjectID); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.UploadedFile `json:"body"`
		}{Body: a.Files.Files(ctx, input.ProjectID)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "storage-usage",
		Method:      http.MethodGet,
		Path:        "/storage/usage",
		Summary:     "Storage usage against plan quota",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body StorageUsageResponse `json:"body"`
	}, error) {
		if a.Files == nil {
			return nil, newAPIError(http.StatusNotImplemented, "storage_unconfigured", "no storage backend configured", nil)
		}
		id, err := a.Sessions.Current(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body StorageUsageResponse `json:"body"`
		}{Body: StorageUsageResponse{
			UsedBytes:  a.Files.GlobalUsage(ctx),
			QuotaBytes: a.Config.Quota(id.Plan),
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "rename-file",
		Method:      http.MethodPut,
		Path:        "/files/{file_id}/name",
		Summary:     "Rename file",
		Description: "Changes the display name only; the stored object keeps its original key.",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		FileID string            `path:"file_id"`
		Body   RenameFileRequest `json:"body"`
	}) (*struct {
		Body domain.UploadedFile `json:"body"`
	}, error) {
		if a.Files == nil {
			return nil, newAPIError(http.StatusNotImplemented, "storage_unconfigured", "no storage backend configured", nil)
		}
		f, err := a.Files.Rename(ctx, input.FileID, input.Body.Name)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.UploadedFile `json:"body"`
		}{Body: f}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-file",
		Method:      http.MethodDelete,
		Path:        "/files/{file_id}",
		Summary:     "Delete file",
		Errors:      []int{http.StatusNotFound, http.StatusUnauthorized, http.StatusBadGateway},
	}, func(ctx context.Context, input *struct {
		FileID string `path:"file_id"`
	}) (*struct{}, error) {
		if a.Files == nil {
			return nil, newAPIError(http.StatusNotImplemented, "storage_unconfigured", "no storage backend configured", nil)
		}
		if err := a.Files.Delete(ctx, input.FileID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

// registerFileStreams wires the two streaming endpoints directly on the
// router: multipart upload and raw download don't fit the JSON operation
// surface.
func registerFileStreams(r chi.Router, basePath string, a *app.App) {
	r.Post(basePath+"/projects/{project_id}/files", func(w http.ResponseWriter, req *http.Request) {
		if a.Files == nil {
			respondStatusError(w, newAPIError(http.StatusNotImplemented, "storage_unconfigured", "no storage backend configured", nil))
			return
		}
		file, header, err := req.FormFile("file")
		if err != nil {
			respondStatusError(w, newAPIError(http.StatusBadRequest, "bad_request", "multipart field 'file' required", nil))
			return
		}
		defer file.Close()
		projectID := chi.URLParam(req, "project_id")
		uploaded, err := a.Files.Upload(req.Context(), projectID, header.Filename, header.Header.Get("Content-Type"), file, header.Size)
		if err != nil {
			respondStatusError(w, handleError(err))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, uploaded)
	})

	r.Get(basePath+"/files/{file_id}/content", func(w http.ResponseWriter, req *http.Request) {
		if a.Files == nil {
			respondStatusError(w, newAPIError(http.StatusNotImplemented, "storage_unconfigured", "no storage backend configured", nil))
			return
		}
		rc, meta, err := a.Files.Download(req.Context(), chi.URLParam(req, "file_id"))
		if err != nil {
			respondStatusError(w, handleError(err))
			return
		}
		defer rc.Close()
		if meta.Type != "" {
			w.Header().Set("Content-Type", meta.Type)
		}
		w.Header().Set("Content-Disposition", `attachment; filename="`+meta.Name+`"`)
		_, _ = io.Copy(w, rc)
	})
}

func registerNotifications(api huma.API, a *app.App) {
	huma.Register(api, huma.Operation{
		OperationID: "list-notifications",
		Method:      http.MethodGet,
		Path:        "/notifications",
		Summary:     "List notifications, newest first",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body NotificationListResponse `json:"body"`
	}, error) {
		return &struct {
			Body NotificationListResponse `json:"body"`
		}{Body: NotificationListResponse{
			Items:  a.Events.List(ctx),
			Unread: a.Events.Unread(ctx),
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "read-all-notifications",
		Method:      http.MethodPost,
		Path:        "/notifications/read",
		Summary:     "Mark all notifications read",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]int `json:"body"`
	}, error) {
		n := a.Events.MarkAllRead(ctx)
		return &struct {
			Body map[string]int `json:"body"`
		}{Body: map[string]int{"marked": n}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "read-notification",
		Method:      http.MethodPost,
		Path:        "/notifications/{notification_id}/read",
		Summary:     "Mark notification read",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		NotificationID string `path:"notification_id"`
	}) (*struct {
		Body domain.Notification `json:"body"`
	}, error) {
		n, err := a.Events.MarkRead(ctx, input.NotificationID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Notification `json:"body"`
		}{Body: n}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "pin-notification",
		Method:      http.MethodPost,
		Path:        "/notifications/{notification_id}/pin",
		Summary:     "Toggle notification pin",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		NotificationID string `path:"notification_id"`
	}) (*struct {
		Body domain.Notification `json:"body"`
	}, error) {
		n, err := a.Events.TogglePin(ctx, input.NotificationID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Notification `json:"body"`
		}{Body: n}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "archive-notification",
		Method:      http.MethodPost,
		Path:        "/notifications/{notification_id}/archive",
		Summary:     "Archive notification",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		NotificationID string `path:"notification_id"`
	}) (*struct {
		Body domain.Notification `json:"body"`
	}, error) {
		n, err := a.Events.ArchiveNotification(ctx, input.NotificationID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Notification `json:"body"`
		}{Body: n}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-notification",
		Method:      http.MethodDelete,
		Path:        "/notifications/{notification_id}",
		Summary:     "Delete notification",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		NotificationID string `path:"notification_id"`
	}) (*struct{}, error) {
		if err := a.Events.DeleteNotification(ctx, input.NotificationID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}
