package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"studiohub/internal/app"
	"studiohub/internal/config"
	"studiohub/internal/domain"
	"studiohub/internal/kv"
	"studiohub/internal/server"
	"studiohub/internal/session"
	"studiohub/internal/store"
	"studiohub/internal/view"
)

var rootCmd = &cobra.Command{
	Use:   "hub",
	Short: "Studio Hub CLI",
	Long: `Studio Hub tracks a creative studio's project pipeline.
- Workspace: your .studiohub directory holding the state database; config lives in studiohub.yml next to it.
- Projects: units of creative work (videos, thumbnails, strategy docs) moving through planning -> in_progress -> review -> completed.
- Progress: a 0-100 slider independent of stage; neither drives the other.
- Views: the board, list and timeline are projections computed fresh from state, never stored.
- Files: attachments live in external blob storage; the local index is what the app trusts.
- Notifications: every meaningful transition leaves a record, newest first.`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("STUDIOHUB")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	rootCmd.PersistentFlags().String("plan", "free", "billing plan for quota checks (free, pro, agency)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
	_ = viper.BindPFlag("plan", rootCmd.PersistentFlags().Lookup("plan"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(boardCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(timelineCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(filesCmd())
	rootCmd.AddCommand(notificationsCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(tokenCmd())
}

// withApp opens the workspace around fn, with a fixed local session so file
// commands work without a server.
func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	workspace := viper.GetString("workspace")
	if _, err := kv.EnsureWorkspace(workspace); err != nil {
		return err
	}
	a, err := app.Open(ctx, app.Options{
		Workspace: workspace,
		Sessions: session.Static{Identity: session.Identity{
			ActorID: viper.GetString("actor-id"),
			Plan:    domain.PlanTier(viper.GetString("plan")),
		}},
	})
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := kv.EnsureWorkspace(workspace); err != nil {
				return err
			}
			cfgPath := config.Path(workspace)
			if _, err := os.Stat(cfgPath); err == nil {
				fmt.Printf("config already exists at %s\n", cfgPath)
			} else {
				if err := os.WriteFile(cfgPath, []byte(config.GenerateDefault()), 0o644); err != nil {
					return err
				}
				fmt.Printf("wrote %s\n", cfgPath)
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				fmt.Printf("workspace ready: %s (%d projects)\n", a.Config.Workspace.Name, len(a.Projects.All(ctx)))
				return nil
			})
		},
	}
}

func projectCmd() *cobra.Command {
	prj := &cobra.Command{Use: "project", Short: "Manage pipeline projects"}
	prj.AddCommand(projectCreateCmd())
	prj.AddCommand(projectShowCmd())
	prj.AddCommand(projectEditCmd())
	prj.AddCommand(projectStageCmd())
	prj.AddCommand(projectProgressCmd())
	prj.AddCommand(projectDuplicateCmd())
	prj.AddCommand(projectArchiveCmd())
	return prj
}

func projectCreateCmd() *cobra.Command {
	var d struct {
		title, desc, typ, priority, platform, due string
		tags                                      []string
		estimated                                 float64
	}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				draft := store.Draft{
					Title:          d.title,
					Description:    d.desc,
					Type:           domain.ProjectType(d.typ),
					Priority:       domain.Priority(d.priority),
					Platform:       d.platform,
					Tags:           d.tags,
					EstimatedHours: d.estimated,
				}
				if d.due != "" {
					t, err := time.Parse("2006-01-02", d.due)
					if err != nil {
						return fmt.Errorf("--due must be YYYY-MM-DD: %w", err)
					}
					draft.DueDate = &t
				}
				p, err := a.Projects.Create(ctx, draft)
				if err != nil {
					return err
				}
				return printJSONOrValue(p)
			})
		},
	}
	cmd.Flags().StringVar(&d.title, "title", "", "project title")
	cmd.Flags().StringVar(&d.desc, "description", "", "description")
	cmd.Flags().StringVar(&d.typ, "type", "", "type (video, thumbnail, strategy, analytics, content)")
	cmd.Flags().StringVar(&d.priority, "priority", "", "priority (low, medium, high, urgent)")
	cmd.Flags().StringVar(&d.platform, "platform", "", "target platform")
	cmd.Flags().StringVar(&d.due, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringArrayVar(&d.tags, "tag", []string{}, "tag (repeatable)")
	cmd.Flags().Float64Var(&d.estimated, "estimated-hours", 0, "estimated hours")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func projectShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				p, err := a.Projects.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrValue(p)
			})
		},
	}
	return cmd
}

func projectEditCmd() *cobra.Command {
	var (
		title, desc, typ, priority, platform, due string
		clearDue                                  bool
		tags                                      []string
		estimated, actual                         float64
		comments                                  int
	)
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit project fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				var patch store.Patch
				if cmd.Flags().Changed("title") {
					patch.Title = &title
				}
				if cmd.Flags().Changed("description") {
					patch.Description = &desc
				}
				if cmd.Flags().Changed("type") {
					t := domain.ProjectType(typ)
					patch.Type = &t
				}
				if cmd.Flags().Changed("priority") {
					p := domain.Priority(priority)
					patch.Priority = &p
				}
				if cmd.Flags().Changed("platform") {
					patch.Platform = &platform
				}
				if cmd.Flags().Changed("due") {
					t, err := time.Parse("2006-01-02", due)
					if err != nil {
						return fmt.Errorf("--due must be YYYY-MM-DD: %w", err)
					}
					patch.DueDate = &t
				}
				if clearDue {
					patch.ClearDueDate = true
				}
				if cmd.Flags().Changed("tag") {
					patch.Tags = tags
				}
				if cmd.Flags().Changed("estimated-hours") {
					patch.EstimatedHours = &estimated
				}
				if cmd.Flags().Changed("actual-hours") {
					patch.ActualHours = &actual
				}
				if cmd.Flags().Changed("comments") {
					patch.Comments = &comments
				}
				p, err := a.Projects.Edit(ctx, args[0], patch)
				if err != nil {
					return err
				}
				return printJSONOrValue(p)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "project title")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	cmd.Flags().StringVar(&typ, "type", "", "type")
	cmd.Flags().StringVar(&priority, "priority", "", "priority")
	cmd.Flags().StringVar(&platform, "platform", "", "target platform")
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&clearDue, "clear-due", false, "remove the due date")
	cmd.Flags().StringArrayVar(&tags, "tag", []string{}, "replace tags (repeatable)")
	cmd.Flags().Float64Var(&estimated, "estimated-hours", 0, "estimated hours")
	cmd.Flags().Float64Var(&actual, "actual-hours", 0, "actual hours")
	cmd.Flags().IntVar(&comments, "comments", 0, "comment count")
	return cmd
}

func projectStageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stage <id> <stage>",
		Short: "Move a project to a stage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				p, err := a.Projects.UpdateStage(ctx, args[0], domain.Stage(args[1]))
				if err != nil {
					return err
				}
				return printJSONOrValue(p)
			})
		},
	}
	return cmd
}

func projectProgressCmd() *cobra.Command {
	var value int
	cmd := &cobra.Command{
		Use:   "progress <id>",
		Short: "Set project progress (clamped to 0-100)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				p, err := a.Projects.UpdateProgress(ctx, args[0], value)
				if err != nil {
					return err
				}
				return printJSONOrValue(p)
			})
		},
	}
	cmd.Flags().IntVar(&value, "value", 0, "progress value")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

func projectDuplicateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "duplicate <id>",
		Short: "Duplicate a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				p, err := a.Projects.Duplicate(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrValue(p)
			})
		},
	}
	return cmd
}

func projectArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive <id>",
		Short: "Archive a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				p, err := a.Projects.Archive(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrValue(p)
			})
		},
	}
	return cmd
}

func criteriaFlags(cmd *cobra.Command, c *view.Criteria) {
	cmd.Flags().StringVar((*string)(&c.Stage), "stage", "", "stage filter")
	cmd.Flags().StringVar((*string)(&c.Type), "type", "", "type filter")
	cmd.Flags().StringVar((*string)(&c.Priority), "priority", "", "priority filter")
	cmd.Flags().StringVar(&c.Platform, "platform", "", "platform filter")
}

func boardCmd() *cobra.Command {
	var c view.Criteria
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show the kanban board",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				columns := view.Kanban(view.Filter(a.Projects.Active(ctx), c))
				if viper.GetBool("json") {
					return printJSON(columns)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Stage", "ID", "Title", "Priority", "Progress"})
				for _, col := range columns {
					if len(col.Projects) == 0 {
						tw.AppendRow(table.Row{col.Stage, "", "(empty)", "", ""})
						continue
					}
					for _, p := range col.Projects {
						tw.AppendRow(table.Row{col.Stage, p.ID, p.Title, p.Priority, fmt.Sprintf("%d%%", p.Progress)})
					}
				}
				tw.Render()
				return nil
			})
		},
	}
	criteriaFlags(cmd, &c)
	return cmd
}

func listCmd() *cobra.Command {
	var c view.Criteria
	var sortKey string
	var desc, includeArchived bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				key := view.SortKey(sortKey)
				if !view.ValidSortKey(key) {
					return fmt.Errorf("unknown sort key %q", sortKey)
				}
				projects := a.Projects.Active(ctx)
				if includeArchived {
					projects = a.Projects.All(ctx)
				}
				rows := view.List(view.Filter(projects, c), key, desc)
				if viper.GetBool("json") {
					return printJSON(rows)
				}
				renderProjectTable(rows)
				return nil
			})
		},
	}
	criteriaFlags(cmd, &c)
	cmd.Flags().StringVar(&sortKey, "sort", "", "sort key (title, priority, due_date, progress, created)")
	cmd.Flags().BoolVar(&desc, "desc", false, "sort descending")
	cmd.Flags().BoolVar(&includeArchived, "archived", false, "include archived projects")
	return cmd
}

func timelineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "Show projects by due date",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				rows := view.Timeline(a.Projects.Active(ctx))
				if viper.GetBool("json") {
					return printJSON(rows)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Due", "ID", "Title", "Stage", "Progress"})
				now := time.Now()
				for _, p := range rows {
					due := "none"
					if p.DueDate != nil {
						due = p.DueDate.Format("2006-01-02")
						if p.Overdue(now) {
							due += " (overdue)"
						}
					}
					tw.AppendRow(table.Row{due, p.ID, p.Title, p.Stage, fmt.Sprintf("%d%%", p.Progress)})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func statsCmd() *cobra.Command {
	var c view.Criteria
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show summary stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				st := view.Aggregate(view.Filter(a.Projects.Active(ctx), c), time.Now(), a.Config.Scoring)
				return printJSONOrValue(st)
			})
		},
	}
	criteriaFlags(cmd, &c)
	return cmd
}

func requireFiles(a *app.App) error {
	if a.Files == nil {
		return errors.New("no storage backend configured; set storage.endpoint in studiohub.yml")
	}
	return nil
}

func filesCmd() *cobra.Command {
	f := &cobra.Command{Use: "files", Short: "Manage project attachments"}
	f.AddCommand(filesUploadCmd())
	f.AddCommand(filesListCmd())
	f.AddCommand(filesRenameCmd())
	f.AddCommand(filesDeleteCmd())
	f.AddCommand(filesGetCmd())
	f.AddCommand(filesUsageCmd())
	return f
}

func filesUploadCmd() *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "upload <path>...",
		Short: "Upload files to a project",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := requireFiles(a); err != nil {
					return err
				}
				for _, path := range args {
					fh, err := os.Open(path)
					if err != nil {
						return err
					}
					info, err := fh.Stat()
					if err != nil {
						fh.Close()
						return err
					}
					contentType := mime.TypeByExtension(filepath.Ext(path))
					uploaded, err := a.Files.Upload(ctx, projectID, filepath.Base(path), contentType, fh, info.Size())
					fh.Close()
					if err != nil {
						return err
					}
					fmt.Printf("uploaded %s (%d bytes) as %s\n", uploaded.Name, uploaded.Size, uploaded.ID)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func filesListCmd() *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List files attached to a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := requireFiles(a); err != nil {
					return err
				}
				items := a.Files.Files(cmd.Context(), projectID)
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Size", "Type", "Uploaded"})
				for _, it := range items {
					tw.AppendRow(table.Row{it.ID, it.Name, it.Size, it.Type, it.UploadedAt.Format(time.RFC3339)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func filesRenameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename <file-id> <name>",
		Short: "Rename a file (display name only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := requireFiles(a); err != nil {
					return err
				}
				f, err := a.Files.Rename(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return printJSONOrValue(f)
			})
		},
	}
	return cmd
}

func filesDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <file-id>",
		Short: "Delete a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := requireFiles(a); err != nil {
					return err
				}
				return a.Files.Delete(ctx, args[0])
			})
		},
	}
	return cmd
}

func filesGetCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "get <file-id>",
		Short: "Download a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := requireFiles(a); err != nil {
					return err
				}
				rc, meta, err := a.Files.Download(ctx, args[0])
				if err != nil {
					return err
				}
				defer rc.Close()
				dest := out
				if dest == "" {
					dest = meta.Name
				}
				fh, err := os.Create(dest)
				if err != nil {
					return err
				}
				defer fh.Close()
				if _, err := fh.ReadFrom(rc); err != nil {
					return err
				}
				fmt.Printf("saved %s\n", dest)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output path (defaults to the display name)")
	return cmd
}

func filesUsageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show storage usage against the plan quota",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := requireFiles(a); err != nil {
					return err
				}
				id, err := a.Sessions.Current(ctx)
				if err != nil {
					return err
				}
				used := a.Files.GlobalUsage(ctx)
				quota := a.Config.Quota(id.Plan)
				if viper.GetBool("json") {
					return printJSON(map[string]int64{"used_bytes": used, "quota_bytes": quota})
				}
				fmt.Printf("%d / %d bytes used (%s plan)\n", used, quota, id.Plan)
				return nil
			})
		},
	}
	return cmd
}

func notificationsCmd() *cobra.Command {
	n := &cobra.Command{Use: "notifications", Short: "Manage notifications"}
	n.AddCommand(notificationsListCmd())
	n.AddCommand(notificationsReadCmd())
	return n
}

func notificationsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notifications, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items := a.Events.List(ctx)
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"", "When", "Category", "Title", "Message"})
				for _, it := range items {
					mark := " "
					if !it.Read {
						mark = "*"
					}
					if it.Pinned {
						mark = "!"
					}
					tw.AppendRow(table.Row{mark, it.Timestamp.Format("2006-01-02 15:04"), it.Category, it.Title, it.Message})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func notificationsReadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read [id]",
		Short: "Mark a notification (or all) read",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if len(args) == 0 {
					n := a.Events.MarkAllRead(ctx)
					fmt.Printf("marked %d read\n", n)
					return nil
				}
				_, err := a.Events.MarkRead(ctx, args[0])
				return err
			})
		},
	}
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := kv.EnsureWorkspace(workspace); err != nil {
				return err
			}
			a, err := app.Open(cmd.Context(), app.Options{
				Workspace: workspace,
				Sessions:  session.ContextProvider{},
			})
			if err != nil {
				return err
			}
			defer a.Close()
			secret := a.Config.Server.JWTSecret
			if s := os.Getenv("STUDIOHUB_JWT_SECRET"); s != "" {
				secret = s
			}
			if secret == "" {
				return fmt.Errorf("a JWT secret is required: set server.jwt_secret or STUDIOHUB_JWT_SECRET")
			}
			if addr == "" {
				addr = a.Config.Server.Addr
			}
			handler, err := server.New(server.Config{
				App:      a,
				BasePath: basePath,
				Auth:     server.AuthConfig{JWTSecret: secret},
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Studio Hub API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to server.addr)")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the current actor and plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				secret := a.Config.Server.JWTSecret
				if s := os.Getenv("STUDIOHUB_JWT_SECRET"); s != "" {
					secret = s
				}
				tok, err := session.SignToken(session.Identity{
					ActorID: viper.GetString("actor-id"),
					Plan:    domain.PlanTier(viper.GetString("plan")),
				}, secret)
				if err != nil {
					return err
				}
				fmt.Println(tok)
				return nil
			})
		},
	}
	return cmd
}

func renderProjectTable(rows []domain.PipelineProject) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "Title", "Type", "Stage", "Priority", "Progress", "Due"})
	for _, p := range rows {
		due := ""
		if p.DueDate != nil {
			due = p.DueDate.Format("2006-01-02")
		}
		tw.AppendRow(table.Row{p.ID, p.Title, p.Type, p.Stage, p.Priority, fmt.Sprintf("%d%%", p.Progress), due})
	}
	tw.Render()
}

func printJSONOrValue(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
