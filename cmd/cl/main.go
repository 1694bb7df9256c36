package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/list"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"courseline/internal/clipboard"
	"courseline/internal/config"
	"courseline/internal/db"
	"courseline/internal/engine"
	"courseline/internal/migrate"
	"courseline/internal/outline"
	"courseline/internal/studio"
	courselinesdk "courseline/sdk/go"
)

var rootCmd = &cobra.Command{
	Use:   "cl",
	Short: "Courseline CLI",
	Long: `Courseline authors Open edX style course outlines against a Studio backend.
Core concepts:
- Course: one course per workspace, identified by its course id.
- Outline: the three-level tree of sections, subsections and units.
- Publish: content is drafted first, then published; publish cascades down the subtree.
- Clipboard: copy once, paste anywhere, even from another terminal via redis.
- Stub server: 'cl serve' runs a local Studio stand-in backed by SQLite.`,
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
	viper.SetEnvPrefix("COURSELINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory containing courseline.yml")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().Bool("verbose", false, "verbose logging")
	rootCmd.PersistentFlags().String("course", "", "course id (overrides config)")
	rootCmd.PersistentFlags().String("base-url", "", "studio base URL (overrides config)")
	rootCmd.PersistentFlags().String("token", "", "bearer token (overrides config)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("course", rootCmd.PersistentFlags().Lookup("course"))
	_ = viper.BindPFlag("base-url", rootCmd.PersistentFlags().Lookup("base-url"))
	_ = viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
}

func registerCommands() {
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(outlineCmd())
	rootCmd.AddCommand(sectionCmd())
	rootCmd.AddCommand(subsectionCmd())
	rootCmd.AddCommand(unitCmd())
	rootCmd.AddCommand(publishAllCmd())
	rootCmd.AddCommand(copyCmd())
	rootCmd.AddCommand(pasteCmd())
	rootCmd.AddCommand(highlightsCmd())
	rootCmd.AddCommand(reindexCmd())
	rootCmd.AddCommand(launchCheckCmd())
	rootCmd.AddCommand(serveCmd())
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Manage workspace config"}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var courseID string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default courseline.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			if courseID == "" {
				return fmt.Errorf("--course-id required")
			}
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(courseID)), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&courseID, "course-id", "", "course id")
	_ = cmd.MarkFlagRequired("course-id")
	return cmd
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return printJSON(cfg)
		},
	}
	return cmd
}

func outlineCmd() *cobra.Command {
	ol := &cobra.Command{Use: "outline", Short: "Inspect the course outline"}
	ol.AddCommand(outlineShowCmd())
	ol.AddCommand(outlineFetchCmd())
	return ol
}

func outlineFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch the outline and report per-channel request status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				fetchErr := fetchOutline(ctx, e)
				snap := e.Store.Snapshot()
				if viper.GetBool("json") {
					return printJSON(snap.Channels)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Channel", "Status", "Error"})
				for _, ch := range []outline.Channel{
					outline.ChannelOutlineIndex,
					outline.ChannelSectionLoad,
					outline.ChannelSaving,
					outline.ChannelCourseLaunch,
					outline.ChannelReindex,
				} {
					cs := snap.Channels[ch]
					errText := ""
					if cs.Err != nil {
						errText = string(cs.Err.Kind)
					}
					tw.AppendRow(table.Row{string(ch), string(cs.Status), errText})
				}
				tw.Render()
				return fetchErr
			})
		},
	}
	return cmd
}

func outlineShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Fetch and display the outline tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := fetchOutline(ctx, e); err != nil {
					return err
				}
				snap := e.Store.Snapshot()
				if viper.GetBool("json") {
					return printJSON(snap)
				}
				renderOutline(snap)
				return nil
			})
		},
	}
	return cmd
}

func sectionCmd() *cobra.Command {
	sec := &cobra.Command{Use: "section", Short: "Manage sections"}
	sec.AddCommand(&cobra.Command{
		Use:   "add <display-name>",
		Short: "Add a section at the end of the outline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := fetchOutline(ctx, e); err != nil {
					return err
				}
				locator, err := e.AddSection(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Println(locator)
				return nil
			})
		},
	})
	sec.AddCommand(&cobra.Command{
		Use:   "delete <locator>",
		Short: "Delete a section",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteSection(ctx, args[0])
			})
		},
	})
	sec.AddCommand(&cobra.Command{
		Use:   "duplicate <locator>",
		Short: "Duplicate a section; the copy lands right after the source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := fetchOutline(ctx, e); err != nil {
					return err
				}
				locator, err := e.DuplicateSection(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Println(locator)
				return nil
			})
		},
	})
	sec.AddCommand(&cobra.Command{
		Use:   "publish <locator>",
		Short: "Publish a section and everything beneath it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.PublishItem(ctx, args[0], args[0])
			})
		},
	})
	sec.AddCommand(&cobra.Command{
		Use:   "rename <locator> <display-name>",
		Short: "Rename a section",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.EditDisplayName(ctx, args[0], args[0], args[1])
			})
		},
	})
	var locked bool
	lock := &cobra.Command{
		Use:   "lock <locator>",
		Short: "Set or clear the staff-only lock on a section",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.SetStaffLock(ctx, args[0], args[0], locked)
			})
		},
	}
	lock.Flags().BoolVar(&locked, "locked", true, "lock state")
	sec.AddCommand(lock)
	return sec
}

func subsectionCmd() *cobra.Command {
	sub := &cobra.Command{Use: "subsection", Short: "Manage subsections"}
	sub.AddCommand(&cobra.Command{
		Use:   "add <section-locator> <display-name>",
		Short: "Add a subsection to a section",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := fetchOutline(ctx, e); err != nil {
					return err
				}
				locator, err := e.AddSubsection(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Println(locator)
				return nil
			})
		},
	})
	sub.AddCommand(&cobra.Command{
		Use:   "delete <section-locator> <locator>",
		Short: "Delete a subsection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteSubsection(ctx, args[0], args[1])
			})
		},
	})
	sub.AddCommand(&cobra.Command{
		Use:   "duplicate <section-locator> <locator>",
		Short: "Duplicate a subsection inside its section",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := fetchOutline(ctx, e); err != nil {
					return err
				}
				locator, err := e.DuplicateSubsection(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Println(locator)
				return nil
			})
		},
	})
	sub.AddCommand(&cobra.Command{
		Use:   "publish <section-locator> <locator>",
		Short: "Publish a subsection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.PublishItem(ctx, args[0], args[1])
			})
		},
	})
	sub.AddCommand(&cobra.Command{
		Use:   "rename <section-locator> <locator> <display-name>",
		Short: "Rename a subsection",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.EditDisplayName(ctx, args[0], args[1], args[2])
			})
		},
	})
	return sub
}

func unitCmd() *cobra.Command {
	unit := &cobra.Command{Use: "unit", Short: "Manage units"}
	unit.AddCommand(&cobra.Command{
		Use:   "add <section-locator> <subsection-locator> <display-name>",
		Short: "Add a unit to a subsection",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := fetchOutline(ctx, e); err != nil {
					return err
				}
				locator, err := e.AddUnit(ctx, args[0], args[1], args[2])
				if err != nil {
					return err
				}
				fmt.Println(locator)
				return nil
			})
		},
	})
	unit.AddCommand(&cobra.Command{
		Use:   "delete <section-locator> <subsection-locator> <locator>",
		Short: "Delete a unit",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteUnit(ctx, args[0], args[1], args[2])
			})
		},
	})
	unit.AddCommand(&cobra.Command{
		Use:   "duplicate <section-locator> <subsection-locator> <locator>",
		Short: "Duplicate a unit inside its subsection",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := fetchOutline(ctx, e); err != nil {
					return err
				}
				locator, err := e.DuplicateUnit(ctx, args[0], args[1], args[2])
				if err != nil {
					return err
				}
				fmt.Println(locator)
				return nil
			})
		},
	})
	return unit
}

func publishAllCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish-all",
		Short: "Publish every item with unpublished changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := fetchOutline(ctx, e); err != nil {
					return err
				}
				pending := e.Store.PublishableItemIDs()
				if len(pending) == 0 {
					fmt.Println("nothing to publish")
					return nil
				}
				if err := e.PublishAll(ctx); err != nil {
					return err
				}
				fmt.Printf("published %d items\n", len(pending))
				return nil
			})
		},
	}
	return cmd
}

func copyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "copy <locator>",
		Short: "Copy an item to the shared clipboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.CopyToClipboard(ctx, args[0]); err != nil {
					return err
				}
				return printJSONOrValue(e.Store.Snapshot().Clipboard)
			})
		},
	}
	return cmd
}

func pasteCmd() *cobra.Command {
	var sectionID, parent string
	cmd := &cobra.Command{
		Use:   "paste",
		Short: "Paste the clipboard as a section, or under --parent inside --section",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := fetchOutline(ctx, e); err != nil {
					return err
				}
				var (
					noticeID string
					err      error
				)
				if parent == "" {
					noticeID, err = e.PasteSection(ctx)
				} else {
					if sectionID == "" {
						return fmt.Errorf("--section is required with --parent")
					}
					noticeID, err = e.PasteInto(ctx, sectionID, parent)
				}
				if err != nil {
					return err
				}
				if noticeID != "" {
					notices := e.Store.Snapshot().PasteFileNotices[noticeID]
					return printJSONOrValue(notices)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&sectionID, "section", "", "section containing the paste target")
	cmd.Flags().StringVar(&parent, "parent", "", "parent locator to paste under")
	return cmd
}

func highlightsCmd() *cobra.Command {
	hl := &cobra.Command{Use: "highlights", Short: "Manage section highlights"}
	hl.AddCommand(&cobra.Command{
		Use:   "set <section-locator> <highlight>...",
		Short: "Replace the highlights of a section",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.UpdateHighlights(ctx, args[0], args[0], args[1:])
			})
		},
	})
	hl.AddCommand(&cobra.Command{
		Use:   "enable-emails",
		Short: "Turn on weekly highlight emails for the course",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.EnableHighlightsEmails(ctx)
			})
		},
	})
	return hl
}

func reindexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the course search index",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.Reindex(ctx)
			})
		},
	}
	return cmd
}

func launchCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "launch-check",
		Short: "Show the pre-launch readiness report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				report, err := e.FetchCourseLaunch(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(report)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Check", "Passed"})
				for _, c := range report.Checks {
					tw.AppendRow(table.Row{c.Name, c.Passed})
				}
				tw.Render()
				fmt.Printf("self paced: %v\n", report.SelfPaced)
				return nil
			})
		},
	}
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, dbPath, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the stub Studio API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Serve.Addr
			}
			if dbPath == "" {
				dbPath = cfg.Serve.DBPath
			}
			conn, err := db.Open(db.Config{Path: dbPath})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			store := studio.Store{DB: conn}
			if err := store.EnsureCourse(cmd.Context(), cfg.Course.ID, cfg.Course.ID); err != nil {
				return err
			}
			handler, err := studio.New(studio.Config{
				Store:    store,
				BasePath: basePath,
				Auth:     studio.AuthConfig{JWTSecret: os.Getenv("COURSELINE_JWT_SECRET")},
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
			fmt.Printf("Serving stub Studio API on http://%s%s for %s\n", addr, basePath, cfg.Course.ID)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&dbPath, "db", "", "sqlite database path (default from config)")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

// --- helpers ---

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOptional(viper.GetString("workspace"))
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = &config.Config{}
	}
	if v := viper.GetString("base-url"); v != "" {
		cfg.Studio.BaseURL = v
	}
	if v := viper.GetString("token"); v != "" {
		cfg.Studio.Token = v
	}
	if v := viper.GetString("course"); v != "" {
		cfg.Course.ID = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client := courselinesdk.New(cfg.Studio.BaseURL)
	client.BearerToken = cfg.Studio.Token
	if cfg.Studio.TimeoutSeconds > 0 {
		client.Timeout = time.Duration(cfg.Studio.TimeoutSeconds) * time.Second
	}

	var log *zap.Logger
	if viper.GetBool("verbose") {
		log, err = zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer log.Sync()
	}

	e := engine.New(cfg.Course.ID, client, log)
	defer e.Close()
	e.Notifier = stderrNotifier{}

	if cfg.Clipboard.RedisAddr != "" {
		svc, err := clipboard.Init(clipboard.NewRedisBus(cfg.Clipboard.RedisAddr, cfg.Clipboard.Channel))
		if err != nil {
			return fmt.Errorf("clipboard broadcaster: %w", err)
		}
		defer clipboard.Dispose()
		svc.OnUpdate(e.HandleClipboardUpdate)
		e.Clipboard = svc
	}

	return fn(ctx, e)
}

// fetchOutline loads the index and the full subtree of every section.
func fetchOutline(ctx context.Context, e engine.Engine) error {
	if err := e.FetchOutlineIndex(ctx); err != nil {
		return err
	}
	sections := e.Store.Sections()
	ids := make([]string, len(sections))
	for i := range sections {
		ids[i] = sections[i].ID
	}
	return e.FetchSections(ctx, ids, "")
}

// stderrNotifier mirrors the processing notifications to stderr so the
// user sees progress without polluting stdout output.
type stderrNotifier struct{}

func (stderrNotifier) ShowProcessing(kind engine.ProcessingKind) {
	fmt.Fprintf(os.Stderr, "%s...\n", kind)
}

func (stderrNotifier) Hide() {}

func renderOutline(snap outline.State) {
	fmt.Printf("%s (%s)\n", snap.CourseDisplayName, snap.CourseID)
	lw := list.NewWriter()
	lw.SetOutputMirror(os.Stdout)
	lw.SetStyle(list.StyleConnectedLight)
	for _, sec := range snap.Sections {
		appendItem(lw, sec)
	}
	lw.Render()

	sb := snap.StatusBar
	fmt.Printf("\nrelease: %s  self-paced: %v  highlights emails: %v  launch checks: %d/%d\n",
		orDash(sb.ReleaseDate), sb.SelfPaced, sb.HighlightsEnabledForMessaging,
		sb.Checklist.CompletedCourseLaunchChecks, sb.Checklist.TotalCourseLaunchChecks)
}

func appendItem(lw list.Writer, it outline.Item) {
	lw.AppendItem(fmt.Sprintf("%s [%s]", it.DisplayName, outline.DeriveStatus(it)))
	if len(it.Children) > 0 {
		lw.Indent()
		for _, child := range it.Children {
			appendItem(lw, child)
		}
		lw.UnIndent()
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
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
