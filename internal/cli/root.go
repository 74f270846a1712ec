package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"visadesk/internal/api"
	"visadesk/internal/fields"
	"visadesk/internal/format"
	"visadesk/internal/store"
	"visadesk/internal/tui"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type App struct {
	APIURL     string
	Token      string
	Dir        string
	PrettyJSON bool
	Format     string
	Verbose    bool
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "visadesk",
		Short:        "Visa agency records console (TUI + CLI)",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive console
  visadesk

  # Scriptable commands
  visadesk travelers list --filter status=Doc --sort doc_date
  visadesk records set travelers 12 status "Visa Approved"
  visadesk autofill passport travelers 12 --mrz-file scan.txt
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&app.APIURL, "api", envOr("VISADESK_API", ""), "Backend base URL (default: apiUrl from config.json)")
	cmd.PersistentFlags().StringVar(&app.Token, "token", envOr("VISADESK_TOKEN", ""), "Bearer token (default: token from config.json)")
	cmd.PersistentFlags().StringVar(&app.Dir, "dir", envOr("VISADESK_DIR", ""), "Local state dir for UI state and the edit journal (default: config dir)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("VISADESK_FORMAT", "json"), "Output format (json|edn|table)")
	cmd.PersistentFlags().BoolVar(&app.Verbose, "verbose", false, "Log requests to stderr")

	cmd.AddCommand(newTravelersCmd(app))
	cmd.AddCommand(newDependentsCmd(app))
	cmd.AddCommand(newRecordsCmd(app))
	cmd.AddCommand(newFieldsCmd(app))
	cmd.AddCommand(newStateCmd(app))
	cmd.AddCommand(newJournalCmd(app))
	cmd.AddCommand(newAutofillCmd(app))
	cmd.AddCommand(newLogoutCmd(app))

	return cmd
}

// session is everything a command needs to talk to the backend.
type session struct {
	cfg    *store.Config
	reg    *fields.Registry
	client *api.Client
	store  store.Store
	log    *slog.Logger
}

func openSession(app *App, logOut io.Writer) (*session, error) {
	cfg, err := store.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	reg, err := fields.Default().LoadOverride(cfg.RegistryOverride)
	if err != nil {
		return nil, err
	}
	st, err := localStore(app)
	if err != nil {
		return nil, err
	}
	level := slog.LevelWarn
	if app.Verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))

	baseURL := firstNonEmpty(app.APIURL, cfg.APIURL)
	if baseURL == "" {
		return nil, fmt.Errorf("no backend configured; pass --api, set VISADESK_API, or set apiUrl in config.json")
	}
	client := api.NewClient(baseURL,
		api.WithToken(firstNonEmpty(app.Token, cfg.Token)),
		api.WithRegistry(reg),
		api.WithLogger(log),
	)
	return &session{cfg: cfg, reg: reg, client: client, store: st, log: log}, nil
}

// localStore is the state dir, for commands that never reach the backend.
func localStore(app *App) (store.Store, error) {
	if app.Dir != "" {
		return store.Store{Dir: app.Dir}, nil
	}
	dir, err := store.DefaultDir()
	if err != nil {
		return store.Store{}, err
	}
	return store.Store{Dir: dir}, nil
}

func (s *session) pageSize() int {
	if s.cfg.PageSize > 0 {
		return s.cfg.PageSize
	}
	return api.DefaultPageSize
}

func runTUI(app *App) error {
	s, err := openSession(app, io.Discard)
	if err != nil {
		return err
	}
	opts := tui.Options{
		Client:   s.client,
		Registry: s.reg,
		Store:    s.store,
		Config:   s.cfg,
	}
	j, err := s.store.OpenJournal(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, warnColor.Sprint("warning:"), "edit journal unavailable:", err)
	} else {
		defer j.Close()
		opts.Journal = j
	}
	return tui.Run(opts)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

// envelope wraps command output as {"data": ..., "meta": ...}. rows, when
// set, is used for --format table.
type envelope struct {
	Data any            `json:"data"`
	Meta map[string]any `json:"meta,omitempty"`

	rows format.Tabular
}

func (e envelope) TableHeaders() []string {
	if e.rows != nil {
		return e.rows.TableHeaders()
	}
	return []string{"DATA"}
}

func (e envelope) TableRows() [][]string {
	if e.rows != nil {
		return e.rows.TableRows()
	}
	b, _ := json.Marshal(e.Data)
	return [][]string{{string(b)}}
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}

var warnColor = color.New(color.FgYellow, color.Bold)

// warn prints a non-fatal notice (rolled-back edit, failed reload) to stderr.
func warn(cmd *cobra.Command, msg string) {
	warnColor.Fprint(cmd.ErrOrStderr(), "warning: ")
	fmt.Fprintln(cmd.ErrOrStderr(), msg)
}
