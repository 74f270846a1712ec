package cli

import (
	"fmt"
	"strconv"
	"strings"

	"visadesk/internal/listing"
	"visadesk/internal/record"
	"visadesk/internal/render"

	"github.com/spf13/cobra"
)

// groupRows renders groups as a summary table.
type groupRows struct {
	groups []record.Group
	r      *render.Renderer
}

func (g groupRows) TableHeaders() []string {
	return []string{"ID", "NAME", "STATUS", "DEPS", "TRAVEL", "DOC DATE", "PROGRESS"}
}

func (g groupRows) TableRows() [][]string {
	out := make([][]string, 0, len(g.groups))
	for _, grp := range g.groups {
		gv := g.r.RenderGroup(grp)
		h := gv.Traveler.Header
		out = append(out, []string{
			strconv.FormatInt(grp.ID(), 10),
			h.Name,
			h.Status,
			strconv.Itoa(h.DependentCount),
			grp.Traveler.Get("planned_travel_date"),
			grp.Traveler.Get("doc_date"),
			strconv.Itoa(h.Progress) + "%",
		})
	}
	return out
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func newTravelersCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "travelers",
		Aliases: []string{"traveler", "t"},
		Short:   "List, show and create travelers",
	}
	cmd.AddCommand(newTravelersListCmd(app))
	cmd.AddCommand(newTravelersShowCmd(app))
	cmd.AddCommand(newTravelersCreateCmd(app))
	return cmd
}

func newTravelersListCmd(app *App) *cobra.Command {
	var (
		search  string
		filters []string
		sortBy  string
		desc    bool
		all     bool
		page    int
		limit   int
		saved   bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List traveler groups (search, filter and sort apply to the loaded page)",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(app, cmd.ErrOrStderr())
			if err != nil {
				return writeErr(cmd, err)
			}
			st := listing.NewState()
			st.Reg = s.reg
			if saved {
				st.Restore(s.store.LoadListing())
			}
			if cmd.Flags().Changed("search") {
				st.Search = search
			}
			for _, f := range filters {
				col, val, ok := strings.Cut(f, "=")
				c, known := listing.ParseColumn(col)
				if !ok || !known {
					return writeErr(cmd, fmt.Errorf("invalid --filter %q (expected column=value; columns: %s)", f, columnNames()))
				}
				st.SetFilter(c, val)
			}
			if cmd.Flags().Changed("sort") {
				t, ok := listing.ParseSortType(sortBy)
				if !ok {
					return writeErr(cmd, fmt.Errorf("invalid --sort %q (expected travel_date|doc_date)", sortBy))
				}
				st.Sort = listing.SortSpec{Type: t, Asc: !desc}
			}

			if limit <= 0 {
				limit = s.pageSize()
			}
			l := listing.Loader{Src: s.client, PageSize: limit}
			ctx := cmd.Context()
			if all {
				err = l.LoadAll(ctx, st)
			} else {
				p, ferr := l.FetchPage(ctx, page)
				if ferr == nil {
					st.ApplyPage(p)
				}
				err = ferr
			}
			if err != nil {
				return writeErr(cmd, err)
			}

			vis := st.Visible()
			return writeOut(cmd, app, envelope{
				Data: vis,
				Meta: map[string]any{
					"page":       st.Page,
					"totalPages": st.TotalPages,
					"total":      st.Total,
					"loaded":     len(st.All),
					"shown":      len(vis),
					"hasMore":    st.HasMore(),
				},
				rows: groupRows{groups: vis, r: render.NewRenderer(s.reg)},
			})
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "Free-text search over visible record text")
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "Column filter column=value (repeatable; columns: "+columnNames()+")")
	cmd.Flags().StringVar(&sortBy, "sort", "", "Sort by travel_date|doc_date")
	cmd.Flags().BoolVar(&desc, "desc", false, "Sort descending")
	cmd.Flags().BoolVar(&all, "all", false, "Load every record in one request")
	cmd.Flags().IntVar(&page, "page", 0, "Page number (0-based)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Page size (default: config pageSize or 200)")
	cmd.Flags().BoolVar(&saved, "saved", false, "Start from the console's saved search, filters and sort")
	return cmd
}

func columnNames() string {
	names := make([]string, len(listing.Columns))
	for i, c := range listing.Columns {
		names[i] = string(c)
	}
	return strings.Join(names, ",")
}

func newTravelersShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <traveler-id>",
		Short: "Show a traveler with dependents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			s, err := openSession(app, cmd.ErrOrStderr())
			if err != nil {
				return writeErr(cmd, err)
			}
			g, err := s.client.FetchGroup(cmd.Context(), id)
			if err != nil {
				return writeErr(cmd, err)
			}
			r := render.NewRenderer(s.reg)
			return writeOut(cmd, app, envelope{
				Data: g,
				Meta: map[string]any{"progress": r.Progress(g)},
				rows: recordRows{group: g, reg: s.reg},
			})
		},
	}
}

func newTravelersCreateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create an empty traveler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(app, cmd.ErrOrStderr())
			if err != nil {
				return writeErr(cmd, err)
			}
			id, err := s.client.CreateTraveler(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope{Data: map[string]any{"id": id, "table": record.Travelers}})
		},
	}
}

func newDependentsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dependents",
		Aliases: []string{"dependent", "d"},
		Short:   "Create dependents",
	}
	var travelerID int64
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an empty dependent under a traveler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if travelerID <= 0 {
				return writeErr(cmd, fmt.Errorf("missing --traveler"))
			}
			s, err := openSession(app, cmd.ErrOrStderr())
			if err != nil {
				return writeErr(cmd, err)
			}
			id, err := s.client.CreateDependent(cmd.Context(), travelerID)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope{Data: map[string]any{"id": id, "table": record.Dependents, "travelerId": travelerID}})
		},
	}
	createCmd.Flags().Int64Var(&travelerID, "traveler", 0, "Traveler id")
	cmd.AddCommand(createCmd)
	return cmd
}
