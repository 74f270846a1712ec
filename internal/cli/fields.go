package cli

import (
	"strings"

	"visadesk/internal/fields"
	"visadesk/internal/record"
	"visadesk/internal/store"

	"github.com/spf13/cobra"
)

type fieldOut struct {
	fields.Spec
	Kind string `json:"kind"`
}

type fieldRows []fieldOut

func (f fieldRows) TableHeaders() []string {
	return []string{"NAME", "LABEL", "KIND", "TABLES", "REQUIRED", "OPTIONS"}
}

func (f fieldRows) TableRows() [][]string {
	out := make([][]string, 0, len(f))
	for _, x := range f {
		req := ""
		if x.Required {
			req = "yes"
		}
		tables := strings.Join(x.Tables, ",")
		if tables == "" {
			tables = "*"
		}
		out = append(out, []string{x.Name, x.Label, x.Kind, tables, req, strings.Join(x.Options, fields.MultiSeparator)})
	}
	return out
}

func newFieldsCmd(app *App) *cobra.Command {
	var table string
	cmd := &cobra.Command{
		Use:   "fields",
		Short: "Show the field registry (labels, widgets, options)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := store.LoadConfig()
			if err != nil {
				return writeErr(cmd, err)
			}
			reg, err := fields.Default().LoadOverride(cfg.RegistryOverride)
			if err != nil {
				return writeErr(cmd, err)
			}
			var specs []fields.Spec
			if table != "" {
				t, err := record.ParseTable(table)
				if err != nil {
					return writeErr(cmd, err)
				}
				for _, name := range reg.Order(string(t)) {
					specs = append(specs, reg.Lookup(name))
				}
			} else {
				specs = reg.All()
			}
			out := make(fieldRows, 0, len(specs))
			for _, s := range specs {
				out = append(out, fieldOut{Spec: s, Kind: s.Kind().String()})
			}
			return writeOut(cmd, app, envelope{
				Data: out,
				Meta: map[string]any{"statuses": reg.Statuses()},
				rows: out,
			})
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "Only fields rendered for travelers|dependents, in visual order")
	return cmd
}
