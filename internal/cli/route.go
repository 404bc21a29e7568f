package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gzhole/opguard/internal/router"
)

type routeOptions struct {
	category string
	validate bool
	json     bool
}

func newRouteCmd(g *globalOptions) *cobra.Command {
	o := &routeOptions{}

	cmd := &cobra.Command{
		Use:   "route <intent...>",
		Short: "Resolve an intent to a handler category",
		Long: `Resolve a free-text intent to exactly one of the handler categories
query, record, schema or discover.

An intent whose keywords point at more than one category is rejected; pass
--category to choose explicitly.

Examples:
  opguard route find overdue invoices
  opguard route --category query "list records from table"
  opguard route --validate "update field mapping"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			intent := strings.Join(args, " ")
			out := cmd.OutOrStdout()

			if o.validate {
				d := router.ValidateRouting(intent)
				if o.json {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(d)
				}
				switch {
				case d.Ambiguous:
					fmt.Fprintf(out, "ambiguous: %s\n", joinCategories(d.Candidates))
				case d.Defaulted:
					fmt.Fprintf(out, "%s (default, no keywords matched)\n", d.Category)
					for _, c := range router.Categories {
						fmt.Fprintf(out, "  %-9s %s\n", c+":", strings.Join(router.Keywords(c), ", "))
					}
				default:
					fmt.Fprintln(out, d.Category)
				}
				return nil
			}

			c, err := router.Route(router.Request{Intent: intent, ExplicitCategory: o.category})
			if err != nil {
				var amb *router.AmbiguousRoutingError
				if errors.As(err, &amb) {
					return fmt.Errorf("%w (try --category %s)", err, amb.Candidates[0])
				}
				return err
			}
			if o.json {
				return json.NewEncoder(out).Encode(map[string]string{"category": string(c)})
			}
			fmt.Fprintln(out, c)
			return nil
		},
	}

	cmd.Flags().StringVarP(&o.category, "category", "c", "", "Explicit category: query, record, schema or discover")
	cmd.Flags().BoolVar(&o.validate, "validate", false, "Report keyword inference without failing on ambiguity")
	cmd.Flags().BoolVar(&o.json, "json", false, "Print the result as JSON")
	return cmd
}

func joinCategories(cs []router.Category) string {
	names := make([]string, len(cs))
	for i, c := range cs {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
