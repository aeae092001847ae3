package graphmodel

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/soundprediction/graphmodel"
	"github.com/soundprediction/graphmodel/pkg/types"
)

var searchLimit int

var getCmd = &cobra.Command{
	Use:   "get <node-id>",
	Short: "Fetch one node by id and print it as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := openGraph()
		if err != nil {
			return err
		}
		defer g.Close(cmd.Context())

		node, err := graphmodel.GetNode[types.DynamicNode](cmd.Context(), g, args[0], types.Options().WithDepth(0))
		if err != nil {
			return fail("failed to fetch node %q: %w", args[0], err)
		}
		return printJSON(node)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Case-insensitive property search across all node labels",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := openGraph()
		if err != nil {
			return err
		}
		defer g.Close(cmd.Context())

		nodes, err := graphmodel.Search(g, args[0]).Take(searchLimit).ToList(cmd.Context())
		if err != nil {
			return fail("search failed: %w", err)
		}
		return printJSON(nodes)
	},
}

var countCmd = &cobra.Command{
	Use:   "count <label>",
	Short: "Count nodes carrying a label",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := openGraph()
		if err != nil {
			return err
		}
		defer g.Close(cmd.Context())

		n, err := graphmodel.NodesByLabel(g, args[0]).Count(cmd.Context())
		if err != nil {
			return fail("count failed: %w", err)
		}
		return printJSON(map[string]any{"label": args[0], "count": n})
	},
}

var (
	deleteCascade bool
	deleteCmd     = &cobra.Command{
		Use:   "delete <node-id>",
		Short: "Delete one node (use --cascade to detach its relationships)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := openGraph()
			if err != nil {
				return err
			}
			defer g.Close(cmd.Context())

			if err := g.DeleteNode(cmd.Context(), args[0], deleteCascade); err != nil {
				return fail("failed to delete node %q: %w", args[0], err)
			}
			return nil
		},
	}
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", 25, "maximum results to print")
	deleteCmd.Flags().BoolVar(&deleteCascade, "cascade", false, "also delete attached relationships")

	rootCmd.AddCommand(getCmd, searchCmd, countCmd, deleteCmd)
}
