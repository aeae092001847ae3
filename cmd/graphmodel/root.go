// Package graphmodel implements the graphmodel command line tool: small
// inspection and maintenance commands against a configured graph store.
package graphmodel

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soundprediction/graphmodel"
	"github.com/soundprediction/graphmodel/pkg/config"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "graphmodel",
		Short: "graphmodel: inspect and maintain a mapped graph store",
		Long: `graphmodel maps typed application objects onto graph nodes and
relationships. This tool opens the store named by the configuration
(embedded Badger or Neo4j) and runs small inspection and maintenance
commands against it.`,
		SilenceUsage: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: environment variables)")
}

// openGraph builds a Graph from the --config file or the environment.
func openGraph() (*graphmodel.Graph, error) {
	var (
		cfg *config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.LoadFile(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	g, err := graphmodel.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open graph store: %w", err)
	}
	return g, nil
}

func fail(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}
