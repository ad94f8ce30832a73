package cli

import (
	"fmt"
	"sort"

	"github.com/specialistvlad/tempogrid/internal/app"
	"github.com/specialistvlad/tempogrid/internal/arrowio"
	"github.com/spf13/cobra"
)

func newOpsCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ops",
		Short: "List the registered operators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			return a.DescribeOperators(cmd.OutOrStdout())
		},
	}
}

func newValidateCommand(opts *globalOptions) *cobra.Command {
	var graphPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load a graph, run every operator check and print its schemas",
		Example: `  tempogrid validate --graph features.hcl
  tempogrid validate --graph ./graphs/`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			g, err := a.LoadGraph(cmd.Context(), graphPath)
			if err != nil {
				return err
			}
			return app.DescribeGraph(cmd.OutOrStdout(), g)
		},
	}
	cmd.Flags().StringVarP(&graphPath, "graph", "g", "", "Path to the graph file or directory.")
	_ = cmd.MarkFlagRequired("graph")
	return cmd
}

func newRunCommand(opts *globalOptions) *cobra.Command {
	var (
		graphPath string
		inputs    map[string]string
		outDir    string
		format    string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate a graph and write every output",
		Example: `  tempogrid run --graph features.hcl --input prices=prices.arrow --out ./out
  tempogrid run -g ./graphs --input prices=p.parquet,flags=f.arrow --out ./out --format parquet`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := arrowio.Format(format)
			if f != arrowio.FormatIPC && f != arrowio.FormatParquet {
				return usageError(fmt.Errorf("invalid format %q: must be '%s' or '%s'", format, arrowio.FormatIPC, arrowio.FormatParquet))
			}
			a, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			paths, err := a.Run(cmd.Context(), app.RunRequest{
				GraphPath: graphPath,
				Inputs:    inputs,
				OutDir:    outDir,
				Format:    f,
			})
			if err != nil {
				return err
			}
			names := make([]string, 0, len(paths))
			for name := range paths {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, paths[name])
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&graphPath, "graph", "g", "", "Path to the graph file or directory.")
	flags.StringToStringVarP(&inputs, "input", "i", nil, "Input data as name=path. Repeatable.")
	flags.StringVarP(&outDir, "out", "o", ".", "Directory the outputs are written to.")
	flags.StringVar(&format, "format", string(arrowio.FormatIPC), "Output file format. Options: 'arrow' or 'parquet'.")
	_ = cmd.MarkFlagRequired("graph")
	return cmd
}
