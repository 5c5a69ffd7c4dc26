package main

import (
	"flag"
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	_ "github.com/YoshimuraKazumasa/chainer/internal/backend/managed"
	_ "github.com/YoshimuraKazumasa/chainer/internal/backend/native"
	"github.com/YoshimuraKazumasa/chainer/internal/envconfig"
	"github.com/YoshimuraKazumasa/chainer/internal/gradcheck/suite"
)

// Set with -ldflags "-X main.version=...".
var version = "0.0.0"

func NewCLI() *cobra.Command {
	klogFlags := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(klogFlags)
	if envconfig.Debug {
		_ = klogFlags.Set("v", "2")
	}

	rootCmd := &cobra.Command{
		Use:   "xchainer",
		Short: "Check gradients of differentiable functions",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Disable usage printing on errors
			cmd.SilenceUsage = true
		},
	}
	rootCmd.PersistentFlags().AddGoFlagSet(klogFlags)

	cobra.EnableCommandSorting = false

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "xchainer version %s\n", version)
		},
	}

	envCmd := &cobra.Command{
		Use:   "env",
		Short: "Show the environment configuration",
		Args:  cobra.NoArgs,
		RunE:  envHandler,
	}

	functionsCmd := &cobra.Command{
		Use:     "functions",
		Aliases: []string{"funcs"},
		Short:   "List the functions available to checks",
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range suite.Functions() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}

	rootCmd.AddCommand(
		NewCheckCmd(),
		NewSuiteCmd(),
		NewDevicesCmd(),
		functionsCmd,
		envCmd,
		versionCmd,
	)

	return rootCmd
}

func envHandler(cmd *cobra.Command, args []string) error {
	vars := envconfig.AsMap()
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	var data [][]string
	for _, name := range names {
		v := vars[name]
		data = append(data, []string{v.Name, fmt.Sprintf("%v", v.Value), v.Description})
	}
	renderTable(cmd.OutOrStdout(), []string{"NAME", "VALUE", "DESCRIPTION"}, data)
	return nil
}

func renderTable(w io.Writer, header []string, data [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()
}
