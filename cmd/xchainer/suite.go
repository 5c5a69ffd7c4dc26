package main

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/YoshimuraKazumasa/chainer/internal/gradcheck/suite"
)

func NewSuiteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suite [FILE]",
		Short: "Run a suite of gradient checks",
		Long:  "Run the gradient checks listed in a YAML suite file, or the built-in suite when no file is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  suiteHandler,
	}

	cmd.Flags().StringP("run", "r", "", "Only run the case with this name")

	return cmd
}

func suiteHandler(cmd *cobra.Command, args []string) error {
	s := suite.Builtin()
	if len(args) == 1 {
		var err error
		if s, err = suite.Load(args[0]); err != nil {
			return err
		}
	}

	only, err := cmd.Flags().GetString("run")
	if err != nil {
		return err
	}
	if only != "" {
		var cases []suite.Case
		for _, c := range s.Cases {
			if c.Name == only {
				cases = append(cases, c)
			}
		}
		if len(cases) == 0 {
			return errors.Errorf("no case named %q", only)
		}
		s = &suite.Suite{Cases: cases}
	}

	results := suite.Run(s)

	var data [][]string
	var failed, skipped int
	for _, r := range results {
		status := "ok"
		switch {
		case r.Skipped:
			status = "skip"
			skipped++
		case !r.Passed:
			status = "FAIL"
			failed++
		}
		detail := ""
		if r.Err != nil && (r.Skipped || !r.Passed) {
			detail = r.Err.Error()
		}
		data = append(data, []string{r.Name, status, r.Duration.Round(time.Microsecond).String(), detail})
	}
	renderTable(cmd.OutOrStdout(), []string{"CASE", "RESULT", "TIME", "ERROR"}, data)

	if failed > 0 {
		return errors.Errorf("%d of %d cases failed", failed, len(results))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d passed, %d skipped\n", len(results)-skipped, skipped)
	return nil
}
