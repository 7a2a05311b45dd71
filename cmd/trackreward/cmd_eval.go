package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/trackreward/go-controller/internal/reward"
)

var (
	evalExplain bool
	evalJSON    bool

	evalCmd = &cobra.Command{
		Use:   "eval [params.json|-]",
		Short: "Score one parameter mapping read from a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runEval,
	}
)

func init() {
	evalCmd.Flags().BoolVar(&evalExplain, "explain", false, "print the per-stage breakdown")
	evalCmd.Flags().BoolVar(&evalJSON, "json", false, "output as JSON")
}

func runEval(cmd *cobra.Command, args []string) error {
	var r io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return &exitCodeError{code: 2, err: fmt.Errorf("open params: %w", err)}
		}
		defer f.Close()
		r = f
	}

	var snap reward.Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return &exitCodeError{code: 2, err: fmt.Errorf("read params: %w", err)}
	}

	out := cmd.OutOrStdout()
	if !evalExplain {
		v := reward.Evaluate(snap)
		if evalJSON {
			return json.NewEncoder(out).Encode(map[string]float64{"reward": v})
		}
		fmt.Fprintf(out, "%g\n", v)
		return nil
	}

	b := reward.Explain(snap)
	if evalJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(b)
	}
	fmt.Fprintf(out, "%-16s  %12s  %s\n", "Stage", "Reward", "Applied")
	fmt.Fprintf(out, "%-16s+-%12s+-%s\n", "----------------", "------------", "-------")
	for _, m := range b.Stages {
		fmt.Fprintf(out, "%-16s  %12.6f  %t\n", m.Name, m.Value, m.Applied)
	}
	fmt.Fprintf(out, "\nReward: %g\n", b.Reward)
	return nil
}
