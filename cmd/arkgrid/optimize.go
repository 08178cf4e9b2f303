package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/xtding233/arkgrid-toolkit/internal/optimizer"
)

func optimizeCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Assign gems to cores in priority order",
		Long: `Reads role, weights, cores and gems from a YAML or JSON file and
allocates gems greedily: cores are served in list order and every
chosen gem leaves the pool before the next core.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var in optimizeFile
			if err := readYAML(file, &in); err != nil {
				return err
			}
			b, err := newBackend()
			if err != nil {
				return err
			}
			defer b.Close()

			resp, err := b.optimize(cmd.Context(), in.request())
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(resp)
			}
			printAllocations(resp.Allocations)
			if resp.Truncated > 0 {
				warnColor.Printf("⚠ %d gems were dropped by the pool ceiling\n", resp.Truncated)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Input file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func printAllocations(allocs []optimizer.Allocation) {
	titleColor.Println("\nCore allocation")
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"#", "Core", "Grade", "Gems", "Will", "Points", "Thresholds", "Role score"}),
	)
	for i, a := range allocs {
		ids := make([]string, len(a.Combo.List))
		for k, g := range a.Combo.List {
			ids[k] = g.ID
		}
		gems := strings.Join(ids, ", ")
		if a.Combo.IsEmpty() {
			gems = "-"
		}
		thr := make([]string, len(a.Combo.Thr))
		for k, v := range a.Combo.Thr {
			thr[k] = strconv.Itoa(v)
		}
		_ = table.Append([]string{
			strconv.Itoa(i + 1),
			string(a.Core.Name),
			string(a.Core.Grade),
			gems,
			strconv.Itoa(a.Combo.TotalWill),
			strconv.Itoa(a.Combo.TotalPoint),
			strings.Join(thr, " "),
			fmt.Sprintf("%.3f", a.Combo.RoleSum),
		})
	}
	_ = table.Render()

	for _, a := range allocs {
		if a.Combo.IsEmpty() {
			warnColor.Printf("%s: no feasible combination\n", a.Core.Name)
		}
	}
}
