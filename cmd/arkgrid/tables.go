package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/xtding233/arkgrid-toolkit/internal/refine"
	"github.com/xtding233/arkgrid-toolkit/internal/service"
)

func tablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "Show the active game tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := loadStore()
			if err != nil {
				return err
			}
			svc, err := service.New(service.Deps{Store: store})
			if err != nil {
				return err
			}
			v := svc.Tables()
			if asJSON {
				return printJSON(v)
			}

			titleColor.Printf("\nTables %s (level mode %s, pool ceiling %d)\n", v.Version, v.LevelMode, v.MaxPool)
			grades := tablewriter.NewTable(os.Stdout,
				tablewriter.WithHeader([]string{"Grade", "Supply", "Thresholds", "Point cap"}),
			)
			for _, g := range store.Current().Optimizer.GradeNames() {
				spec := v.Grades[g]
				thr := make([]string, len(spec.Thresholds))
				for i, t := range spec.Thresholds {
					thr[i] = strconv.Itoa(t)
				}
				_ = grades.Append([]string{string(g), strconv.Itoa(spec.Supply), strings.Join(thr, " "), strconv.Itoa(spec.PointCap)})
			}
			_ = grades.Render()

			titleColor.Printf("\nRefinement (base gold %d)\n", v.BaseGold)
			pools := tablewriter.NewTable(os.Stdout, tablewriter.WithHeader([]string{"Gem", "Effects"}))
			keys := make([]string, 0, len(v.GemPools))
			for k := range v.GemPools {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				_ = pools.Append([]string{k, strings.Join(v.GemPools[k], ", ")})
			}
			_ = pools.Render()

			rar := tablewriter.NewTable(os.Stdout, tablewriter.WithHeader([]string{"Rarity", "Attempts", "Rerolls"}))
			names := make([]string, 0, len(v.Rarities))
			for r := range v.Rarities {
				names = append(names, string(r))
			}
			sort.Strings(names)
			for _, r := range names {
				rule := v.Rarities[refine.Rarity(r)]
				_ = rar.Append([]string{r, strconv.Itoa(rule.Attempts), strconv.Itoa(rule.Rerolls)})
			}
			_ = rar.Render()

			fmt.Printf("Simulation: max trials %d, advice %d trials × %d samples, ε %.4f, τ %.4f\n",
				v.Sim.MaxTrials, v.Sim.AdviceTrials, v.Sim.AdviceSamples, v.Sim.AdviceEpsilon, v.Sim.AdviceTau)
			return nil
		},
	}
}
