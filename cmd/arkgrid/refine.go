package main

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/xtding233/arkgrid-toolkit/internal/refine"
)

func refineCmd() *cobra.Command {
	var file string
	var quiet bool
	cmd := &cobra.Command{
		Use:   "refine",
		Short: "Estimate refinement success and cost by Monte Carlo",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var in refineFile
			if err := readYAML(file, &in); err != nil {
				return err
			}
			req, err := in.evaluateRequest()
			if err != nil {
				return err
			}
			b, err := newBackend()
			if err != nil {
				return err
			}
			defer b.Close()

			var mu sync.Mutex
			progress := func(p refine.Progress) {
				if quiet || asJSON {
					return
				}
				mu.Lock()
				defer mu.Unlock()
				fmt.Fprintf(os.Stderr, "\r%-16s %6d/%-6d p=%.4f ±%.4f", p.Policy, p.Done, p.Max, p.SuccessProb, p.HalfWidth)
			}
			resp, err := b.evaluate(cmd.Context(), req, progress)
			if !quiet && !asJSON {
				fmt.Fprintln(os.Stderr)
			}
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(resp)
			}
			printResults(resp.Stop, resp.Run)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Input file")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Hide progress")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func printResults(results ...refine.Result) {
	titleColor.Println("\nRefinement estimate")
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Policy", "Success", "95% CI", "Legend", "Relic", "Ancient", "Gold (mean)", "Gold p90", "Attempts", "Trials"}),
	)
	for _, r := range results {
		_ = table.Append([]string{
			string(r.Policy),
			pct(r.SuccessProb),
			fmt.Sprintf("%s–%s", pct(r.CI.Low), pct(r.CI.High)),
			pct(r.LegendProb),
			pct(r.RelicProb),
			pct(r.AncientProb),
			fmt.Sprintf("%.0f", r.ExpectedGold),
			fmt.Sprintf("%.0f", r.Gold.P90),
			fmt.Sprintf("%.2f", r.AvgAttempts),
			strconv.Itoa(r.TrialsUsed),
		})
	}
	_ = table.Render()
	for _, r := range results {
		if !r.Converged {
			warnColor.Printf("%s: stopped at the trial budget before reaching the requested precision\n", r.Policy)
		}
	}
}

func adviseCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "advise",
		Short: "Recommend whether to reroll the offered four actions",
		Long: `Compares the success chance of applying one of the current four
actions with that of a freshly rerolled four (one-ply look-ahead).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var in refineFile
			if err := readYAML(file, &in); err != nil {
				return err
			}
			req, err := in.adviseRequest()
			if err != nil {
				return err
			}
			b, err := newBackend()
			if err != nil {
				return err
			}
			defer b.Close()

			resp, err := b.advise(cmd.Context(), req)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(resp)
			}
			adv := resp.Advice
			switch {
			case adv.Blocked:
				warnColor.Printf("Reroll unavailable: %s\n", adv.Reason)
				return nil
			case adv.ShouldReroll:
				successColor.Printf("Reroll: %s\n", adv.Reason)
			default:
				titleColor.Printf("Keep: %s\n", adv.Reason)
			}
			table := tablewriter.NewTable(os.Stdout, tablewriter.WithHeader([]string{"Option", "Success after"}))
			for _, o := range adv.Options {
				_ = table.Append([]string{o.Label, pct(o.Prob)})
			}
			_ = table.Append([]string{"current four (mean)", pct(adv.NowProb)})
			_ = table.Append([]string{"after reroll (mean)", pct(adv.RerollProb)})
			_ = table.Render()
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Input file (session and current_four)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func playCmd() *cobra.Command {
	var file string
	var seed uint32
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play one refinement session to the end with random draws",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var in refineFile
			if err := readYAML(file, &in); err != nil {
				return err
			}
			store, err := loadStore()
			if err != nil {
				return err
			}
			rules := store.Current().Refine
			start := in.gemInput()
			snap := refine.Snapshot{}
			if start.Session != nil {
				snap = *start.Session
			} else {
				rarity := start.Rarity
				if rarity == "" {
					rarity = refine.RarityEpic
				}
				if snap, err = rules.NewSnapshot(rarity, start.State); err != nil {
					return err
				}
			}
			var rng refine.RandomSource = refine.DefaultRNG()
			if cmd.Flags().Changed("seed") {
				rng = refine.NewXorshift32(seed)
			}
			s, err := rules.NewSession(start.GemKey, snap, rng)
			if err != nil {
				return err
			}
			return playSession(s)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Input file")
	cmd.Flags().Uint32Var(&seed, "seed", 0, "Seed for a reproducible session")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func playSession(s *refine.Session) error {
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"#", "Offered", "Applied", "Eff", "Pts", "A", "B", "Gold"}),
	)
	for step := 1; s.Snapshot().AttemptsLeft > 0; step++ {
		before := s.Snapshot().State
		offered, err := s.Offer()
		if err != nil {
			return err
		}
		labels := ""
		for i, a := range offered {
			if i > 0 {
				labels += " / "
			}
			labels += a.Label(before)
		}
		applied, snap, err := s.ApplyRandom()
		if err != nil {
			return err
		}
		st := snap.State
		_ = table.Append([]string{
			strconv.Itoa(step),
			labels,
			applied.Label(before),
			strconv.Itoa(st.Eff),
			strconv.Itoa(st.Pts),
			fmt.Sprintf("%s %d", st.AName, st.ALvl),
			fmt.Sprintf("%s %d", st.BName, st.BLvl),
			strconv.Itoa(snap.Gold),
		})
	}
	_ = table.Render()
	successColor.Printf("Final grade: %s (total %d)\n", s.Grade(), s.Snapshot().State.Total())
	return nil
}
