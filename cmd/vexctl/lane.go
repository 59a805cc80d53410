package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vexd/vexd/pkg/storage"
	"github.com/vexd/vexd/pkg/types"
)

var lanesCmd = &cobra.Command{
	Use:   "lanes",
	Short: "list lanes",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository()
		if err != nil {
			return err
		}
		defer repo.Close()

		var lanes []types.Lane
		err = repo.Store().View(func(tx *storage.Tx) error {
			ls, lerr := repo.World().ListLanes(tx)
			lanes = ls
			return lerr
		})
		if err != nil {
			return err
		}

		printResult(lanes, func() {
			for _, l := range lanes {
				if flagQuiet {
					fmt.Println(l.Name)
					continue
				}
				fmt.Printf("%-20s head=%s fork_base=%s\n", l.Name, fromLabel(l.HeadState), fromLabel(l.ForkBase))
			}
		})
		return nil
	},
}

var laneCmd = &cobra.Command{
	Use:   "lane",
	Short: "manage lanes",
}

var (
	laneCreateBase          string
	laneCreateMaxTokensIn   string
	laneCreateMaxTokensOut  string
	laneCreateMaxAPICalls   string
	laneCreateMaxWallTimeMS string
	laneCreateAlertPct      float64
)

var laneCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "create a new lane, optionally forked from an existing state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository()
		if err != nil {
			return err
		}
		defer repo.Close()

		var base *string
		if laneCreateBase != "" {
			base = &laneCreateBase
		}

		maxTokensIn, err := parseInt64(laneCreateMaxTokensIn)
		if err != nil {
			return err
		}
		maxTokensOut, err := parseInt64(laneCreateMaxTokensOut)
		if err != nil {
			return err
		}
		maxAPICalls, err := parseInt64(laneCreateMaxAPICalls)
		if err != nil {
			return err
		}
		maxWallTimeMS, err := parseInt64(laneCreateMaxWallTimeMS)
		if err != nil {
			return err
		}

		var lane types.Lane
		err = repo.Store().Batch(func(tx *storage.Tx) error {
			l, cerr := repo.World().CreateLane(tx, args[0], base, now())
			if cerr != nil {
				return cerr
			}
			if maxTokensIn != nil || maxTokensOut != nil || maxAPICalls != nil || maxWallTimeMS != nil || laneCreateAlertPct != 0 {
				budget := types.BudgetConfig{
					MaxTokensIn:    maxTokensIn,
					MaxTokensOut:   maxTokensOut,
					MaxAPICalls:    maxAPICalls,
					MaxWallTimeMS:  maxWallTimeMS,
					AlertThreshold: laneCreateAlertPct,
				}
				if l.Metadata == nil {
					l.Metadata = map[string]any{}
				}
				l.Metadata["budget"] = budget
				if perr := tx.PutLane(l); perr != nil {
					return perr
				}
			}
			lane = l
			return nil
		})
		if err != nil {
			return err
		}

		printResult(lane, func() {
			if flagQuiet {
				fmt.Println(lane.Name)
				return
			}
			fmt.Printf("lane %s created (fork_base=%s)\n", lane.Name, fromLabel(lane.ForkBase))
		})
		return nil
	},
}

func init() {
	laneCreateCmd.Flags().StringVar(&laneCreateBase, "base", "", "state id to fork from (default: empty lane)")
	laneCreateCmd.Flags().StringVar(&laneCreateMaxTokensIn, "max-tokens-in", "", "budget ceiling: input tokens")
	laneCreateCmd.Flags().StringVar(&laneCreateMaxTokensOut, "max-tokens-out", "", "budget ceiling: output tokens")
	laneCreateCmd.Flags().StringVar(&laneCreateMaxAPICalls, "max-api-calls", "", "budget ceiling: API calls")
	laneCreateCmd.Flags().StringVar(&laneCreateMaxWallTimeMS, "max-wall-time-ms", "", "budget ceiling: wall-clock milliseconds")
	laneCreateCmd.Flags().Float64Var(&laneCreateAlertPct, "alert-threshold-pct", 0, "fraction of a budget limit, in (0, 1], at which to alert; 0 disables")
}
