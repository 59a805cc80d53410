package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vexd/vexd/pkg/repository"
)

var (
	gcDryRun         bool
	gcRejectedMaxAge time.Duration
)

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "mark-and-sweep unreachable objects, transitions, intents, and states",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository()
		if err != nil {
			return err
		}
		defer repo.Close()

		report, err := repo.GC(repository.GCOptions{
			DryRun:         gcDryRun,
			RejectedMaxAge: gcRejectedMaxAge,
		}, now())
		if err != nil {
			return err
		}

		printResult(report, func() {
			if flagQuiet {
				fmt.Println(report.DeletableObjects)
				return
			}
			verb := "deleted"
			if gcDryRun {
				verb = "would delete"
			}
			fmt.Printf("%s %d object(s), %d transition(s), %d intent(s), %d state(s), %d stat-cache entr(ies)\n",
				verb, report.DeletableObjects, report.DeletableTransitions, report.DeletableIntents, report.DeletableStates, report.DeletableStatCache)
			fmt.Printf("reclaimed %d byte(s)\n", report.ReclaimedBytes)
		})
		return nil
	},
}

func init() {
	gcCmd.Flags().BoolVar(&gcDryRun, "dry-run", false, "report what would be deleted without deleting it")
	gcCmd.Flags().DurationVar(&gcRejectedMaxAge, "rejected-max-age", repository.DefaultRejectedTransitionAge, "minimum age before a rejected/superseded transition becomes collectible")
}
