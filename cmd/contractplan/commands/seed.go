package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"contract-plan-manager/internal/infra/seed"
)

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load demo plans, contracts and a pending change request",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := openInfra(cmd.Context())
			if err != nil {
				return err
			}
			defer in.Close()

			res, err := seed.NewSeeder(in.plans, in.contracts, in.requests, in.tm, in.locker(), logger).Run(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if res.Skipped {
				fmt.Fprintln(out, "Plans already exist, nothing to seed.")
				return nil
			}
			fmt.Fprintf(out, "Seeded %d plans, %d contracts and %d change request.\n", res.Plans, res.Contracts, res.Requests)
			return nil
		},
	}
}
