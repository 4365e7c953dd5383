package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"contract-plan-manager/internal/infra/db/migrations"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := migrations.Down(cfg.Database.URL, steps); err != nil {
				return err
			}
			return printStatus(cmd)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := migrations.Up(cfg.Database.URL); err != nil {
					return err
				}
				return printStatus(cmd)
			},
		},
		down,
		&cobra.Command{
			Use:   "status",
			Short: "Print the current schema version",
			RunE: func(cmd *cobra.Command, args []string) error {
				return printStatus(cmd)
			},
		},
	)
	return cmd
}

func printStatus(cmd *cobra.Command) error {
	st, err := migrations.Current(cfg.Database.URL)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema: %s\n", st)
	return nil
}
