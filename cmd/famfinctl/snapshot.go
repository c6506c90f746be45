package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"famfin/internal/cli"
	"famfin/internal/core"
	"famfin/internal/services"
)

func snapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Calculate and inspect agency snapshots",
	}

	calc := &cobra.Command{
		Use:   "calculate",
		Short: "Calculate (or recalculate) a user's agency snapshot",
		Long: `Calculate runs the agency formula for one user and stores the result.
Calculating twice for the same date replaces the earlier snapshot.
Use --all to calculate today's snapshot for every user.`,
		Args: cobra.NoArgs,
		RunE: runSnapshotCalculate,
	}
	calc.Flags().Int64("user", 0, "user id")
	calc.Flags().Bool("all", false, "calculate for every user")
	calc.Flags().String("date", "", "calculation date YYYY-MM-DD (default: today)")
	calc.Flags().String("notes", "", "notes stored with the snapshot")
	calc.MarkFlagsMutuallyExclusive("user", "all")
	calc.MarkFlagsOneRequired("user", "all")
	cmd.AddCommand(calc)

	latest := &cobra.Command{
		Use:   "latest",
		Short: "Print a user's most recent snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, _ := cmd.Flags().GetInt64("user")
			repo, err := openRepository()
			if err != nil {
				return err
			}
			defer func() { _ = repo.Close() }()

			agency, err := cli.NewAgencyService(repo, cfg)
			if err != nil {
				return err
			}
			snap, err := agency.Latest(cmd.Context(), userID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), snap)
		},
	}
	latest.Flags().Int64("user", 0, "user id")
	_ = latest.MarkFlagRequired("user")
	cmd.AddCommand(latest)

	return cmd
}

func runSnapshotCalculate(cmd *cobra.Command, _ []string) error {
	userID, _ := cmd.Flags().GetInt64("user")
	all, _ := cmd.Flags().GetBool("all")
	dateFlag, _ := cmd.Flags().GetString("date")
	notes, _ := cmd.Flags().GetString("notes")

	calculatedFor, err := core.ParseOptionalDate("date", dateFlag)
	if err != nil {
		return err
	}
	if all && calculatedFor != nil {
		return fmt.Errorf("--date cannot be combined with --all")
	}

	repo, err := openRepository()
	if err != nil {
		return err
	}
	defer func() { _ = repo.Close() }()

	agency, err := cli.NewAgencyService(repo, cfg)
	if err != nil {
		return err
	}

	if all {
		n, err := agency.CalculateAll(cmd.Context(), repo, 4)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), map[string]int{"calculated": n})
	}

	res, err := agency.Calculate(cmd.Context(), userID, services.CalculateInput{
		CalculatedFor: calculatedFor,
		Notes:         notes,
	})
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), res)
}
