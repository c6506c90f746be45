package main

import (
	"github.com/spf13/cobra"

	"famfin/internal/core"
	"famfin/internal/services"
)

func cyclesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cycles",
		Short: "Inspect credit card payment cycles",
	}

	summary := &cobra.Command{
		Use:   "summary",
		Short: "Print the payment cycle summary of every active card of a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, _ := cmd.Flags().GetInt64("user")
			asOfFlag, _ := cmd.Flags().GetString("as-of")
			asOf, err := core.ParseOptionalDate("asOf", asOfFlag)
			if err != nil {
				return err
			}

			repo, err := openRepository()
			if err != nil {
				return err
			}
			defer func() { _ = repo.Close() }()

			summaries, err := services.NewPaymentCyclesService(repo, nil).Summarize(cmd.Context(), userID, asOf)
			if err != nil {
				return err
			}
			if summaries == nil {
				summaries = []core.CycleSummary{}
			}
			return printJSON(cmd.OutOrStdout(), summaries)
		},
	}
	summary.Flags().Int64("user", 0, "user id")
	summary.Flags().String("as-of", "", "reference date YYYY-MM-DD (default: today)")
	_ = summary.MarkFlagRequired("user")
	cmd.AddCommand(summary)

	return cmd
}

func incomeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "income",
		Short: "Inspect income streams",
	}

	project := &cobra.Command{
		Use:   "project",
		Short: "List the expected occurrences of an income stream inside a window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, _ := cmd.Flags().GetInt64("user")
			streamID, _ := cmd.Flags().GetInt64("stream")
			startFlag, _ := cmd.Flags().GetString("start")
			endFlag, _ := cmd.Flags().GetString("end")

			start, err := core.ParseDate("start", startFlag)
			if err != nil {
				return err
			}
			end, err := core.ParseDate("end", endFlag)
			if err != nil {
				return err
			}

			repo, err := openRepository()
			if err != nil {
				return err
			}
			defer func() { _ = repo.Close() }()

			income := services.NewIncomeService(repo, services.NewIncomeProjector(cfg.RecurrenceMaxSteps))
			proj, err := income.ProjectStream(cmd.Context(), userID, streamID, start, end)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), proj)
		},
	}
	project.Flags().Int64("user", 0, "owner user id")
	project.Flags().Int64("stream", 0, "income stream id")
	project.Flags().String("start", "", "window start YYYY-MM-DD")
	project.Flags().String("end", "", "window end YYYY-MM-DD")
	for _, name := range []string{"user", "stream", "start", "end"} {
		_ = project.MarkFlagRequired(name)
	}
	cmd.AddCommand(project)

	return cmd
}
