package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"famfin/internal/core"
	apphttp "famfin/internal/http"
)

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token for a user",
		Long: `Token signs a JWT for an existing user with the server's JWT_SECRET.
The admin claim follows the user's stored role.`,
		Args: cobra.NoArgs,
		RunE: runToken,
	}
	cmd.Flags().Int64("user", 0, "user id")
	cmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func runToken(cmd *cobra.Command, _ []string) error {
	userID, _ := cmd.Flags().GetInt64("user")
	ttl, _ := cmd.Flags().GetDuration("ttl")

	if len(cfg.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET must be set to at least 16 characters")
	}

	repo, err := openRepository()
	if err != nil {
		return err
	}
	defer func() { _ = repo.Close() }()

	user, err := repo.GetUser(cmd.Context(), userID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	token, err := apphttp.IssueToken(cfg.JWTSecret, cfg.JWTIssuer,
		core.Caller{UserID: user.ID, Admin: user.IsAdmin()}, ttl, now)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), map[string]any{
		"token":     token,
		"userId":    user.ID,
		"admin":     user.IsAdmin(),
		"expiresAt": now.Add(ttl),
	})
}
