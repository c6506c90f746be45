package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"famfin/internal/core"
	"famfin/internal/storage"
)

// seedFile is the document accepted by `famfinctl seed`. Cards are referenced
// by name from transactions so a file never has to carry database ids.
type seedFile struct {
	Users []seedUser `json:"users"`
}

type seedUser struct {
	Email         string             `json:"email"`
	DisplayName   string             `json:"displayName"`
	Role          core.Role          `json:"role"`
	Cards         []seedCard         `json:"cards"`
	IncomeStreams []seedIncomeStream `json:"incomeStreams"`
	Transactions  []seedTransaction  `json:"transactions"`
}

type seedCard struct {
	core.CreditCard
	Active *bool                  `json:"active"`
	Cycles []core.CreditCardCycle `json:"cycles"`
}

type seedIncomeStream struct {
	core.IncomeStream
	Active *bool `json:"active"`
}

type seedTransaction struct {
	core.Transaction
	Card string `json:"card"`
}

type seedStats struct {
	Users        int `json:"users"`
	Cards        int `json:"cards"`
	Cycles       int `json:"cycles"`
	Streams      int `json:"incomeStreams"`
	Transactions int `json:"transactions"`
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load users, cards, cycles, income streams and transactions from JSON",
		Long: `Seed reads a JSON document and inserts everything it describes in a
single transaction. Either the whole file is loaded or nothing is.`,
		Args: cobra.NoArgs,
		RunE: runSeed,
	}
	cmd.Flags().String("file", "", "seed document path ('-' for stdin)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runSeed(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("file")

	var in io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open seed file: %w", err)
		}
		defer f.Close()
		in = f
	}

	doc, err := decodeSeed(in)
	if err != nil {
		return err
	}

	repo, err := openRepository()
	if err != nil {
		return err
	}
	defer func() { _ = repo.Close() }()

	stats, err := applySeed(cmd.Context(), repo, doc, time.Now().UTC())
	if err != nil {
		return err
	}
	slog.Info("Seed loaded", "users", stats.Users, "cards", stats.Cards, "transactions", stats.Transactions)
	return printJSON(cmd.OutOrStdout(), stats)
}

func decodeSeed(r io.Reader) (seedFile, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var doc seedFile
	if err := dec.Decode(&doc); err != nil {
		return seedFile{}, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return doc, nil
}

func applySeed(ctx context.Context, repo *storage.SQLiteRepository, doc seedFile, now time.Time) (seedStats, error) {
	var stats seedStats
	err := repo.InTx(ctx, func(q *storage.Queries) error {
		stats = seedStats{}
		for i, su := range doc.Users {
			if err := seedOneUser(ctx, q, su, now, &stats); err != nil {
				return fmt.Errorf("users[%d] %s: %w", i, su.Email, err)
			}
		}
		return nil
	})
	return stats, err
}

func seedOneUser(ctx context.Context, q *storage.Queries, su seedUser, now time.Time, stats *seedStats) error {
	if strings.TrimSpace(su.Email) == "" {
		return core.InvalidInput("email", "email is required")
	}
	user, err := q.CreateUser(ctx, core.User{Email: su.Email, DisplayName: su.DisplayName, Role: su.Role})
	if err != nil {
		return err
	}
	stats.Users++

	cards := make(map[string]int64, len(su.Cards))
	for _, sc := range su.Cards {
		card := sc.CreditCard
		card.UserID = user.ID
		card.Active = sc.Active == nil || *sc.Active
		if err := card.Validate(); err != nil {
			return err
		}
		if _, dup := cards[card.Name]; dup {
			return core.Conflict("card %q is listed twice", card.Name)
		}
		created, err := q.CreateCreditCard(ctx, card)
		if err != nil {
			return err
		}
		cards[created.Name] = created.ID
		stats.Cards++

		for _, cycle := range sc.Cycles {
			cycle.CreditCardID = created.ID
			if err := cycle.Validate(); err != nil {
				return fmt.Errorf("card %s: %w", created.Name, err)
			}
			if err := q.CloseOpenCycles(ctx, created.ID, now); err != nil {
				return err
			}
			cycle.ClosedAt = nil
			if _, err := q.CreateCycle(ctx, cycle); err != nil {
				return err
			}
			stats.Cycles++
		}
	}

	for _, ss := range su.IncomeStreams {
		stream := ss.IncomeStream
		stream.UserID = user.ID
		stream.Active = ss.Active == nil || *ss.Active
		if err := stream.Validate(); err != nil {
			return err
		}
		if _, err := q.CreateIncomeStream(ctx, stream); err != nil {
			return err
		}
		stats.Streams++
	}

	for _, st := range su.Transactions {
		tx := st.Transaction
		tx.UserID = user.ID
		if st.Card != "" {
			id, ok := cards[st.Card]
			if !ok {
				return core.InvalidInput("card", "unknown card %q", st.Card)
			}
			tx.CreditCardID = &id
		}
		if err := tx.Validate(); err != nil {
			return err
		}
		if _, err := q.CreateTransaction(ctx, tx); err != nil {
			return err
		}
		stats.Transactions++
	}
	return nil
}
