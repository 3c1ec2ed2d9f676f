package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iho/pokersettle/internal/infrastructure/logger"
	"github.com/iho/pokersettle/internal/infrastructure/postgres"
)

// errUnsettled marks a command whose request succeeded but whose outcome
// needs attention, so scripts can branch on the exit code.
var errUnsettled = errors.New("game is not settled cleanly")

// newRetryBackOff builds the backoff used while a settlement is busy.
var newRetryBackOff = func() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

func gameCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "game",
		Short: "Game operations",
	}

	var name, id string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a scheduled game",
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(cmd, opts, http.MethodPost, "/api/v1/games/", map[string]string{"id": id, "name": name})
		},
	}
	createCmd.Flags().StringVar(&name, "name", "", "Game name")
	createCmd.Flags().StringVar(&id, "id", "", "Game ID; generated when empty")
	_ = createCmd.MarkFlagRequired("name")

	var userID, typ, amount, notes string
	recordCmd := &cobra.Command{
		Use:   "record <game-id>",
		Short: "Record a buy-in or cash-out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(cmd, opts, http.MethodPost, gamePath(args[0], "/transactions"), map[string]string{
				"user_id": userID,
				"type":    typ,
				"amount":  amount,
				"notes":   notes,
			})
		},
	}
	recordCmd.Flags().StringVar(&userID, "user", "", "Player user ID")
	recordCmd.Flags().StringVar(&typ, "type", "buyin", "Transaction type: buyin or cashout")
	recordCmd.Flags().StringVar(&amount, "amount", "", "Amount in dollars, e.g. 25.50")
	recordCmd.Flags().StringVar(&notes, "notes", "", "Free-form notes")
	_ = recordCmd.MarkFlagRequired("user")
	_ = recordCmd.MarkFlagRequired("amount")

	var force bool
	calculateCmd := &cobra.Command{
		Use:   "calculate <game-id>",
		Short: "Calculate the transfers that settle a game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return calculate(cmd, opts, args[0], force)
		},
	}
	calculateCmd.Flags().BoolVar(&force, "force", false, "Settle even when buy-ins and cash-outs do not balance")

	cmd.AddCommand(
		createCmd,
		simpleCmd(opts, "get <game-id>", "Show a game", http.MethodGet, ""),
		simpleCmd(opts, "start <game-id>", "Start a scheduled game", http.MethodPost, "/start"),
		simpleCmd(opts, "end <game-id>", "End an active game", http.MethodPost, "/end"),
		recordCmd,
		simpleCmd(opts, "transactions <game-id>", "List a game's transactions", http.MethodGet, "/transactions"),
		simpleCmd(opts, "totals <game-id>", "Show per-player totals", http.MethodGet, "/totals"),
		validateCmd(opts),
		calculateCmd,
		simpleCmd(opts, "settlements <game-id>", "List a game's settlements", http.MethodGet, "/settlements"),
		reconcileCmd(opts),
	)

	return cmd
}

// simpleCmd sends method to the game resource at suffix and prints the response.
func simpleCmd(opts *options, use, short, method, suffix string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(cmd, opts, method, gamePath(args[0], suffix), nil)
		},
	}
}

func validateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <game-id>",
		Short: "Check that buy-ins and cash-outs balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, data, err := newClient(opts).do(cmd.Context(), http.MethodGet, gamePath(args[0], "/settlement/validation"), nil)
			if err != nil {
				return err
			}

			var v struct {
				IsValid bool   `json:"is_valid"`
				Message string `json:"message"`
			}
			if err := json.Unmarshal(data, &v); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if err := printJSON(cmd.OutOrStdout(), data); err != nil {
				return err
			}
			if !v.IsValid {
				return fmt.Errorf("%w: %s", errUnsettled, v.Message)
			}
			return nil
		},
	}
}

// calculate posts a calculation, retrying while another calculation holds the
// game's lock.
func calculate(cmd *cobra.Command, opts *options, gameID string, force bool) error {
	path := gamePath(gameID, "/settlement")
	if force {
		path += "?force=true"
	}

	c := newClient(opts)
	ctx := cmd.Context()

	var (
		status int
		data   []byte
	)
	operation := func() error {
		var err error
		status, data, err = c.do(ctx, http.MethodPost, path, nil, http.StatusUnprocessableEntity)
		if err == nil {
			return nil
		}

		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.busy() {
			fmt.Fprintln(cmd.ErrOrStderr(), "settlement busy, retrying...")
			return err
		}
		return backoff.Permanent(err)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(newRetryBackOff(), opts.retries), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		return err
	}

	if err := printJSON(cmd.OutOrStdout(), data); err != nil {
		return err
	}
	if status == http.StatusUnprocessableEntity {
		return fmt.Errorf("%w: totals do not balance, rerun with --force to settle anyway", errUnsettled)
	}
	return nil
}

func reconcileCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <game-id>",
		Short: "Compare stored totals with the transaction log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, data, err := newClient(opts).do(cmd.Context(), http.MethodGet, gamePath(args[0], "/reconciliation"), nil)
			if err != nil {
				return err
			}

			var report struct {
				Participants  int               `json:"participants"`
				Reconciled    int               `json:"reconciled"`
				Discrepancies []json.RawMessage `json:"discrepancies"`
			}
			if err := json.Unmarshal(data, &report); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if err := printJSON(cmd.OutOrStdout(), data); err != nil {
				return err
			}
			if len(report.Discrepancies) > 0 {
				return fmt.Errorf("%w: %d of %d players have discrepancies",
					errUnsettled, len(report.Discrepancies), report.Participants)
			}
			return nil
		},
	}
}

func settlementCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settlement",
		Short: "Settlement operations",
	}

	for _, sub := range []struct{ use, short, method, suffix string }{
		{"get <settlement-id>", "Show a settlement", http.MethodGet, ""},
		{"complete <settlement-id>", "Mark a settlement as paid", http.MethodPost, "/complete"},
		{"cancel <settlement-id>", "Cancel a pending settlement", http.MethodPost, "/cancel"},
	} {
		suffix, method := sub.suffix, sub.method
		cmd.AddCommand(&cobra.Command{
			Use:   sub.use,
			Short: sub.short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return send(cmd, opts, method, "/api/v1/settlements/"+url.PathEscape(args[0])+suffix, nil)
			},
		})
	}

	return cmd
}

func auditCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit trail queries",
	}

	historyCmd := &cobra.Command{
		Use:   "history <table> <record-id>",
		Short: "Show the audit history of a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/audit/" + url.PathEscape(args[0]) + "/" + url.PathEscape(args[1])
			return send(cmd, opts, http.MethodGet, path, nil)
		},
	}

	var limit int
	userCmd := &cobra.Command{
		Use:   "user <user-id>",
		Short: "Show changes made by a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/users/" + url.PathEscape(args[0]) + "/audit?limit=" + strconv.Itoa(limit)
			return send(cmd, opts, http.MethodGet, path, nil)
		},
	}
	userCmd.Flags().IntVar(&limit, "limit", 50, "Maximum entries to return")

	summaryCmd := &cobra.Command{
		Use:   "summary <game-id>",
		Short: "Summarize a game's audit trail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(cmd, opts, http.MethodGet, gamePath(args[0], "/audit/summary"), nil)
		},
	}

	cmd.AddCommand(historyCmd, userCmd, summaryCmd)
	return cmd
}

func migrateCmd() *cobra.Command {
	var databaseURL string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection URL")

	run := func(fn func(string, zerolog.Logger) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			if databaseURL == "" {
				return errors.New("--database-url or DATABASE_URL is required")
			}
			log := logger.New(logger.Config{Level: "info", Format: "console", Service: "pokersettle-cli", Output: cmd.ErrOrStderr()})
			return fn(databaseURL, log)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE:  run(postgres.RunMigrations),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back every migration",
			RunE:  run(postgres.RunMigrationsDown),
		},
	)

	return cmd
}

// send issues one request and prints the JSON response.
func send(cmd *cobra.Command, opts *options, method, path string, body any) error {
	_, data, err := newClient(opts).do(cmd.Context(), method, path, body)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), data)
}

func gamePath(gameID, suffix string) string {
	return "/api/v1/games/" + url.PathEscape(gameID) + suffix
}
