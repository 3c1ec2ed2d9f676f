package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

const actorHeader = "X-Actor-ID"

// options holds the persistent flags shared by every command.
type options struct {
	baseURL string
	timeout time.Duration
	actor   string
	retries uint64
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "pokersettle-cli",
		Short:         "Poker settlement CLI tool",
		Long:          `A command line interface for settling poker games through the pokersettle API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "url", "http://localhost:8080", "Base URL of the pokersettle API")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")
	rootCmd.PersistentFlags().StringVar(&opts.actor, "actor", "", "User ID recorded as the actor in the audit trail")
	rootCmd.PersistentFlags().Uint64Var(&opts.retries, "retries", 5, "Retries when a settlement is busy")

	rootCmd.AddCommand(
		gameCmd(opts),
		settlementCmd(opts),
		auditCmd(opts),
		migrateCmd(),
	)

	return rootCmd
}

// apiError is a non-2xx response from the API.
type apiError struct {
	Status     int
	Body       string
	RetryAfter string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("request failed (status %d): %s", e.Status, truncate(strings.TrimSpace(e.Body), 200))
}

// busy reports whether the server asked the client to come back later.
func (e *apiError) busy() bool {
	return e.Status == http.StatusConflict && e.RetryAfter != ""
}

type client struct {
	baseURL string
	actor   string
	http    *http.Client
}

func newClient(opts *options) *client {
	return &client{
		baseURL: strings.TrimRight(opts.baseURL, "/"),
		actor:   opts.actor,
		http:    &http.Client{Timeout: opts.timeout},
	}
}

// do sends a request and returns the body of a 2xx response. Statuses listed in
// accept are returned as success too.
func (c *client) do(ctx context.Context, method, path string, body any, accept ...int) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.actor != "" {
		req.Header.Set(actorHeader, c.actor)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp.StatusCode, data, nil
	}
	for _, status := range accept {
		if resp.StatusCode == status {
			return resp.StatusCode, data, nil
		}
	}

	return resp.StatusCode, data, &apiError{
		Status:     resp.StatusCode,
		Body:       string(data),
		RetryAfter: resp.Header.Get("Retry-After"),
	}
}

// printJSON pretty-prints raw JSON, or marshals v when it is not already bytes.
func printJSON(w io.Writer, v any) error {
	if raw, ok := v.([]byte); ok {
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", "  "); err != nil {
			_, err = fmt.Fprintln(w, string(raw))
			return err
		}
		_, err := fmt.Fprintln(w, buf.String())
		return err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
