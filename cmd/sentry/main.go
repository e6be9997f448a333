package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
)

// Exit codes, stable for cron/systemd wrappers:
//
//	0  clean run
//	2  partial run (timed out, keywords abandoned, or transient write failures)
//	10 configuration error (bad flag, missing credentials)
//	20 fatal store failure (auth, schema, unreachable)
const (
	exitOK      = 0
	exitPartial = 2
	exitConfig  = 10
	exitFatal   = 20
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmsgprefix)

	root := &cobra.Command{
		Use:   "sentry",
		Short: "Marketplace threat scanner for wildlife and human trafficking listings",
		Long: `sentry crawls public marketplace search results for listings matching
curated trafficking keyword corpora, scores each hit, and persists
actionable detections to the evidence store.

Scan runs are short-lived and cursor-driven: each invocation processes
one keyword batch per group and exits, so coverage accumulates across
cron ticks rather than within a daemon.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newScanCmd())
	root.AddCommand(newWebhookdCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		code := exitConfig
		if ec, ok := err.(*exitError); ok {
			code = ec.code
		}
		os.Exit(code)
	}
}

// exitError carries a process exit code through cobra's error path.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// defaultStateDir resolves the cursor/cache directory. KEYWORD_STATE_DIR
// is the documented name; SENTRY_STATE_DIR is kept for older crontabs.
func defaultStateDir() string {
	return getEnvOrDefault("KEYWORD_STATE_DIR", getEnvOrDefault("SENTRY_STATE_DIR", "."))
}
