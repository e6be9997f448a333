package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/sentryowl/marketwatch-engine/internal/api"
)

func newWebhookdCmd() *cobra.Command {
	var (
		listenAddr string
		summaryDir string
	)

	cmd := &cobra.Command{
		Use:   "webhookd",
		Short: "Serve the compliance webhooks and the live detection feed",
		Long: `webhookd is the long-lived HTTP companion to the scan command. It
hosts the eBay marketplace account deletion endpoint (mandatory for
holding eBay API credentials), a websocket feed of detections, and
read-only access to recent run summaries.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			token := os.Getenv("EBAY_VERIFICATION_TOKEN")
			endpoint := os.Getenv("WEBHOOK_ENDPOINT_URL")
			if token == "" || endpoint == "" {
				log.Printf("[Webhookd] EBAY_VERIFICATION_TOKEN / WEBHOOK_ENDPOINT_URL unset; challenge responses will fail validation")
			}

			hub := api.NewHub()
			go hub.Run()

			router := api.SetupRouter(api.Config{
				VerificationToken: token,
				EndpointURL:       endpoint,
				SummaryDir:        summaryDir,
			}, hub)

			log.Printf("[Webhookd] Listening on %s", listenAddr)
			if err := router.Run(listenAddr); err != nil {
				return &exitError{exitConfig, fmt.Sprintf("serve: %v", err)}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", getEnvOrDefault("WEBHOOKD_ADDR", ":8380"), "listen address")
	cmd.Flags().StringVar(&summaryDir, "summary-dir", defaultStateDir(), "directory containing run summaries")

	return cmd
}
