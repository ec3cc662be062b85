package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chefme/onboarding-cli/internal/config"
	"github.com/chefme/onboarding-cli/internal/crmsync"
	"github.com/chefme/onboarding-cli/internal/uploads"
	"github.com/chefme/onboarding-cli/pkg/dataverse"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "onboard-cli",
	Short: "Customer onboarding CRM sync",
	Long:  "Syncs business onboarding form submissions into Dynamics: resolves reference data, creates or updates the account, and fans out attachments, bank details, and contact roles.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := c.Validate(); err != nil {
			return err
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// newEngine wires the CRM client and sync engine from config.
func newEngine() *crmsync.Engine {
	tokens := dataverse.NewClientCredentials(
		cfg.CRM.TokenURL(), cfg.CRM.ClientID, cfg.CRM.ClientSecret, cfg.CRM.Scope())

	dv := dataverse.NewClient(cfg.CRM.BaseURL, tokens,
		dataverse.WithRateLimit(cfg.CRM.RateLimit))

	return crmsync.NewEngine(dv,
		crmsync.WithMirror(uploads.NewStore(cfg.Uploads.Dir)),
		crmsync.WithReplicationDelay(time.Duration(cfg.Sync.ReplicationDelaySecs)*time.Second),
		crmsync.WithAvailabilityWait(cfg.Sync.WaitAttempts, time.Duration(cfg.Sync.WaitDelayMs)*time.Millisecond),
		crmsync.WithRecordLink(cfg.CRM.BaseURL, cfg.CRM.AppID),
		crmsync.WithNotificationSender(cfg.CRM.SenderUserID),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
