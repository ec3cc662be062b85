package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chefme/onboarding-cli/internal/form"
	"github.com/chefme/onboarding-cli/internal/uploads"
)

var (
	syncFilesDir    string
	syncAdvanceLead bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push an onboarding submission into the CRM",
}

var syncCreateCmd = &cobra.Command{
	Use:   "create <submission.json>",
	Short: "Create a new account from a submission file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sub, err := loadSubmission(args[0], syncFilesDir)
		if err != nil {
			return err
		}
		if err := newEngine().Create(cmd.Context(), sub); err != nil {
			zap.L().Error("create failed", zap.Error(err))
			return eris.Wrap(err, "sync create")
		}
		cmd.Println("account created")
		return nil
	},
}

var syncUpdateCmd = &cobra.Command{
	Use:   "update <lead-id> <submission.json>",
	Short: "Sync a submission onto the account originated by a lead",
	Long:  "Creates the account when the lead has none yet, otherwise updates it in place, then uploads attachments and links bank details and contact roles.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sub, err := loadSubmission(args[1], syncFilesDir)
		if err != nil {
			return err
		}
		if err := newEngine().UpdateByLead(cmd.Context(), args[0], sub, syncAdvanceLead); err != nil {
			zap.L().Error("update failed", zap.String("leadID", args[0]), zap.Error(err))
			return eris.Wrap(err, "sync update")
		}
		cmd.Println("account synced")
		return nil
	},
}

// loadSubmission reads the submission JSON and, when filesDir is set, picks
// up attachments named after their slot (e.g. tradeLicense.pdf).
func loadSubmission(path, filesDir string) (*form.Submission, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read submission %s", path)
	}
	var sub form.Submission
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, eris.Wrapf(err, "parse submission %s", path)
	}

	if filesDir == "" {
		return &sub, nil
	}

	validator := uploads.NewValidator(cfg.Uploads.MaxFileSizeMB)
	sub.Attachments = make(form.AttachmentSet)

	entries, err := os.ReadDir(filesDir)
	if err != nil {
		return nil, eris.Wrapf(err, "read files dir %s", filesDir)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		kind := form.Kind(strings.TrimSuffix(name, filepath.Ext(name)))
		if !kind.Valid() {
			zap.L().Warn("skipping file with unknown attachment slot", zap.String("file", name))
			continue
		}
		data, err := os.ReadFile(filepath.Join(filesDir, name))
		if err != nil {
			return nil, eris.Wrapf(err, "read attachment %s", name)
		}
		if err := validator.Check(name, int64(len(data)), ""); err != nil {
			return nil, eris.Wrapf(err, "attachment %s", name)
		}
		sub.Attachments[kind] = form.Attachment{FileName: name, Data: data}
	}
	return &sub, nil
}

func init() {
	syncCmd.PersistentFlags().StringVar(&syncFilesDir, "files", "", "directory of attachments named by slot (tradeLicense.pdf, vatCertificate.pdf, ...)")
	syncUpdateCmd.Flags().BoolVar(&syncAdvanceLead, "advance-lead", true, "move the lead to its submitted status after a successful sync")
	syncCmd.AddCommand(syncCreateCmd, syncUpdateCmd)
	rootCmd.AddCommand(syncCmd)
}
