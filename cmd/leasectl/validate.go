package main

import (
	"errors"
	"fmt"

	"github.com/leasecheck/backend/internal/filepolicy"
	"github.com/leasecheck/backend/internal/widget"
	"github.com/spf13/cobra"
)

func validateCmd() *cobra.Command {
	var maxSizeMB int

	cmd := &cobra.Command{
		Use:   "validate FILE...",
		Short: "Check files against the upload rules without uploading",
		Long: `Check each file's size and detected type against the rules the
upload page enforces (PDF, DOC or DOCX up to 10MB by default).`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy := filepolicy.Default()
			if maxSizeMB > 0 {
				policy.MaxSizeBytes = int64(maxSizeMB) * 1024 * 1024
			}
			return runValidate(cmd, policy, args)
		},
	}

	cmd.Flags().IntVar(&maxSizeMB, "max-size-mb", 0, "Override the size limit in MB")

	return cmd
}

func runValidate(cmd *cobra.Command, policy filepolicy.Policy, paths []string) error {
	out := cmd.OutOrStdout()
	failed := 0

	for _, path := range paths {
		file, err := widget.CandidateFromPath(path)
		if err != nil {
			errorMsg(out, "%s: %v", path, err)
			failed++
			continue
		}

		if err := policy.Check(file); err != nil {
			var ve *filepolicy.ValidationError
			if errors.As(err, &ve) {
				errorMsg(out, "%s: %s", file.Name, ve.Message)
			} else {
				errorMsg(out, "%s: %v", file.Name, err)
			}
			failed++
			continue
		}

		success(out, "%s (%s, %s)", file.Name, file.MIMEType, widget.FormatFileSize(file.SizeBytes))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files rejected", failed, len(paths))
	}
	return nil
}
