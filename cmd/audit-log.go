package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clippy-ai/clippy-ctl/internal/app"
)

var auditLogCmd = &cobra.Command{
	Use:   "audit-log [session]",
	Short: "Display the audit trail for a build session",
	Long: `Display the recorded lifecycle events of a build session: sandbox boot
attempts, installs, dev server starts and errors. Without a session name the
known sessions are listed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAuditLog,
}

var (
	auditLogJSON   bool
	auditLogRemove bool
)

func init() {
	auditLogCmd.Flags().BoolVar(&auditLogJSON, "events-json", false, "Output events as JSON lines")
	auditLogCmd.Flags().BoolVar(&auditLogRemove, "remove", false, "Delete the session's audit log")
	rootCmd.AddCommand(auditLogCmd)
}

func runAuditLog(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	auditLogger := app.Default.Audit

	if len(args) == 0 {
		sessions, err := auditLogger.Sessions()
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}
		if len(sessions) == 0 {
			logInfo("No sessions recorded")
			return nil
		}
		for _, s := range sessions {
			fmt.Fprintln(out, s)
		}
		return nil
	}

	name := args[0]
	if auditLogRemove {
		if err := auditLogger.Remove(name); err != nil {
			return fmt.Errorf("failed to remove audit log: %w", err)
		}
		logSuccess("Removed audit log for session %s", name)
		return nil
	}

	events, err := auditLogger.Events(name)
	if err != nil {
		return fmt.Errorf("failed to read audit log: %w", err)
	}

	if len(events) == 0 {
		logInfo("No events found for session %s", name)
		return nil
	}

	for _, e := range events {
		if auditLogJSON {
			data, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("failed to marshal event: %w", err)
			}
			fmt.Fprintln(out, string(data))
		} else {
			ts := e.Timestamp.Local().Format("2006-01-02 15:04:05")
			if e.Details != "" {
				fmt.Fprintf(out, "[%s] %-12s %s (%s)\n", ts, e.Type, e.Session, e.Details)
			} else {
				fmt.Fprintf(out, "[%s] %-12s %s\n", ts, e.Type, e.Session)
			}
		}
	}

	return nil
}
