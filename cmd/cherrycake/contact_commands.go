package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cherrycake/internal/config"
	"cherrycake/internal/contact"
	"cherrycake/internal/inbox"
	"cherrycake/internal/mailer"
	"cherrycake/internal/notifications"
)

func newContactCommand(ctx *commandContext) *cobra.Command {
	contactCmd := &cobra.Command{
		Use:   "contact",
		Short: "Read and send contact form messages",
	}
	contactCmd.AddCommand(newContactListCommand(ctx))
	contactCmd.AddCommand(newContactSendCommand(ctx))
	return contactCmd
}

func openInbox(ctx *commandContext) (*config.Config, *inbox.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := inbox.Open(cfg.InboxPath())
	if err != nil {
		return nil, nil, fmt.Errorf("open inbox: %w", err)
	}
	return cfg, store, nil
}

func newContactListCommand(ctx *commandContext) *cobra.Command {
	var (
		limit      int
		statuses   []string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored contact messages, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := openInbox(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			filter, err := parseRelayStatuses(statuses)
			if err != nil {
				return err
			}
			messages, err := store.List(cmd.Context(), limit, filter...)
			if err != nil {
				return err
			}
			if jsonOutput {
				if messages == nil {
					messages = []*inbox.Message{}
				}
				return writeJSON(cmd, messages)
			}

			out := cmd.OutOrStdout()
			if len(messages) == 0 {
				fmt.Fprintln(out, "Inbox is empty")
				return nil
			}
			rows := make([][]string, 0, len(messages))
			for _, m := range messages {
				relay := string(m.RelayStatus)
				if m.RelayError != "" {
					relay += ": " + m.RelayError
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d", m.ID),
					m.CreatedAt.Local().Format("2006-01-02 15:04"),
					contact.Submission{Name: m.Name}.DisplayName(),
					m.Email,
					relay,
					contact.Summary(m.Body),
				})
			}
			fmt.Fprintln(out, renderTable([]column{
				{title: "ID", align: alignRight},
				{title: "Received"},
				{title: "Name"},
				{title: "Email"},
				{title: "Relay", maxWidth: 30},
				{title: "Message", maxWidth: 50},
			}, rows))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum messages to show")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Only show these relay statuses (pending, sent, failed, skipped)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func parseRelayStatuses(values []string) ([]inbox.RelayStatus, error) {
	out := make([]inbox.RelayStatus, 0, len(values))
	for _, v := range values {
		st := inbox.RelayStatus(strings.ToLower(strings.TrimSpace(v)))
		switch st {
		case inbox.RelayPending, inbox.RelaySent, inbox.RelayFailed, inbox.RelaySkipped:
			out = append(out, st)
		default:
			return nil, fmt.Errorf("unknown relay status %q", v)
		}
	}
	return out, nil
}

func newContactSendCommand(ctx *commandContext) *cobra.Command {
	var sub contact.Submission

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Store and relay a message as if posted from the contact form",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, store, err := openInbox(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			svc := contact.NewService(store, mailer.New(cfg), notifications.NewService(cfg), ctx.logger(cmd.ErrOrStderr()))
			msg, err := svc.Submit(cmd.Context(), sub, "cli")
			if err != nil {
				var invalid *contact.ValidationError
				if errors.As(err, &invalid) {
					return fmt.Errorf("invalid message: %s", invalid.Message)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored message %d (relay: %s)\n", msg.ID, msg.RelayStatus)
			return nil
		},
	}

	cmd.Flags().StringVar(&sub.Name, "name", "", "Sender name (optional)")
	cmd.Flags().StringVar(&sub.Email, "email", "", "Sender email")
	cmd.Flags().StringVarP(&sub.Message, "message", "m", "", "Message body")
	return cmd
}
