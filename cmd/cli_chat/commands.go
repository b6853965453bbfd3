package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"diet-coach/internal/chat"
	"diet-coach/internal/domain"
	"diet-coach/internal/service"
)

// RootOptions son los flags compartidos por todos los subcomandos.
type RootOptions struct {
	Email        string
	Password     string
	Conversation string
}

func newRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "cli_chat",
		Short: "Terminal client for the diet coaching chat",
		Long: `Terminal client for the diet coaching chat.

Credentials can be passed with --email/--password or through the
COACH_EMAIL and COACH_PASSWORD environment variables.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Email, "email", os.Getenv("COACH_EMAIL"), "account email")
	cmd.PersistentFlags().StringVar(&opts.Password, "password", os.Getenv("COACH_PASSWORD"), "account password")
	cmd.PersistentFlags().StringVarP(&opts.Conversation, "conversation", "c", "", "conversation id (required for counselors)")

	cmd.AddCommand(
		newWatchCommand(opts),
		newSendCommand(opts),
		newSendImageCommand(opts),
		newAddCounselorCommand(),
	)
	return cmd
}

func newWatchCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow a conversation and print new messages as they arrive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			session, err := a.login(ctx, opts.Email, opts.Password)
			if err != nil {
				return err
			}
			sub, err := a.chat.Subscribe(ctx, session, opts.Conversation)
			if err != nil {
				return err
			}
			defer sub.Close()

			loc := a.cfg.Location()
			for snap := range sub.Snapshots() {
				printSnapshot(cmd.OutOrStdout(), snap, time.Now().In(loc))
			}
			if err := sub.Err(); err != nil {
				return err
			}
			return nil
		},
	}
}

func newSendCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "send <text...>",
		Short: "Send a text message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			session, err := a.login(ctx, opts.Email, opts.Password)
			if err != nil {
				return err
			}
			msg, err := a.chat.SendText(ctx, session, opts.Conversation, strings.Join(args, " "))
			if errors.Is(err, chat.ErrEmptyInput) {
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent %s at %s\n", msg.ID, msg.CreatedAt.Format(time.Kitchen))
			return nil
		},
	}
}

func newSendImageCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "send-image <path>",
		Short: "Upload an image and post it to the conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			session, err := a.login(ctx, opts.Email, opts.Password)
			if err != nil {
				return err
			}
			msg, err := a.chat.SendImage(ctx, session, opts.Conversation, data, filepath.Base(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent image %s -> %s\n", msg.ID, msg.AttachmentURL)
			return nil
		},
	}
}

func newAddCounselorCommand() *cobra.Command {
	var input service.SignupInput

	cmd := &cobra.Command{
		Use:   "add-counselor",
		Short: "Create a counselor account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			input.Role = domain.SenderRoleCounselor
			user, err := a.users.Signup(ctx, input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "counselor %s created (%s)\n", user.Email, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&input.Email, "new-email", "", "counselor email")
	cmd.Flags().StringVar(&input.Password, "new-password", "", "counselor password")
	cmd.Flags().StringVar(&input.DisplayName, "name", "", "display name")
	_ = cmd.MarkFlagRequired("new-email")
	_ = cmd.MarkFlagRequired("new-password")
	return cmd
}

// printSnapshot imprime la conversación entera en la primera entrega y solo lo
// nuevo después.
func printSnapshot(w io.Writer, snap chat.Snapshot, now time.Time) {
	messages := snap.Added
	if snap.Fresh {
		messages = snap.Messages
		fmt.Fprintf(w, "== conversation %s (%d messages) ==\n", snap.ConversationID, len(messages))
	}
	for _, group := range chat.GroupByDay(messages, now) {
		fmt.Fprintf(w, "-- %s --\n", group.Label)
		for _, msg := range group.Messages {
			fmt.Fprintln(w, formatMessage(msg, now.Location()))
		}
	}
}

func formatMessage(msg domain.ChatMessage, loc *time.Location) string {
	body := msg.Body
	if msg.Kind == domain.MessageKindImage {
		body = "[image] " + msg.AttachmentURL
		if msg.HasCaption() {
			body = msg.Body + " " + body
		}
	}
	return fmt.Sprintf("[%s] %s: %s", msg.CreatedAt.In(loc).Format("15:04"), msg.SenderName, body)
}
