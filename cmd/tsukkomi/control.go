package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/leonardotrapani/tsukkomi/internal/bus"
	"github.com/leonardotrapani/tsukkomi/internal/results"
	"github.com/leonardotrapani/tsukkomi/internal/session"
	"github.com/leonardotrapani/tsukkomi/internal/tui"
)

const (
	defaultTimeout = 5 * time.Second
	// stop waits for an in-flight generation; summary waits for one.
	longTimeout = 90 * time.Second
)

func send(req bus.Request, timeout time.Duration) (bus.Response, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return bus.Send(ctx, req)
}

// simpleCmd sends one request and prints the resulting status.
func simpleCmd(use, short string, cmd bus.Command, timeout time.Duration) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			resp, err := send(bus.Request{Cmd: cmd}, timeout)
			if err != nil {
				return fmt.Errorf("failed to %s: %w", use, err)
			}
			printStatus(c.OutOrStdout(), resp.Status)
			return nil
		},
	}
}

func startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start transcribing the meeting",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			resp, err := send(bus.Request{Cmd: bus.CmdStart}, defaultTimeout)
			if err != nil {
				return fmt.Errorf("failed to start: %w", err)
			}
			fmt.Fprintf(c.OutOrStdout(), "session %s\n", resp.SessionID)
			printStatus(c.OutOrStdout(), resp.Status)
			return nil
		},
	}
}

func stopCmd() *cobra.Command {
	return simpleCmd("stop", "Stop the current session", bus.CmdStop, longTimeout)
}

func statusCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Get the current session status",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			resp, err := send(bus.Request{Cmd: bus.CmdStatus}, defaultTimeout)
			if err != nil {
				return fmt.Errorf("failed to get status: %w", err)
			}
			if asJSON {
				return json.NewEncoder(c.OutOrStdout()).Encode(resp.Status)
			}
			printStatus(c.OutOrStdout(), resp.Status)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw status object")
	return cmd
}

func modeCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "mode <assertive|gentle>",
		Short:     "Switch the facilitator persona",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"assertive", "gentle"},
		RunE: func(c *cobra.Command, args []string) error {
			resp, err := send(bus.Request{Cmd: bus.CmdMode, Mode: args[0]}, defaultTimeout)
			if err != nil {
				return fmt.Errorf("failed to set mode: %w", err)
			}
			printStatus(c.OutOrStdout(), resp.Status)
			return nil
		},
	}
}

func intervalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "interval <duration>",
		Short: "Set the minimum time between interjections (e.g. 90s)",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			resp, err := send(bus.Request{Cmd: bus.CmdInterval, Interval: args[0]}, defaultTimeout)
			if err != nil {
				return fmt.Errorf("failed to set interval: %w", err)
			}
			printStatus(c.OutOrStdout(), resp.Status)
			return nil
		},
	}
}

func summaryCmd() *cobra.Command {
	var copyOut bool
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Summarize everything transcribed since the last clear",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			resp, err := send(bus.Request{Cmd: bus.CmdSummary}, longTimeout)
			if err != nil {
				return fmt.Errorf("failed to summarize: %w", err)
			}
			fmt.Fprintln(c.OutOrStdout(), resp.Summary)
			if copyOut {
				if err := clipboard.WriteAll(resp.Summary); err != nil {
					return fmt.Errorf("failed to copy summary: %w", err)
				}
				fmt.Fprintln(c.ErrOrStderr(), "summary copied to clipboard")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&copyOut, "copy", false, "also copy the summary to the clipboard")
	return cmd
}

func clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Stop the session and forget the transcript",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			resp, err := send(bus.Request{Cmd: bus.CmdClear}, longTimeout)
			if err != nil {
				return fmt.Errorf("failed to clear: %w", err)
			}
			fmt.Fprintf(c.OutOrStdout(), "cleared (%d undelivered messages dropped)\n", resp.Dropped)
			return nil
		},
	}
}

func pollCmd() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Print and remove queued transcripts and interjections",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			resp, err := send(bus.Request{Cmd: bus.CmdPoll, Max: limit}, defaultTimeout)
			if err != nil {
				return fmt.Errorf("failed to poll: %w", err)
			}
			if asJSON {
				enc := json.NewEncoder(c.OutOrStdout())
				for _, m := range resp.Messages {
					if err := enc.Encode(m); err != nil {
						return err
					}
				}
				return nil
			}
			printMessages(c.OutOrStdout(), resp.Messages)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "max", 0, "maximum messages to take (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print one JSON object per message")
	return cmd
}

func watchCmd() *cobra.Command {
	var every time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the meeting live in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			client, err := bus.NewClient()
			if err != nil {
				return err
			}
			return tui.Watch(client, every)
		},
	}
	cmd.Flags().DurationVar(&every, "every", time.Second, "poll period")
	return cmd
}

func quitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quit",
		Short: "Stop the daemon",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			if _, err := send(bus.Request{Cmd: bus.CmdQuit}, defaultTimeout); err != nil {
				return fmt.Errorf("failed to stop daemon: %w", err)
			}
			fmt.Fprintln(c.OutOrStdout(), "daemon stopping")
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Get daemon and protocol version",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			resp, err := send(bus.Request{Cmd: bus.CmdVersion}, defaultTimeout)
			if err != nil {
				return fmt.Errorf("failed to get version: %w", err)
			}
			fmt.Fprintln(c.OutOrStdout(), resp.Version)
			return nil
		},
	}
}

func printStatus(w io.Writer, s *session.Snapshot) {
	if s == nil {
		return
	}
	fmt.Fprintf(w, "status:   %s\n", s.Status)
	if s.SessionID != "" {
		fmt.Fprintf(w, "session:  %s (%d transcripts)\n", s.SessionID, s.Transcripts)
	}
	if !s.StartedAt.IsZero() {
		line := s.StartedAt.Format("15:04:05")
		if !s.EndedAt.IsZero() {
			line += " - " + s.EndedAt.Format("15:04:05")
		}
		fmt.Fprintf(w, "time:     %s\n", line)
	}
	fmt.Fprintf(w, "persona:  %s (%s)\n", s.Persona, s.Mode)
	fmt.Fprintf(w, "interval: %s\n", s.Interval)
	if s.Pending > 0 {
		fmt.Fprintf(w, "pending:  %d\n", s.Pending)
	}
	if s.Error != "" {
		fmt.Fprintf(w, "error:    %s\n", s.Error)
	}
}

func printMessages(w io.Writer, msgs []results.Message) {
	for _, m := range msgs {
		switch m.Kind {
		case results.KindTranscript:
			fmt.Fprintf(w, "[%s] %s\n", m.Transcript.ReceivedAt.Format("15:04:05"), m.Transcript.Text)
		case results.KindInterjection:
			in := m.Interjection
			fmt.Fprintf(w, ">> %s (severity %d): %s\n", in.Persona, in.Decision.Severity, in.Decision.Reply.Comment)
			if next := in.Decision.Reply.NextAction; next != "" {
				fmt.Fprintf(w, "   next: %s\n", next)
			}
		case results.KindFailure:
			fmt.Fprintf(w, "!! %s\n", m.Error)
		}
	}
}
