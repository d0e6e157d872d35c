package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/domain"
	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/flow"
	"github.com/spf13/cobra"
)

// NewHostCmd opens a lobby for a bank and starts the session on demand.
func NewHostCmd(configPath *string) *cobra.Command {
	var (
		bankID    string
		autoStart bool
	)
	cmd := &cobra.Command{
		Use:   "host",
		Short: "Host a live session for a question bank",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newClientEnv(*configPath)
			if err != nil {
				return err
			}
			defer env.Close()
			return runHost(cmd.Context(), env, bankID, autoStart, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&bankID, "bank", "", "question bank id")
	cmd.Flags().BoolVar(&autoStart, "auto-start", false, "start as soon as the start action is enabled")
	_ = cmd.MarkFlagRequired("bank")
	return cmd
}

// runHost renders lobby changes until the session is live. Enter (or "start") starts the
// session, "quit" closes the lobby.
func runHost(ctx context.Context, env *clientEnv, bankID string, autoStart bool, in io.Reader, out io.Writer) error {
	if err := env.gate(ctx, out); err != nil {
		return err
	}

	// changes only signals; the loop always renders the latest view
	changes := make(chan struct{}, 1)
	lobby := flow.NewLobby(env.api, env.statusSource(),
		flow.WithMinStudents(env.cfg.Lobby.MinStudents),
		flow.WithLobbyTimeout(env.timeout),
		flow.WithLobbyLogger(env.logger),
		flow.WithOnChange(func(flow.LobbyView) {
			select {
			case changes <- struct{}{}:
			default:
			}
		}),
	)
	defer lobby.Close()

	if err := lobby.Open(ctx, bankID); err != nil {
		return err
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()

	start := func() {
		err := lobby.Start(ctx)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrInFlight):
		default:
			fmt.Fprintf(out, "cannot start (%s): %v\n", domain.KindOf(err), err)
		}
	}

	last := lobby.View()
	render(out, last)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changes:
			v := lobby.View()
			if v.Version <= last.Version {
				continue
			}
			last = v
			render(out, v)
			if v.Live {
				return nil
			}
			if autoStart && v.CanStart {
				start()
			}
		case line, ok := <-lines:
			if !ok {
				lines = nil
				if !autoStart {
					return errors.New("input closed before the session started")
				}
				continue
			}
			switch line {
			case "", "start":
				start()
			case "q", "quit":
				return nil
			default:
				fmt.Fprintln(out, `commands: "start" (or Enter), "quit"`)
			}
		}
	}
}

func render(out io.Writer, v flow.LobbyView) {
	switch {
	case v.Live:
		fmt.Fprintf(out, "[%s] PIN %s  %s  session is live\n", v.Phase, v.State.Pin, v.CountLabel)
	case v.Err != nil:
		fmt.Fprintf(out, "[%s] PIN %s  %s  start=%v  error: %v\n", v.Phase, v.State.Pin, v.CountLabel, v.CanStart, v.Err)
	default:
		fmt.Fprintf(out, "[%s] PIN %s  %s  start=%v\n", v.Phase, v.State.Pin, v.CountLabel, v.CanStart)
	}
}
