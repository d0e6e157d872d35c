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
	"go.uber.org/zap"
)

// NewJoinCmd joins a session as a student.
func NewJoinCmd(configPath *string) *cobra.Command {
	var code string
	cmd := &cobra.Command{
		Use:   "join",
		Short: "Join a live session with its 6-character code",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newClientEnv(*configPath)
			if err != nil {
				return err
			}
			defer env.Close()
			return runJoin(cmd.Context(), env, code, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "join code; prompts on stdin when empty")
	return cmd
}

// runJoin submits code, or prompts for codes until one succeeds or input ends.
func runJoin(ctx context.Context, env *clientEnv, code string, in io.Reader, out io.Writer) error {
	if err := env.gate(ctx, out); err != nil {
		return err
	}

	var route string
	join := flow.NewJoinFlow(env.api,
		flow.NavigatorFunc(func(r string) { route = r }),
		flow.WithJoinTimeout(env.timeout),
		flow.WithJoinLogger(env.logger),
	)

	if code != "" {
		join.SetCode(code)
		if err := join.Submit(ctx); err != nil {
			return err
		}
		fmt.Fprintf(out, "redirect: %s\n", route)
		return nil
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "join code: ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			return errors.New("no code entered")
		}
		join.SetCode(strings.TrimSpace(scanner.Text()))
		err := join.Submit(ctx)
		if err == nil {
			fmt.Fprintf(out, "redirect: %s\n", route)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		env.logger.Debug("join attempt rejected", zap.Error(err))
		fmt.Fprintf(out, "could not join (%s): %v\n", domain.KindOf(err), err)
	}
}
