package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	goPrereg "github.com/MrEthical07/goPrereg"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Walk through one pre-registration interactively",
		Long: `Walk through one pre-registration interactively.

At the email step type an address; at the verify step type the code.
Commands:
  :resend   request a new code once the cooldown has elapsed
  :back     return to the email step
  :status   print the current state
  :quit     close the flow and exit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.resolveConfig(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			builder := goPrereg.New().WithConfig(cfg)
			if cfg.DispatchLimit.Enabled {
				client, cleanup, err := openRedis(opts.redisAddr)
				if err != nil {
					return err
				}
				defer cleanup()
				builder = builder.WithRedis(client)
			}
			if cfg.Audit.Enabled {
				builder = builder.WithAuditSink(goPrereg.NewJSONWriterSink(cmd.ErrOrStderr()))
			}

			engine, err := builder.Build()
			if err != nil {
				return err
			}
			defer engine.Close()

			return runSession(ctx, engine, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// openRedis connects to addr, or starts an in-memory server when addr is
// empty.
func openRedis(addr string) (redis.UniversalClient, func(), error) {
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start in-memory redis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func runSession(ctx context.Context, engine *goPrereg.Engine, in io.Reader, out io.Writer) error {
	flow := engine.NewFlow()
	defer flow.Close()

	state, err := flow.Open(ctx)
	if err != nil {
		return err
	}
	engine.Logger().Debug("session started", zap.String("flow_id", flow.ID()))

	msgs := engine.Config().Messages
	printState(out, state, msgs)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "interrupted")
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(l)
		}

		switch {
		case line == "":
			continue
		case line == ":quit":
			flow.Close()
			fmt.Fprintln(out, "closed")
			return nil
		case line == ":status":
			printState(out, flow.State(), msgs)
			continue
		case line == ":back":
			state, _ = flow.BackToEmail()
		case line == ":resend":
			current := flow.State()
			if current.Step == goPrereg.StepVerify && !current.CanResend() {
				fmt.Fprintf(out, "resend available in %ds\n", current.ResendCooldownSeconds)
				continue
			}
			state, _ = flow.Resend(ctx)
		case strings.HasPrefix(line, ":"):
			fmt.Fprintf(out, "unknown command %s\n", line)
			continue
		default:
			switch flow.State().Step {
			case goPrereg.StepEmail:
				state, _ = flow.SubmitEmail(ctx, line)
			case goPrereg.StepVerify:
				state, _ = flow.SubmitCode(ctx, line)
			}
		}

		printState(out, state, msgs)
		if state.Step == goPrereg.StepSuccess {
			return nil
		}
	}
}

func printState(w io.Writer, s goPrereg.FlowState, msgs goPrereg.MessagesConfig) {
	if s.Error != "" {
		fmt.Fprintf(w, "error: %s\n", s.Error)
	}
	switch s.Step {
	case goPrereg.StepEmail:
		fmt.Fprintln(w, "email:")
	case goPrereg.StepVerify:
		if s.CanResend() {
			fmt.Fprintf(w, "code sent to %s (:resend available)\ncode:\n", s.Email)
		} else {
			fmt.Fprintf(w, "code sent to %s (resend in %ds)\ncode:\n", s.Email, s.ResendCooldownSeconds)
		}
	case goPrereg.StepSuccess:
		fmt.Fprintln(w, msgs.Success)
	}
}
