package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lexiqai/alfred/internal/controller"
	"github.com/lexiqai/alfred/internal/httpapi"
	"github.com/lexiqai/alfred/internal/observability"
	"github.com/lexiqai/alfred/internal/pipeline"
	"github.com/lexiqai/alfred/internal/transcript"
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Talk hands-free, one turn after another",
	Long:  `Listens for a phrase, answers it and listens again until you say "exit" or "quit".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConsole(cmd.Context(), appOptions{voice: true, noInputNotice: controller.Pardon}, listenLoop)
	},
}

var talkCmd = &cobra.Command{
	Use:   "talk",
	Short: "Push-to-talk: Enter to start speaking, Enter again to stop",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConsole(cmd.Context(), appOptions{voice: true}, talkLoop)
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Type to Alfred instead of speaking",
	RunE: func(cmd *cobra.Command, args []string) error {
		mute, _ := cmd.Flags().GetBool("mute")
		return runConsole(cmd.Context(), appOptions{mute: mute}, chatLoop)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve push-to-talk gestures and the transcript over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

// writeTimeout covers a whole turn, which may include synthesis
const writeTimeout = 90 * time.Second

type loopFunc func(ctx context.Context, a *app, c *console) error

func runConsole(ctx context.Context, opts appOptions, loop loopFunc) error {
	a, err := newApp(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	c := newConsole(a.feed, os.Stdin, os.Stdout)
	a.feed.Show("", a.describe())
	return c.run(ctx, func(ctx context.Context) error { return loop(ctx, a, c) })
}

// settle turns a finished result into the loop's next move. done reports
// that the session is over.
func settle(ctx context.Context, res pipeline.Result) (done bool, err error) {
	switch res.Outcome {
	case pipeline.OutcomeExit:
		return true, nil
	case pipeline.OutcomeDeviceUnavailable:
		return true, res.Err
	case pipeline.OutcomeCancelled:
		return true, ctx.Err()
	}
	return false, nil
}

func listenLoop(ctx context.Context, a *app, _ *console) error {
	for {
		res := a.controller.Listen(ctx)
		if done, err := settle(ctx, res); done {
			return err
		}
		// Listening again over our own voice would transcribe the reply
		_ = res.WaitPlayback(ctx)
	}
}

func talkLoop(ctx context.Context, a *app, c *console) error {
	a.feed.Show("", "Press Enter to speak and Enter again to finish. Type r to replay, q to quit.")
	for {
		line, ok := c.next(ctx)
		if !ok {
			a.controller.Cancel()
			return ctx.Err()
		}

		switch strings.ToLower(line) {
		case "q":
			a.controller.Cancel()
			return nil
		case "r":
			_ = a.controller.Replay(ctx)
			continue
		}

		if !a.controller.Holding() {
			_ = a.controller.Press(ctx)
			continue
		}
		if done, err := settle(ctx, a.controller.Release(ctx)); done {
			return err
		}
	}
}

func chatLoop(ctx context.Context, a *app, c *console) error {
	a.feed.Show("", "Type a message and press Enter. /replay repeats the last reply.")
	for {
		line, ok := c.next(ctx)
		if !ok {
			return ctx.Err()
		}
		switch line {
		case "":
			continue
		case "/replay":
			_ = a.controller.Replay(ctx)
			continue
		}
		if done, err := settle(ctx, a.controller.Type(ctx, line)); done {
			return err
		}
	}
}

func serve(ctx context.Context) error {
	logger := observability.GetLogger()
	hub := httpapi.NewHub()
	defer hub.Close()

	a, err := newApp(ctx, cfg, appOptions{voice: true, views: []transcript.View{hub}})
	if err != nil {
		return err
	}
	defer a.Close()

	// Lines also go to the host log; nobody drains the console feed here
	go func() {
		for {
			select {
			case <-a.feed.Ready():
				for _, line := range a.feed.Drain() {
					logger.Info().Str("speaker", line.Speaker).Msg(line.Text)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	grpcHealth := observability.NewGRPCHealth(10*time.Second, a.checks...)
	go func() {
		addr := net.JoinHostPort("", cfg.GRPCPort)
		if err := grpcHealth.Serve(ctx, addr); err != nil {
			logger.Error().Err(err).Str("addr", addr).Msg("gRPC health server failed")
		}
	}()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      httpapi.NewServer(ctx, a.controller, hub, cfg.MetricsEnabled, a.checks...).Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("endpoint", fmt.Sprintf("ws://localhost:%s/ws/transcript", cfg.Port)).
			Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info().Msg("Server exited gracefully")
	return ctx.Err()
}
