package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Praveenashok395/restspec/packages/mock"
	"github.com/spf13/cobra"
)

var (
	mockPortFlag    int
	mockDelayFlag   string
	mockVerboseFlag bool
	mockDemoFlag    bool
)

var mockCmd = &cobra.Command{
	Use:   "mock [file|directory...]",
	Short: "Serve canned responses derived from .rest files",
	Long: `Start a local HTTP server that answers the requests your scenarios
describe, so checks can run without the real API.

Examples:
  restspec mock f1.rest
  restspec mock ./checks/ --port 8080
  restspec mock --demo`,
	RunE: mockCommand,
}

func init() {
	mockCmd.Flags().IntVar(&mockPortFlag, "port", 3000, "Port to listen on")
	mockCmd.Flags().StringVar(&mockDelayFlag, "delay", "", "Artificial latency per response, e.g. 200ms")
	mockCmd.Flags().BoolVarP(&mockVerboseFlag, "verbose", "v", false, "Log every request")
	mockCmd.Flags().BoolVar(&mockDemoFlag, "demo", false, "Serve the built-in motorsport dataset under /api/f1")
}

func mockCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !mockDemoFlag {
		return fmt.Errorf("give .rest files to mock, or use --demo")
	}

	opts := []mock.Option{
		mock.WithPort(mockPortFlag),
		mock.WithVerbose(mockVerboseFlag),
	}
	if mockDelayFlag != "" {
		delay, err := time.ParseDuration(mockDelayFlag)
		if err != nil {
			return fmt.Errorf("invalid delay %q: %w", mockDelayFlag, err)
		}
		opts = append(opts, mock.WithDelay(delay))
	}

	server := mock.NewServer(opts...)
	if mockDemoFlag {
		server.LoadDemo()
	}
	if len(args) > 0 {
		files, err := collectFiles(args)
		if err != nil {
			return err
		}
		if err := server.LoadFiles(files); err != nil {
			return err
		}
	}
	if len(server.Routes()) == 0 {
		return fmt.Errorf("no routes loaded")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.Serve(ctx)
}
