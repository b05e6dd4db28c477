package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/solatis/fieldcomp/internal/core/api"
	"github.com/solatis/fieldcomp/internal/core/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC Composer service",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "gRPC server host")
	serveCmd.Flags().Int("port", 50061, "gRPC server port")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	serverCfg := cfg.Server

	if cmd.Flags().Changed("host") {
		serverCfg.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		serverCfg.Port, _ = cmd.Flags().GetInt("port")
	}

	processor, err := newProcessor(ctx)
	if err != nil {
		return err
	}

	service, err := api.NewComposerService(processor)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	grpcServer, err := server.NewGRPCServer(serverCfg, service, log)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- grpcServer.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-sigChan:
		log.Info("shutting down")
		return grpcServer.Shutdown(context.Background())
	}
}
