package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/photobooth/internal/decorate"
	"github.com/fpang/photobooth/internal/handoff"
	"github.com/fpang/photobooth/internal/lambdaboot"
	"github.com/fpang/photobooth/internal/logging"
	"github.com/fpang/photobooth/internal/web"
)

// lambdaDataDir is the only writable directory on Lambda.
const lambdaDataDir = "/tmp/photobooth"

var (
	portFlag   string
	lambdaFlag bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the booth API and share links",
	Long: `Serve starts the HTTP API: strip composition, decoration exports, share
links with QR codes and the sticker assets.

With --lambda (or when AWS_LAMBDA_FUNCTION_NAME is set) the same handler runs
behind API Gateway HTTP APIs instead of listening on a port.`,
	Args: cobra.NoArgs,
	Run:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&portFlag, "port", lambdaboot.LoadConfig().Port, "Port to listen on")
	serveCmd.Flags().BoolVar(&lambdaFlag, "lambda", os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "", "Run as an AWS Lambda handler")
}

func runServe(cmd *cobra.Command, args []string) {
	initStart := time.Now()
	if lambdaFlag {
		logging.InitJSON(os.Stdout)
	} else {
		logging.Init()
	}

	cfg := loadConfig()
	cfg.Port = portFlag
	if lambdaFlag && !cmd.Flags().Changed("data-dir") && os.Getenv(lambdaboot.EnvDataDir) == "" {
		cfg.DataDir = lambdaDataDir
	}

	ctx := context.Background()
	startup := lambdaboot.StartupLog("serve", initStart).Version(version)

	slot, err := handoff.NewFileSlot(cfg.SlotDir())
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.SlotDir()).Msg("Failed to open hand-off slot")
	}
	shares, err := lambdaboot.NewShareService(ctx, cfg, startup)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise sharing")
	}
	handler := web.NewServer(slot, decorate.NewAssets(cfg.AssetsDir), shares).Handler()

	startup.
		Dir("assets", cfg.AssetsDir).
		Dir("slot", cfg.SlotDir()).
		Feature("lambda", lambdaFlag).
		InitDuration(time.Since(initStart)).
		Log()

	if lambdaFlag {
		adapter := httpadapter.NewV2(handler)
		lambda.Start(adapter.ProxyWithContext)
		return
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	log.Info().Str("port", cfg.Port).Msg("Starting web server")
	fmt.Printf("\n  Photobooth: http://localhost:%s\n\n", cfg.Port)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
