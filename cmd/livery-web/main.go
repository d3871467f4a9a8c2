package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fpang/livery-studio/internal/chat"
	"github.com/fpang/livery-studio/internal/cli"
	"github.com/fpang/livery-studio/internal/export"
	"github.com/fpang/livery-studio/internal/logging"
	"github.com/fpang/livery-studio/internal/studio"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

//go:embed all:frontend_dist
var frontendFS embed.FS

// Set at build time via -ldflags.
var (
	commitHash = "dev"
	buildTime  = "unknown"
)

// CLI flags
var (
	portFlag        int
	modelFlag       string
	validateKeyFlag bool
	exportDirFlag   string
	s3BucketFlag    string
	s3PrefixFlag    string
)

var rootCmd = &cobra.Command{
	Use:   "livery-web",
	Short: "Local web studio for livery transfer",
	Long: `Livery Web starts a local web server with the livery studio: load a
reference design and a target product photo, pick an adaptation level, and
generate the target wearing the reference livery. Compare, refine and export
results from your browser.

The API key can be entered in the page (held in memory only) or taken from
GEMINI_API_KEY.

Examples:
  livery-web
  livery-web --port 9090 --validate-key
  livery-web --s3-bucket my-renders --s3-prefix liveries`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().IntVar(&portFlag, "port", 8080, "Port to listen on")
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", chat.GetImageModelName(), "Gemini image model to use")
	rootCmd.Flags().BoolVar(&validateKeyFlag, "validate-key", false, "Check the environment API key before serving")
	rootCmd.Flags().StringVar(&exportDirFlag, "export-dir", ".", "Directory results are exported to")
	rootCmd.Flags().StringVar(&s3BucketFlag, "s3-bucket", "", "Export results to this S3 bucket instead of a directory")
	rootCmd.Flags().StringVar(&s3PrefixFlag, "s3-prefix", "", "Key prefix for S3 exports")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	initStart := time.Now()
	logging.Init()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if validateKeyFlag {
		cli.InitAPIKeyCheck(ctx, "")
	}

	sink, err := newSink(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure export")
	}

	st := studio.New(studio.Options{
		Synthesizer: chat.NewLiveryClient(modelFlag),
		Model:       modelFlag,
	})
	srv := newServer(ctx, st, sink)
	defer srv.Close()

	logging.NewStartupLogger("livery-web").
		CommitHash(commitHash).
		BuildTime(buildTime).
		Config("port", fmt.Sprint(portFlag)).
		Config("model", modelFlag).
		Config("exportDir", exportDirFlag).
		Config("s3Bucket", s3BucketFlag).
		Feature("validateKey", validateKeyFlag).
		Feature("s3Export", s3BucketFlag != "").
		InitDuration(time.Since(initStart)).
		Log()

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", portFlag),
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info().Msg("Shutting down...")
		srv.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx)
	}()

	log.Info().Int("port", portFlag).Msg("Starting web server")
	fmt.Printf("\n  Livery Studio: http://localhost:%d\n\n", portFlag)

	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

func newSink(ctx context.Context) (export.Sink, error) {
	if s3BucketFlag == "" {
		return export.FileSink{Dir: exportDirFlag}, nil
	}
	return export.NewS3Sink(ctx, s3BucketFlag, s3PrefixFlag)
}
