package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fpang/livery-studio/internal/chat"
	"github.com/fpang/livery-studio/internal/cli"
	"github.com/fpang/livery-studio/internal/export"
	"github.com/fpang/livery-studio/internal/intake"
	"github.com/fpang/livery-studio/internal/logging"
	"github.com/fpang/livery-studio/internal/studio"
	"github.com/ncruces/zenity"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Set at build time via -ldflags.
var (
	commitHash = "dev"
	buildTime  = "unknown"
)

// CLI flags
var (
	referenceFlag   string
	targetFlag      string
	levelFlag       int
	feedbackFlag    string
	apiKeyFlag      string
	modelFlag       string
	outFlag         string
	compareFlag     string
	s3BucketFlag    string
	s3PrefixFlag    string
	validateKeyFlag bool
	plainFlag       bool
	logFileFlag     string
)

// rootCmd is the main Cobra command for the livery-cli.
var rootCmd = &cobra.Command{
	Use:   "livery-cli",
	Short: "Apply a reference livery to a product photo",
	Long: `Livery CLI transfers the surface design of a reference image onto the
object in a target image while keeping the target's shape, perspective and
lighting. The adaptation level picks how literally the design is copied:
below 30 it is copied exactly, from 70 up it is reinterpreted to fit.

The result is saved as generated_livery.png in --out (or uploaded to S3).
In the interactive view, drag across the comparison bar to move the split.

Examples:
  livery-cli --reference wrap.png --target car.jpg
  livery-cli -r wrap.png -t car.jpg --level 80 --feedback "make it matte"
  livery-cli -r wrap.png -t car.jpg --compare compare.png --plain
  livery-cli  # Interactive mode - opens file dialogs`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().StringVarP(&referenceFlag, "reference", "r", "", "Reference livery image")
	rootCmd.Flags().StringVarP(&targetFlag, "target", "t", "", "Target product image")
	rootCmd.Flags().IntVarP(&levelFlag, "level", "l", studio.DefaultAdaptationLevel, "Adaptation level 0-100")
	rootCmd.Flags().StringVarP(&feedbackFlag, "feedback", "f", "", "Refinement instruction for the generation")
	rootCmd.Flags().StringVar(&apiKeyFlag, "api-key", "", "Gemini API key (defaults to GEMINI_API_KEY)")
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", chat.GetImageModelName(), "Gemini image model to use")
	rootCmd.Flags().StringVarP(&outFlag, "out", "o", ".", "Directory the result is saved to")
	rootCmd.Flags().StringVar(&compareFlag, "compare", "", "Write a before/after composite PNG to this path")
	rootCmd.Flags().StringVar(&s3BucketFlag, "s3-bucket", "", "Upload the result to this S3 bucket instead of --out")
	rootCmd.Flags().StringVar(&s3PrefixFlag, "s3-prefix", "", "Key prefix for S3 uploads")
	rootCmd.Flags().BoolVar(&validateKeyFlag, "validate-key", false, "Check the API key before generating")
	rootCmd.Flags().BoolVar(&plainFlag, "plain", false, "Print log lines instead of the interactive view")
	rootCmd.Flags().StringVar(&logFileFlag, "log-file", "", "Write diagnostic logs here in interactive mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runMain is the main execution logic called by Cobra.
func runMain(cmd *cobra.Command, args []string) {
	initStart := time.Now()
	closeLog := initLogging()
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	referencePath := resolveImage(referenceFlag, "Reference livery image")
	targetPath := resolveImage(targetFlag, "Target product image")

	if validateKeyFlag {
		cli.InitAPIKeyCheck(ctx, apiKeyFlag)
	}

	sink, err := newSink(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure output")
	}

	st := studio.New(studio.Options{
		Synthesizer: chat.NewLiveryClient(modelFlag),
		Model:       modelFlag,
	})
	st.SetAPIKey(apiKeyFlag)
	st.SetAdaptationLevel(levelFlag)
	st.SetPendingInstruction(feedbackFlag)

	logging.NewStartupLogger("livery-cli").
		CommitHash(commitHash).
		BuildTime(buildTime).
		Config("model", modelFlag).
		Config("level", fmt.Sprint(levelFlag)).
		Config("out", outFlag).
		Config("s3Bucket", s3BucketFlag).
		Feature("apiKeyFlag", apiKeyFlag != "").
		Feature("feedback", feedbackFlag != "").
		Feature("plain", plainFlag).
		InitDuration(time.Since(initStart)).
		Log()

	if plainFlag {
		if err := runPlain(ctx, st, sink, referencePath, targetPath); err != nil {
			os.Exit(1)
		}
		return
	}
	runInteractive(ctx, st, sink, referencePath, targetPath)
}

// initLogging sends logs to stderr in plain mode. The interactive view owns
// the terminal, so logs go to --log-file or nowhere.
func initLogging() func() {
	if plainFlag {
		logging.Init()
		return func() {}
	}
	if logFileFlag == "" {
		logging.InitWithWriter(io.Discard)
		return func() {}
	}
	f, err := os.OpenFile(logFileFlag, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		logging.Init()
		log.Fatal().Err(err).Str("path", logFileFlag).Msg("Failed to open log file")
	}
	logging.InitWithWriter(f)
	return func() { f.Close() }
}

// resolveImage returns an absolute image path, asking with a native dialog
// when none was given and falling back to a terminal prompt when no dialog
// can be shown.
func resolveImage(path, label string) string {
	if path == "" {
		selected, err := pickImage(label)
		switch {
		case err == nil:
			path = selected
		case errors.Is(err, zenity.ErrCanceled):
			log.Fatal().Str("image", label).Msg("No image selected")
		default:
			log.Debug().Err(err).Msg("File dialog unavailable, prompting on terminal")
			path = cli.PromptForPath(label, "")
		}
	}

	resolved, err := cli.ResolveImagePath(path)
	if err != nil {
		log.Fatal().Err(err).Str("image", label).Msg("Invalid image path")
	}
	return resolved
}

func pickImage(title string) (string, error) {
	patterns := make([]string, 0, len(intake.SupportedImageExtensions))
	for ext := range intake.SupportedImageExtensions {
		patterns = append(patterns, "*"+ext)
	}
	return zenity.SelectFile(
		zenity.Title(title),
		zenity.FileFilters{{Name: "Images", Patterns: patterns}},
	)
}

func newSink(ctx context.Context) (export.Sink, error) {
	if s3BucketFlag == "" {
		return export.FileSink{Dir: outFlag}, nil
	}
	return export.NewS3Sink(ctx, s3BucketFlag, s3PrefixFlag)
}

func runInteractive(ctx context.Context, st *studio.Studio, sink export.Sink, referencePath, targetPath string) {
	m := newModel(ctx, st, sink, compareFlag)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))

	relay := newStateRelay(func(state studio.State) { p.Send(stateMsg(state)) })
	defer relay.Close()
	unsubscribe := st.Subscribe(relay.Offer)
	defer unsubscribe()

	go func() {
		if err := st.SelectFile(studio.SlotReference, referencePath); err != nil {
			p.Send(loadFailedMsg{err: err})
			return
		}
		if err := st.SelectFile(studio.SlotTarget, targetPath); err != nil {
			p.Send(loadFailedMsg{err: err})
			return
		}
		p.Send(loadedMsg{})
	}()

	final, err := p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		log.Fatal().Err(err).Msg("Interactive view failed")
	}
	if fm, ok := final.(model); ok {
		fm.printSummary(os.Stdout)
		if compareFlag != "" && fm.state.Result != "" {
			if err := writeComparison(st, fm.state, fm.viewer.Split(), compareFlag); err != nil {
				log.Error().Err(err).Msg("Failed to write comparison")
			} else {
				fmt.Printf("Comparison: %s (split %.0f%%)\n", compareFlag, fm.viewer.Split())
			}
		}
		if fm.failed() {
			os.Exit(1)
		}
	}
}
