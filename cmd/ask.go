package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/koopa0/helpdesk/internal/agent"
	"github.com/koopa0/helpdesk/internal/app"
	"github.com/koopa0/helpdesk/internal/config"
)

var (
	askVoice   bool
	askProduct string
	askUserID  string
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the support assistant a single question",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askVoice, "voice", false, "use the shorter voice-oriented reply format")
	askCmd.Flags().StringVar(&askProduct, "product", "", "scope retrieval to a product line")
	askCmd.Flags().StringVar(&askUserID, "user", "cli", "user identifier for rate limiting")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := checkRequiredEnv(); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx := context.Background()
	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			slog.Warn("shutdown error", "error", closeErr)
		}
	}()

	req := agent.Request{
		Message: strings.Join(args, " "),
		UserID:  askUserID,
	}

	var result *agent.Result
	switch {
	case askVoice:
		result = a.Agent.GenerateVoice(ctx, req)
	case askProduct != "":
		result = a.Agent.GenerateForProduct(ctx, req, askProduct)
	default:
		result = a.Agent.Generate(ctx, req)
	}

	fmt.Println(result.Message)
	if len(result.Sources) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for _, src := range result.Sources {
			fmt.Printf("  - %s (%s)\n", src.Title, src.URL)
		}
	}
	fmt.Printf("\nConfidence: %.2f\n", result.Confidence)

	return nil
}
