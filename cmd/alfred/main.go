// Command alfred runs the Alfred voice assistant.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lexiqai/alfred/internal/config"
	"github.com/lexiqai/alfred/internal/controller"
	"github.com/lexiqai/alfred/internal/observability"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "alfred",
	Short: "Alfred, a voice assistant with a butler's manners",
	Long: `Alfred listens through the microphone, answers with Gemini and speaks
the reply. Run "alfred listen" for hands-free turns, "alfred talk" for
push-to-talk, "alfred chat" to type, or "alfred serve" for remote clients.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("tts", "", "Speech provider: deepgram or cartesia")
	rootCmd.PersistentFlags().String("model", "", "Gemini model name")
	rootCmd.PersistentFlags().String("strategy", "", "Capture strategy: single or continuous")
	rootCmd.PersistentFlags().String("persona", "", "File holding the assistant persona")

	chatCmd.Flags().Bool("mute", false, "Print replies without speaking them")

	rootCmd.AddCommand(listenCmd)
	rootCmd.AddCommand(talkCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serveCmd)
}

// loadConfig reads the environment, then applies flag overrides
func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	overrides := map[string]*string{
		"log-level": &loaded.LogLevel,
		"tts":       &loaded.TTSProvider,
		"model":     &loaded.GeminiModel,
		"strategy":  &loaded.CaptureStrategy,
		"persona":   &loaded.PersonaFile,
	}
	for name, field := range overrides {
		if v, _ := flags.GetString(name); v != "" {
			*field = v
		}
	}
	if err := loaded.Validate(); err != nil {
		return err
	}

	observability.InitLogger(loaded.LogLevel, loaded.LogPretty)
	cfg = loaded
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if ctx.Err() != nil {
		// Interrupted: leave politely, whatever the command was doing
		fmt.Fprintf(os.Stdout, "\n%s: %s\n", assistantName(), controller.Goodbye)
		return
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		os.Exit(1)
	}
}

func assistantName() string {
	if cfg == nil || cfg.AssistantName == "" {
		return "Alfred"
	}
	return cfg.AssistantName
}
