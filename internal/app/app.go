package app

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/slack-go/slack"
	"github.com/spf13/cobra"

	"github.com/emariqueo1/clasificador-salcobrand/internal/classify"
	"github.com/emariqueo1/clasificador-salcobrand/internal/config"
	"github.com/emariqueo1/clasificador-salcobrand/internal/httpx"
	"github.com/emariqueo1/clasificador-salcobrand/internal/integrations/llm"
	slackbot "github.com/emariqueo1/clasificador-salcobrand/internal/integrations/slack"
	"github.com/emariqueo1/clasificador-salcobrand/internal/storage/sqlite"
)

// Main runs the CLI and exits non-zero on error.
func Main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "clasificador",
		Short:         "Salcobrand packaging classifier",
		Long:          "Classifies pharmacy products into packaging categories with a web-search-enabled model and keeps a history in SQLite.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.AddCommand(newServeCmd(), newClassifyCmd(), newListCmd(), newClearCmd())
	return root
}

// setupLogging applies log_level and the full-timestamp text formatter.
func setupLogging(cfg config.Config) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

type deps struct {
	cfg      config.Config
	store    *sqlite.Store
	notifier *slackbot.Notifier
}

func (d *deps) Close() {
	if d.store != nil {
		_ = d.store.Close()
	}
}

// openDeps loads config and opens the store. withLLM also requires the
// Anthropic key.
func openDeps(withLLM bool) (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	setupLogging(cfg)
	if cfg.Source != "" {
		log.Printf("Loaded config from %s", cfg.Source)
	}
	if withLLM {
		if err := cfg.RequireLLM(); err != nil {
			return nil, err
		}
	}
	appliedHTTPTimeout := httpx.ConfigureExternalHTTPClient(cfg.ExternalHTTPTimeoutSeconds)
	log.Printf("Config loaded. Model=%s DB=%s Timezone=%s LLMTimeout=%s ExternalHTTPTimeout=%s Slack=%t",
		cfg.LLMModel, cfg.DBPath, cfg.Timezone, cfg.LLMTimeout(), appliedHTTPTimeout, cfg.SlackConfigured())

	store, err := sqlite.InitDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}
	log.Printf("Database initialized at %s", cfg.DBPath)

	d := &deps{cfg: cfg, store: store}
	if cfg.SlackConfigured() {
		d.notifier = newNotifier(cfg)
	}
	return d, nil
}

// newNotifier posts through the shared timeout-bounded client, since
// notifications run on the classify request path.
func newNotifier(cfg config.Config) *slackbot.Notifier {
	return slackbot.NewNotifier(cfg.SlackBotToken, cfg.SlackChannelID,
		slack.OptionHTTPClient(httpx.ExternalHTTPClient()))
}

func (d *deps) classifier() *llm.Classifier {
	return llm.NewClassifier(llm.Options{
		APIKey:           d.cfg.AnthropicAPIKey,
		Model:            d.cfg.LLMModel,
		MaxTokens:        int64(d.cfg.LLMMaxTokens),
		WebSearchMaxUses: int64(d.cfg.LLMWebSearchMaxUses),
		Timeout:          d.cfg.LLMTimeout(),
		BaseURL:          d.cfg.AnthropicBaseURL,
		HTTPClient:       httpx.ExternalHTTPClient(),
	})
}

func (d *deps) service() *classify.Service {
	var notifier classify.Notifier
	if d.notifier != nil {
		notifier = d.notifier
	}
	return classify.NewService(d.classifier(), d.store, notifier)
}
