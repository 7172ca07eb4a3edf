package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"tunetalk/internal/ai"
	"tunetalk/internal/config"
	"tunetalk/internal/gateway"
	"tunetalk/internal/knowledge"
	"tunetalk/internal/version"
)

var (
	cfgFile string
	port    int
	debug   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tunetalk",
	Short: "TuneTalk Gateway - conversational sessions over music metadata",
	Long: `TuneTalk Gateway is a WebSocket server that hosts AI conversations
about artists and albums. It classifies user intent, retrieves catalog
context, and streams generated responses and insights back to clients.`,
	Version: version.Full(),
}

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the TuneTalk Gateway server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("TuneTalk Gateway %s\n", version.Full())
		if version.BuildDate != "unknown" {
			fmt.Printf("Build date: %s\n", version.BuildDate)
		}
		fmt.Printf("Go version: %s\n", version.GoVersion)
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.json", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")

	serverCmd.Flags().IntVarP(&port, "port", "p", 0, "override the configured server port")

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(versionCmd)

	// No subcommand defaults to server
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return serverCmd.RunE(cmd, args)
	}
}

func initConfig() {
	// Load .env early so config expansion sees the variables
	if err := godotenv.Load(); err == nil {
		log.Printf("[Main] Loaded environment from .env")
	}
}

func runServer() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if port > 0 {
		cfg.Port = port
	}
	if debug {
		cfg.Debug = true
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		return err
	}
	log.Printf("[Main] Using %s provider", provider.Name())

	generator := ai.NewGenerator(provider, ai.GeneratorConfig{
		Persona:   cfg.Agent.Persona,
		Model:     cfg.AI.Model,
		MaxTokens: cfg.AI.MaxTokens,
		Timeout:   cfg.AITimeout(),
	})

	catalog := knowledge.NewClient(knowledge.Config{
		BaseURL: cfg.Knowledge.BaseURL,
		Timeout: cfg.KnowledgeTimeout(),
	})

	g := gateway.New(cfg, gateway.Collaborators{
		Retriever: catalog,
		Generator: generator,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("[Main] Received %s, shutting down", sig)
		cancel()
	}()

	log.Printf("[Main] TuneTalk Gateway %s starting on port %d", version.Info(), cfg.Port)
	return g.Start(ctx)
}

// buildProvider selects the completion provider from config. A missing API
// key falls back to the echo provider so the gateway still runs locally.
func buildProvider(cfg *config.Config) (ai.Provider, error) {
	switch cfg.AI.Provider {
	case "", "openai":
		if cfg.AI.APIKey == "" {
			log.Printf("[Main] WARNING: no API key configured, falling back to echo provider")
			return ai.NewEchoProvider(), nil
		}
		return ai.NewOpenAIProvider(ai.OpenAIConfig{
			APIKey:  cfg.AI.APIKey,
			BaseURL: cfg.AI.BaseURL,
			Model:   cfg.AI.Model,
		})
	case "echo":
		return ai.NewEchoProvider(), nil
	default:
		return nil, fmt.Errorf("unknown AI provider: %q", cfg.AI.Provider)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("[Main] %v", err)
	}
}
