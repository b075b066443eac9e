package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/huythanhnguyen/ai-agent/config"
	"github.com/huythanhnguyen/ai-agent/internal/agent"
	"github.com/huythanhnguyen/ai-agent/internal/api"
	"github.com/huythanhnguyen/ai-agent/internal/credentials"
	"github.com/huythanhnguyen/ai-agent/internal/intent"
	"github.com/huythanhnguyen/ai-agent/internal/llm"
	"github.com/huythanhnguyen/ai-agent/pkg/models"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	cfg      *config.Config
	logger   zerolog.Logger
	provider string
	userID   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ai-agent [message]",
		Short: "Mega Market shopping assistant",
		Long: `ai-agent is the Mega Market chat backend. It classifies each message,
calls the commerce tools the intent needs and answers through the
configured LLM providers (OpenAI, Anthropic, Google, Ollama).

Examples:
  ai-agent "find me a rice cooker"
  ai-agent --provider anthropic "where is order 100023?"
  ai-agent classify "I want to return my blender"
  ai-agent chat --user 42
  ai-agent serve --port 5000`,
		Args: cobra.ArbitraryArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return err
			}

			level, err := zerolog.ParseLevel(cfg.LogLevel)
			if err != nil {
				level = zerolog.InfoLevel
			}
			if cfg.LogFormat == "json" {
				logger = zerolog.New(os.Stderr)
			} else {
				logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
			}
			logger = logger.Level(level).With().Timestamp().Logger()

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runAsk(strings.Join(args, " "))
		},
	}

	rootCmd.PersistentFlags().StringVar(&provider, "provider", "", "LLM provider to use instead of the default: openai, anthropic, google, ollama")
	rootCmd.PersistentFlags().StringVar(&userID, "user", "", "Customer ID used for order and profile lookups")

	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(classifyCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(testCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long:  "Start an interactive chat session with the shopping assistant",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat()
		},
	}
}

func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask [message]",
		Short: "Send a single message",
		Long:  "Send a single message through the full pipeline and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(strings.Join(args, " "))
		},
	}
}

func classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify [message]",
		Short: "Print the intent detected for a message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(strings.Join(args, " "))
		},
	}
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Long:  "Start the REST API server for the chat frontend",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port > 0 {
				cfg.Port = port
			}
			return runServer()
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default: 5000)")
	return cmd
}

func callOptions() []llm.CallOption {
	if provider == "" {
		return nil
	}
	return []llm.CallOption{llm.WithProvider(provider)}
}

func printResponse(resp models.AgentResponse) {
	fmt.Printf("Assistant: %s\n", resp.Message)
	if resp.Data != nil && resp.Type != models.ResponseText {
		fmt.Printf("  [%s data attached]\n", resp.Type)
	}
	fmt.Println()
}

func runChat() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nGoodbye!")
		cancel()
		os.Exit(0)
	}()

	fmt.Println("Mega Market Assistant")
	fmt.Println("=====================")
	fmt.Println("Ask about products, your orders or store support.")
	fmt.Println()
	fmt.Println("Type 'clear' to start over, 'exit' or 'quit' to end the session.")
	fmt.Println()

	sessionID := uuid.New().String()
	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Print("You: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if input == "exit" || input == "quit" {
			fmt.Println("Goodbye!")
			return nil
		}

		if input == "clear" {
			if err := a.coordinator.ClearSession(ctx, sessionID); err != nil {
				logger.Warn().Err(err).Msg("failed to clear session")
			}
			sessionID = uuid.New().String()
			fmt.Println("Conversation cleared.")
			continue
		}

		fmt.Println()
		fmt.Print("Thinking...")

		resp := a.coordinator.Process(ctx, agent.Request{
			Message:   input,
			SessionID: sessionID,
			UserID:    userID,
			Provider:  provider,
			RequestID: uuid.New().String(),
		})

		fmt.Print("\r")
		printResponse(resp)
	}
}

func runAsk(message string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	resp := a.coordinator.Process(ctx, agent.Request{
		Message:   message,
		SessionID: uuid.New().String(),
		UserID:    userID,
		Provider:  provider,
		RequestID: uuid.New().String(),
	})

	fmt.Println(resp.Message)
	return nil
}

func runClassify(message string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	in := a.classifier.Classify(ctx, message, nil, callOptions()...)
	fmt.Println(intent.String(in))
	return nil
}

func runServer() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	return api.NewServer(a.coordinator, cfg, logger).Start()
}

func testCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Test LLM provider and cache connectivity",
		Long:  "Send a short prompt to every enabled LLM provider and report the cache backend in use",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTest()
		},
	}
}

func runTest() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Println("Testing LLM providers...")
	results := a.checkProviders(ctx)
	failed := 0
	for _, name := range a.registry.Names() {
		if err := results[name]; err != nil {
			failed++
			fmt.Printf("  %s: FAILED: %v\n", providerLabel(a, name), err)
			continue
		}
		fmt.Printf("  %s: OK\n", providerLabel(a, name))
	}

	fmt.Println()
	fmt.Printf("Cache backend: %s\n", cfg.CacheBackend)
	fmt.Printf("Support articles: %d\n", a.support.Len())

	if failed > 0 {
		return fmt.Errorf("%d of %d providers failed", failed, len(results))
	}
	return nil
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage credentials stored in OS keychain",
		Long: `Manage API credentials stored securely in your OS keychain.

Credentials are stored in:
  - macOS: Keychain Access
  - Windows: Credential Manager
  - Linux: Secret Service (GNOME Keyring)

Examples:
  ai-agent config setup          # Interactive setup
  ai-agent config show           # Show configured credentials
  ai-agent config clear          # Remove all stored credentials`,
	}

	cmd.AddCommand(configSetupCmd())
	cmd.AddCommand(configShowCmd())
	cmd.AddCommand(configClearCmd())

	return cmd
}

var credentialLabels = map[credentials.KeyType]string{
	credentials.KeyOpenAI:       "OpenAI API Key",
	credentials.KeyAnthropic:    "Anthropic API Key",
	credentials.KeyGoogle:       "Google API Key",
	credentials.KeyMagentoToken: "Magento API Token",
	credentials.KeyCDP:          "CDP API Key",
}

func configSetupCmd() *cobra.Command {
	flags := make(map[credentials.KeyType]*string, len(credentials.AllKeys))

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Configure API credentials",
		Long:  "Interactively configure and store API credentials in OS keychain",
		RunE: func(cmd *cobra.Command, args []string) error {
			values := make(map[credentials.KeyType]string, len(credentials.AllKeys))
			for _, k := range credentials.AllKeys {
				v := strings.TrimSpace(*flags[k])
				if v == "" {
					fmt.Printf("%s (press Enter to skip): ", credentialLabels[k])
					secret, _ := readPassword()
					v = strings.TrimSpace(secret)
				}
				values[k] = v
			}

			if err := credentials.Setup(values); err != nil {
				return fmt.Errorf("failed to store credentials: %w", err)
			}

			fmt.Println("\nCredentials stored securely in OS keychain.")
			fmt.Println("Environment variables still take precedence when set.")
			return nil
		},
	}

	for _, k := range credentials.AllKeys {
		name := strings.ReplaceAll(string(k), "_", "-")
		flags[k] = cmd.Flags().String(name, "", credentialLabels[k])
	}

	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show configured credentials",
		Long:  "Display which credentials are configured in the OS keychain",
		RunE: func(cmd *cobra.Command, args []string) error {
			configured := credentials.ListConfigured()

			fmt.Println("Credential Status (stored in OS keychain):")
			fmt.Println("==========================================")

			for _, k := range credentials.AllKeys {
				status := "not set"
				if configured[k] {
					status = "configured"
				}
				fmt.Printf("  %-20s %s\n", credentialLabels[k]+":", status)
			}

			fmt.Println("\nNote: Environment variables override keychain values.")
			return nil
		},
	}
}

func configClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear all stored credentials",
		Long:  "Remove all credentials from the OS keychain",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Print("Are you sure you want to clear all stored credentials? [y/N]: ")
			reader := bufio.NewReader(os.Stdin)
			response, _ := reader.ReadString('\n')
			response = strings.TrimSpace(strings.ToLower(response))

			if response != "y" && response != "yes" {
				fmt.Println("Cancelled.")
				return nil
			}

			if err := credentials.ClearAll(); err != nil {
				fmt.Printf("Warning: some credentials may not have been cleared: %v\n", err)
			}

			fmt.Println("All credentials cleared from keychain.")
			return nil
		},
	}
}

func readPassword() (string, error) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Println()
		bytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		return string(bytes), err
	}
	reader := bufio.NewReader(os.Stdin)
	return reader.ReadString('\n')
}
