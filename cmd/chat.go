package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/brightpath/brainstorm/internal/chat"
	"github.com/brightpath/brainstorm/internal/config"
	"github.com/brightpath/brainstorm/internal/gemini"
	"github.com/brightpath/brainstorm/internal/log"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive brainstorming session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	logger := log.New(log.Config{Level: level, JSON: cfg.LogJSON})

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	endpoint, err := gemini.New(ctx, cfg, logger.With("component", "gemini"))
	if err != nil {
		return fmt.Errorf("creating endpoint: %w", err)
	}

	c, err := chat.New(chat.Config{
		Endpoint:      endpoint,
		Logger:        logger.With("component", "chat"),
		SystemPrompt:  cfg.SystemPrompt,
		Limiter:       chat.SubmitLimiter(cfg.SubmitsPerMinute, cfg.SubmitBurst),
		BackgroundCtx: ctx,
	})
	if err != nil {
		return fmt.Errorf("creating chat: %w", err)
	}
	defer func() {
		if closeErr := c.Close(); closeErr != nil {
			logger.Warn("closing chat", "error", closeErr)
		}
	}()

	fmt.Printf("brainstorm %s (model %s)\n", Version, cfg.ModelName)
	fmt.Println("Type your idea, or /help for commands.")
	fmt.Println()

	events, cancelSub := c.Subscribe()
	defer cancelSub()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println("\nBye.")
			return nil
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if quit := runCommand(ctx, c, events, input); quit {
				return nil
			}
			continue
		}

		if _, err := c.Submit(input); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		printReply(ctx, c, events)
	}
}

// runCommand handles slash commands. It returns true when the session should
// end.
func runCommand(ctx context.Context, c *chat.Chat, events <-chan chat.Event, input string) bool {
	switch input {
	case "/quit", "/exit":
		fmt.Println("Bye.")
		return true
	case "/stop":
		c.Stop()
	case "/clear":
		c.ClearAll()
		fmt.Println("Conversation cleared.")
	case "/reload":
		id, err := c.ReloadLast()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			break
		}
		if id == uuid.Nil {
			fmt.Println("Nothing to reload.")
			break
		}
		printReply(ctx, c, events)
	case "/help":
		fmt.Println("Commands: /stop /clear /reload /quit")
	default:
		fmt.Printf("Unknown command %q. Try /help.\n", input)
	}
	return false
}

// printReply drains events until the current generation settles, printing
// deltas as they arrive.
func printReply(ctx context.Context, c *chat.Chat, events <-chan chat.Event) {
	for {
		select {
		case <-ctx.Done():
			c.Stop()
			fmt.Println()
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Kind {
			case chat.EventDelta:
				fmt.Print(ev.Text)
			case chat.EventComplete:
				fmt.Println()
				fmt.Println()
				return
			case chat.EventFailed:
				fmt.Fprintf(os.Stderr, "\ngeneration failed: %s\n", ev.Error)
				return
			case chat.EventCancelled:
				fmt.Println()
				fmt.Println("(stopped)")
				return
			}
		}
	}
}
