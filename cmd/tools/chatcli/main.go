package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zhouzirui/serene/backend/internal/client/delivery"
	"github.com/zhouzirui/serene/backend/internal/model/chat"
)

var (
	serverURL     string
	transportName string
	country       string
	interval      time.Duration
	verbose       bool
)

var rootCmd = &cobra.Command{
	Use:   "chatcli",
	Short: "Terminal client for the Serene chat gateway",
	Long:  "chatcli opens an interactive conversation with a running Serene backend. Each line you type is one turn.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

var sendCmd = &cobra.Command{
	Use:   "send [message]",
	Short: "Send a single message and print the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(cmd.Context(), strings.Join(args, " "), cmd.OutOrStdout())
	},
}

func init() {
	// Load .env file
	_ = godotenv.Load()

	defaultServer := os.Getenv("SERENE_SERVER_URL")
	if defaultServer == "" {
		defaultServer = "http://localhost:8080"
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&serverURL, "server", defaultServer, "base URL of the Serene backend")
	flags.StringVar(&transportName, "transport", "http", "transport to use: http or ws")
	flags.StringVar(&country, "country", os.Getenv("DEFAULT_COUNTRY"), "country or locale hint for crisis contacts")
	flags.DurationVar(&interval, "interval", delivery.DefaultRevealInterval, "delay between revealed characters")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log transport failures")

	rootCmd.AddCommand(sendCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newTransport() (delivery.Transport, func(), error) {
	switch transportName {
	case "http":
		return delivery.NewHTTPTransport(serverURL, nil), func() {}, nil
	case "ws":
		t := delivery.NewWSTransport(serverURL)
		return t, func() { _ = t.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown transport %q (want http or ws)", transportName)
	}
}

func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func newConversation(out io.Writer) (*delivery.Conversation, *printer, func(), error) {
	transport, closeFn, err := newTransport()
	if err != nil {
		return nil, nil, nil, err
	}

	p := &printer{out: out}
	conv := delivery.New(transport,
		delivery.WithRevealInterval(interval),
		delivery.WithCountry(country),
		delivery.WithRenderer(p.render),
		delivery.WithLogger(newLogger()),
	)
	return conv, p, closeFn, nil
}

func runInteractive(ctx context.Context, in io.Reader, out io.Writer) error {
	conv, p, closeFn, err := newConversation(out)
	if err != nil {
		return err
	}
	defer closeFn()

	for _, msg := range conv.Messages() {
		fmt.Fprintf(out, "serene> %s\n", msg.Content)
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "you> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		turn, err := conv.Send(ctx, scanner.Text())
		switch {
		case errors.Is(err, delivery.ErrEmptyMessage):
			continue
		case err != nil:
			fmt.Fprintf(out, "! %v\n", err)
			continue
		}

		<-turn.Done()
		p.finish()
		printBanner(out, turn.Result())

		if ctx.Err() != nil {
			return nil
		}
	}
}

func runOnce(ctx context.Context, text string, out io.Writer) error {
	conv, p, closeFn, err := newConversation(out)
	if err != nil {
		return err
	}
	defer closeFn()

	turn, err := conv.Send(ctx, text)
	if err != nil {
		return err
	}
	<-turn.Done()
	p.finish()
	printBanner(out, turn.Result())
	return turn.Err()
}

func printBanner(out io.Writer, result chat.Result) {
	if _, ok := result.(chat.Crisis); ok {
		fmt.Fprintln(out, "---- safety resources are shown above; you can keep talking ----")
	}
}

// printer streams the in-progress assistant message to the terminal.
type printer struct {
	out io.Writer

	mu      sync.Mutex
	current string
	printed int
}

func (p *printer) render(msgs []delivery.DisplayMessage) {
	last := msgs[len(msgs)-1]
	if last.Role != chat.RoleAssistant {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if last.ID != p.current {
		p.current = last.ID
		p.printed = 0
		fmt.Fprint(p.out, "serene> ")
	}
	runes := []rune(last.Content)
	if len(runes) > p.printed {
		fmt.Fprint(p.out, string(runes[p.printed:]))
		p.printed = len(runes)
	}
}

func (p *printer) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != "" {
		fmt.Fprintln(p.out)
	}
}
