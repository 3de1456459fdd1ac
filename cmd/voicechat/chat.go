package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hubenschmidt/persian-voice-chat/internal/clock"
	"github.com/hubenschmidt/persian-voice-chat/internal/console"
	"github.com/hubenschmidt/persian-voice-chat/internal/conversation"
	"github.com/hubenschmidt/persian-voice-chat/internal/transport"
)

var (
	flagProvider  string
	flagRemoteURL string
	flagMuted     bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Start an interactive conversation. Type a line to speak it.
Commands: /listen, /stop, /mute, /turns, /quit.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&flagProvider, "provider", "", "reply provider: local or remote")
	chatCmd.Flags().StringVar(&flagRemoteURL, "remote-url", "", "chat backend websocket URL")
	chatCmd.Flags().BoolVar(&flagMuted, "muted", false, "start muted")
}

func runChat(cmd *cobra.Command, args []string) error {
	fc, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if flagProvider != "" {
		fc.Provider = flagProvider
	}
	if flagRemoteURL != "" {
		fc.RemoteURL = flagRemoteURL
	}
	if cmd.Flags().Changed("muted") {
		fc.Muted = flagMuted
	}
	cfg, err := fc.resolve()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := &lockedWriter{w: cmd.OutOrStdout()}
	capture := console.NewCapture()
	opts := []conversation.Option{
		conversation.WithCapture(capture),
		conversation.WithSpeaker(console.NewSpeaker(out, clock.Real(), cfg.speakPerRune)),
		conversation.WithHooks(terminalHooks(out)),
	}

	var client *transport.Client
	if cfg.conversation.Provider == conversation.ProviderRemote {
		client = transport.NewClient(cfg.transport)
		opts = append(opts, conversation.WithRemote(client))
	}
	o := conversation.New(cfg.conversation, opts...)
	if cfg.muted {
		o.SetMuted(true)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := o.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	if client != nil {
		client.OnMessage(o.HandleRemote)
		client.OnStateChange(o.HandleConnection)
		if err := client.Connect(gctx, cfg.remoteURL); err != nil {
			slog.Warn("remote unavailable, replies are local until it connects", "error", err)
		}
		defer client.Close()
	}

	quit := make(chan struct{})
	go func() {
		readLines(cmd.InOrStdin(), capture, o, out)
		close(quit)
	}()
	g.Go(func() error {
		select {
		case <-quit:
			stop()
		case <-gctx.Done():
		}
		return nil
	})

	fmt.Fprintln(out, "سلام! یک پیام بنویسید یا /listen را بزنید. (/quit برای خروج)")
	return g.Wait()
}

// controller is the part of the orchestrator the line reader drives.
type controller interface {
	Start()
	Stop()
	ToggleMute()
	SubmitText(text string)
	Turns() []conversation.Turn
}

func readLines(r io.Reader, capture *console.Capture, c controller, out io.Writer) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if !dispatchLine(scanner.Text(), capture, c, out) {
			return
		}
	}
}

// dispatchLine handles one typed line and reports whether to keep reading.
func dispatchLine(line string, capture *console.Capture, c controller, out io.Writer) bool {
	switch strings.TrimSpace(line) {
	case "/quit", "/exit":
		return false
	case "/listen":
		c.Start()
	case "/stop":
		c.Stop()
	case "/mute":
		c.ToggleMute()
	case "/turns":
		for i, t := range c.Turns() {
			fmt.Fprintf(out, "%d. [%s/%s] %s → %s\n", i+1, t.Intent, t.Emotion, t.UserText, t.BotText)
		}
	default:
		if !capture.Deliver(line) {
			c.SubmitText(line)
		}
	}
	return true
}

func terminalHooks(out io.Writer) conversation.Hooks {
	return conversation.Hooks{
		OnStateChange: func(_, to conversation.State) {
			if to == conversation.StateListening {
				fmt.Fprint(out, "🎤 ")
			}
		},
		OnError: func(e *conversation.Error) {
			fmt.Fprintf(out, "⚠️  %s\n", e.Message)
		},
		OnMuteChange: func(muted bool) {
			if muted {
				fmt.Fprintln(out, "🔇 بی‌صدا")
				return
			}
			fmt.Fprintln(out, "🔊 با صدا")
		},
	}
}

// lockedWriter serializes writes from the loop, the speaker and the reader.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
