// campuschat-client is a terminal client for the random chat server. It
// pairs the chat session with a media peer connection unless --text-only
// is given.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"campuschat/internal/chatclient"
	"campuschat/internal/rtcpeer"
	"campuschat/internal/wsclient"
)

var (
	flagServer     string
	flagNickname   string
	flagDepartment string
	flagSTUN       string
	flagLogLevel   string
	flagTextOnly   bool
)

var rootCmd = &cobra.Command{
	Use:   "campuschat-client",
	Short: "Chat anonymously with a random partner",
	Long: `Connects to a campuschat server and pairs you with a random partner
for anonymous text chat plus an optional peer-to-peer media session.

Commands while chatting:
  /next    leave the current partner and wait for a new one
  /video   toggle the local video track
  /audio   toggle the local audio track
  /quit    leave and exit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runClient()
	},
}

func runClient() error {
	level, err := zerolog.ParseLevel(flagLogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", flagLogLevel, err)
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	transport := wsclient.New(flagServer, log)
	session := chatclient.NewSession(transport, flagNickname, flagDepartment, log)

	var manager *rtcpeer.Manager
	if !flagTextOnly {
		manager = rtcpeer.NewManager(rtcpeer.StaticSource{}, []string{flagSTUN}, session.SendSignal, log)
		manager.SetOnError(func(err error) {
			fmt.Printf("* media unavailable: %v (text chat continues)\n", err)
		})
		session.SetPartnerListener(manager)
		defer manager.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	transport.Connect()
	go session.Run(ctx)
	go printEvents(ctx, session)

	readInput(ctx, session, manager)

	session.Leave()
	return nil
}

// printEvents renders session events as chat lines on stdout.
func printEvents(ctx context.Context, session *chatclient.Session) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-session.Events():
			if !ok {
				return
			}
			switch ev.Kind {
			case chatclient.EventStatus:
				fmt.Printf("* %s\n", ev.Status)
			case chatclient.EventMessage:
				if ev.Message.IsSystem {
					fmt.Printf("* %s\n", ev.Message.Content)
				} else {
					fmt.Printf("%s: %s\n", ev.Message.SenderID, ev.Message.Content)
				}
			case chatclient.EventTyping:
				if ev.Typing {
					fmt.Println("* partner is typing...")
				}
			case chatclient.EventPartner:
				if ev.Partner != "" {
					fmt.Printf("* paired with %s\n", ev.Partner)
				}
			}
		}
	}
}

// readInput handles stdin until EOF, /quit or cancellation. Lines starting
// with "/" are commands, everything else is sent as a chat message.
func readInput(ctx context.Context, session *chatclient.Session, manager *rtcpeer.Manager) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch line {
		case "/quit":
			return
		case "/next":
			session.FindNewPartner()
		case "/video":
			if manager == nil {
				fmt.Println("* running in text-only mode")
				continue
			}
			fmt.Printf("* video enabled: %v\n", manager.ToggleVideo())
		case "/audio":
			if manager == nil {
				fmt.Println("* running in text-only mode")
				continue
			}
			fmt.Printf("* audio enabled: %v\n", manager.ToggleAudio())
		default:
			session.SendMessage(line)
		}
	}
}

func init() {
	rootCmd.Flags().StringVarP(&flagServer, "server", "s", "ws://localhost:8080/ws", "Server websocket URL")
	rootCmd.Flags().StringVarP(&flagNickname, "nickname", "n", "", "Display name shown to your partner")
	rootCmd.Flags().StringVarP(&flagDepartment, "department", "d", "", "Department shown to your partner")
	rootCmd.Flags().StringVar(&flagSTUN, "stun", "stun:stun.l.google.com:19302", "STUN server for the media session")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "warn", "Log level (trace, debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&flagTextOnly, "text-only", false, "Disable the media session entirely")
}

func main() {
	rootCmd.SilenceUsage = true
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
