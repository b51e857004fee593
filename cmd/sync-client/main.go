package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"recipehub/pkg/logging"
)

func main() {
	logging.Setup(logging.DefaultConfig())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:  "sync-client",
		Usage: "print saved-recipe events for a user as they happen",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "ws://127.0.0.1:3000/ws", Usage: "websocket endpoint"},
			&cli.StringFlag{Name: "token", Usage: "JWT from /auth/login", Sources: cli.EnvVars("RECIPEHUB_TOKEN"), Required: true},
			&cli.BoolFlag{Name: "pretty", Value: true, Usage: "pretty print JSON events"},
			&cli.DurationFlag{Name: "retry", Value: time.Second, Usage: "reconnect delay"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			for {
				err := watch(ctx, cmd.String("url"), cmd.String("token"), cmd.Bool("pretty"), os.Stdout)
				if ctx.Err() != nil {
					return nil
				}
				log.Warn().Err(err).Msg("disconnected")

				select {
				case <-ctx.Done():
					return nil
				case <-time.After(cmd.Duration("retry")):
				}
			}
		},
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("sync-client failed")
	}
}

func dialURL(endpoint, token string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// watch streams events from one connection to out until it drops.
func watch(ctx context.Context, endpoint, token string, pretty bool, out io.Writer) error {
	target, err := dialURL(endpoint, token)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("dial %s: token rejected", endpoint)
		}
		return fmt.Errorf("dial %s: %w", endpoint, err)
	}
	defer conn.Close()

	log.Info().Str("url", endpoint).Msg("connected")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		if !pretty {
			fmt.Fprintln(out, string(msg))
			continue
		}

		var obj map[string]any
		if err := json.Unmarshal(msg, &obj); err != nil {
			// not JSON? print raw
			fmt.Fprintln(out, string(msg))
			continue
		}
		b, _ := json.MarshalIndent(obj, "", "  ")
		fmt.Fprintln(out, string(b))
	}
}
