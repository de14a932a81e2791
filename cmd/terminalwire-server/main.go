package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/guseggert/terminalwire/internal/logging"
	"github.com/guseggert/terminalwire/protocol"
	"github.com/guseggert/terminalwire/server"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "terminalwire-server",
		Usage: "serve a demo terminalwire program over WebSocket",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen-addr",
				Usage: "The address for the HTTP server to listen on.",
				Value: "127.0.0.1:3000",
			},
			&cli.StringFlag{
				Name:  "tls-cert",
				Usage: "Path to a PEM cert to serve TLS with. Requires --tls-key.",
			},
			&cli.StringFlag{
				Name:  "tls-key",
				Usage: "Path to the PEM key for --tls-cert.",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				EnvVars: []string{"TERMINALWIRE_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:  "codec",
				Usage: "Message encoding. One of [cbor,json].",
				Value: "cbor",
			},
		},
		Action: func(c *cli.Context) error {
			logger, err := logging.New(c.String("log-level"))
			if err != nil {
				return err
			}
			defer logger.Sync()

			codec, err := protocol.CodecByName(c.String("codec"))
			if err != nil {
				return err
			}

			opts := []server.HostOption{
				server.WithListenAddr(c.String("listen-addr")),
				server.WithCodec(codec),
				server.WithHostLogger(logger),
			}
			certPath, keyPath := c.String("tls-cert"), c.String("tls-key")
			if (certPath == "") != (keyPath == "") {
				return fmt.Errorf("--tls-cert and --tls-key must be set together")
			}
			if certPath != "" {
				certPEM, err := os.ReadFile(certPath)
				if err != nil {
					return fmt.Errorf("reading TLS cert: %w", err)
				}
				keyPEM, err := os.ReadFile(keyPath)
				if err != nil {
					return fmt.Errorf("reading TLS key: %w", err)
				}
				opts = append(opts, server.WithTLS(certPEM, keyPEM))
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
			defer stop()

			return server.NewHost(demo, opts...).Run(ctx)
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
