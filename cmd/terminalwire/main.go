package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/guseggert/terminalwire/client"
	"github.com/guseggert/terminalwire/internal/logging"
	"github.com/guseggert/terminalwire/protocol"
	"github.com/guseggert/terminalwire/transport"
	"github.com/urfave/cli/v2"
)

func main() {
	status := 0
	app := &cli.App{
		Name:      "terminalwire",
		Usage:     "run a terminalwire program served from a URL",
		ArgsUsage: "URL [ARGUMENTS...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "home",
				Usage:   "The terminalwire home directory. Defaults to ~/.terminalwire.",
				EnvVars: []string{"TERMINALWIRE_HOME"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level for diagnostics written to stderr.",
				Value:   "warn",
				EnvVars: []string{"TERMINALWIRE_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:  "ca-cert",
				Usage: "Path to a PEM CA cert to trust when connecting with wss.",
			},
			&cli.StringFlag{
				Name:  "codec",
				Usage: "Message encoding. One of [cbor,json].",
				Value: "cbor",
			},
			&cli.StringFlag{
				Name:  "program-name",
				Usage: "The program name announced to the server.",
				Value: "terminalwire",
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "Maximum number of commands to execute at once. 0 is unbounded.",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return cli.Exit("a URL is required", 1)
			}
			url := c.Args().First()

			logger, err := logging.New(c.String("log-level"))
			if err != nil {
				return err
			}
			defer logger.Sync()

			codec, err := protocol.CodecByName(c.String("codec"))
			if err != nil {
				return err
			}

			cfg := client.ConnectConfig{Codec: codec, Log: logger}
			if path := c.String("ca-cert"); path != "" {
				caPEM, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("reading CA cert: %w", err)
				}
				tlsConfig, err := transport.ClientTLSConfig(caPEM)
				if err != nil {
					return fmt.Errorf("building client TLS config: %w", err)
				}
				cfg.HTTPClient = transport.HTTPClient(tlsConfig)
			}

			opts := []client.Option{
				client.WithProgram(c.String("program-name"), c.Args().Tail()),
				client.WithConcurrency(c.Int("concurrency")),
			}
			if home := c.String("home"); home != "" {
				opts = append(opts, client.WithRoot(home))
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
			defer stop()

			status, err = client.Connect(ctx, url, cfg, opts...)
			if err != nil && ctx.Err() != context.Canceled {
				return err
			}
			return nil
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Print(err)
		if status == 0 {
			status = 1
		}
	}
	os.Exit(status)
}
