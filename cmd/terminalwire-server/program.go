package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/guseggert/terminalwire/server"
)

// demo is a small program exercising the client's resources:
//
//	hello [NAME]   greet NAME, asking for it if absent
//	note TEXT      append TEXT to notes.txt in the authority's storage
//	notes          print the saved notes
//	ls             list the storage directory
//	open URL       open URL in the browser
func demo(ctx context.Context, tc *server.Context) error {
	args := tc.Program.Arguments
	if len(args) == 0 {
		return usage(ctx, tc)
	}

	switch args[0] {
	case "hello":
		name := strings.Join(args[1:], " ")
		if name == "" {
			if err := tc.Print(ctx, "What's your name? "); err != nil {
				return err
			}
			line, err := tc.Stdin.ReadLine(ctx)
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			name = strings.TrimSpace(line)
		}
		return tc.PrintLine(ctx, fmt.Sprintf("Hello, %s!", name))
	case "note":
		storage, err := tc.StoragePath(ctx)
		if err != nil {
			return err
		}
		if err := tc.Directory.Create(ctx, storage); err != nil {
			return err
		}
		return tc.File.Append(ctx, filepath.Join(storage, "notes.txt"), strings.Join(args[1:], " ")+"\n")
	case "notes":
		storage, err := tc.StoragePath(ctx)
		if err != nil {
			return err
		}
		path := filepath.Join(storage, "notes.txt")
		ok, err := tc.File.Exist(ctx, path)
		if err != nil || !ok {
			return err
		}
		notes, err := tc.File.Read(ctx, path)
		if err != nil {
			return err
		}
		return tc.Print(ctx, notes)
	case "ls":
		storage, err := tc.StoragePath(ctx)
		if err != nil {
			return err
		}
		paths, err := tc.Directory.List(ctx, filepath.Join(storage, "*"))
		if err != nil {
			return err
		}
		for _, p := range paths {
			if err := tc.PrintLine(ctx, filepath.Base(p)); err != nil {
				return err
			}
		}
		return nil
	case "open":
		if len(args) < 2 {
			return usage(ctx, tc)
		}
		return tc.Browser.Launch(ctx, args[1])
	default:
		return usage(ctx, tc)
	}
}

func usage(ctx context.Context, tc *server.Context) error {
	_ = tc.Stderr.PrintLine(ctx, "usage: "+tc.Program.Name+" hello [NAME] | note TEXT | notes | ls | open URL")
	return tc.Exit(ctx, 2)
}
