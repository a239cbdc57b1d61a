// Command packdexd starts a watch session against a project and
// exposes watch_status/list_changes/trigger_repack tools over stdio
// for the duration of that session. Logging goes through the standard
// library, with a signal-driven graceful shutdown.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/memkit/packdex/internal/builder"
	"github.com/memkit/packdex/internal/collab"
	"github.com/memkit/packdex/internal/mcpserver"
	"github.com/memkit/packdex/internal/output"
	"github.com/memkit/packdex/internal/project"
	"github.com/memkit/packdex/internal/watcher"
)

var version = "dev"

func main() {
	log.SetOutput(os.Stderr)

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("packdexd %s\n", version)
		return
	}
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: packdexd <project-dir> [project-path]")
		os.Exit(2)
	}

	dir := os.Args[1]
	projPath := filepath.Join(dir, filepath.Base(dir)+".proj")
	if len(os.Args) > 2 {
		projPath = os.Args[2]
	}

	sink := output.NewLogger(log.Default())
	codec := collab.FlateCodec{}
	norm := collab.UTF8Normalizer{}
	attrs := collab.StatFileAttributes{}

	paths, err := project.Scan(dir)
	if err != nil {
		log.Fatalf("scan %s: %v", dir, err)
	}
	current := project.Stat(dir, paths, attrs)

	w := watcher.New(sink, attrs, codec, collab.PollWatcher{})

	repack := func(ctx context.Context) error {
		b := builder.New(sink, codec, norm, attrs)
		if err := b.Start(watcher.PackPath(projPath)); err != nil {
			return err
		}
		paths, err := project.Scan(dir)
		if err != nil {
			return err
		}
		for _, p := range paths {
			b.AppendFile(filepath.Join(dir, p))
		}
		return b.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	watchErrChan := make(chan error, 1)
	go func() {
		watchErrChan <- w.Start(ctx, watcher.Config{
			ProjectPath: projPath,
			Dirs:        []string{dir},
			Current:     current,
			Normalize:   func(_, relPath string) string { return filepath.ToSlash(relPath) },
			Repack:      repack,
		})
	}()

	srv := mcpserver.NewServer(w, repack)

	mcpErrChan := make(chan error, 1)
	go func() {
		log.Println("packdexd ready, listening on stdio...")
		mcpErrChan <- srv.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		log.Printf("received signal %v, shutting down gracefully...", sig)
		cancel()
	case err := <-watchErrChan:
		if err != nil {
			log.Printf("watch session error: %v", err)
		}
		cancel()
	case err := <-mcpErrChan:
		if err != nil {
			log.Fatalf("mcp server error: %v", err)
		}
	}

	log.Println("packdexd stopped")
}
