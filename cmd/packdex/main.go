// Command packdex wires the builder, reader, watcher, and catalog
// together: `build` runs a one-shot pack build, `watch` runs a watch
// session that repacks on escalation, and `status` prints a project's
// build/watch history from the catalog. Logging goes through the
// standard library: log.SetOutput to stderr, log.Fatalf on
// unrecoverable setup errors, a signal-driven graceful shutdown for
// watch.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/memkit/packdex/internal/builder"
	"github.com/memkit/packdex/internal/catalog"
	"github.com/memkit/packdex/internal/collab"
	"github.com/memkit/packdex/internal/output"
	"github.com/memkit/packdex/internal/project"
	"github.com/memkit/packdex/internal/watcher"
)

var (
	version = "dev"
)

func main() {
	log.SetOutput(os.Stderr)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "--version":
		fmt.Printf("packdex %s\n", version)
		return
	case "build":
		err = runBuild(os.Args[2:])
	case "watch":
		err = runWatch(os.Args[2:])
	case "status":
		err = runStatus(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatalf("packdex %s: %v", os.Args[1], err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: packdex <build|watch|status> <project-dir> [project-path]")
}

// projectPath derives the project descriptor path the rest of packdex
// substitutes extensions on to get the pack and changes paths. When
// the caller doesn't supply one, it defaults to
// "<dir>/<base(dir)>.proj" so build/watch/status agree on the same
// pack without extra flags.
func projectPath(dir string, args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return filepath.Join(dir, filepath.Base(dir)+".proj")
}

func runBuild(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("missing project directory")
	}
	dir := args[0]
	projPath := projectPath(dir, args[1:])
	packPath := watcher.PackPath(projPath)

	sink := output.NewLogger(log.Default())
	codec := collab.FlateCodec{}
	norm := collab.UTF8Normalizer{}
	attrs := collab.StatFileAttributes{}

	clock := collab.SystemClock{}
	started := clock.Now()

	b := builder.New(sink, codec, norm, attrs)
	if err := b.Start(packPath); err != nil {
		return err
	}

	paths, err := project.Scan(dir)
	if err != nil {
		return fmt.Errorf("scan %s: %w", dir, err)
	}
	for _, p := range paths {
		b.AppendFile(filepath.Join(dir, p))
	}
	if err := b.Close(); err != nil {
		return fmt.Errorf("close pack %s: %w", packPath, err)
	}

	stats := b.Statistics()
	log.Printf("built %s: %d files, %d -> %d bytes", packPath, stats.FileCount, stats.UncompressedBytes, stats.CompressedBytes)

	cat, err := catalog.Open(catalog.DefaultDBPath)
	if err != nil {
		log.Printf("catalog unavailable, skipping build record: %v", err)
		return nil
	}
	defer cat.Close()

	return cat.RecordBuild(context.Background(), packPath, catalog.BuildRecord{
		StartedAt:         started,
		Duration:          clock.Now().Sub(started),
		FileCount:         stats.FileCount,
		UncompressedBytes: stats.UncompressedBytes,
		CompressedBytes:   stats.CompressedBytes,
		Magic:             "PKDX0001",
	})
}

func runWatch(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("missing project directory")
	}
	dir := args[0]
	projPath := projectPath(dir, args[1:])

	sink := output.NewLogger(log.Default())
	codec := collab.FlateCodec{}
	norm := collab.UTF8Normalizer{}
	attrs := collab.StatFileAttributes{}

	clock := collab.SystemClock{}

	paths, err := project.Scan(dir)
	if err != nil {
		return fmt.Errorf("scan %s: %w", dir, err)
	}
	current := project.Stat(dir, paths, attrs)

	w := watcher.New(sink, attrs, codec, collab.PollWatcher{})

	cat, err := catalog.Open(catalog.DefaultDBPath)
	if err != nil {
		log.Printf("catalog unavailable, skipping watch-session record: %v", err)
		cat = nil
	}
	if cat != nil {
		defer cat.Close()
	}

	var sessionID int64
	if cat != nil {
		sessionID, err = cat.StartWatchSession(context.Background(), watcher.PackPath(projPath), clock.Now())
		if err != nil {
			log.Printf("recording watch session start: %v", err)
		}
	}

	repack := func(ctx context.Context) error {
		log.Printf("watch: escalation threshold reached, repacking %s", projPath)
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

	errChan := make(chan error, 1)
	go func() {
		errChan <- w.Start(ctx, watcher.Config{
			ProjectPath: projPath,
			Dirs:        []string{dir},
			Current:     current,
			Normalize:   func(_, relPath string) string { return filepath.ToSlash(relPath) },
			Repack:      repack,
		})
	}()

	var watchErr error
	select {
	case sig := <-sigChan:
		log.Printf("received signal %v, shutting down watch session...", sig)
		cancel()
		watchErr = <-errChan
	case watchErr = <-errChan:
	}

	if cat != nil && sessionID != 0 {
		if err := cat.EndWatchSession(context.Background(), sessionID, clock.Now(), w.Escalations()); err != nil {
			log.Printf("recording watch session end: %v", err)
		}
	}

	return watchErr
}

func runStatus(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("missing project directory")
	}
	dir := args[0]
	projPath := projectPath(dir, args[1:])
	packPath := watcher.PackPath(projPath)

	cat, err := catalog.Open(catalog.DefaultDBPath)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer cat.Close()

	ctx := context.Background()
	builds, err := cat.RecentBuilds(ctx, packPath, 5)
	if err != nil {
		return err
	}
	sessions, err := cat.RecentWatchSessions(ctx, packPath, 5)
	if err != nil {
		return err
	}

	fmt.Printf("pack: %s\n", packPath)
	fmt.Println(strings.Repeat("-", 40))
	fmt.Println("recent builds:")
	for _, b := range builds {
		fmt.Printf("  %s  files=%d  %d -> %d bytes  (%s)\n",
			b.StartedAt.Format(time.RFC3339), b.FileCount, b.UncompressedBytes, b.CompressedBytes, b.Duration)
	}
	fmt.Println("recent watch sessions:")
	for _, s := range sessions {
		end := "running"
		if s.EndedAt != nil {
			end = s.EndedAt.Format(time.RFC3339)
		}
		fmt.Printf("  %s -> %s  escalations=%d\n", s.StartedAt.Format(time.RFC3339), end, s.Escalations)
	}

	return nil
}
