package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/vk/prooftree/internal/blobstore"
	"github.com/vk/prooftree/internal/cli"
	"github.com/vk/prooftree/internal/config"
	"github.com/vk/prooftree/internal/ctxlog"
)

// main is the entrypoint for the prooftree cache tool.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(os.Stdout, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(outW io.Writer, args []string) error {
	cmd, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	logger := newLogger(os.Stderr, cmd.Config)
	slog.SetDefault(logger)
	ctx := ctxlog.WithLogger(context.Background(), logger)

	store := blobstore.New(cmd.Config.CacheDir)
	switch cmd.Name {
	case "list":
		return runList(ctx, outW, store)
	case "show":
		return runShow(ctx, outW, store, cmd.Fingerprint)
	case "clear":
		return runClear(ctx, outW, store)
	}
	return nil
}

// newLogger builds the configured slog.Logger.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// runList prints one line per blob in the cache directory.
func runList(ctx context.Context, outW io.Writer, store *blobstore.Store) error {
	blobs, err := store.List()
	if err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Debug("Listed cache directory.", "dir", store.Dir(), "blobs", len(blobs))

	for _, blob := range blobs {
		fmt.Fprintf(outW, "%s  %8d  %s\n", blob.Fingerprint, blob.Size, blob.ModTime.Format("2006-01-02 15:04:05"))
	}
	return nil
}

// runShow decodes one blob and prints its keys and values, sorted by key.
func runShow(ctx context.Context, outW io.Writer, store *blobstore.Store, fp string) error {
	path := store.Path(fp)
	state, err := store.Load(path)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return &cli.ExitError{Code: 1, Message: fmt.Sprintf("no blob for fingerprint %q in %s", fp, store.Dir())}
		}
		return err
	}
	ctxlog.FromContext(ctx).Debug("Decoded blob.", "path", path, "keys", len(state))

	keys := make([]string, 0, len(state))
	for k := range state {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(outW, "%s = %v\n", k, state[k])
	}
	return nil
}

// runClear deletes every blob in the cache directory.
func runClear(ctx context.Context, outW io.Writer, store *blobstore.Store) error {
	removed, err := store.Sweep(nil)
	if err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Info("Cache cleared.", "dir", store.Dir(), "removed", removed)
	fmt.Fprintf(outW, "removed %d cache files from %s\n", removed, store.Dir())
	return nil
}
