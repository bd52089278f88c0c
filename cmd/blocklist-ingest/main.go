// Command blocklist-ingest compiles disposable email domain lists into a
// single serialized bloom filter consumed by the API server.
//
// Input files hold one domain per line (gzip-compressed when the name ends in
// .gz); blank lines and #-comments are skipped. Files are scanned
// concurrently into per-file filters that are then merged.
package main

import (
	"bufio"
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.0001
	progressEvery = 100_000
)

func main() {
	var output string
	flag.StringVar(&output, "output", "blocklist.bloom", "path for the serialized bloom filter")
	flag.Parse()

	files := flag.Args()
	if len(files) == 0 {
		slog.Error("at least one domain list file is required")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, files, output); err != nil {
		slog.Error("blocklist ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("blocklist ingest completed successfully", slog.String("output", output))
}

func run(ctx context.Context, files []string, output string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	slog.Info("building bloom filters", slog.Int("files", len(files)))

	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(buildFilterForFile(ctx, i, f, filters))
	}
	if err := g.Wait(); err != nil {
		return err
	}

	merged := filters[0]
	for _, f := range filters[1:] {
		if err := merged.Merge(f); err != nil {
			return errors.Wrap(err, "merge filters")
		}
	}

	return writeFilter(merged, output)
}

func buildFilterForFile(ctx context.Context, idx int, path string, filters []*bloom.BloomFilter) func() error {
	return func() error {
		filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		var count uint64

		if err := streamDomains(ctx, path, func(domain string) {
			filter.AddString(domain)
			count++
			if count%progressEvery == 0 {
				slog.Info("ingest progress",
					slog.Int("file", idx+1),
					slog.Uint64("domains", count),
				)
			}
		}); err != nil {
			return errors.Wrapf(err, "build filter for file %d", idx+1)
		}

		slog.Info("file complete",
			slog.Int("file", idx+1),
			slog.String("path", path),
			slog.Uint64("total_domains", count),
		)

		filters[idx] = filter
		return nil
	}
}

// streamDomains reads a domain list, lowercasing entries and skipping blanks
// and comments. Files ending in .gz are decompressed on the fly.
func streamDomains(ctx context.Context, path string, fn func(domain string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		domain := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if domain == "" || strings.HasPrefix(domain, "#") {
			continue
		}
		fn(domain)
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}

func writeFilter(filter *bloom.BloomFilter, output string) error {
	out, err := os.Create(output)
	if err != nil {
		return errors.Wrapf(err, "create %s", output)
	}

	if _, err := filter.WriteTo(out); err != nil {
		_ = out.Close()
		return errors.Wrap(err, "write filter")
	}
	return errors.Wrap(out.Close(), "close output")
}
