package main

import (
	"bufio"
	"os"
	"strings"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	backfillFile        string
	backfillConcurrency int
)

var backfillCmd = &cobra.Command{
	Use:   "backfill [image-path ...]",
	Short: "Process a batch of repository images",
	Long:  "Runs a list of card image paths through the scan pipeline, reading paths from arguments or from a file with one path per line. Individual failures are logged and do not stop the batch.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		paths := args
		if backfillFile != "" {
			filePaths, err := readPathList(backfillFile)
			if err != nil {
				return err
			}
			paths = append(paths, filePaths...)
		}
		if len(paths) == 0 {
			return eris.New("no image paths given, pass arguments or --file")
		}

		env, err := initPipeline(ctx, "extract")
		if err != nil {
			return err
		}
		defer env.Close()

		var processed, failed atomic.Int64

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(backfillConcurrency)
		for _, path := range paths {
			g.Go(func() error {
				resp := env.Pipeline.ProcessImage(gctx, path)
				if resp.Status >= 400 {
					failed.Add(1)
				} else {
					processed.Add(1)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		zap.L().Info("backfill complete",
			zap.Int64("processed", processed.Load()),
			zap.Int64("failed", failed.Load()),
			zap.Int("total", len(paths)))

		if failed.Load() > 0 {
			return eris.Errorf("%d of %d images failed", failed.Load(), len(paths))
		}
		return nil
	},
}

func readPathList(file string) ([]string, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, eris.Wrapf(err, "open path list %s", file)
	}
	defer f.Close()

	var paths []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		paths = append(paths, line)
	}
	return paths, eris.Wrapf(scanner.Err(), "read path list %s", file)
}

func init() {
	backfillCmd.Flags().StringVar(&backfillFile, "file", "", "file with one image path per line")
	backfillCmd.Flags().IntVar(&backfillConcurrency, "concurrency", 3, "concurrent images")
	rootCmd.AddCommand(backfillCmd)
}
