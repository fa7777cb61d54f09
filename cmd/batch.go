package main

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sproutbook/seedscan/internal/pipeline"
)

var (
	batchFile string
	batchUser string
)

var batchCmd = &cobra.Command{
	Use:   "batch [urls...]",
	Short: "Extract metadata for many listing URLs",
	Long:  "Processes URLs in small concurrent groups with jittered pauses between groups. URLs come from positional arguments, a file (--file), or stdin (--file -).",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		urls := args
		if batchFile != "" {
			fileURLs, err := readURLList(batchFile)
			if err != nil {
				return err
			}
			urls = append(urls, fileURLs...)
		}
		if len(urls) == 0 {
			return eris.New("no URLs given")
		}

		env, err := initPipeline(ctx, "extract")
		if err != nil {
			return err
		}
		defer env.Close()

		bcfg := pipeline.BatchConfig{
			GroupSize:    cfg.Batch.GroupSize,
			GroupDelay:   cfg.Batch.GroupDelay(),
			RetryBackoff: cfg.Batch.RetryBackoff(),
		}
		if cfg.Batch.RatePerSec > 0 {
			bcfg.Limiter = rate.NewLimiter(rate.Limit(cfg.Batch.RatePerSec), 1)
		}

		items := env.Pipeline.RunBatch(ctx, urls, batchUser, bcfg)

		succeeded := 0
		enc := json.NewEncoder(os.Stdout)
		for _, item := range items {
			if item.Err != nil {
				zap.L().Error("batch item failed",
					zap.String("url", item.URL),
					zap.Error(item.Err))
				continue
			}
			succeeded++
			persistResult(ctx, env.Store, item.Result, batchUser)
			if err := enc.Encode(item.Result); err != nil {
				return eris.Wrap(err, "encode result")
			}
		}

		zap.L().Info("batch complete",
			zap.Int("total", len(items)),
			zap.Int("succeeded", succeeded),
			zap.Int("failed", len(items)-succeeded),
		)
		return nil
	},
}

// readURLList reads one URL per line, skipping blanks and # comments.
// Path "-" reads stdin.
func readURLList(path string) ([]string, error) {
	var f *os.File
	if path == "-" {
		f = os.Stdin
	} else {
		var err error
		f, err = os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "open url list %s", path)
		}
		defer f.Close()
	}

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrapf(err, "read url list %s", path)
	}
	return urls, nil
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "file", "", "file with one URL per line (- for stdin)")
	batchCmd.Flags().StringVar(&batchUser, "user", "", "user ID for the private cache tier")
	rootCmd.AddCommand(batchCmd)
}
