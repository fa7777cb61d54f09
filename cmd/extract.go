package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	extractURL  string
	extractUser string
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract metadata for a single listing URL",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx, "extract")
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Pipeline.Run(ctx, extractURL, extractUser)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		persistResult(ctx, env.Store, result, extractUser)

		zap.L().Info("extraction complete",
			zap.String("url", extractURL),
			zap.String("plant_type", result.Record.PlantType),
			zap.String("variety", result.Record.Variety),
			zap.String("quality", string(result.Record.Quality)),
			zap.Bool("from_cache", result.FromCache),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractURL, "url", "", "listing URL (required)")
	extractCmd.Flags().StringVar(&extractUser, "user", "", "user ID for the private cache tier")
	_ = extractCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(extractCmd)
}
