package main

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/chenwu/vimeo-uploader/internal/config"
	"github.com/chenwu/vimeo-uploader/internal/driver"
	"github.com/chenwu/vimeo-uploader/internal/logging"
	"github.com/chenwu/vimeo-uploader/internal/request"
)

var (
	flagURL        string
	flagStart      string
	flagEnd        string
	flagConfig     string
	flagImage      string
	flagResolution string
	flagTitle      string
	verbose        bool
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "vimeo-uploader",
	Short: "Download a YouTube video, trim it, and re-upload it to Vimeo",
	Long: "vimeo-uploader downloads a YouTube video's video and audio streams, " +
		"merges them, trims the result to a time range, and uploads the clip " +
		"to Vimeo with an optional thumbnail.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(verbose)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		vimeoCfg, err := config.LoadVimeoConfig(flagConfig)
		if err != nil {
			log.Error().Err(err).Msg("failed to load Vimeo configuration")
			os.Exit(1)
		}

		dirCfg, err := config.LoadDirectoryConfig(flagConfig)
		if err != nil {
			log.Error().Err(err).Msg("failed to load directory configuration")
			os.Exit(1)
		}

		req, err := request.New(flagURL, flagStart, flagEnd, flagResolution, flagTitle, flagImage)
		if err != nil {
			log.Error().Err(err).Msg("failed to build video request")
			os.Exit(1)
		}

		d, err := driver.NewDefault(log.Logger, vimeoCfg, dirCfg)
		if err != nil {
			log.Error().Err(err).Msg("failed to initialize pipeline")
			os.Exit(1)
		}

		return d.Process(cmd.Context(), req)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&flagURL, "url", "u", "", "URL or ID of the YouTube video")
	rootCmd.Flags().StringVarP(&flagStart, "start", "s", "", "start time of the clip in format 00:00:00")
	rootCmd.Flags().StringVarP(&flagEnd, "end", "e", "", "end time of the clip in format 00:00:00")
	rootCmd.Flags().StringVarP(&flagConfig, "config", "c", "", "path to the Vimeo credentials file")
	rootCmd.Flags().StringVarP(&flagImage, "image", "i", "", "path to the thumbnail image of the video")
	rootCmd.Flags().StringVarP(&flagResolution, "resolution", "r", request.DefaultResolution, "resolution of the video")
	rootCmd.Flags().StringVarP(&flagTitle, "title", "t", "", "title of the video")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.MarkFlagRequired("url")
	rootCmd.MarkFlagRequired("start")
	rootCmd.MarkFlagRequired("end")
	rootCmd.MarkFlagRequired("config")
}
