package hlsbundle

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/m1k1o/go-hlsbundle/internal/api"
	"github.com/m1k1o/go-hlsbundle/internal/config"
	"github.com/m1k1o/go-hlsbundle/internal/http"
	"github.com/m1k1o/go-hlsbundle/internal/metrics"
	"github.com/m1k1o/go-hlsbundle/internal/store"
	"github.com/m1k1o/go-hlsbundle/pkg/hlsbundle"
)

var Service *Main

func init() {
	Service = &Main{
		ServerConfig: &config.Server{},
		BundleConfig: &config.Bundle{},
	}
}

type Main struct {
	ServerConfig *config.Server
	BundleConfig *config.Bundle

	logger     zerolog.Logger
	store      *store.StoreCtx
	metrics    *metrics.Metrics
	pipeline   *hlsbundle.Pipeline
	apiManager *api.ApiManagerCtx
	server     *http.HttpManagerCtx
}

func (main *Main) Preflight() {
	main.logger = log.With().Str("service", "main").Logger()
}

func (main *Main) openStore() error {
	var err error
	main.store, err = store.Open(main.BundleConfig.Database, main.BundleConfig.MediaRoot)
	if err != nil {
		return fmt.Errorf("unable to open database: %w", err)
	}

	main.logger.Info().
		Str("database", main.BundleConfig.Database).
		Str("media-root", main.BundleConfig.MediaRoot).
		Msg("media store opened")
	return nil
}

func (main *Main) closeStore() {
	if main.store == nil {
		return
	}

	if err := main.store.Close(); err != nil {
		main.logger.Err(err).Msg("store closed with an error")
	} else {
		main.logger.Debug().Msg("store closed")
	}
}

func (main *Main) Start() error {
	if err := main.openStore(); err != nil {
		return err
	}

	var opts []hlsbundle.Option
	if main.ServerConfig.Metrics {
		main.metrics = metrics.New()
		opts = append(opts, hlsbundle.WithObserver(main.metrics))
	}

	main.pipeline = hlsbundle.New(main.BundleConfig.Pipeline(), main.store, opts...)
	main.apiManager = api.New(main.pipeline, main.metrics, main.BundleConfig.HLSDir)

	main.server = http.New(main.ServerConfig)
	main.server.Mount(main.apiManager.Mount)
	main.server.Start()

	main.logger.Info().Str("hls-dir", main.BundleConfig.HLSDir).Msg("serving hls bundles")
	return nil
}

func (main *Main) Shutdown() {
	if err := main.server.Shutdown(); err != nil {
		main.logger.Err(err).Msg("server shutdown with an error")
	} else {
		main.logger.Debug().Msg("server shutdown")
	}

	main.apiManager.Shutdown()
	main.logger.Debug().Msg("api shutdown")

	main.closeStore()
}

func (main *Main) ServeCommand(cmd *cobra.Command, args []string) {
	main.logger.Info().Msg("starting main server")
	if err := main.Start(); err != nil {
		main.logger.Fatal().Err(err).Msg("unable to start main server")
	}
	main.logger.Info().Msg("main ready")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	sig := <-quit

	main.logger.Warn().Msgf("received %s, attempting graceful shutdown", sig)
	main.Shutdown()
	main.logger.Info().Msg("shutdown complete")
}

// RunCommand runs the pipeline for a single media in foreground.
func (main *Main) RunCommand(cmd *cobra.Command, args []string) {
	mediaID := args[0]

	if err := main.openStore(); err != nil {
		main.logger.Fatal().Err(err).Msg("unable to run pipeline")
	}
	defer main.closeStore()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline := hlsbundle.New(main.BundleConfig.Pipeline(), main.store)
	result, err := pipeline.Run(ctx, mediaID)
	if err != nil {
		main.logger.Error().Err(err).Str("media", mediaID).Msg("pipeline failed")
		main.closeStore()
		os.Exit(1)
	}

	fmt.Fprintln(cmd.OutOrStdout(), tracksTable(result.AudioTracks, result.SubtitleTracks))
	fmt.Fprintln(cmd.OutOrStdout(), result.ManifestPath)
}

// ProbeCommand lists tracks of a media file as the pipeline would create them.
func (main *Main) ProbeCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), main.BundleConfig.ProbeTimeout)
	defer cancel()

	streams, err := hlsbundle.ProbeStreams(ctx, hlsbundle.NewExecCommand(), main.BundleConfig.FFprobeBinary, args[0])
	if err != nil {
		main.logger.Fatal().Err(err).Str("file", args[0]).Msg("unable to probe media file")
	}

	audio, subtitle := hlsbundle.Classify(streams)
	fmt.Fprintln(cmd.OutOrStdout(), tracksTable(audio, subtitle))
}

// RegisterCommand creates a media record with its encoded video renditions.
func (main *Main) RegisterCommand(cmd *cobra.Command, args []string) {
	media := &store.Media{
		ID:        args[0],
		MediaFile: args[1],
	}
	media.Title, _ = cmd.Flags().GetString("title")

	if !hlsbundle.ValidMediaID(media.ID) {
		main.logger.Fatal().Str("media", media.ID).Msg("media id may contain only letters, digits, '-' and '_'")
	}

	codec, _ := cmd.Flags().GetString("codec")
	specs, _ := cmd.Flags().GetStringArray("rendition")

	encodings := make([]store.Encoding, 0, len(specs))
	for _, spec := range specs {
		encoding, err := parseRendition(spec, codec)
		if err != nil {
			main.logger.Fatal().Err(err).Msg("invalid rendition")
		}
		encodings = append(encodings, encoding)
	}

	if err := main.openStore(); err != nil {
		main.logger.Fatal().Err(err).Msg("unable to register media")
	}
	defer main.closeStore()

	ctx := context.Background()
	if err := main.store.CreateMedia(ctx, media); err != nil {
		main.logger.Fatal().Err(err).Str("media", media.ID).Msg("unable to create media")
	}

	for i := range encodings {
		encodings[i].MediaID = media.ID
		if err := main.store.AddEncoding(ctx, &encodings[i]); err != nil {
			main.logger.Fatal().Err(err).Str("media", media.ID).Msg("unable to add encoding")
		}
	}

	main.logger.Info().
		Str("media", media.ID).
		Int("renditions", len(encodings)).
		Msg("media registered")
}
