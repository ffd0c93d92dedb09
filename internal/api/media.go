package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/m1k1o/go-hlsbundle/pkg/hlsbundle"
)

type bundleResponse struct {
	Media  string `json:"media"`
	Status string `json:"status"`
}

type tracksResponse struct {
	Audio     []hlsbundle.TrackRecord `json:"audio"`
	Subtitles []hlsbundle.TrackRecord `json:"subtitles"`
}

func (a *ApiManagerCtx) createBundle(w http.ResponseWriter, r *http.Request) {
	mediaID := chi.URLParam(r, "mediaID")
	if !hlsbundle.ValidMediaID(mediaID) {
		http.Error(w, "400 invalid media id", http.StatusBadRequest)
		return
	}

	if !a.trigger(mediaID) {
		writeJSON(w, http.StatusConflict, bundleResponse{Media: mediaID, Status: "running"})
		return
	}

	writeJSON(w, http.StatusAccepted, bundleResponse{Media: mediaID, Status: "accepted"})
}

// trigger starts a pipeline run in background, false if one is already running.
func (a *ApiManagerCtx) trigger(mediaID string) bool {
	a.mu.Lock()
	if _, ok := a.running[mediaID]; ok {
		a.mu.Unlock()
		return false
	}
	a.running[mediaID] = struct{}{}
	a.mu.Unlock()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer func() {
			a.mu.Lock()
			delete(a.running, mediaID)
			a.mu.Unlock()
		}()

		if a.metrics != nil {
			a.metrics.RunStarted()
			defer a.metrics.RunDone()
		}

		logger := a.logger.With().Str("media", mediaID).Logger()
		logger.Info().Msg("pipeline triggered")

		result, err := a.pipeline.Run(a.ctx, mediaID)
		if err != nil {
			logger.Warn().Err(err).Msg("pipeline run failed")
			return
		}

		logger.Info().
			Int("audios", len(result.AudioTracks)).
			Int("subtitles", len(result.SubtitleTracks)).
			Msg("pipeline run finished")
	}()

	return true
}

func (a *ApiManagerCtx) tracks(w http.ResponseWriter, r *http.Request) {
	mediaID := chi.URLParam(r, "mediaID")
	if !hlsbundle.ValidMediaID(mediaID) {
		http.Error(w, "400 invalid media id", http.StatusBadRequest)
		return
	}

	outDir := a.pipeline.OutputDir(mediaID)

	audio, err := hlsbundle.ReadTrackRecords(filepath.Join(outDir, hlsbundle.AudioMetadataName))
	if err != nil {
		a.recordsError(w, mediaID, err)
		return
	}

	subtitles, err := hlsbundle.ReadTrackRecords(filepath.Join(outDir, hlsbundle.SubtitleMetadataName))
	if err != nil {
		a.recordsError(w, mediaID, err)
		return
	}

	writeJSON(w, http.StatusOK, tracksResponse{
		Audio:     audio,
		Subtitles: subtitles,
	})
}

func (a *ApiManagerCtx) recordsError(w http.ResponseWriter, mediaID string, err error) {
	if errors.Is(err, os.ErrNotExist) {
		http.Error(w, "404 hls bundle not found", http.StatusNotFound)
		return
	}

	a.logger.Warn().Err(err).Str("media", mediaID).Msg("unable to read track records")
	http.Error(w, "500 unable to read track records", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint
	_ = json.NewEncoder(w).Encode(v)
}
