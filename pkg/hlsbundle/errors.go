package hlsbundle

import (
	"errors"
	"fmt"
)

var (
	ErrSourceNotFound = errors.New("source not found")
	ErrProbe          = errors.New("probe failed")
	ErrPackaging      = errors.New("packaging failed")
	ErrNoRenditions   = fmt.Errorf("%w: no usable encoded video renditions", ErrPackaging)
	ErrManifestWrite  = errors.New("manifest write failed")
	ErrBusy           = errors.New("media is already being processed")
	ErrInvalidMediaID = errors.New("invalid media identifier")
)

// TrackError describes a failure of a single audio or subtitle track.
// It never aborts a pipeline run; the track is dropped from its list.
type TrackError struct {
	Kind     TrackKind
	Index    int
	Language string
	Stage    string
	Err      error
}

func (e *TrackError) Error() string {
	return fmt.Sprintf("%s track %d (%s) failed at %s: %v", e.Kind, e.Index, e.Language, e.Stage, e.Err)
}

func (e *TrackError) Unwrap() error {
	return e.Err
}

func trackError(track TrackInfo, stage string, err error) *TrackError {
	return &TrackError{
		Kind:     track.Kind,
		Index:    track.OutputIndex,
		Language: track.Language,
		Stage:    stage,
		Err:      err,
	}
}
