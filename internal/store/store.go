package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/m1k1o/go-hlsbundle/pkg/hlsbundle"
)

var ErrMediaNotFound = errors.New("media not found")

// StoreCtx is the media record store backed by sqlite.
type StoreCtx struct {
	logger    zerolog.Logger
	db        *gorm.DB
	mediaRoot string
}

func Open(dsn string, mediaRoot string) (*StoreCtx, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}

	// sqlite allows a single writer
	sqlDB.SetMaxOpenConns(1)

	return New(db, mediaRoot)
}

func New(db *gorm.DB, mediaRoot string) (*StoreCtx, error) {
	if err := db.AutoMigrate(&Media{}, &Encoding{}, &AudioTrack{}, &SubtitleTrack{}); err != nil {
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return &StoreCtx{
		logger:    log.With().Str("module", "store").Logger(),
		db:        db,
		mediaRoot: mediaRoot,
	}, nil
}

func (s *StoreCtx) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *StoreCtx) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || s.mediaRoot == "" {
		return path
	}
	return filepath.Join(s.mediaRoot, path)
}

//
// records
//

func (s *StoreCtx) CreateMedia(ctx context.Context, media *Media) error {
	return s.db.WithContext(ctx).Create(media).Error
}

func (s *StoreCtx) AddEncoding(ctx context.Context, encoding *Encoding) error {
	if _, err := s.Media(ctx, encoding.MediaID); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(encoding).Error
}

// Media returns the media record with its tracks and encodings.
func (s *StoreCtx) Media(ctx context.Context, mediaID string) (*Media, error) {
	media := Media{}
	err := s.db.WithContext(ctx).
		Preload("Encodings").
		Preload("AudioTracks", func(db *gorm.DB) *gorm.DB { return db.Order("output_index") }).
		Preload("SubtitleTracks", func(db *gorm.DB) *gorm.DB { return db.Order("output_index") }).
		First(&media, "id = ?", mediaID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrMediaNotFound, mediaID)
	}
	if err != nil {
		return nil, err
	}
	return &media, nil
}

//
// hlsbundle.MediaStore
//

func (s *StoreCtx) SourcePath(ctx context.Context, mediaID string) (string, error) {
	media := Media{}
	err := s.db.WithContext(ctx).Select("id", "media_file").First(&media, "id = ?", mediaID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("%w: media %s", hlsbundle.ErrSourceNotFound, mediaID)
	}
	if err != nil {
		return "", err
	}
	if media.MediaFile == "" {
		return "", fmt.Errorf("%w: media %s has no file", hlsbundle.ErrSourceNotFound, mediaID)
	}
	return s.resolve(media.MediaFile), nil
}

func (s *StoreCtx) EncodedRenditions(ctx context.Context, mediaID string) ([]hlsbundle.EncodedRendition, error) {
	encodings := []Encoding{}
	err := s.db.WithContext(ctx).
		Where("media_id = ?", mediaID).
		Order("resolution").
		Find(&encodings).Error
	if err != nil {
		return nil, err
	}

	renditions := make([]hlsbundle.EncodedRendition, 0, len(encodings))
	for _, encoding := range encodings {
		renditions = append(renditions, hlsbundle.EncodedRendition{
			Path:       s.resolve(encoding.MediaFile),
			Container:  encoding.Extension,
			Codec:      encoding.Codec,
			Resolution: encoding.Resolution,
			Status:     hlsbundle.RenditionStatus(encoding.Status),
			Chunk:      encoding.Chunk,
		})
	}

	return renditions, nil
}

func (s *StoreCtx) SetManifest(ctx context.Context, mediaID string, manifestPath string) error {
	res := s.db.WithContext(ctx).
		Model(&Media{}).
		Where("id = ?", mediaID).
		Update("hls_file", manifestPath)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrMediaNotFound, mediaID)
	}

	s.logger.Debug().Str("media", mediaID).Str("manifest", manifestPath).Msg("manifest updated")
	return nil
}

// SaveTracks replaces the track records of the media.
func (s *StoreCtx) SaveTracks(ctx context.Context, mediaID string, audio, subtitle []hlsbundle.TrackInfo) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("media_id = ?", mediaID).Delete(&AudioTrack{}).Error; err != nil {
			return err
		}
		if err := tx.Where("media_id = ?", mediaID).Delete(&SubtitleTrack{}).Error; err != nil {
			return err
		}

		for _, track := range audio {
			record := AudioTrack{
				MediaID:     mediaID,
				TrackIndex:  track.SourceIndex,
				OutputIndex: track.OutputIndex,
				Codec:       track.Codec,
				Language:    track.Language,
				Title:       track.DisplayName,
				Channels:    track.Channels,
				SampleRate:  track.SampleRate,
				IsDefault:   track.Default,
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		}

		for _, track := range subtitle {
			record := SubtitleTrack{
				MediaID:     mediaID,
				TrackIndex:  track.SourceIndex,
				OutputIndex: track.OutputIndex,
				Codec:       track.Codec,
				Language:    track.Language,
				Title:       track.DisplayName,
				IsForced:    track.Forced,
				IsDefault:   track.Default,
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		}

		return nil
	})
}
