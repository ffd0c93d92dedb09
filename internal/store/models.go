package store

import "time"

// Media is the record of one uploaded source file.
type Media struct {
	ID        string `gorm:"primaryKey;size:64"`
	Title     string `gorm:"size:512"`
	MediaFile string `gorm:"not null;size:4096"` // absolute or relative to the media root
	HLSFile   string `gorm:"size:4096"`          // master manifest, relative to the media root

	CreatedAt time.Time
	UpdatedAt time.Time

	Encodings      []Encoding      `gorm:"foreignKey:MediaID;constraint:OnDelete:CASCADE"`
	AudioTracks    []AudioTrack    `gorm:"foreignKey:MediaID;constraint:OnDelete:CASCADE"`
	SubtitleTracks []SubtitleTrack `gorm:"foreignKey:MediaID;constraint:OnDelete:CASCADE"`
}

// Encoding is an encoded video rendition of a media.
type Encoding struct {
	ID         uint   `gorm:"primaryKey"`
	MediaID    string `gorm:"not null;size:64;index"`
	Extension  string `gorm:"size:16"`
	Codec      string `gorm:"size:16"`
	Resolution int
	Status     string `gorm:"size:16;index"`
	Chunk      bool   `gorm:"default:false"`
	MediaFile  string `gorm:"size:4096"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

type AudioTrack struct {
	ID          uint   `gorm:"primaryKey"`
	MediaID     string `gorm:"not null;size:64;uniqueIndex:idx_audio_media_track"`
	TrackIndex  int    `gorm:"uniqueIndex:idx_audio_media_track"` // stream index in the source
	OutputIndex int
	Codec       string `gorm:"size:20"`
	Language    string `gorm:"size:10"`
	Title       string `gorm:"size:200"`
	Channels    int
	SampleRate  int
	IsDefault   bool `gorm:"default:false"`
}

type SubtitleTrack struct {
	ID          uint   `gorm:"primaryKey"`
	MediaID     string `gorm:"not null;size:64;uniqueIndex:idx_subtitle_media_track"`
	TrackIndex  int    `gorm:"uniqueIndex:idx_subtitle_media_track"`
	OutputIndex int
	Codec       string `gorm:"size:20"`
	Language    string `gorm:"size:10"`
	Title       string `gorm:"size:200"`
	IsForced    bool   `gorm:"default:false"`
	IsDefault   bool   `gorm:"default:false"`
}
