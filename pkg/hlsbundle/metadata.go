package hlsbundle

import (
	"encoding/json"
	"os"
	"path/filepath"
)

const (
	AudioMetadataName    = "audio_metadata.json"
	SubtitleMetadataName = "subtitle_metadata.json"
)

// TrackRecord is one entry of a track side-record, read by players to label tracks.
type TrackRecord struct {
	File     string `json:"file"`
	Language string `json:"language"`
	Title    string `json:"title"`
	Index    int    `json:"index"`
}

func TrackRecords(artifacts []RenditionArtifact) []TrackRecord {
	records := make([]TrackRecord, 0, len(artifacts))
	for _, artifact := range sortedArtifacts(artifacts) {
		records = append(records, TrackRecord{
			File:     baseName(artifact.MediaFilePath),
			Language: artifact.Track.Language,
			Title:    artifact.Track.DisplayName,
			Index:    artifact.Track.OutputIndex,
		})
	}
	return records
}

func WriteTrackRecords(path string, records []TrackRecord) error {
	if records == nil {
		records = []TrackRecord{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}

	return writeFileAtomic(path, append(data, '\n'))
}

func ReadTrackRecords(path string) ([]TrackRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	records := []TrackRecord{}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}

	return records, nil
}

// writeFileAtomic replaces path so that readers never observe a partial file.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}
