// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/smentu/AI-guided-rockets/internal/model"
)

// EpisodeExport is the root JSON structure of one exported episode
type EpisodeExport struct {
	Episode model.Episode `json:"episode"`
	Steps   []model.Step  `json:"steps"`
}

// exportJSON writes the episode to a (optionally gzipped) JSON file
func (b *Backend) exportJSON(rec *EpisodeRecord) error {
	export := EpisodeExport{
		Episode: rec.Episode,
		Steps:   rec.Steps,
	}
	if export.Steps == nil {
		export.Steps = make([]model.Step, 0)
	}

	// Build filename
	vehicle := strings.ReplaceAll(rec.Episode.Vehicle, " ", "_")
	timestamp := rec.Episode.StartedAt.Format("20060102_150405")
	id := rec.Episode.ID
	if len(id) > 8 {
		id = id[:8]
	}

	var filename string
	if b.cfg.CompressOutput {
		filename = fmt.Sprintf("%s_%s_%s.json.gz", vehicle, timestamp, id)
	} else {
		filename = fmt.Sprintf("%s_%s_%s.json", vehicle, timestamp, id)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Write file
	if b.cfg.CompressOutput {
		if err := writeGzipJSON(outputPath, export); err != nil {
			return err
		}
	} else {
		if err := writeJSON(outputPath, export); err != nil {
			return err
		}
	}

	b.exported = append(b.exported, outputPath)
	return nil
}

func writeJSON(path string, data any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func writeGzipJSON(path string, data any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gw := gzip.NewWriter(f)
	if err := json.NewEncoder(gw).Encode(data); err != nil {
		gw.Close()
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	if err := gw.Close(); err != nil {
		return fmt.Errorf("failed to close gzip writer: %w", err)
	}
	return nil
}

// ReadExport loads an exported episode, gzipped or not.
func ReadExport(path string) (*EpisodeExport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var dec *json.Decoder
	if strings.HasSuffix(path, ".gz") {
		gr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip reader: %w", err)
		}
		defer gr.Close()
		dec = json.NewDecoder(gr)
	} else {
		dec = json.NewDecoder(f)
	}

	var export EpisodeExport
	if err := dec.Decode(&export); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}
	return &export, nil
}
