package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Stream describes one recording as written in a streams file or assembled
// from environment variables. Pointer fields distinguish "not set" from an
// explicit false or zero so defaults can be applied later.
type Stream struct {
	Name       string    `yaml:"name"`
	URL        string    `yaml:"url"`
	OutputDir  string    `yaml:"output_dir"`
	Mode       string    `yaml:"mode"`
	Start      time.Time `yaml:"start"`
	End        time.Time `yaml:"end"`
	RetryCount *int      `yaml:"retry_count"`
	Concurrent *bool     `yaml:"concurrent"`
	SaveEmpty  bool      `yaml:"save_empty"`
	MaxHashes  int       `yaml:"max_hashes"`
	MaxWorkers int       `yaml:"max_workers"`
	WriteIndex bool      `yaml:"write_index"`
}

type streamsFile struct {
	Streams []Stream `yaml:"streams"`
}

// LoadStreams reads a YAML document of the form
//
//	streams:
//	  - name: news
//	    url: http://example.com/live/news.m3u8
//	    end: 2026-01-02T03:04:05Z
//
// and returns the listed streams in file order.
func LoadStreams(path string) ([]Stream, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read streams file: %w", err)
	}
	var f streamsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse streams file: %w", err)
	}
	if len(f.Streams) == 0 {
		return nil, fmt.Errorf("streams file %s lists no streams", path)
	}
	return f.Streams, nil
}

// StreamFromEnv assembles a single Stream from STREAM_NAME, PLAYLIST_URL,
// OUTPUT_DIR, RECORD_MODE, START_AT, END_AT, RETRY_COUNT, CONCURRENT,
// SAVE_EMPTY, MAX_HASHES, MAX_WORKERS and WRITE_INDEX.
func StreamFromEnv() Stream {
	s := Stream{
		Name:       GetEnv("STREAM_NAME", ""),
		URL:        GetEnv("PLAYLIST_URL", ""),
		OutputDir:  GetEnv("OUTPUT_DIR", "."),
		Mode:       GetEnv("RECORD_MODE", "hls"),
		Start:      GetEnvTime("START_AT"),
		End:        GetEnvTime("END_AT"),
		SaveEmpty:  GetEnvBool("SAVE_EMPTY", false),
		MaxHashes:  GetEnvInt("MAX_HASHES", 0),
		MaxWorkers: GetEnvInt("MAX_WORKERS", 0),
		WriteIndex: GetEnvBool("WRITE_INDEX", false),
	}
	if os.Getenv("RETRY_COUNT") != "" {
		n := GetEnvInt("RETRY_COUNT", 3)
		s.RetryCount = &n
	}
	if os.Getenv("CONCURRENT") != "" {
		b := GetEnvBool("CONCURRENT", true)
		s.Concurrent = &b
	}
	return s
}
