package midifile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go-synth/debug"
	"go-synth/timeline"
)

// Recordings are written at one tick per millisecond
const (
	RecordResolution = 500
	RecordBPM        = 120
)

const (
	recordingTimeFormat = "2006-01-02_15-04-05"
	maxSameSecond       = 100
)

// Recording is a saved take (for listing)
type Recording struct {
	Path      string
	Name      string // parsed from filename (empty if unnamed)
	Timestamp time.Time
	Seq       int // 1, or 2 and up for later takes in the same second
}

// RecordingsDir returns the recordings directory path
func RecordingsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-synth", "recordings"), nil
}

// SaveRecording writes events, with ticks in milliseconds, to a file named
// after at and an optional name. It returns the file's path.
func SaveRecording(events []timeline.Event, at time.Time, name string) (string, error) {
	dir, err := RecordingsDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	name = sanitizeFilename(name)
	var (
		f    *os.File
		path string
	)
	// Takes saved within the same second get .2, .3, ... after the time.
	for seq := 1; f == nil; seq++ {
		if seq > maxSameSecond {
			return "", fmt.Errorf("save recording: %d takes at %s", maxSameSecond, at.Format(recordingTimeFormat))
		}
		path = filepath.Join(dir, recordingFilename(at, seq, name))
		f, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, fs.ErrExist) {
			f = nil
			continue
		}
		if err != nil {
			return "", err
		}
	}
	if err := Write(f, events, RecordResolution, RecordBPM); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("save %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	debug.Log("midifile", "saved %d events to %s", len(events), path)
	return path, nil
}

// ListRecordings returns saved takes, newest first
func ListRecordings() ([]Recording, error) {
	dir, err := RecordingsDir()
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Recording{}, nil
		}
		return nil, err
	}

	var recs []Recording
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".mid") {
			continue
		}
		// 2006-01-02_15-04-05[.seq][_name].mid
		base := strings.TrimSuffix(entry.Name(), ".mid")
		if len(base) < len(recordingTimeFormat) {
			continue
		}
		ts, err := time.ParseInLocation(recordingTimeFormat, base[:len(recordingTimeFormat)], time.Local)
		if err != nil {
			continue
		}
		rest := base[len(recordingTimeFormat):]
		seq := 1
		if strings.HasPrefix(rest, ".") {
			digits, after, _ := strings.Cut(rest[1:], "_")
			n, err := strconv.Atoi(digits)
			if err != nil || n < 2 {
				continue
			}
			seq = n
			rest = ""
			if after != "" {
				rest = "_" + after
			}
		}
		name := ""
		if strings.HasPrefix(rest, "_") {
			name = rest[1:]
		}
		recs = append(recs, Recording{
			Path:      filepath.Join(dir, entry.Name()),
			Name:      name,
			Timestamp: ts,
			Seq:       seq,
		})
	}

	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].Timestamp.Equal(recs[j].Timestamp) {
			return recs[i].Timestamp.After(recs[j].Timestamp)
		}
		return recs[i].Seq > recs[j].Seq
	})
	return recs, nil
}

func recordingFilename(at time.Time, seq int, name string) string {
	filename := at.Format(recordingTimeFormat)
	if seq > 1 {
		filename += "." + strconv.Itoa(seq)
	}
	if name != "" {
		filename += "_" + name
	}
	return filename + ".mid"
}

// sanitizeFilename removes characters that are problematic in filenames
func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '/', '\\', ':':
			return '-'
		case '*', '?', '"', '<', '>', '|':
			return -1
		}
		return r
	}, name)
}
