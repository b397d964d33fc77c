package artifact

import (
	"errors"
	"io/fs"
	"os"
	"time"
)

// FileStatus describes one artifact on disk.
type FileStatus struct {
	Path    string    `json:"path"`
	Exists  bool      `json:"exists"`
	Bytes   int64     `json:"bytes"`
	ModTime time.Time `json:"mod_time,omitempty"`
}

// Stat reports the presence and size of each path. Missing paths are reported,
// not returned as errors.
func Stat(paths ...string) ([]FileStatus, error) {
	out := make([]FileStatus, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		st := FileStatus{Path: p}
		info, err := os.Stat(p)
		switch {
		case err == nil:
			st.Exists = true
			st.Bytes = info.Size()
			st.ModTime = info.ModTime()
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// DiskUsageBytes sums the sizes of the artifacts that exist.
func DiskUsageBytes(statuses []FileStatus) int64 {
	var total int64
	for _, st := range statuses {
		total += st.Bytes
	}
	return total
}
