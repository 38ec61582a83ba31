package check

import (
	"fmt"
	"time"
)

// Request represents a check request as given on the command line.
// Either Prefix or both ISOPath and MapPath must be set.
type Request struct {
	Prefix  string
	ISOPath string
	MapPath string
}

// Response represents the result of checking an image against a mapfile
type Response struct {
	ImagePath      string        `json:"image_path" yaml:"image_path"`
	MapfilePath    string        `json:"mapfile_path" yaml:"mapfile_path"`
	Volume         VolumeInfo    `json:"volume" yaml:"volume"`
	Mapfile        MapfileInfo   `json:"mapfile" yaml:"mapfile"`
	Findings       []Finding     `json:"findings" yaml:"findings"`
	EntriesChecked int           `json:"entries_checked" yaml:"entries_checked"`
	CheckTime      time.Duration `json:"check_time" yaml:"check_time"`
}

// VolumeInfo describes the checked image
type VolumeInfo struct {
	ID          string `json:"id" yaml:"id"`
	Fingerprint string `json:"fingerprint" yaml:"fingerprint"`
	Joliet      bool   `json:"joliet" yaml:"joliet"`
	BlockSize   uint32 `json:"block_size" yaml:"block_size"`
}

// MapfileInfo summarizes the parsed mapfile
type MapfileInfo struct {
	CurrentPos    uint64  `json:"current_pos" yaml:"current_pos"`
	CurrentStatus string  `json:"current_status" yaml:"current_status"`
	CurrentPass   *uint64 `json:"current_pass,omitempty" yaml:"current_pass,omitempty"`
	Blocks        int     `json:"blocks" yaml:"blocks"`
	BadIntervals  int     `json:"bad_intervals" yaml:"bad_intervals"`
	BadBytes      uint64  `json:"bad_bytes" yaml:"bad_bytes"`
}

// Finding is an image entry whose extent touches a bad range
type Finding struct {
	Path        string `json:"path" yaml:"path"`
	Identifier  string `json:"identifier" yaml:"identifier"`
	IsDir       bool   `json:"is_dir" yaml:"is_dir"`
	ExtentStart uint64 `json:"extent_start" yaml:"extent_start"`
	ExtentEnd   uint64 `json:"extent_end" yaml:"extent_end"`
	BadStart    uint64 `json:"bad_start" yaml:"bad_start"`
	BadEnd      uint64 `json:"bad_end" yaml:"bad_end"`
}

// Message returns the one-line diagnostic for the finding
func (f Finding) Message() string {
	return fmt.Sprintf("Bad entry %q : %d to %d is bad", f.Identifier, f.BadStart, f.BadEnd)
}
