package model

import "time"

// Snapshot is the saved state of every box after one run. Hash
// fingerprints the source text the snapshot was taken from.
type Snapshot struct {
	Source   Path      `yaml:"source"`
	Hash     string    `yaml:"hash,omitempty"`
	Taken    time.Time `yaml:"taken"`
	ExitCode int       `yaml:"exitCode"`
	Mode     ViewMode  `yaml:"mode"`
	Lines    []string  `yaml:"lines"`
	Tables   []Table   `yaml:"tables"`
}
