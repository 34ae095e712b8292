package history

import "time"

// Entry is one executed input line.
type Entry struct {
	Seq        uint64    `json:"seq"`
	Time       time.Time `json:"ts"`
	PrevHash   string    `json:"prev_hash"`
	Line       string    `json:"line"`                 // raw input line
	Commands   []string  `json:"commands"`             // command name of each stage that ran
	Background bool      `json:"background,omitempty"` // line ended with &
	ExitCode   int       `json:"exit_code"`            // status of the last statement
	Duration   float64   `json:"duration_ms"`
	Cwd        string    `json:"cwd"`  // working directory before the line ran
	Hash       string    `json:"hash"` // SHA-256 of this entry (with hash field empty)
}

// Record carries what the shell knows about a line once it has run.
type Record struct {
	Line       string
	Commands   []string
	Background bool
	ExitCode   int
	Duration   time.Duration
	Cwd        string
}
