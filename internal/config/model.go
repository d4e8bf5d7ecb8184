package config

import "time"

// Model is the format-agnostic representation of the console's file
// configuration. Command-line flags override anything loaded here.
type Model struct {
	Server   *Server
	Logging  *Logging
	Defaults *Defaults
}

// Server describes the retrieval server the console talks to.
type Server struct {
	BaseURL string
	Timeout time.Duration
}

// Logging holds the console's log settings.
type Logging struct {
	Level  string
	Format string
}

// Defaults holds per-session presets.
type Defaults struct {
	// QueryMode is the result tab shown first: naive, local, global or hybrid.
	QueryMode string
}
