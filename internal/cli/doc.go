// Package cli parses the console's command-line arguments into an
// app.Config and defines the ExitError used to carry process exit codes.
package cli
