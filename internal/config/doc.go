// Package config defines the console's format-agnostic configuration
// model and the Loader interface implemented by format-specific packages.
package config
