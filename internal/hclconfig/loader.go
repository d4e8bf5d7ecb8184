// Package hclconfig is the HCL implementation of the config.Loader
// interface. Configuration values may reference process environment
// variables through the `env` object, e.g. `base_url = env.LIGHTRAG_URL`.
package hclconfig

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/wzt1001/lightrag-on-aws/internal/config"
	"github.com/wzt1001/lightrag-on-aws/internal/ctxlog"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// fileRoot is a struct used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Server   *serverBlock   `hcl:"server,block"`
	Logging  *loggingBlock  `hcl:"logging,block"`
	Defaults *defaultsBlock `hcl:"defaults,block"`
	Remain   hcl.Body       `hcl:",remain"`
}

type serverBlock struct {
	BaseURL string `hcl:"base_url"`
	Timeout string `hcl:"timeout,optional"`
}

type loggingBlock struct {
	Level  string `hcl:"level,optional"`
	Format string `hcl:"format,optional"`
}

type defaultsBlock struct {
	QueryMode string `hcl:"query_mode,optional"`
}

// Load orchestrates the HCL configuration loading. Later files override
// earlier ones block by block; paths that do not exist are skipped.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	model := &config.Model{}
	parser := hclparse.NewParser()
	evalCtx := envEvalContext()

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		if root.Server != nil {
			server, err := translateServer(root.Server)
			if err != nil {
				return nil, fmt.Errorf("in %s: %w", file, err)
			}
			model.Server = server
		}
		if root.Logging != nil {
			logging, err := translateLogging(root.Logging)
			if err != nil {
				return nil, fmt.Errorf("in %s: %w", file, err)
			}
			model.Logging = logging
		}
		if root.Defaults != nil {
			model.Defaults = &config.Defaults{QueryMode: root.Defaults.QueryMode}
		}
	}

	logger.Debug("HCL loading complete.", "files", len(files))
	return model, nil
}

// translateServer validates and converts the server block.
func translateServer(b *serverBlock) (*config.Server, error) {
	server := &config.Server{BaseURL: strings.TrimRight(b.BaseURL, "/")}
	if b.Timeout != "" {
		timeout, err := time.ParseDuration(b.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid server timeout %q: %w", b.Timeout, err)
		}
		server.Timeout = timeout
	}
	return server, nil
}

// translateLogging validates the logging block. Values are optional; an
// empty value means "defer to the next layer of defaults".
func translateLogging(b *loggingBlock) (*config.Logging, error) {
	switch b.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid logging level %q: must be one of 'debug', 'info', 'warn', 'error'", b.Level)
	}
	switch b.Format {
	case "", "text", "json":
	default:
		return nil, fmt.Errorf("invalid logging format %q: must be 'text' or 'json'", b.Format)
	}
	return &config.Logging{Level: b.Level, Format: b.Format}, nil
}

// envEvalContext exposes the process environment as the `env` object so
// config files can interpolate secrets and per-host addresses.
func envEvalContext() *hcl.EvalContext {
	vars := map[string]cty.Value{}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = cty.StringVal(v)
		}
	}
	env := cty.EmptyObjectVal
	if len(vars) > 0 {
		env = cty.ObjectVal(vars)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": env},
	}
}

// findAllHCLFiles walks all given paths and returns a flat list of all .hcl files found.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue // It's not an error if a configured path doesn't exist.
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if info.IsDir() {
			err := filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() && filepath.Ext(p) == ".hcl" {
					if _, wasSeen := seen[p]; !wasSeen {
						allFiles = append(allFiles, p)
						seen[p] = struct{}{}
					}
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
			continue
		}

		if _, wasSeen := seen[path]; !wasSeen {
			allFiles = append(allFiles, path)
			seen[path] = struct{}{}
		}
	}
	return allFiles, nil
}
