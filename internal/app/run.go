package app

import (
	"context"

	"github.com/wzt1001/lightrag-on-aws/internal/ctxlog"
)

// Run executes the console based on the provided configuration: a single
// command when one was given, otherwise an interactive session.
func (a *App) Run(ctx context.Context, appConfig *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")
	defer a.close(ctx)

	a.store.Load(ctx)

	if len(appConfig.Command) > 0 {
		return a.console.Dispatch(ctx, appConfig.Command)
	}
	return a.console.Repl(ctx)
}

// close releases everything the session still holds: the rendered graph
// document and the client's idle connections.
func (a *App) close(ctx context.Context) {
	if err := a.graphs.Close(); err != nil {
		a.logger.Warn("Graph document cleanup failed.", "error", err)
	}
	a.client.Close()
	ctxlog.FromContext(ctx).Debug("App.Run method finished.")
}
