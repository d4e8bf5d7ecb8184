// Package query dispatches one query across the server's four retrieval
// modes in a single round trip and tracks which result tab is visible.
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/wzt1001/lightrag-on-aws/internal/api"
	"github.com/wzt1001/lightrag-on-aws/internal/ctxlog"
	"github.com/wzt1001/lightrag-on-aws/internal/session"
)

// Mode is one of the server's retrieval strategies.
type Mode string

const (
	ModeNaive  Mode = "naive"
	ModeLocal  Mode = "local"
	ModeGlobal Mode = "global"
	ModeHybrid Mode = "hybrid"
)

// Modes lists the retrieval modes in display order.
func Modes() []Mode {
	return []Mode{ModeNaive, ModeLocal, ModeGlobal, ModeHybrid}
}

// ErrContextChanged is returned when the selection moved while the query
// was in flight; the response has been discarded.
var ErrContextChanged = errors.New("selected context changed while the query was in flight")

// Dispatcher submits queries for the selected context and holds the most
// recent result set. Results are replaced wholesale per query and cleared
// on any failure so stale answers are never shown.
type Dispatcher struct {
	client *api.Client
	sess   *session.Store

	mu        sync.Mutex
	result    api.QueryResult
	hasResult bool
	tab       Mode
}

// NewDispatcher creates a dispatcher bound to the session store. Selection
// changes clear the results and return the tab to its default.
func NewDispatcher(client *api.Client, sess *session.Store) *Dispatcher {
	d := &Dispatcher{client: client, sess: sess, tab: ModeHybrid}
	sess.Subscribe(func(string) { d.reset() })
	return d
}

func (d *Dispatcher) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.result = api.QueryResult{}
	d.hasResult = false
	d.tab = ModeHybrid
}

// Submit sends one query. The server answers all four modes atomically; a
// non-"success" status or a transport failure surfaces as an error and
// clears any previously displayed results.
func (d *Dispatcher) Submit(ctx context.Context, queryText string) error {
	if strings.TrimSpace(queryText) == "" {
		return errors.New("query must not be blank")
	}
	contextID := d.sess.Selected()
	if contextID == "" {
		return session.ErrNoSelection
	}

	result, err := d.client.Query(ctx, contextID, queryText)
	if d.sess.Selected() != contextID {
		return ErrContextChanged
	}
	if err != nil {
		// Never keep results from an earlier query next to a failed one.
		d.mu.Lock()
		d.result = api.QueryResult{}
		d.hasResult = false
		d.mu.Unlock()

		ctxlog.FromContext(ctx).Warn("Query failed.", "context_id", contextID, "error", err)
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.Detail != "" {
			return fmt.Errorf("query failed: %s", apiErr.Detail)
		}
		return errors.New("query failed, please try again")
	}

	d.mu.Lock()
	d.result = result
	d.hasResult = true
	d.mu.Unlock()
	return nil
}

// Result returns the latest result set, if one is held.
func (d *Dispatcher) Result() (api.QueryResult, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.result, d.hasResult
}

// Tab returns the selected result tab.
func (d *Dispatcher) Tab() Mode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tab
}

// SelectTab switches the visible result tab. Tab state is pure local UI
// state and is valid regardless of any in-flight request.
func (d *Dispatcher) SelectTab(m Mode) error {
	switch m {
	case ModeNaive, ModeLocal, ModeGlobal, ModeHybrid:
	default:
		return fmt.Errorf("unknown mode %q", m)
	}
	d.mu.Lock()
	d.tab = m
	d.mu.Unlock()
	return nil
}

// Active returns the text behind the selected tab, and whether a result is
// held at all.
func (d *Dispatcher) Active() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.hasResult {
		return "", false
	}
	switch d.tab {
	case ModeNaive:
		return d.result.Naive, true
	case ModeLocal:
		return d.result.Local, true
	case ModeGlobal:
		return d.result.Global, true
	default:
		return d.result.Hybrid, true
	}
}
