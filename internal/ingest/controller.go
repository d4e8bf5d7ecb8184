// Package ingest uploads content into the selected context: single text
// payloads or ordered file batches. Batches are strictly sequential so the
// server sees items in input order and progress stays deterministic.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/wzt1001/lightrag-on-aws/internal/api"
	"github.com/wzt1001/lightrag-on-aws/internal/ctxlog"
	"github.com/wzt1001/lightrag-on-aws/internal/session"
)

// ErrContextChanged aborts a batch when the selected context moves mid-upload.
var ErrContextChanged = errors.New("selected context changed during upload")

// Item is one uploadable payload in a batch. Open is called exactly once,
// immediately before the item's request is issued.
type Item struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// FileItem builds an Item from a path on disk.
func FileItem(path string) Item {
	return Item{
		Name: filepath.Base(path),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

// Progress describes the state of an in-flight batch. Completed counts
// finished items; Current names the item about to be sent, so observers
// render the work in flight rather than the work already done. Batch
// carries the batch id so observers can correlate progress with server
// logs.
type Progress struct {
	Active    bool
	Completed int
	Total     int
	Current   string
	Batch     string
}

// Controller owns ingestion for the selected context. At most one upload
// runs at a time; the caller's UI disables its trigger while one is active.
type Controller struct {
	client *api.Client
	sess   *session.Store

	mu         sync.Mutex
	progress   Progress
	onProgress func(Progress)
}

// NewController creates a controller bound to the session store. Selection
// changes discard any progress state.
func NewController(client *api.Client, sess *session.Store) *Controller {
	c := &Controller{client: client, sess: sess}
	sess.Subscribe(func(string) { c.setProgress(Progress{}) })
	return c
}

// OnProgress registers an observer called after every progress change.
func (c *Controller) OnProgress(fn func(Progress)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onProgress = fn
}

// Progress returns the current progress snapshot.
func (c *Controller) Progress() Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress
}

func (c *Controller) setProgress(p Progress) {
	c.mu.Lock()
	c.progress = p
	fn := c.onProgress
	c.mu.Unlock()
	if fn != nil {
		fn(p)
	}
}

// UploadText ingests one text payload. Blank text is rejected locally and
// never reaches the server.
func (c *Controller) UploadText(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", errors.New("text must not be blank")
	}
	contextID := c.sess.Selected()
	if contextID == "" {
		return "", session.ErrNoSelection
	}

	message, err := c.client.InsertText(ctx, contextID, text)
	if err != nil {
		// A single text item needs no decomposition; the generic message is enough.
		ctxlog.FromContext(ctx).Warn("Text insertion failed.", "context_id", contextID, "error", err)
		return "", errors.New("failed to insert text, please try again")
	}
	return message, nil
}

// UploadFiles uploads items one at a time, in input order. Before each
// item's request is issued, progress reflects the item about to be sent.
// The first failure aborts the whole batch; the returned error names the
// failing file and carries the server's detail. Progress is reset in every
// terminal case.
func (c *Controller) UploadFiles(ctx context.Context, items []Item) (string, error) {
	if len(items) == 0 {
		return "", errors.New("no files selected")
	}
	contextID := c.sess.Selected()
	if contextID == "" {
		return "", session.ErrNoSelection
	}

	batchID := uuid.NewString()
	logger := ctxlog.FromContext(ctx)
	logger.Info("Starting file batch.", "batch_id", batchID, "context_id", contextID, "count", len(items))
	defer c.setProgress(Progress{})

	for i, item := range items {
		if c.sess.Selected() != contextID {
			return "", ErrContextChanged
		}
		c.setProgress(Progress{
			Active:    true,
			Completed: i,
			Total:     len(items),
			Current:   item.Name,
			Batch:     batchID,
		})

		if err := c.uploadOne(ctx, contextID, item); err != nil {
			logger.Warn("File batch aborted.", "batch_id", batchID, "file", item.Name, "error", err)
			return "", fmt.Errorf("upload of %q failed in batch %s: %w", item.Name, batchID, err)
		}
		logger.Debug("File uploaded.", "batch_id", batchID, "file", item.Name, "position", i+1)
	}

	return fmt.Sprintf("Uploaded %d file(s).", len(items)), nil
}

// uploadOne opens and sends a single item, closing the payload regardless
// of outcome.
func (c *Controller) uploadOne(ctx context.Context, contextID string, item Item) error {
	rc, err := item.Open()
	if err != nil {
		return fmt.Errorf("could not open file: %w", err)
	}
	defer rc.Close()

	if _, err := c.client.InsertFile(ctx, contextID, item.Name, rc); err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.Detail != "" {
			return errors.New(apiErr.Detail)
		}
		return err
	}
	return nil
}

// Clear deletes everything ingested into the selected context.
func (c *Controller) Clear(ctx context.Context) (string, error) {
	contextID := c.sess.Selected()
	if contextID == "" {
		return "", session.ErrNoSelection
	}
	message, err := c.client.ClearContext(ctx, contextID)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("Context clear failed.", "context_id", contextID, "error", err)
		return "", errors.New("failed to clear context, please try again")
	}
	return message, nil
}
