// Package testutil holds shared helpers for exercising the console against
// an in-process stand-in for the retrieval server.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wzt1001/lightrag-on-aws/internal/api"
)

// Backend is a fake retrieval server implementing the HTTP surface the
// console consumes. State is mutable from tests; every handler is
// deliberately simple so failures are easy to stage.
type Backend struct {
	mu sync.Mutex

	Contexts  []api.Context
	Variables map[string][]api.PromptVariable
	Generated map[string]map[string]string

	// InsertedTexts and InsertedFiles record ingestion calls in arrival order.
	InsertedTexts []string
	InsertedFiles []string

	// FailFile makes the upload of the named file return a 500 with
	// FailDetail as the error detail.
	FailFile   string
	FailDetail string

	// DeleteDetail, when set, makes context deletion fail with that detail.
	DeleteDetail string

	// QueryStatus defaults to "success". QueryMessage is returned for any
	// other status; QueryData for success.
	QueryStatus  string
	QueryMessage string
	QueryData    api.QueryResult

	// OnQuery, when set, runs at the start of every query request, before
	// the response is written. Tests use it to mutate state while a query
	// is in flight.
	OnQuery func()

	// GraphPayload is served by /visualize; GraphErr, when set, makes the
	// endpoint fail with a 500.
	GraphPayload []byte
	GraphErr     string

	// VisualizeCalls counts graph fetches, including regenerations.
	VisualizeCalls int

	nextID int
	srv    *httptest.Server
}

// NewBackend starts a fake server and registers its shutdown with t.
func NewBackend(t *testing.T) *Backend {
	t.Helper()
	b := &Backend{
		Variables: map[string][]api.PromptVariable{},
		Generated: map[string]map[string]string{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/contexts", b.handleContexts)
	mux.HandleFunc("/contexts/", b.handleContextByID)
	mux.HandleFunc("/insert", b.handleInsert)
	mux.HandleFunc("/insert_file", b.handleInsertFile)
	mux.HandleFunc("/get_prompt_variables", b.handleGetVariables)
	mux.HandleFunc("/update_prompt", b.handleUpdatePrompt)
	mux.HandleFunc("/query", b.handleQuery)
	mux.HandleFunc("/visualize", b.handleVisualize)
	mux.HandleFunc("/generated_files/", b.handleGeneratedFiles)
	b.srv = httptest.NewServer(mux)
	t.Cleanup(b.srv.Close)
	return b
}

// URL returns the fake server's base address.
func (b *Backend) URL() string {
	return b.srv.URL
}

// Client returns an api.Client wired to this backend.
func (b *Backend) Client() *api.Client {
	return api.NewClient(b.srv.URL, 5*time.Second)
}

// AddContext seeds one context and returns it.
func (b *Backend) AddContext(name string) api.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	c := api.Context{
		ID:        fmt.Sprintf("ctx-%d", b.nextID),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	b.Contexts = append(b.Contexts, c)
	return c
}

// SetVariables seeds the prompt variables of one context from pairs of
// name and value, where a string value becomes a scalar variable and a
// []string value a list variable.
func (b *Backend) SetVariables(contextID string, values map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var vars []api.PromptVariable
	for name, value := range values {
		raw, _ := json.Marshal(value)
		varType := api.VariableTypeString
		if _, ok := value.([]string); ok {
			varType = api.VariableTypeList
		}
		vars = append(vars, api.PromptVariable{Name: name, Type: varType, Value: raw})
	}
	b.Variables[contextID] = vars
}

func (b *Backend) handleContexts(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, b.Contexts)
	case http.MethodPost:
		var body struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "name is required"})
			return
		}
		b.nextID++
		c := api.Context{
			ID:          fmt.Sprintf("ctx-%d", b.nextID),
			Name:        body.Name,
			Description: body.Description,
			CreatedAt:   time.Now().UTC(),
		}
		b.Contexts = append(b.Contexts, c)
		writeJSON(w, http.StatusOK, c)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (b *Backend) handleContextByID(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rest := strings.TrimPrefix(r.URL.Path, "/contexts/")
	id, isClear := rest, false
	if strings.HasSuffix(rest, "/clear") {
		id, isClear = strings.TrimSuffix(rest, "/clear"), true
	}
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if isClear {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Context cleared."})
		return
	}
	if b.DeleteDetail != "" {
		writeJSON(w, http.StatusConflict, map[string]string{"detail": b.DeleteDetail})
		return
	}
	for i, c := range b.Contexts {
		if c.ID == id {
			b.Contexts = append(b.Contexts[:i], b.Contexts[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "context not found"})
}

func (b *Backend) handleInsert(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid body"})
		return
	}
	b.InsertedTexts = append(b.InsertedTexts, body.Text)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Text inserted."})
}

func (b *Backend) handleInsertFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid multipart body"})
		return
	}
	_, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "missing file field"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailFile != "" && header.Filename == b.FailFile {
		detail := b.FailDetail
		if detail == "" {
			detail = "ingestion failed"
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": detail})
		return
	}
	b.InsertedFiles = append(b.InsertedFiles, header.Filename)
	writeJSON(w, http.StatusOK, map[string]string{"message": "File inserted."})
}

func (b *Backend) handleGetVariables(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	vars := b.Variables[r.URL.Query().Get("context_id")]
	writeJSON(w, http.StatusOK, map[string]any{"variables": vars})
}

func (b *Backend) handleUpdatePrompt(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var body struct {
		Variable string          `json:"variable"`
		Value    json.RawMessage `json:"value"`
		Type     string          `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid body"})
		return
	}
	contextID := r.URL.Query().Get("context_id")
	vars := b.Variables[contextID]
	for i, v := range vars {
		if v.Name == body.Variable {
			vars[i].Value = body.Value
			b.Variables[contextID] = vars
			writeJSON(w, http.StatusOK, map[string]string{"message": "Prompt updated."})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "unknown variable"})
}

func (b *Backend) handleQuery(w http.ResponseWriter, r *http.Request) {
	if b.OnQuery != nil {
		b.OnQuery()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	status := b.QueryStatus
	if status == "" {
		status = "success"
	}
	if status != "success" {
		writeJSON(w, http.StatusOK, map[string]any{"status": status, "message": b.QueryMessage})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "data": b.QueryData})
}

func (b *Backend) handleVisualize(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.VisualizeCalls++
	if b.GraphErr != "" {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": b.GraphErr})
		return
	}
	w.Header().Set("Content-Type", "text/html")
	_, _ = w.Write(b.GraphPayload)
}

func (b *Backend) handleGeneratedFiles(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/generated_files/"), "/")
	files := b.Generated[parts[0]]
	if len(parts) == 1 {
		names := make([]string, 0, len(files))
		for name := range files {
			names = append(names, name)
		}
		writeJSON(w, http.StatusOK, map[string]any{"files": names})
		return
	}
	content, ok := files[parts[1]]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "file not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"content": content})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
