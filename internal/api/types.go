package api

import (
	"encoding/json"
	"time"
)

// Context is a single isolated knowledge base on the retrieval server.
// Its id is assigned by the server and never changes after creation.
type Context struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Wire values for the prompt-variable `type` discriminator.
const (
	VariableTypeString = "string"
	VariableTypeList   = "list"
)

// PromptVariable is the wire form of one typed prompt variable. Value is
// left raw here; the shape it decodes to depends on Type.
type PromptVariable struct {
	Name  string          `json:"name"`
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// QueryResult holds the four retrieval-mode outputs of one query. The
// server emits the global answer under "global_" to dodge a reserved word
// on its side.
type QueryResult struct {
	Naive  string `json:"naive"`
	Local  string `json:"local"`
	Global string `json:"global_"`
	Hybrid string `json:"hybrid"`
}

// messageBody is the generic `{message}` success envelope used by the
// ingestion and prompt-update endpoints.
type messageBody struct {
	Message string `json:"message"`
}

// queryEnvelope wraps a query response: either {status: "success", data}
// or {status: <other>, message}.
type queryEnvelope struct {
	Status  string      `json:"status"`
	Data    QueryResult `json:"data"`
	Message string      `json:"message"`
}

// variablesBody wraps the prompt-variable listing.
type variablesBody struct {
	Variables []PromptVariable `json:"variables"`
}

// filesBody wraps the generated-files listing.
type filesBody struct {
	Files []string `json:"files"`
}

// contentBody wraps a single generated file's raw JSON text.
type contentBody struct {
	Content string `json:"content"`
}
