package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v3/client"
)

// GenerateRequest asks the insight service to draft a document from sources.
type GenerateRequest struct {
	Prompt            string   `json:"prompt"`
	SourceDocumentIDs []string `json:"source_document_ids"`
	DocumentType      string   `json:"document_type"`
}

// InsightClient talks to the document insight backend. Responses are checked
// to be JSON and returned raw for the caller to pass through, whatever their
// shape.
type InsightClient struct {
	caller
}

// NewInsightClient creates a client for the service at baseURL.
func NewInsightClient(baseURL string, timeout time.Duration) *InsightClient {
	return &InsightClient{caller: newCaller("insight", baseURL, timeout)}
}

func (c *InsightClient) document(ctx context.Context, operation, docID, suffix string) (json.RawMessage, error) {
	if docID == "" {
		return nil, errors.New("backend: insight " + operation + ": empty document id")
	}
	var out json.RawMessage
	if err := c.do(ctx, operation, "GET", "/documents/"+url.PathEscape(docID)+suffix, client.Config{}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetDocumentInsights returns the generated insights of a document.
func (c *InsightClient) GetDocumentInsights(ctx context.Context, docID string) (json.RawMessage, error) {
	return c.document(ctx, "insights", docID, "/insights")
}

// GetDocumentKeyTerms returns the key terms extracted from a document.
func (c *InsightClient) GetDocumentKeyTerms(ctx context.Context, docID string) (json.RawMessage, error) {
	return c.document(ctx, "key_terms", docID, "/key-terms")
}

// GetDocumentSummary returns the summary of a document.
func (c *InsightClient) GetDocumentSummary(ctx context.Context, docID string) (json.RawMessage, error) {
	return c.document(ctx, "summary", docID, "/summary")
}

// GenerateDocument drafts a new document from a prompt and source documents.
func (c *InsightClient) GenerateDocument(ctx context.Context, req GenerateRequest) (json.RawMessage, error) {
	if req.Prompt == "" {
		return nil, errors.New("backend: insight generate: empty prompt")
	}
	if req.SourceDocumentIDs == nil {
		req.SourceDocumentIDs = []string{}
	}
	var out json.RawMessage
	if err := c.do(ctx, "generate", "POST", "/documents/generate", client.Config{Body: req}, &out); err != nil {
		return nil, err
	}
	return out, nil
}
