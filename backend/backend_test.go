package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowClient_ListExecutions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/workflows/wf-1/executions", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id":"ex-1","status":"completed","started_at":"2024-03-14T09:00:00Z","completed_at":"2024-03-14T09:01:00Z","execution_data":{"pages":3}},
			{"id":"ex-2","status":"running","started_at":"2024-03-14T10:00:00Z","current_step_id":"node-2"}
		]`))
	}))
	defer srv.Close()

	c := NewWorkflowClient(srv.URL+"/api/v1", 5*time.Second)
	list, err := c.ListExecutions(context.Background(), "wf-1", 5)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, StatusCompleted, list[0].Status)
	assert.True(t, list[0].Finished())
	require.NotNil(t, list[0].CompletedAt)
	assert.JSONEq(t, `{"pages":3}`, string(list[0].ExecutionData))

	assert.Equal(t, StatusRunning, list[1].Status)
	assert.False(t, list[1].Finished())
	require.NotNil(t, list[1].CurrentStepID)
	assert.Equal(t, "node-2", *list[1].CurrentStepID)
	assert.Nil(t, list[1].CompletedAt)
}

func TestWorkflowClient_ListExecutionsDefaultLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	list, err := NewWorkflowClient(srv.URL, 5*time.Second).ListExecutions(context.Background(), "wf-1", 0)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestWorkflowClient_ExecuteWorkflow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/workflows/wf-1/execute", r.URL.Path)

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "doc-7", body["document_id"])
		assert.Equal(t, map[string]any{}, body["initial_data"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"ex-9","status":"running","started_at":"2024-03-14T09:00:00Z"}`))
	}))
	defer srv.Close()

	doc := "doc-7"
	ex, err := NewWorkflowClient(srv.URL, 5*time.Second).
		ExecuteWorkflow(context.Background(), "wf-1", ExecuteRequest{DocumentID: &doc})
	require.NoError(t, err)
	assert.Equal(t, "ex-9", ex.ID)
	assert.Equal(t, StatusRunning, ex.Status)
}

func TestWorkflowClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "workflow is paused", http.StatusConflict)
	}))
	defer srv.Close()

	_, err := NewWorkflowClient(srv.URL, 5*time.Second).
		ExecuteWorkflow(context.Background(), "wf-1", ExecuteRequest{})
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusConflict))
	assert.Contains(t, err.Error(), "backend: workflow execute: status 409")
	assert.Contains(t, err.Error(), "workflow is paused")
}

func TestWorkflowClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewWorkflowClient(url, time.Second).ListExecutions(context.Background(), "wf-1", 1)
	require.Error(t, err)
	assert.False(t, IsStatus(err, http.StatusNotFound))
	assert.Contains(t, err.Error(), "backend: workflow list_executions")
}

func TestWorkflowClient_EmptyID(t *testing.T) {
	c := NewWorkflowClient("http://127.0.0.1:1", time.Second)
	_, err := c.ListExecutions(context.Background(), "", 1)
	assert.Error(t, err)
	_, err = c.ExecuteWorkflow(context.Background(), "", ExecuteRequest{})
	assert.Error(t, err)
}

func TestInsightClient_DocumentEndpoints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/documents/doc-1/insights":
			w.Write([]byte(`{"insights":["late payment risk"]}`))
		case "/documents/doc-1/key-terms":
			w.Write([]byte(`[{"term":"net 30","weight":0.8}]`))
		case "/documents/doc-1/summary":
			w.Write([]byte(`{"summary":"Invoice for office supplies."}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewInsightClient(srv.URL, 5*time.Second)
	ctx := context.Background()

	insights, err := c.GetDocumentInsights(ctx, "doc-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"insights":["late payment risk"]}`, string(insights))

	terms, err := c.GetDocumentKeyTerms(ctx, "doc-1")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"term":"net 30","weight":0.8}]`, string(terms))

	summary, err := c.GetDocumentSummary(ctx, "doc-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"summary":"Invoice for office supplies."}`, string(summary))

	_, err = c.GetDocumentSummary(ctx, "doc-2")
	assert.True(t, IsStatus(err, http.StatusNotFound))

	_, err = c.GetDocumentInsights(ctx, "")
	assert.Error(t, err)
}

func TestInsightClient_GenerateDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/documents/generate", r.URL.Path)

		var req GenerateRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Draft a payment reminder", req.Prompt)
		assert.Equal(t, []string{"doc-1", "doc-2"}, req.SourceDocumentIDs)
		assert.Equal(t, "letter", req.DocumentType)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"content":"Dear customer","document_type":"letter"}`))
	}))
	defer srv.Close()

	out, err := NewInsightClient(srv.URL, 5*time.Second).GenerateDocument(context.Background(), GenerateRequest{
		Prompt:            "Draft a payment reminder",
		SourceDocumentIDs: []string{"doc-1", "doc-2"},
		DocumentType:      "letter",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"content":"Dear customer","document_type":"letter"}`, string(out))

	_, err = NewInsightClient(srv.URL, time.Second).GenerateDocument(context.Background(), GenerateRequest{})
	assert.Error(t, err)
}
