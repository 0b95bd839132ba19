package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"
	"github.com/sicko7947/automation"
	"github.com/sicko7947/automation/capability"
	"github.com/sicko7947/automation/engine"
	"github.com/sicko7947/automation/eventbus"
	"github.com/sicko7947/automation/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	app     *fiber.App
	engine  *engine.Engine
	changes *atomic.Int32
}

func setupTestApp(t *testing.T) *testServer {
	t.Helper()

	metrics := engine.NewMetrics("test")
	eng := engine.NewEngine(
		store.NewMemoryStore(),
		capability.NewLogging(zerolog.Nop()),
		engine.WithLogger(zerolog.Nop()),
		engine.WithMetrics(metrics),
	)
	t.Cleanup(eng.Wait)

	changes := &atomic.Int32{}
	a := New(eng, zerolog.Nop(),
		WithGatherer(metrics.Registry()),
		WithChangeHook(func(ctx context.Context) error {
			changes.Add(1)
			return nil
		}),
	)

	return &testServer{app: a.App(), engine: eng, changes: changes}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func welcomeRequest() WorkflowRequest {
	return WorkflowRequest{
		Name:    "Welcome",
		Trigger: automation.Trigger{Type: automation.TriggerCustomerRegistered},
		Actions: []automation.Action{
			{Type: automation.ActionSendEmail, Config: map[string]any{"templateId": "welcome"}},
		},
	}
}

func createWorkflow(t *testing.T, s *testServer, req WorkflowRequest) automation.Workflow {
	t.Helper()

	resp, body := s.do(t, http.MethodPost, "/api/v1/workflows", req)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var wf automation.Workflow
	require.NoError(t, json.Unmarshal(body, &wf))
	return wf
}

func problemType(t *testing.T, body []byte) string {
	t.Helper()
	var problem map[string]any
	require.NoError(t, json.Unmarshal(body, &problem))
	typ, _ := problem["type"].(string)
	return typ
}

func TestAPI_Health(t *testing.T) {
	s := setupTestApp(t)

	resp, body := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestAPI_CreateWorkflow(t *testing.T) {
	tests := []struct {
		name           string
		body           any
		expectedStatus int
		expectedType   string
	}{
		{
			name:           "successful creation",
			body:           welcomeRequest(),
			expectedStatus: http.StatusCreated,
		},
		{
			name: "missing name",
			body: func() WorkflowRequest {
				r := welcomeRequest()
				r.Name = ""
				return r
			}(),
			expectedStatus: http.StatusBadRequest,
			expectedType:   "validation_error",
		},
		{
			name: "no actions",
			body: func() WorkflowRequest {
				r := welcomeRequest()
				r.Actions = nil
				return r
			}(),
			expectedStatus: http.StatusBadRequest,
			expectedType:   "validation_error",
		},
		{
			name: "bad cron",
			body: func() WorkflowRequest {
				r := welcomeRequest()
				r.Trigger = automation.Trigger{Type: automation.TriggerTimeBased, Config: map[string]any{"cron": "sometimes"}}
				return r
			}(),
			expectedStatus: http.StatusBadRequest,
			expectedType:   "validation_error",
		},
		{
			name:           "malformed json",
			body:           "not an object",
			expectedStatus: http.StatusBadRequest,
			expectedType:   "validation_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupTestApp(t)

			resp, body := s.do(t, http.MethodPost, "/api/v1/workflows", tt.body)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode, string(body))

			if tt.expectedType != "" {
				assert.Equal(t, tt.expectedType, problemType(t, body))
				assert.Equal(t, int32(0), s.changes.Load())
				return
			}

			var wf automation.Workflow
			require.NoError(t, json.Unmarshal(body, &wf))
			assert.NotEmpty(t, wf.ID)
			assert.Equal(t, automation.WorkflowStatusDraft, wf.Status)
			assert.Equal(t, int32(1), s.changes.Load())
		})
	}
}

func TestAPI_GetWorkflow(t *testing.T) {
	s := setupTestApp(t)
	created := createWorkflow(t, s, welcomeRequest())

	resp, body := s.do(t, http.MethodGet, "/api/v1/workflows/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var wf automation.Workflow
	require.NoError(t, json.Unmarshal(body, &wf))
	assert.Equal(t, created.ID, wf.ID)

	resp, body = s.do(t, http.MethodGet, "/api/v1/workflows/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", problemType(t, body))
}

func TestAPI_UpdateWorkflow(t *testing.T) {
	s := setupTestApp(t)
	created := createWorkflow(t, s, welcomeRequest())

	update := welcomeRequest()
	update.Name = "Welcome v2"
	resp, body := s.do(t, http.MethodPut, "/api/v1/workflows/"+created.ID, update)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var wf automation.Workflow
	require.NoError(t, json.Unmarshal(body, &wf))
	assert.Equal(t, "Welcome v2", wf.Name)
	assert.Equal(t, automation.WorkflowStatusDraft, wf.Status)

	resp, _ = s.do(t, http.MethodPut, "/api/v1/workflows/missing", update)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_Lifecycle(t *testing.T) {
	s := setupTestApp(t)
	created := createWorkflow(t, s, welcomeRequest())

	resp, body := s.do(t, http.MethodPost, "/api/v1/workflows/"+created.ID+"/pause", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "invalid_transition", problemType(t, body))

	resp, body = s.do(t, http.MethodPost, "/api/v1/workflows/"+created.ID+"/activate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var wf automation.Workflow
	require.NoError(t, json.Unmarshal(body, &wf))
	assert.Equal(t, automation.WorkflowStatusActive, wf.Status)

	resp, _ = s.do(t, http.MethodPost, "/api/v1/workflows/"+created.ID+"/pause", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// create + activate + pause
	assert.Equal(t, int32(3), s.changes.Load())
}

func TestAPI_ListWorkflows(t *testing.T) {
	s := setupTestApp(t)
	first := createWorkflow(t, s, welcomeRequest())
	createWorkflow(t, s, welcomeRequest())

	resp, _ := s.do(t, http.MethodPost, "/api/v1/workflows/"+first.ID+"/activate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := s.do(t, http.MethodGet, "/api/v1/workflows", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var all ListWorkflowsResponse
	require.NoError(t, json.Unmarshal(body, &all))
	assert.Equal(t, 2, all.Count)

	resp, body = s.do(t, http.MethodGet, "/api/v1/workflows?status=active&trigger=customer_registered", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var active ListWorkflowsResponse
	require.NoError(t, json.Unmarshal(body, &active))
	require.Equal(t, 1, active.Count)
	assert.Equal(t, first.ID, active.Workflows[0].ID)

	for _, query := range []string{"status=archived", "trigger=order_shipped", "limit=-1", "limit=ten"} {
		resp, _ = s.do(t, http.MethodGet, "/api/v1/workflows?"+query, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, query)
	}
}

func TestAPI_PublishEvent(t *testing.T) {
	s := setupTestApp(t)
	created := createWorkflow(t, s, welcomeRequest())
	resp, _ := s.do(t, http.MethodPost, "/api/v1/workflows/"+created.ID+"/activate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := s.do(t, http.MethodPost, "/api/v1/events/customer_registered", map[string]any{
		"customerId": "c-1",
		"email":      "new@example.com",
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))

	var out EventResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "customer_registered", out.EventType)
	require.Len(t, out.Executions, 1)
	assert.Equal(t, created.ID, out.Executions[0].WorkflowID)
	assert.Equal(t, "c-1", out.Executions[0].TriggeredBy)

	s.engine.Wait()

	resp, body = s.do(t, http.MethodGet, "/api/v1/executions/"+out.Executions[0].ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var exec automation.Execution
	require.NoError(t, json.Unmarshal(body, &exec))
	assert.Equal(t, automation.ExecutionStatusCompleted, exec.Status)

	resp, body = s.do(t, http.MethodGet, "/api/v1/workflows/"+created.ID+"/executions?limit=10", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var execs ListExecutionsResponse
	require.NoError(t, json.Unmarshal(body, &execs))
	assert.Equal(t, 1, execs.Count)

	resp, body = s.do(t, http.MethodGet, "/api/v1/workflows/"+created.ID+"/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats engine.WorkflowStats
	require.NoError(t, json.Unmarshal(body, &stats))
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, int64(1), stats.RunCount)
	assert.Equal(t, 100.0, stats.SuccessRate)
}

func TestAPI_PublishEvent_NoMatches(t *testing.T) {
	s := setupTestApp(t)

	resp, body := s.do(t, http.MethodPost, "/api/v1/events/order_placed", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var out EventResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Empty(t, out.Executions)
}

func TestAPI_PublishEvent_UnknownType(t *testing.T) {
	s := setupTestApp(t)

	resp, body := s.do(t, http.MethodPost, "/api/v1/events/order_shipped", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", problemType(t, body))
}

func TestAPI_TestWorkflow(t *testing.T) {
	s := setupTestApp(t)
	created := createWorkflow(t, s, welcomeRequest())

	resp, body := s.do(t, http.MethodPost, "/api/v1/workflows/"+created.ID+"/test", TestRequest{
		Payload: map[string]any{"email": "sample@example.com"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var exec automation.Execution
	require.NoError(t, json.Unmarshal(body, &exec))
	assert.Equal(t, automation.ExecutionStatusCompleted, exec.Status)
	assert.True(t, exec.DryRun)
	assert.Equal(t, engine.TestTrigger, exec.TriggeredBy)

	resp, _ = s.do(t, http.MethodPost, "/api/v1/workflows/missing/test", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_ListExecutions_UnknownWorkflow(t *testing.T) {
	s := setupTestApp(t)

	resp, _ := s.do(t, http.MethodGet, "/api/v1/workflows/missing/executions", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = s.do(t, http.MethodGet, "/api/v1/executions/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_Metrics(t *testing.T) {
	s := setupTestApp(t)
	created := createWorkflow(t, s, welcomeRequest())
	resp, _ := s.do(t, http.MethodPost, "/api/v1/workflows/"+created.ID+"/activate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/api/v1/events/customer_registered", map[string]any{"email": "a@example.com"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	s.engine.Wait()

	resp, body := s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "test_runs_started_total 1")
	assert.Contains(t, string(body), "test_runs_completed_total 1")
}

func TestAPI_PublishEvent_Queued(t *testing.T) {
	eng := engine.NewEngine(
		store.NewMemoryStore(),
		capability.NewLogging(zerolog.Nop()),
		engine.WithLogger(zerolog.Nop()),
	)
	t.Cleanup(eng.Wait)

	pubSub := gochannel.NewGoChannel(gochannel.Config{Persistent: true}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })

	messages, err := pubSub.Subscribe(context.Background(), eventbus.Topic)
	require.NoError(t, err)

	app := New(eng, zerolog.Nop(), WithEventPublisher(eventbus.NewPublisher(pubSub))).App()
	s := &testServer{app: app, engine: eng, changes: &atomic.Int32{}}

	resp, body := s.do(t, http.MethodPost, "/api/v1/events/order_placed", map[string]any{"orderId": "o-1"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))

	var out EventResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.True(t, out.Queued)
	assert.Empty(t, out.Executions)

	select {
	case msg := <-messages:
		msg.Ack()
		assert.Equal(t, "order_placed", msg.Metadata.Get(eventbus.EventTypeMetadataKey))

		var event eventbus.Event
		require.NoError(t, json.Unmarshal(msg.Payload, &event))
		assert.Equal(t, "o-1", event.Payload["orderId"])
	case <-time.After(2 * time.Second):
		t.Fatal("event was not published")
	}

	resp, body = s.do(t, http.MethodPost, "/api/v1/events/order_shipped", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", problemType(t, body))
}

func TestAPI_ListExecutions_EmptyIsArray(t *testing.T) {
	s := setupTestApp(t)
	created := createWorkflow(t, s, welcomeRequest())

	resp, body := s.do(t, http.MethodGet, "/api/v1/workflows/"+created.ID+"/executions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"executions":[]`)
}
