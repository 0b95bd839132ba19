package api

import (
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/sicko7947/automation"
)

// Health reports liveness
func (a *API) Health(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// PublishEvent feeds a domain event to the engine, or to the event bus when
// a publisher is configured
func (a *API) PublishEvent(c fiber.Ctx) error {
	eventType := c.Params("type")

	payload := map[string]any{}
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&payload); err != nil {
			return badRequest(c, "Invalid event payload: "+err.Error())
		}
	}

	if a.events != nil {
		if err := a.events.Publish(c.Context(), eventType, payload); err != nil {
			return handleError(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(EventResponse{
			EventType: eventType,
			Queued:    true,
		})
	}

	execs, err := a.engine.OnEvent(c.Context(), eventType, payload)
	if err != nil {
		return handleError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(EventResponse{
		EventType:  eventType,
		Executions: execs,
	})
}

func (a *API) ListWorkflows(c fiber.Ctx) error {
	filter := automation.WorkflowFilter{}

	if s := c.Query("status"); s != "" {
		status := automation.WorkflowStatus(s)
		switch status {
		case automation.WorkflowStatusDraft, automation.WorkflowStatusActive, automation.WorkflowStatusPaused:
		default:
			return badRequest(c, "Invalid status: "+s)
		}
		filter.Status = &status
	}

	if s := c.Query("trigger"); s != "" {
		kind, err := automation.ParseTriggerKind(s)
		if err != nil {
			return badRequest(c, "Invalid trigger: "+s)
		}
		filter.Trigger = &kind
	}

	if s := c.Query("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 0 {
			return badRequest(c, "Invalid limit: "+s)
		}
		filter.Limit = limit
	}

	workflows, err := a.engine.ListWorkflows(c.Context(), filter)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(ListWorkflowsResponse{Workflows: workflows, Count: len(workflows)})
}

func (a *API) CreateWorkflow(c fiber.Ctx) error {
	var req WorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := a.validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	wf, err := a.engine.CreateWorkflow(c.Context(), req.toWorkflow(""))
	if err != nil {
		return handleError(c, err)
	}

	a.changed(c.Context())
	return c.Status(fiber.StatusCreated).JSON(wf)
}

func (a *API) GetWorkflow(c fiber.Ctx) error {
	wf, err := a.engine.GetWorkflow(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(wf)
}

func (a *API) UpdateWorkflow(c fiber.Ctx) error {
	var req WorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := a.validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	wf, err := a.engine.UpdateWorkflow(c.Context(), req.toWorkflow(c.Params("id")))
	if err != nil {
		return handleError(c, err)
	}

	a.changed(c.Context())
	return c.JSON(wf)
}

func (a *API) ActivateWorkflow(c fiber.Ctx) error {
	wf, err := a.engine.Activate(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	a.changed(c.Context())
	return c.JSON(wf)
}

func (a *API) PauseWorkflow(c fiber.Ctx) error {
	wf, err := a.engine.Pause(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	a.changed(c.Context())
	return c.JSON(wf)
}

// TestWorkflow dry-runs a workflow against a sample payload
func (a *API) TestWorkflow(c fiber.Ctx) error {
	var req TestRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid request body: "+err.Error())
		}
	}

	wf, err := a.engine.GetWorkflow(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	exec, err := a.engine.Test(c.Context(), wf, req.Payload)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(exec)
}

func (a *API) ListExecutions(c fiber.Ctx) error {
	id := c.Params("id")

	limit := 0
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return badRequest(c, "Invalid limit: "+s)
		}
		limit = n
	}

	if _, err := a.engine.GetWorkflow(c.Context(), id); err != nil {
		return handleError(c, err)
	}

	execs, err := a.engine.ListExecutions(c.Context(), id, limit)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(ListExecutionsResponse{Executions: execs, Count: len(execs)})
}

func (a *API) WorkflowStats(c fiber.Ctx) error {
	stats, err := a.engine.Stats(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(stats)
}

func (a *API) GetExecution(c fiber.Ctx) error {
	exec, err := a.engine.GetExecution(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(exec)
}
