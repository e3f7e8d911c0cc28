package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ownerdesk/ticket-engine/internal/api/dto"
	"github.com/ownerdesk/ticket-engine/internal/service"
)

// QueueHandler serves score-ordered work queues.
type QueueHandler struct {
	priority *service.PriorityService
}

// NewQueueHandler constructs handler.
func NewQueueHandler(priority *service.PriorityService) *QueueHandler {
	return &QueueHandler{priority: priority}
}

// MyWorkQueue GET /agents/me/work-queue?limit=.
func (h *QueueHandler) MyWorkQueue(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	queue, err := h.priority.WorkQueue(c.UserContext(), agent.ID, parseIntQuery(c, "limit", 0))
	if err != nil {
		return err
	}
	return ok(c, dto.WorkQueueResponse{
		AgentID:         queue.AgentID,
		NeedsAttention:  scoredResponse(queue.NeedsAttention),
		WaitingOnOthers: scoredResponse(queue.WaitingOnOthers),
		OnTrack:         scoredResponse(queue.OnTrack),
		Total:           queue.Total,
	})
}

// TeamQueue GET /teams/:id/queue?limit=.
func (h *QueueHandler) TeamQueue(c *fiber.Ctx) error {
	scored, err := h.priority.TeamQueue(c.UserContext(), c.Params("id"), parseIntQuery(c, "limit", 0))
	if err != nil {
		return err
	}
	return ok(c, scoredResponse(scored))
}
