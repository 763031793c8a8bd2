package api

import (
	"alcyxob/plan-tracker/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ClientHandler serves the assignee's own endpoints.
type ClientHandler struct {
	assignmentService service.AssignmentService
	progressService   service.ProgressService
}

func NewClientHandler(assignmentService service.AssignmentService, progressService service.ProgressService) *ClientHandler {
	return &ClientHandler{assignmentService: assignmentService, progressService: progressService}
}

// GetMyAssignments handles GET /client/assignments.
func (h *ClientHandler) GetMyAssignments(c *gin.Context) {
	who, ok := mustIdentity(c)
	if !ok {
		return
	}
	list, err := h.assignmentService.ListForClient(c.Request.Context(), who)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// CompleteStep handles POST /client/assignments/:assignmentId/steps/:stepId/complete.
// Repeats return the first record.
func (h *ClientHandler) CompleteStep(c *gin.Context) {
	who, ok := mustIdentity(c)
	if !ok {
		return
	}
	rec, err := h.progressService.MarkStepComplete(c.Request.Context(), who, c.Param("assignmentId"), c.Param("stepId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}
