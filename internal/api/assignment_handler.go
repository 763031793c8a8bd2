package api

import (
	"alcyxob/plan-tracker/internal/domain"
	"alcyxob/plan-tracker/internal/service"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type AssignmentHandler struct {
	assignmentService service.AssignmentService
	progressService   service.ProgressService
}

func NewAssignmentHandler(assignmentService service.AssignmentService, progressService service.ProgressService) *AssignmentHandler {
	return &AssignmentHandler{assignmentService: assignmentService, progressService: progressService}
}

// --- DTOs ---

type CreateAssignmentRequest struct {
	ClientID string     `json:"clientId" binding:"required"`
	DueDate  *time.Time `json:"dueDate"`
}

type AdvanceStatusRequest struct {
	Status domain.AssignmentStatus `json:"status" binding:"required,oneof=not_started in_progress completed"`
}

// AssignmentProgressResponse is the summary plus the individual records.
type AssignmentProgressResponse struct {
	domain.ProgressSummary
	Records []domain.ProgressRecord `json:"records"`
}

// --- Handler Methods ---

// CreateAssignment handles POST /plans/:planId/assignments. A repeat for the
// same plan and client returns the existing assignment with 200.
func (h *AssignmentHandler) CreateAssignment(c *gin.Context) {
	who, ok := mustIdentity(c)
	if !ok {
		return
	}
	var req CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	a, created, err := h.assignmentService.CreateAssignment(c.Request.Context(), who, c.Param("planId"), req.ClientID, service.AssignOptions{DueDate: req.DueDate})
	if err != nil {
		respondError(c, err)
		return
	}
	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	c.JSON(code, a)
}

// ListAssignments handles GET /assignments?planId=.
func (h *AssignmentHandler) ListAssignments(c *gin.Context) {
	who, ok := mustIdentity(c)
	if !ok {
		return
	}
	list, err := h.assignmentService.ListAssignments(c.Request.Context(), who, c.Query("planId"))
	if err != nil {
		respondError(c, err)
		return
	}
	if list == nil {
		list = []domain.Assignment{}
	}
	c.JSON(http.StatusOK, list)
}

// AdvanceStatus handles POST /assignments/:assignmentId/status.
func (h *AssignmentHandler) AdvanceStatus(c *gin.Context) {
	who, ok := mustIdentity(c)
	if !ok {
		return
	}
	var req AdvanceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	a, err := h.assignmentService.AdvanceStatus(c.Request.Context(), who, c.Param("assignmentId"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// Withdraw handles POST /assignments/:assignmentId/withdraw.
func (h *AssignmentHandler) Withdraw(c *gin.Context) {
	who, ok := mustIdentity(c)
	if !ok {
		return
	}
	a, err := h.assignmentService.Withdraw(c.Request.Context(), who, c.Param("assignmentId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// GetProgress handles GET /assignments/:assignmentId/progress.
func (h *AssignmentHandler) GetProgress(c *gin.Context) {
	who, ok := mustIdentity(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	id := c.Param("assignmentId")
	summary, err := h.progressService.GetProgressSummary(ctx, who, id)
	if err != nil {
		respondError(c, err)
		return
	}
	records, err := h.progressService.ListRecords(ctx, who, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, AssignmentProgressResponse{ProgressSummary: *summary, Records: records})
}
