package api

import (
	"alcyxob/plan-tracker/internal/auth"
	"alcyxob/plan-tracker/internal/domain"
	"alcyxob/plan-tracker/internal/service"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type PlanHandler struct {
	planService     service.PlanService
	progressService service.ProgressService
	maxUploadBytes  int64
}

func NewPlanHandler(planService service.PlanService, progressService service.ProgressService, maxUploadBytes int64) *PlanHandler {
	return &PlanHandler{planService: planService, progressService: progressService, maxUploadBytes: maxUploadBytes}
}

// --- DTOs ---

type CreatePlanRequest struct {
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Published   bool     `json:"published"`
	// CoachID lets an admin create a plan on a coach's behalf.
	CoachID string `json:"coachId"`
}

type UpdatePlanRequest struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Tags        *[]string `json:"tags"`
	Published   *bool     `json:"published"`
}

type StepRequest struct {
	Title           string  `json:"title" binding:"required"`
	Instruction     string  `json:"instruction"`
	NarrationText   string  `json:"narrationText"`
	DurationMinutes *int    `json:"durationMinutes" binding:"omitempty,min=0"`
	MediaURL        *string `json:"mediaUrl" binding:"omitempty,url"`
	Order           *int    `json:"order"`
}

type UpdateStepRequest struct {
	Title           *string `json:"title"`
	Instruction     *string `json:"instruction"`
	NarrationText   *string `json:"narrationText"`
	DurationMinutes *int    `json:"durationMinutes" binding:"omitempty,min=0"`
	MediaURL        *string `json:"mediaUrl" binding:"omitempty,url"`
	Order           *int    `json:"order"`
}

// --- Handler Methods ---

// CreatePlan handles POST /plans.
func (h *PlanHandler) CreatePlan(c *gin.Context) {
	who, ok := mustIdentity(c)
	if !ok {
		return
	}
	var req CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	coachID := who.UserID
	if req.CoachID != "" && req.CoachID != who.UserID {
		if !who.IsAdmin() {
			abortWithError(c, http.StatusForbidden, "Only admins may create plans for another coach")
			return
		}
		coachID = req.CoachID
	}

	plan, err := h.planService.CreatePlan(c.Request.Context(), coachID, service.PlanInput{
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
		Published:   req.Published,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, plan)
}

// ListPlans handles GET /plans.
func (h *PlanHandler) ListPlans(c *gin.Context) {
	who, ok := mustIdentity(c)
	if !ok {
		return
	}
	plans, err := h.planService.ListPlans(c.Request.Context(), who)
	if err != nil {
		respondError(c, err)
		return
	}
	if plans == nil {
		plans = []domain.Plan{}
	}
	c.JSON(http.StatusOK, plans)
}

// GetPlan handles GET /plans/:planId. Drafts are only visible to their
// owner and admins; everyone else gets 404.
func (h *PlanHandler) GetPlan(c *gin.Context) {
	who, ok := mustIdentity(c)
	if !ok {
		return
	}
	plan, err := h.planService.GetPlan(c.Request.Context(), c.Param("planId"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !plan.Published && !auth.AuthorizeOwnership(who.Role, who.UserID, plan.CoachID) {
		respondError(c, service.ErrPlanNotFound)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// UpdatePlan handles PATCH /plans/:planId.
func (h *PlanHandler) UpdatePlan(c *gin.Context) {
	who, ok := mustIdentity(c)
	if !ok {
		return
	}
	var req UpdatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	plan, err := h.planService.UpdatePlan(c.Request.Context(), who, c.Param("planId"), service.PlanPatch{
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
		Published:   req.Published,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// AddStep handles POST /plans/:planId/steps.
func (h *PlanHandler) AddStep(c *gin.Context) {
	who, ok := mustIdentity(c)
	if !ok {
		return
	}
	var req StepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	step, err := h.planService.AddStep(c.Request.Context(), who, c.Param("planId"), service.StepInput{
		Title:           req.Title,
		Instruction:     req.Instruction,
		NarrationText:   req.NarrationText,
		DurationMinutes: req.DurationMinutes,
		MediaURL:        req.MediaURL,
		Order:           req.Order,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, step)
}

// UpdateStep handles PATCH /plans/:planId/steps/:stepId.
func (h *PlanHandler) UpdateStep(c *gin.Context) {
	who, ok := mustIdentity(c)
	if !ok {
		return
	}
	var req UpdateStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	step, err := h.planService.UpdateStep(c.Request.Context(), who, c.Param("planId"), c.Param("stepId"), service.StepPatch{
		Title:           req.Title,
		Instruction:     req.Instruction,
		NarrationText:   req.NarrationText,
		DurationMinutes: req.DurationMinutes,
		MediaURL:        req.MediaURL,
		Order:           req.Order,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, step)
}

// DeleteStep handles DELETE /plans/:planId/steps/:stepId.
func (h *PlanHandler) DeleteStep(c *gin.Context) {
	who, ok := mustIdentity(c)
	if !ok {
		return
	}
	if err := h.planService.DeleteStep(c.Request.Context(), who, c.Param("planId"), c.Param("stepId")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadStepMedia handles POST /plans/:planId/steps/:stepId/media with a
// multipart "file" field.
func (h *PlanHandler) UploadStepMedia(c *gin.Context) {
	who, ok := mustIdentity(c)
	if !ok {
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Multipart field 'file' is required")
		return
	}
	if h.maxUploadBytes > 0 && header.Size > h.maxUploadBytes {
		abortWithError(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("File exceeds %d bytes", h.maxUploadBytes))
		return
	}
	file, err := header.Open()
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Could not read uploaded file")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || strings.HasPrefix(contentType, "application/octet-stream") {
		contentType = c.PostForm("contentType")
	}

	step, err := h.planService.AttachStepMedia(c.Request.Context(), who, c.Param("planId"), c.Param("stepId"), service.MediaUpload{
		FileName:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, step)
}

// GetPlanProgress handles GET /plans/:planId/progress.
func (h *PlanHandler) GetPlanProgress(c *gin.Context) {
	who, ok := mustIdentity(c)
	if !ok {
		return
	}
	rows, err := h.progressService.PlanProgress(c.Request.Context(), who, c.Param("planId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}
