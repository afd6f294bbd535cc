package handler

import (
	"net/http"

	"servicehub/internal/middleware"
	"servicehub/internal/service"
	"servicehub/pkg/response"

	"github.com/gin-gonic/gin"
)

type ApprovalHandler struct {
	approvalService service.ApprovalService
}

func NewApprovalHandler(approvalService service.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{approvalService: approvalService}
}

func (h *ApprovalHandler) RegisterRoutes(router *gin.RouterGroup) {
	approvals := router.Group("/api/approvals", middleware.RequireAuth())
	{
		approvals.GET("/hierarchy/:user_id", h.GetHierarchy)
		approvals.GET("/pending", h.ListPending)
		approvals.POST("/task/:task_id/submit", h.SubmitTask)
		approvals.PUT("/task/:approval_id/process", h.ProcessTask)
		approvals.POST("/project/:project_id/submit", h.SubmitProject)
		approvals.PUT("/project/:approval_id/process", h.ProcessProject)
	}
}

// GetHierarchy resolves a user's chain of superiors for display before submission
// @Summary      Resolve approval hierarchy
// @Description  Returns the ordered superior chain for a user, level 1 being the direct superior. Capped at 4 levels.
// @Tags         approvals
// @Produce      json
// @Security     BearerAuth
// @Param        user_id  path      string  true  "User ID"
// @Success      200      {object}  response.Response{data=[]service.HierarchyLevel}
// @Failure      400      {object}  response.Response
// @Router       /api/approvals/hierarchy/{user_id} [get]
func (h *ApprovalHandler) GetHierarchy(c *gin.Context) {
	chain, err := h.approvalService.GetHierarchy(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		c.JSON(httpStatus(err), response.Error(err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(chain))
}

// ListPending returns the authenticated user's pending approvals (task + project)
// @Summary      List pending approvals
// @Tags         approvals
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]repository.PendingApprovalRow}
// @Router       /api/approvals/pending [get]
func (h *ApprovalHandler) ListPending(c *gin.Context) {
	userID := c.GetString("userID")

	rows, err := h.approvalService.ListPendingForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(httpStatus(err), response.Error(err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(rows))
}

// SubmitTask creates an approval workflow for a task
// @Summary      Submit a task for approval
// @Description  Resolves the approver chain, creates the workflow with one pending record per level, and moves the task to pending_approval. All-or-nothing.
// @Tags         approvals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        task_id  path      string                          true   "Task ID"
// @Param        payload  body      service.SubmitApprovalRequest   false  "Submission options"
// @Success      201      {object}  response.Response{data=service.SubmitApprovalResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/approvals/task/{task_id}/submit [post]
func (h *ApprovalHandler) SubmitTask(c *gin.Context) {
	var req service.SubmitApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, response.Error("Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.approvalService.SubmitTaskApproval(c.Request.Context(), c.Param("task_id"), c.GetString("userID"), req)
	if err != nil {
		c.JSON(httpStatus(err), response.Error(err.Error()))
		return
	}
	c.JSON(http.StatusCreated, response.Created("Task submitted for approval", result))
}

// ProcessTask applies an approve/reject action to a task approval record
// @Summary      Process a task approval
// @Description  The acting user must be the record's designated approver. Rejection terminates the workflow immediately; the final approval completes it.
// @Tags         approvals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        approval_id  path      string                           true  "Approval record ID"
// @Param        payload      body      service.ProcessApprovalRequest   true  "Action"
// @Success      200          {object}  response.Response{data=service.ProcessApprovalResponse}
// @Failure      400          {object}  response.Response
// @Failure      404          {object}  response.Response
// @Router       /api/approvals/task/{approval_id}/process [put]
func (h *ApprovalHandler) ProcessTask(c *gin.Context) {
	var req service.ProcessApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.approvalService.ProcessTaskApproval(c.Request.Context(), c.Param("approval_id"), c.GetString("userID"), req)
	if err != nil {
		c.JSON(httpStatus(err), response.Error(err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(result))
}

// SubmitProject creates an approval workflow for a project
// @Summary      Submit a project for approval
// @Tags         approvals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        project_id  path      string                          true   "Project ID"
// @Param        payload     body      service.SubmitApprovalRequest   false  "Submission options (may include budget_requested)"
// @Success      201         {object}  response.Response{data=service.SubmitApprovalResponse}
// @Failure      400         {object}  response.Response
// @Failure      404         {object}  response.Response
// @Router       /api/approvals/project/{project_id}/submit [post]
func (h *ApprovalHandler) SubmitProject(c *gin.Context) {
	var req service.SubmitApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, response.Error("Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.approvalService.SubmitProjectApproval(c.Request.Context(), c.Param("project_id"), c.GetString("userID"), req)
	if err != nil {
		c.JSON(httpStatus(err), response.Error(err.Error()))
		return
	}
	c.JSON(http.StatusCreated, response.Created("Project submitted for approval", result))
}

// ProcessProject applies an approve/reject action to a project approval record
// @Summary      Process a project approval
// @Tags         approvals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        approval_id  path      string                           true  "Approval record ID"
// @Param        payload      body      service.ProcessApprovalRequest   true  "Action"
// @Success      200          {object}  response.Response{data=service.ProcessApprovalResponse}
// @Failure      400          {object}  response.Response
// @Failure      404          {object}  response.Response
// @Router       /api/approvals/project/{approval_id}/process [put]
func (h *ApprovalHandler) ProcessProject(c *gin.Context) {
	var req service.ProcessApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.approvalService.ProcessProjectApproval(c.Request.Context(), c.Param("approval_id"), c.GetString("userID"), req)
	if err != nil {
		c.JSON(httpStatus(err), response.Error(err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(result))
}
