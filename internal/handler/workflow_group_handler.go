package handler

import (
	"net/http"

	"servicehub/internal/middleware"
	"servicehub/internal/service"
	"servicehub/pkg/pagination"
	"servicehub/pkg/response"

	"github.com/gin-gonic/gin"
)

type WorkflowGroupHandler struct {
	groupService service.WorkflowGroupService
}

func NewWorkflowGroupHandler(groupService service.WorkflowGroupService) *WorkflowGroupHandler {
	return &WorkflowGroupHandler{groupService: groupService}
}

func (h *WorkflowGroupHandler) RegisterRoutes(router *gin.RouterGroup) {
	groups := router.Group("/api/workflow-groups")
	{
		groups.GET("", middleware.RequireAuth(), h.ListGroups)
		groups.GET("/:id", middleware.RequireAuth(), h.GetGroup)
		groups.GET("/step-options", middleware.RequireAuth(), h.ListStepOptions)
		groups.POST("", middleware.RequireRole("admin", "manager"), h.CreateGroup)
		groups.PUT("/steps/:id", middleware.RequireRole("admin", "manager"), h.UpdateStep)
	}
}

// CreateGroup creates a workflow group with its ordered steps
// @Summary      Create a workflow group
// @Tags         workflow-groups
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateWorkflowGroupRequest  true  "Group definition"
// @Success      201      {object}  response.Response{data=model.WorkflowGroup}
// @Failure      400      {object}  response.Response
// @Router       /api/workflow-groups [post]
func (h *WorkflowGroupHandler) CreateGroup(c *gin.Context) {
	var req service.CreateWorkflowGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid request payload: "+err.Error()))
		return
	}

	group, err := h.groupService.CreateGroup(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		c.JSON(httpStatus(err), response.Error(err.Error()))
		return
	}
	c.JSON(http.StatusCreated, response.Created("Workflow group created", group))
}

func (h *WorkflowGroupHandler) GetGroup(c *gin.Context) {
	group, err := h.groupService.GetGroup(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(httpStatus(err), response.Error(err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(group))
}

func (h *WorkflowGroupHandler) ListGroups(c *gin.Context) {
	params := pagination.Parse(c)

	groups, total, err := h.groupService.ListGroups(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		c.JSON(httpStatus(err), response.Error(err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    groups,
		"total":   total,
		"page":    params.Page,
		"limit":   params.Limit,
	})
}

// UpdateStep changes a step definition. A type change revalidates the
// assigned value against the new type's options.
// @Summary      Update a workflow step
// @Tags         workflow-groups
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                             true  "Step ID"
// @Param        payload  body      service.UpdateWorkflowStepRequest  true  "Step changes"
// @Success      200      {object}  response.Response{data=model.WorkflowStep}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/workflow-groups/steps/{id} [put]
func (h *WorkflowGroupHandler) UpdateStep(c *gin.Context) {
	var req service.UpdateWorkflowStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid request payload: "+err.Error()))
		return
	}

	step, err := h.groupService.UpdateStep(c.Request.Context(), c.Param("id"), c.GetString("userID"), req)
	if err != nil {
		c.JSON(httpStatus(err), response.Error(err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(step))
}

// ListStepOptions returns the valid assigned-value choices for a step type
func (h *WorkflowGroupHandler) ListStepOptions(c *gin.Context) {
	stepType := c.Query("type")

	options, err := h.groupService.ListStepOptions(c.Request.Context(), stepType)
	if err != nil {
		c.JSON(httpStatus(err), response.Error(err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(options))
}
