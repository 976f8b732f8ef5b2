package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pwcal/internal/collab"
	"pwcal/internal/models"
)

func (h *Handler) CreateProject(c *gin.Context) {
	var draft collab.ProjectDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.Collab.CreateProject(c.Request.Context(), draft)
	if err != nil {
		h.failErr(c, err, "failed to create project")
		return
	}
	ok(c, p)
}

func (h *Handler) GetProject(c *gin.Context) {
	p, err := h.Collab.GetProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.failErr(c, err, "failed to get project")
		return
	}
	ok(c, p)
}

func (h *Handler) UpdateProject(c *gin.Context) {
	var patch models.ProjectPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.Collab.UpdateProject(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		h.failErr(c, err, "failed to update project")
		return
	}
	ok(c, p)
}

func (h *Handler) DeleteProject(c *gin.Context) {
	if err := h.Collab.DeleteProject(c.Request.Context(), c.Param("id")); err != nil {
		h.failErr(c, err, "failed to delete project")
		return
	}
	ok(c, nil)
}

func (h *Handler) ListUserProjects(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		fail(c, http.StatusBadRequest, "email is required")
		return
	}
	list, err := h.Collab.ListUserProjects(c.Request.Context(), email)
	if err != nil {
		h.failErr(c, err, "failed to list projects")
		return
	}
	if list == nil {
		list = []models.Project{}
	}
	ok(c, list)
}
