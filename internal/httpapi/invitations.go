package httpapi

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"pwcal/internal/invitation"
)

// Redirect outcomes for the e-mail action links.
const (
	outcomeAccepted = "accepted"
	outcomeRejected = "rejected"
	outcomeFailed   = "failed"
	outcomeError    = "error"
)

func (h *Handler) Invite(c *gin.Context) {
	var input struct {
		InviteeEmail string `json:"inviteeEmail" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	inv, err := h.Collab.Invite(c.Request.Context(), c.Param("id"), input.InviteeEmail)
	if errors.Is(err, invitation.ErrNotificationFailed) {
		c.JSON(http.StatusOK, envelope{Success: true, Message: "invitation created but the notification could not be sent", Data: inv})
		return
	}
	if err != nil {
		h.failErr(c, err, "failed to send invitation")
		return
	}
	ok(c, inv)
}

func (h *Handler) ReconcileEditors(c *gin.Context) {
	var input struct {
		Editors []string `json:"editors"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	r, err := h.Collab.ReconcileEditors(c.Request.Context(), c.Param("id"), input.Editors)
	if err != nil {
		h.failErr(c, err, "failed to update editors")
		return
	}
	ok(c, r)
}

func (h *Handler) ProjectInvitations(c *gin.Context) {
	list, err := h.Collab.ProjectInvitations(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.failErr(c, err, "failed to list invitations")
		return
	}
	ok(c, list)
}

func (h *Handler) UserInvitations(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		fail(c, http.StatusBadRequest, "email is required")
		return
	}
	list, err := h.Collab.PendingInvitations(c.Request.Context(), email)
	if err != nil {
		h.failErr(c, err, "failed to list invitations")
		return
	}
	ok(c, list)
}

func (h *Handler) HandleInvitation(c *gin.Context) {
	var input struct {
		Accept *bool `json:"accept" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	decision := invitation.Reject
	if *input.Accept {
		decision = invitation.Accept
	}
	done, err := h.Collab.Respond(c.Request.Context(), c.Param("id"), decision)
	if err != nil {
		h.failErr(c, err, "failed to handle invitation")
		return
	}
	if !done {
		fail(c, http.StatusBadRequest, "invitation is not pending or has expired")
		return
	}
	ok(c, nil)
}

func (h *Handler) AcceptLink(c *gin.Context) {
	h.resolveLink(c, invitation.Accept, outcomeAccepted)
}

func (h *Handler) RejectLink(c *gin.Context) {
	h.resolveLink(c, invitation.Reject, outcomeRejected)
}

func (h *Handler) resolveLink(c *gin.Context, d invitation.Decision, success string) {
	done, err := h.Collab.Respond(c.Request.Context(), c.Param("id"), d)
	switch {
	case err != nil:
		h.logger().ErrorContext(c.Request.Context(), "Failed to resolve invitation link", "invitationID", c.Param("id"), "decision", d, "error", err)
		h.redirect(c, outcomeError)
	case !done:
		h.redirect(c, outcomeFailed)
	default:
		h.redirect(c, success)
	}
}

func (h *Handler) redirect(c *gin.Context, outcome string) {
	base := h.RedirectBase
	if base == "" {
		base = DefaultRedirectBase
	}
	c.Redirect(http.StatusFound, base+"?invitation="+url.QueryEscape(outcome))
}
