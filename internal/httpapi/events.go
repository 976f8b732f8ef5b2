package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pwcal/internal/event"
	"pwcal/internal/models"
)

type createEventRequest struct {
	ProjectID    string    `json:"projectId" binding:"required"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Participants []string  `json:"participants"`
	Start        time.Time `json:"startTime"`
	End          time.Time `json:"endTime"`
	AllDay       bool      `json:"isAllDay"`
	CreatorEmail string    `json:"creatorEmail" binding:"required"`
}

type updateEventRequest struct {
	models.EventPatch
	UserEmail string `json:"userEmail" binding:"required"`
}

func (h *Handler) CreateEvent(c *gin.Context) {
	var in createEventRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	draft := models.EventDraft{
		ProjectID:    in.ProjectID,
		Title:        in.Title,
		Description:  in.Description,
		Participants: in.Participants,
		Start:        in.Start,
		End:          in.End,
		AllDay:       in.AllDay,
		CreatorEmail: in.CreatorEmail,
	}
	if draft.AllDay {
		draft.Start, draft.End = event.NormalizeAllDay(draft.Start, draft.End, h.location())
	}
	ev, err := h.Events.Create(c.Request.Context(), draft)
	if err != nil {
		h.failErr(c, err, "failed to create event")
		return
	}
	ok(c, ev)
}

func (h *Handler) GetEvent(c *gin.Context) {
	ev, err := h.Events.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.failErr(c, err, "failed to get event")
		return
	}
	ok(c, ev)
}

func (h *Handler) UpdateEvent(c *gin.Context) {
	var in updateEventRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	patch, err := h.normalizePatch(c, in.EventPatch)
	if err != nil {
		h.failErr(c, err, "failed to update event")
		return
	}
	done, err := h.Events.Update(c.Request.Context(), c.Param("id"), patch, in.UserEmail)
	if err != nil {
		h.failErr(c, err, "failed to update event")
		return
	}
	if !done {
		fail(c, http.StatusNotFound, "event not found")
		return
	}
	ok(c, nil)
}

// normalizePatch stretches the bounds to whole days when the event is, or
// becomes, all-day. Bounds missing from the patch come from the stored event.
func (h *Handler) normalizePatch(c *gin.Context, p models.EventPatch) (models.EventPatch, error) {
	markAllDay := p.AllDay != nil && *p.AllDay
	if p.Start == nil && p.End == nil && !markAllDay {
		return p, nil
	}
	ev, err := h.Events.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		return p, err
	}
	allDay := ev.AllDay
	if p.AllDay != nil {
		allDay = *p.AllDay
	}
	if !allDay {
		return p, nil
	}
	start, end := ev.Start, ev.End
	if p.Start != nil {
		start = *p.Start
	}
	if p.End != nil {
		end = *p.End
	}
	start, end = event.NormalizeAllDay(start, end, h.location())
	p.Start, p.End = &start, &end
	return p, nil
}

func (h *Handler) DeleteEvent(c *gin.Context) {
	var in struct {
		UserEmail string `json:"userEmail"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
	}
	if in.UserEmail == "" {
		in.UserEmail = c.Query("userEmail")
	}
	if in.UserEmail == "" {
		fail(c, http.StatusBadRequest, "userEmail is required")
		return
	}
	done, err := h.Events.SoftDelete(c.Request.Context(), c.Param("id"), in.UserEmail)
	if err != nil {
		h.failErr(c, err, "failed to delete event")
		return
	}
	if !done {
		fail(c, http.StatusNotFound, "event not found")
		return
	}
	ok(c, nil)
}

func (h *Handler) ListProjectEvents(c *gin.Context) {
	list, err := h.Events.ListByProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.failErr(c, err, "failed to list events")
		return
	}
	ok(c, list)
}

func (h *Handler) CalendarFeed(c *gin.Context) {
	ics, err := h.Calendar.Export(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.failErr(c, err, "failed to generate calendar")
		return
	}
	c.Header("Content-Disposition", "attachment; filename=calendar.ics")
	c.Data(http.StatusOK, "text/calendar", []byte(ics))
}
