package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/example/roomboard/internal/application"
	"github.com/example/roomboard/internal/persistence"
	"github.com/example/roomboard/internal/store"
	"github.com/example/roomboard/internal/temporal"
)

type meetingHandler struct {
	app *application.App
}

// bookingRequest is the JSON booking form; the workflow re-validates every
// field, so binding stays permissive.
type bookingRequest struct {
	Room        string `json:"room"`
	Date        string `json:"date"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	Purpose     string `json:"purpose"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	Description string `json:"description"`
	Department  string `json:"department"`
	Organizer   string `json:"organizer"`
}

func (r bookingRequest) input() application.BookingInput {
	return application.BookingInput{
		Room:        r.Room,
		Date:        r.Date,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		Purpose:     r.Purpose,
		Title:       r.Title,
		Content:     r.Content,
		Description: r.Description,
		Department:  r.Department,
		Organizer:   r.Organizer,
	}
}

func (h *meetingHandler) list(c *gin.Context) {
	filter := store.Filter{Room: c.Query("room")}
	if raw := c.Query("date"); raw != "" {
		date, err := temporal.ParseDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "message": "invalid date"})
			return
		}
		filter.Date = &date
	}

	meetings := h.app.Store.List(filter)
	out := make([]persistence.Record, len(meetings))
	for i, m := range meetings {
		out[i] = persistence.FromMeeting(m)
	}
	c.JSON(http.StatusOK, out)
}

func (h *meetingHandler) get(c *gin.Context) {
	m, err := h.app.Store.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, persistence.FromMeeting(m))
}

func (h *meetingHandler) create(c *gin.Context) {
	var req bookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "message": "malformed body"})
		return
	}

	booked, err := h.app.Booking.Create(c.Request.Context(), req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, persistence.FromMeeting(booked))
}

func (h *meetingHandler) update(c *gin.Context) {
	var req bookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "message": "malformed body"})
		return
	}

	updated, err := h.app.Booking.Update(c.Request.Context(), c.Param("id"), req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, persistence.FromMeeting(updated))
}

func (h *meetingHandler) remove(c *gin.Context) {
	if err := h.app.Booking.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *meetingHandler) forceEnd(c *gin.Context) {
	if err := h.app.Booking.ForceEnd(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	m, err := h.app.Store.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, persistence.FromMeeting(m))
}

func (h *meetingHandler) refresh(c *gin.Context) {
	if err := h.app.Reload(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"loaded": h.app.Store.Len()})
}
