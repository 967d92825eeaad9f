package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/example/roomboard/internal/application"
	"github.com/example/roomboard/internal/engine"
	"github.com/example/roomboard/internal/persistence"
	"github.com/example/roomboard/internal/temporal"
)

type roomHandler struct {
	app *application.App
}

// roomStateResponse is the derived status DTO pushed to the dashboard.
type roomStateResponse struct {
	Room   string              `json:"room"`
	Status engine.Status       `json:"status"`
	Active *persistence.Record `json:"active,omitempty"`
	Next   *persistence.Record `json:"next,omitempty"`
	Date   string              `json:"date"`
	Time   string              `json:"time"`
}

func stateResponse(state engine.RoomState) roomStateResponse {
	resp := roomStateResponse{
		Room:   state.Room,
		Status: state.Status,
		Date:   state.At.Date.String(),
		Time:   temporal.FormatTime(state.At.Minutes),
	}
	if state.Active != nil {
		record := persistence.FromMeeting(*state.Active)
		resp.Active = &record
	}
	if state.Next != nil {
		record := persistence.FromMeeting(*state.Next)
		resp.Next = &record
	}
	return resp
}

func (h *roomHandler) list(c *gin.Context) {
	rooms := h.app.Rooms.Rooms()
	out := make([]gin.H, len(rooms))
	for i, room := range rooms {
		out[i] = gin.H{"key": room.Key, "name": room.DisplayName}
	}
	c.JSON(http.StatusOK, out)
}

func (h *roomHandler) statuses(c *gin.Context) {
	states := h.app.RoomStates()
	out := make([]roomStateResponse, len(states))
	for i, state := range states {
		out[i] = stateResponse(state)
	}
	c.JSON(http.StatusOK, out)
}

func (h *roomHandler) status(c *gin.Context) {
	state, err := h.app.RoomState(c.Param("key"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stateResponse(state))
}

func (h *roomHandler) getFilter(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"filter": h.app.Filter.Current()})
}

func (h *roomHandler) setFilter(c *gin.Context) {
	var req struct {
		Filter string `json:"filter"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "message": "malformed body"})
		return
	}
	if err := h.app.Filter.Set(req.Filter); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"filter": h.app.Filter.Current()})
}

func (h *roomHandler) unlock(c *gin.Context) {
	var req struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "message": "malformed body"})
		return
	}

	session, err := h.app.Gate.Unlock(req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "wrong password"})
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *roomHandler) lock(c *gin.Context) {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "message": "malformed body"})
		return
	}
	h.app.Gate.Lock(req.Token)
	c.Status(http.StatusNoContent)
}

func (h *roomHandler) light(c *gin.Context) {
	var req struct {
		On bool `json:"on"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "message": "malformed body"})
		return
	}
	if err := h.app.TriggerLight(c.Param("key"), req.On); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
