package controllers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ssaemtalk/server/middleware"
	"github.com/ssaemtalk/server/services"
	"github.com/ssaemtalk/server/utils"
)

const sseHeartbeat = 25 * time.Second

// ChatController exposes rooms, messages and the room event stream.
type ChatController struct {
	chat *services.ChatService
}

// NewChatController creates a new ChatController instance.
func NewChatController(chat *services.ChatService) *ChatController {
	return &ChatController{chat: chat}
}

// ListRooms returns the caller's rooms with unread counts.
func (c *ChatController) ListRooms(ctx *gin.Context) {
	rooms, err := c.chat.ListRooms(ctx.Request.Context(), middleware.CurrentUserID(ctx))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, rooms)
}

// CreateRoom answers 201 for a new room and 200 when the pair already had one.
func (c *ChatController) CreateRoom(ctx *gin.Context) {
	var req services.CreateRoomInput
	if !bindJSON(ctx, &req) {
		return
	}
	room, created, err := c.chat.CreateRoom(ctx.Request.Context(), middleware.CurrentUserID(ctx), req.ParticipantID)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	if created {
		utils.Created(ctx, room)
		return
	}
	utils.Success(ctx, room)
}

// GetMessages returns the room history and marks it read.
func (c *ChatController) GetMessages(ctx *gin.Context) {
	roomID, ok := paramID(ctx, "roomId")
	if !ok {
		return
	}
	msgs, err := c.chat.GetMessages(ctx.Request.Context(), roomID, middleware.CurrentUserID(ctx))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, msgs)
}

// SendMessage posts a message to a room the caller belongs to.
func (c *ChatController) SendMessage(ctx *gin.Context) {
	roomID, ok := paramID(ctx, "roomId")
	if !ok {
		return
	}
	var req services.SendMessageInput
	if !bindJSON(ctx, &req) {
		return
	}
	msg, err := c.chat.SendMessage(ctx.Request.Context(), roomID, middleware.CurrentUserID(ctx), req)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Created(ctx, msg)
}

// Events streams room events as Server-Sent Events until the client goes away.
func (c *ChatController) Events(ctx *gin.Context) {
	roomID, ok := paramID(ctx, "roomId")
	if !ok {
		return
	}
	userID := middleware.CurrentUserID(ctx)
	sub, err := c.chat.Join(ctx.Request.Context(), roomID, userID)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	defer c.chat.Leave(context.Background(), sub, userID)

	// streams outlive any server write timeout
	_ = http.NewResponseController(ctx.Writer).SetWriteDeadline(time.Time{})
	ctx.Header("Content-Type", "text/event-stream")
	ctx.Header("Cache-Control", "no-cache")
	ctx.Header("Connection", "keep-alive")
	ctx.Header("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()
	done := ctx.Request.Context().Done()

	ctx.Stream(func(w io.Writer) bool {
		select {
		case <-done:
			return false
		case ev, ok := <-sub.C:
			if !ok {
				return false
			}
			ctx.SSEvent(ev.Type, ev)
			return true
		case <-heartbeat.C:
			ctx.SSEvent("ping", gin.H{"time": time.Now().Unix()})
			return true
		}
	})
}
