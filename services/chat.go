package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ssaemtalk/server/models"
	"github.com/ssaemtalk/server/store"
	"github.com/ssaemtalk/server/utils"
)

// CreateRoomInput names the other party of a new conversation.
type CreateRoomInput struct {
	ParticipantID uint `json:"participantId" binding:"required"`
}

// SendMessageInput is the body of a chat message.
type SendMessageInput struct {
	Content string `json:"content" binding:"required,max=1000"`
}

// ChatService implements two-party rooms and their messages.
type ChatService struct {
	st  store.Store
	hub *utils.RoomHub
}

// NewChatService creates a ChatService. hub may be nil, which disables room events.
func NewChatService(st store.Store, hub *utils.RoomHub) *ChatService {
	return &ChatService{st: st, hub: hub}
}

// ListRooms returns the user's rooms with participants, last message and unread count.
func (s *ChatService) ListRooms(ctx context.Context, userID uint) ([]*models.ChatRoom, error) {
	rooms, err := s.st.ListRooms(ctx, userID)
	if err != nil {
		return nil, utils.Internal(err)
	}
	ids := []uint{}
	for _, r := range rooms {
		ids = append(ids, r.UserLowID, r.UserHighID)
	}
	users, err := summaries(ctx, s.st, ids)
	if err != nil {
		return nil, err
	}
	for _, r := range rooms {
		if err := s.decorate(ctx, r, userID, users); err != nil {
			return nil, err
		}
	}
	return rooms, nil
}

func (s *ChatService) decorate(ctx context.Context, room *models.ChatRoom, userID uint, users map[uint]*models.UserSummary) error {
	room.Participants = []*models.UserSummary{}
	for _, id := range []uint{room.UserLowID, room.UserHighID} {
		if u := users[id]; u != nil {
			room.Participants = append(room.Participants, u)
		}
	}
	if room.LastMessageID != nil {
		msg, err := s.st.GetMessage(ctx, *room.LastMessageID)
		switch {
		case err == nil:
			msg.Sender = users[msg.SenderID]
			room.LastMessage = msg
		case !errors.Is(err, store.ErrNotFound):
			return utils.Internal(err)
		}
	}
	unread, err := s.st.CountUnread(ctx, room.ID, userID)
	if err != nil {
		return utils.Internal(err)
	}
	room.UnreadCount = unread
	return nil
}

// CreateRoom opens, or reuses, the room between userID and participantID.
// created is false when the pair already had a room.
func (s *ChatService) CreateRoom(ctx context.Context, userID, participantID uint) (room *models.ChatRoom, created bool, err error) {
	if participantID == userID {
		return nil, false, utils.BadRequest("자기 자신과는 채팅할 수 없습니다.")
	}
	if _, err := s.st.GetUser(ctx, participantID); err != nil {
		return nil, false, notFound(err, "상대방을 찾을 수 없습니다.")
	}

	room, err = s.st.FindRoom(ctx, userID, participantID)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		low, high := models.RoomPair(userID, participantID)
		room = &models.ChatRoom{UserLowID: low, UserHighID: high}
		err = s.st.CreateRoom(ctx, room)
		if errors.Is(err, store.ErrDuplicate) {
			// the other party created it first
			if room, err = s.st.FindRoom(ctx, userID, participantID); err != nil {
				return nil, false, utils.Internal(err)
			}
		} else if err != nil {
			return nil, false, utils.Internal(err)
		} else {
			created = true
		}
	default:
		return nil, false, utils.Internal(err)
	}

	users, err := summaries(ctx, s.st, []uint{room.UserLowID, room.UserHighID})
	if err != nil {
		return nil, false, err
	}
	if err := s.decorate(ctx, room, userID, users); err != nil {
		return nil, false, err
	}
	return room, created, nil
}

// memberRoom loads roomID and checks that userID takes part in it.
func (s *ChatService) memberRoom(ctx context.Context, roomID, userID uint) (*models.ChatRoom, error) {
	room, err := s.st.GetRoom(ctx, roomID)
	if err != nil {
		return nil, notFound(err, "채팅방을 찾을 수 없습니다.")
	}
	if !room.HasParticipant(userID) {
		return nil, utils.NewError(http.StatusForbidden, utils.CodeForbidden, "채팅방에 참여하지 않은 사용자입니다.")
	}
	return room, nil
}

// SendMessage stores a message and notifies the room's subscribers.
func (s *ChatService) SendMessage(ctx context.Context, roomID, userID uint, in SendMessageInput) (*models.ChatMessage, error) {
	if _, err := s.memberRoom(ctx, roomID, userID); err != nil {
		return nil, err
	}
	content := utils.Sanitize(in.Content)
	if content == "" {
		return nil, utils.BadRequest("메시지 내용을 입력해주세요.")
	}
	msg := &models.ChatMessage{RoomID: roomID, SenderID: userID, Content: content}
	if err := s.st.CreateMessage(ctx, msg); err != nil {
		return nil, notFound(err, "채팅방을 찾을 수 없습니다.")
	}
	users, err := summaries(ctx, s.st, []uint{userID})
	if err != nil {
		return nil, err
	}
	msg.Sender = users[userID]
	s.publish(ctx, utils.EventNewMessage, roomID, userID, msg)
	return msg, nil
}

// GetMessages marks the other party's messages read and returns the room history oldest first.
func (s *ChatService) GetMessages(ctx context.Context, roomID, userID uint) ([]*models.ChatMessage, error) {
	room, err := s.memberRoom(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.st.MarkRoomRead(ctx, roomID, userID); err != nil {
		return nil, utils.Internal(err)
	}
	msgs, err := s.st.ListMessages(ctx, roomID)
	if err != nil {
		return nil, utils.Internal(err)
	}
	users, err := summaries(ctx, s.st, []uint{room.UserLowID, room.UserHighID})
	if err != nil {
		return nil, err
	}
	for _, m := range msgs {
		m.Sender = users[m.SenderID]
	}
	return msgs, nil
}

// Join subscribes userID to the events of a room they take part in and announces them.
func (s *ChatService) Join(ctx context.Context, roomID, userID uint) (*utils.Subscription, error) {
	if s.hub == nil {
		return nil, utils.NewError(http.StatusServiceUnavailable, utils.CodeInternal, "실시간 채팅을 사용할 수 없습니다.")
	}
	if _, err := s.memberRoom(ctx, roomID, userID); err != nil {
		return nil, err
	}
	sub := s.hub.Subscribe(roomID)
	s.publish(ctx, utils.EventJoinRoom, roomID, userID, nil)
	return sub, nil
}

// Leave ends a subscription obtained from Join.
func (s *ChatService) Leave(ctx context.Context, sub *utils.Subscription, userID uint) {
	if s.hub == nil || sub == nil {
		return
	}
	s.hub.Unsubscribe(sub)
	s.publish(ctx, utils.EventLeaveRoom, sub.RoomID, userID, nil)
}

func (s *ChatService) publish(ctx context.Context, event string, roomID, userID uint, data interface{}) {
	if s.hub == nil {
		return
	}
	ev := utils.RoomEvent{Type: event, RoomID: roomID, UserID: userID}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			utils.Sugar.Warnf("chat: encode %s event: %v", event, err)
			return
		}
		ev.Data = raw
	}
	s.hub.Publish(ctx, ev)
}
