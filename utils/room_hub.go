package utils

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

const (
	roomChannelPrefix = "chat:room:"
	subscriberBuffer  = 16
)

// Chat event names.
const (
	EventNewMessage = "new-message"
	EventJoinRoom   = "join-room"
	EventLeaveRoom  = "leave-room"
)

// RoomEvent is a single real-time notification for one chat room.
type RoomEvent struct {
	Type   string          `json:"type"`
	RoomID uint            `json:"roomId"`
	UserID uint            `json:"userId,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Subscription receives the events of one room until it is cancelled.
type Subscription struct {
	RoomID uint
	C      <-chan RoomEvent
	ch     chan RoomEvent
}

// RoomHub fans chat events out to subscribers. With a Redis client events cross
// instances over Pub/Sub; without one they stay in process. Slow subscribers
// lose events rather than block senders.
type RoomHub struct {
	rc *redis.Client

	mu   sync.RWMutex
	subs map[uint]map[*Subscription]struct{}

	stopOnce sync.Once
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewRoomHub creates a hub; rc may be nil.
func NewRoomHub(rc *redis.Client) *RoomHub {
	return &RoomHub{
		rc:   rc,
		subs: map[uint]map[*Subscription]struct{}{},
		done: make(chan struct{}),
	}
}

// Start launches the Redis subscription loop. It is a no-op without Redis.
func (h *RoomHub) Start(ctx context.Context) {
	if h.rc == nil {
		close(h.done)
		return
	}
	ctx, h.cancel = context.WithCancel(ctx)
	pubsub := h.rc.PSubscribe(ctx, roomChannelPrefix+"*")
	go func() {
		defer close(h.done)
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev RoomEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					Sugar.Warnf("room hub: bad payload on %s: %v", msg.Channel, err)
					continue
				}
				if ev.RoomID == 0 {
					ev.RoomID = roomFromChannel(msg.Channel)
				}
				h.deliver(ev)
			}
		}
	}()
}

// Stop ends the subscription loop and closes every subscriber channel.
func (h *RoomHub) Stop() {
	h.stopOnce.Do(func() {
		if h.cancel != nil {
			h.cancel()
			<-h.done
		}
		h.mu.Lock()
		for _, set := range h.subs {
			for sub := range set {
				close(sub.ch)
			}
		}
		h.subs = map[uint]map[*Subscription]struct{}{}
		h.mu.Unlock()
	})
}

func roomFromChannel(channel string) uint {
	id, _ := strconv.ParseUint(strings.TrimPrefix(channel, roomChannelPrefix), 10, 64)
	return uint(id)
}

// Subscribe registers for events of roomID.
func (h *RoomHub) Subscribe(roomID uint) *Subscription {
	ch := make(chan RoomEvent, subscriberBuffer)
	sub := &Subscription{RoomID: roomID, C: ch, ch: ch}
	h.mu.Lock()
	set, ok := h.subs[roomID]
	if !ok {
		set = map[*Subscription]struct{}{}
		h.subs[roomID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Unsubscribe removes sub and closes its channel. Safe to call twice.
func (h *RoomHub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subs[sub.RoomID]
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.RoomID)
	}
	close(sub.ch)
}

// Subscribers reports how many local subscribers a room has.
func (h *RoomHub) Subscribers(roomID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[roomID])
}

// Publish sends ev to every subscriber of ev.RoomID on every instance.
func (h *RoomHub) Publish(ctx context.Context, ev RoomEvent) {
	if h.rc != nil {
		payload, err := json.Marshal(ev)
		if err == nil {
			err = h.rc.Publish(ctx, roomChannelPrefix+strconv.FormatUint(uint64(ev.RoomID), 10), payload).Err()
		}
		if err == nil {
			return
		}
		Sugar.Warnf("room hub: publish failed, delivering locally: %v", err)
	}
	h.deliver(ev)
}

func (h *RoomHub) deliver(ev RoomEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[ev.RoomID] {
		select {
		case sub.ch <- ev:
		default:
		}
	}
}
