// Package ws fans live session events out to agencies watching a test.
package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const subscriberBuffer = 64

type WSMessage struct {
	Type   string      `json:"type"`
	TestID uint        `json:"test_id"`
	Data   interface{} `json:"data"`
	SentAt time.Time   `json:"sent_at"`
}

// Subscription receives the encoded messages of one test until it is closed.
type Subscription struct {
	ID     uuid.UUID
	TestID uint
	C      <-chan []byte

	send chan []byte
}

type Hub struct {
	mu    sync.RWMutex
	tests map[uint]map[uuid.UUID]*Subscription
}

func NewHub() *Hub {
	return &Hub{
		tests: make(map[uint]map[uuid.UUID]*Subscription),
	}
}

func (h *Hub) Subscribe(testID uint) *Subscription {
	send := make(chan []byte, subscriberBuffer)
	sub := &Subscription{ID: uuid.New(), TestID: testID, C: send, send: send}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.tests[testID] == nil {
		h.tests[testID] = make(map[uuid.UUID]*Subscription)
	}
	h.tests[testID][sub.ID] = sub
	log.Info().Uint("testID", testID).Str("subscriberID", sub.ID.String()).Int("total", len(h.tests[testID])).Msg("ws: subscriber connected")
	return sub
}

// Unsubscribe removes the subscription and closes its channel. Safe to call twice.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.tests[sub.TestID]
	if !ok {
		return
	}
	if _, ok := subs[sub.ID]; !ok {
		return
	}
	delete(subs, sub.ID)
	close(sub.send)
	if len(subs) == 0 {
		delete(h.tests, sub.TestID)
	}
	log.Info().Uint("testID", sub.TestID).Str("subscriberID", sub.ID.String()).Msg("ws: subscriber disconnected")
}

func (h *Hub) Subscribers(testID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.tests[testID])
}

// Publish never blocks: a subscriber whose buffer is full misses the message.
func (h *Hub) Publish(testID uint, eventType string, data interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	subs, ok := h.tests[testID]
	if !ok {
		return
	}

	payload, err := json.Marshal(WSMessage{Type: eventType, TestID: testID, Data: data, SentAt: time.Now().UTC()})
	if err != nil {
		log.Error().Err(err).Str("type", eventType).Msg("ws: marshal error")
		return
	}

	for _, sub := range subs {
		select {
		case sub.send <- payload:
		default:
			log.Warn().Uint("testID", testID).Str("subscriberID", sub.ID.String()).Str("type", eventType).Msg("ws: subscriber too slow, dropping message")
		}
	}
}
