package events

import (
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/slotbooking/internal/domain/entities"
)

const subscriberBuffer = 100

// hub tracks local subscriber streams per channel. Both buses deliver through it.
type hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan *entities.BookingEvent]struct{}
	closed      bool
}

func newHub() *hub {
	return &hub{subscribers: make(map[string]map[chan *entities.BookingEvent]struct{})}
}

// add registers a new stream on channel. first is true when the channel had no
// subscribers before. A closed hub returns an already closed stream.
func (h *hub) add(channel string) (stream chan *entities.BookingEvent, first bool) {
	stream = make(chan *entities.BookingEvent, subscriberBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(stream)
		return stream, false
	}
	if h.subscribers[channel] == nil {
		h.subscribers[channel] = make(map[chan *entities.BookingEvent]struct{})
		first = true
	}
	h.subscribers[channel][stream] = struct{}{}
	return stream, first
}

// remove closes stream. last is true when channel has no subscribers left.
func (h *hub) remove(channel string, stream chan *entities.BookingEvent) (last bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subscribers[channel][stream]; !ok {
		return false
	}
	delete(h.subscribers[channel], stream)
	close(stream)
	if len(h.subscribers[channel]) == 0 {
		delete(h.subscribers, channel)
		return true
	}
	return false
}

// deliver hands event to every stream on channel without blocking; a full
// stream drops the event
func (h *hub) deliver(channel string, event *entities.BookingEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for stream := range h.subscribers[channel] {
		select {
		case stream <- event:
		default:
			log.Warn().Str("channel", channel).Str("event_id", event.ID).Msg("subscriber stream full, dropping event")
		}
	}
}

func (h *hub) count(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[channel])
}

// close ends every stream; later add calls get closed streams
func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for channel, streams := range h.subscribers {
		for stream := range streams {
			close(stream)
		}
		delete(h.subscribers, channel)
	}
	h.closed = true
}
