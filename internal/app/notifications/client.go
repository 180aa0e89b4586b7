package notifications

// there is no delivery guarantee here, the feed only mirrors transcription
// lifecycle to whoever is watching (logs, ws clients). slow subscribers lose
// events instead of blocking the adapter.

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Stage string

const (
	StageStarted   Stage = "started"
	StageCompleted Stage = "completed"
	StageFailed    Stage = "failed"
)

type Event struct {
	Stage   Stage     `json:"stage"`
	Source  string    `json:"source"`
	Message string    `json:"message,omitempty"`
	At      time.Time `json:"at"`
}

type Client struct {
	subscribers map[string]chan Event

	lock sync.Mutex
}

func New() *Client {
	return &Client{
		subscribers: make(map[string]chan Event),
	}
}

func (c *Client) Publish(event Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	for _, sub := range c.subscribers {
		select {
		case sub <- event:
		default:
		}
	}
}

// Subscribe returns a buffered event channel. The channel closes when ctx is
// done or unsub is called.
func (c *Client) Subscribe(ctx context.Context) (<-chan Event, func()) {
	events := make(chan Event, 16)
	id := uuid.NewString()

	c.lock.Lock()
	c.subscribers[id] = events
	c.lock.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			c.lock.Lock()
			delete(c.subscribers, id)
			c.lock.Unlock()

			close(events)
		})
	}

	go func() {
		<-ctx.Done()
		unsub()
	}()

	return events, unsub
}
