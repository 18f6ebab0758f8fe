package network

import (
	"sync"

	"github.com/google/uuid"
)

// Channel is the outbound queue of one connection. Send never blocks: a
// full or closed channel drops the frame and reports false.
type Channel struct {
	ID     string
	frames chan []byte
	closed bool
	mutex  sync.Mutex
}

func NewChannel(buffer int) *Channel {
	if buffer < 1 {
		buffer = 1
	}
	return &Channel{
		ID:     uuid.NewString(),
		frames: make(chan []byte, buffer),
	}
}

func (c *Channel) Send(frame []byte) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.frames <- frame:
		return true
	default:
		return false
	}
}

// Frames is drained by the connection's writer.
func (c *Channel) Frames() <-chan []byte {
	return c.frames
}

// Close stops delivery. Frames already queued can still be drained.
func (c *Channel) Close() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.closed {
		c.closed = true
		close(c.frames)
	}
}

func (c *Channel) Closed() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.closed
}
