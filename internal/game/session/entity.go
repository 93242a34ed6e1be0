// Package session tracks connected users, the record each one is viewing, and
// the outbound line queue feeding their connection.
package session

import (
	"fmt"
	"sync"
)

// Outbox queues lines for one user's connection writer.
type Outbox struct {
	uid    string
	lines  chan string
	mu     sync.Mutex
	closed bool
}

// NewOutbox creates an Outbox for the given user id.
//
// Precondition: uid must be non-empty.
// Postcondition: Returns an Outbox with an open lines channel.
func NewOutbox(uid string, bufferSize int) *Outbox {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Outbox{
		uid:   uid,
		lines: make(chan string, bufferSize),
	}
}

// UID returns the owning user's id.
func (o *Outbox) UID() string {
	return o.uid
}

// Push enqueues a line without blocking.
//
// Postcondition: The line is enqueued, or an error if the outbox is closed or full.
func (o *Outbox) Push(line string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return fmt.Errorf("outbox %s is closed", o.uid)
	}
	select {
	case o.lines <- line:
		return nil
	default:
		return fmt.Errorf("outbox %s buffer full", o.uid)
	}
}

// Lines returns the read-only lines channel drained by the connection writer.
func (o *Outbox) Lines() <-chan string {
	return o.lines
}

// Close marks the outbox as closed and closes the lines channel.
//
// Postcondition: The lines channel is closed. Further Push calls return an error.
func (o *Outbox) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.closed {
		o.closed = true
		close(o.lines)
	}
	return nil
}

// IsClosed reports whether the outbox has been closed.
func (o *Outbox) IsClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}
