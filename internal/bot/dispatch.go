package bot

import (
	"context"
	"fmt"
	"sync"
)

// Dispatcher fans incoming messages out to one worker goroutine per chat,
// so messages from a single chat are handled strictly in arrival order
// while separate chats never block each other. It is safe for concurrent
// use. This implementation suits a single-instance deployment; a
// multi-instance deployment would need an external queue.
type Dispatcher struct {
	mu        sync.Mutex
	chats     map[int64]chan Message
	wg        sync.WaitGroup
	closeChan chan struct{}
	closed    bool

	buffer  int
	handler func(ctx context.Context, msg Message)
}

// NewDispatcher creates a Dispatcher. bufferSize determines how many
// messages per chat can be queued before Enqueue blocks.
func NewDispatcher(bufferSize int, handler func(ctx context.Context, msg Message)) *Dispatcher {
	return &Dispatcher{
		chats:     make(map[int64]chan Message),
		closeChan: make(chan struct{}),
		buffer:    bufferSize,
		handler:   handler,
	}
}

// Enqueue hands a message to its chat's worker, starting the worker on
// first contact with that chat.
func (d *Dispatcher) Enqueue(ctx context.Context, msg Message) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return fmt.Errorf("dispatcher is closed")
	}
	ch, ok := d.chats[msg.ChatID]
	if !ok {
		ch = make(chan Message, d.buffer)
		d.chats[msg.ChatID] = ch
		d.wg.Add(1)
		go d.worker(ctx, ch)
	}
	d.mu.Unlock()

	select {
	case ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-d.closeChan:
		return fmt.Errorf("dispatcher is closed")
	}
}

// worker drains one chat's queue in order.
func (d *Dispatcher) worker(ctx context.Context, ch chan Message) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.closeChan:
			return
		case msg := <-ch:
			d.handler(ctx, msg)
		}
	}
}

// Stop closes the dispatcher and waits for in-flight handlers to finish,
// or for ctx to expire.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.closeChan)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
