package pipeline

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"go.viam.com/coordmap/capture"
)

// ErrInboxClosed is returned by Take once the inbox is closed and empty.
var ErrInboxClosed = errors.New("inbox closed")

type pending struct {
	fs      *capture.FrameSet
	release func()
}

// Inbox hands frame sets from the capture side to the single processing worker. It holds at most
// one frame set: a Put over an unconsumed frame set releases the old one and counts a drop, so
// the worker always picks up the newest frame.
type Inbox struct {
	mu     sync.Mutex
	cond   *sync.Cond
	frame  *pending
	closed bool
	drops  atomic.Uint64
}

// NewInbox returns an empty inbox.
func NewInbox() *Inbox {
	inbox := &Inbox{}
	inbox.cond = sync.NewCond(&inbox.mu)
	return inbox
}

// Put stores fs, replacing anything not yet taken. It never blocks. After Close the frame set is
// released immediately.
func (in *Inbox) Put(fs *capture.FrameSet, release func()) {
	if release == nil {
		release = func() {}
	}
	in.mu.Lock()
	if in.closed {
		in.mu.Unlock()
		release()
		return
	}
	old := in.frame
	in.frame = &pending{fs: fs, release: release}
	in.cond.Signal()
	in.mu.Unlock()

	if old != nil {
		in.drops.Inc()
		old.release()
	}
}

// Take blocks until a frame set is available, ctx is done, or the inbox is closed.
func (in *Inbox) Take(ctx context.Context) (*capture.FrameSet, func(), error) {
	stop := context.AfterFunc(ctx, func() {
		in.mu.Lock()
		in.cond.Broadcast()
		in.mu.Unlock()
	})
	defer stop()

	in.mu.Lock()
	defer in.mu.Unlock()
	for in.frame == nil {
		if in.closed {
			return nil, nil, ErrInboxClosed
		}
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		in.cond.Wait()
	}
	p := in.frame
	in.frame = nil
	return p.fs, p.release, nil
}

// Drops is the number of frame sets overwritten before they were taken.
func (in *Inbox) Drops() uint64 {
	return in.drops.Load()
}

// Close releases any pending frame set and wakes blocked takers.
func (in *Inbox) Close() {
	in.mu.Lock()
	p := in.frame
	in.frame = nil
	in.closed = true
	in.cond.Broadcast()
	in.mu.Unlock()

	if p != nil {
		p.release()
	}
}
