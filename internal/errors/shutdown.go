package errors

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// GracefulShutdownHandler runs registered hooks in reverse order when SIGINT
// or SIGTERM arrives. The CLI registers the cancel func of the operation
// context, so an interrupted backup still removes its temp files.
type GracefulShutdownHandler struct {
	mu      sync.Mutex
	hooks   []func() error
	signals chan os.Signal
	once    sync.Once
	errOut  io.Writer
}

func NewGracefulShutdownHandler() *GracefulShutdownHandler {
	return &GracefulShutdownHandler{
		signals: make(chan os.Signal, 1),
		errOut:  os.Stderr,
	}
}

// RegisterShutdownFunc adds a hook. Later hooks run first.
func (gsh *GracefulShutdownHandler) RegisterShutdownFunc(fn func() error) {
	gsh.mu.Lock()
	defer gsh.mu.Unlock()
	gsh.hooks = append(gsh.hooks, fn)
}

// Start listens for signals until Stop is called
func (gsh *GracefulShutdownHandler) Start() {
	signal.Notify(gsh.signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		if _, ok := <-gsh.signals; ok {
			gsh.shutdown()
		}
	}()
}

// Stop detaches from the signals without running the hooks
func (gsh *GracefulShutdownHandler) Stop() {
	gsh.once.Do(func() {
		signal.Stop(gsh.signals)
		close(gsh.signals)
	})
}

func (gsh *GracefulShutdownHandler) shutdown() {
	gsh.mu.Lock()
	hooks := append([]func() error(nil), gsh.hooks...)
	gsh.mu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i](); err != nil {
			fmt.Fprintf(gsh.errOut, "shutdown: %v\n", err)
		}
	}
}

// CreateContextWithTimeout returns a cancel-only context when timeout is not
// positive
func CreateContextWithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(context.Background(), timeout)
	}
	return context.WithCancel(context.Background())
}
