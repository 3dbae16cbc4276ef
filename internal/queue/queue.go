// Package queue serializes generation requests onto a single worker so that
// only one beam search occupies the model at a time.
package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"legalsum/internal/summarizer"
)

var (
	ErrStopped   = errors.New("generation queue is stopped")
	ErrQueueFull = errors.New("generation queue is full")
)

type request struct {
	ctx      context.Context
	input    summarizer.Input
	enqueued time.Time
	response chan response
}

type response struct {
	result summarizer.Result
	err    error
}

// Queue implements summarizer.Summarizer on top of another Summarizer.
type Queue struct {
	next    summarizer.Summarizer
	queue   chan request
	timeout time.Duration
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
	log     *slog.Logger
}

// New starts the worker. A positive timeout bounds every generation call.
func New(
	next summarizer.Summarizer,
	size int,
	timeout time.Duration,
	log *slog.Logger,
) *Queue {
	ctx, cancel := context.WithCancel(context.Background())

	q := &Queue{
		next:    next,
		queue:   make(chan request, max(size, 1)),
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		log:     log,
	}

	go q.processQueue()

	return q
}

// Summarize waits for the worker to run the generation. It gives up when ctx
// is cancelled, either while queued or while the generation is running.
func (q *Queue) Summarize(
	ctx context.Context,
	input summarizer.Input,
) (summarizer.Result, error) {
	req := request{
		ctx:      ctx,
		input:    input,
		enqueued: time.Now(),
		response: make(chan response, 1),
	}

	select {
	case <-q.ctx.Done():
		return summarizer.Result{}, ErrStopped
	default:
	}

	select {
	case q.queue <- req:
	case <-q.ctx.Done():
		return summarizer.Result{}, ErrStopped
	case <-ctx.Done():
		return summarizer.Result{}, ctx.Err()
	default:
		return summarizer.Result{}, ErrQueueFull
	}

	select {
	case resp := <-req.response:
		return resp.result, resp.err
	case <-ctx.Done():
		return summarizer.Result{}, ctx.Err()
	case <-q.done:
		select {
		case resp := <-req.response:
			return resp.result, resp.err
		default:
			return summarizer.Result{}, ErrStopped
		}
	}
}

// Len reports how many requests wait for the worker.
func (q *Queue) Len() int {
	return len(q.queue)
}

// Stop cancels the running generation, fails every queued request with
// ErrStopped and waits for the worker to exit.
func (q *Queue) Stop() {
	q.once.Do(q.cancel)
	<-q.done
}

func (q *Queue) processQueue() {
	defer close(q.done)

	for {
		select {
		case req := <-q.queue:
			q.handleRequest(req)
		case <-q.ctx.Done():
			for {
				select {
				case req := <-q.queue:
					req.response <- response{err: ErrStopped}
				default:
					return
				}
			}
		}
	}
}

func (q *Queue) handleRequest(req request) {
	if err := req.ctx.Err(); err != nil {
		q.log.DebugContext(req.ctx, "Skipping cancelled generation request",
			"error", err,
			"waited", time.Since(req.enqueued))

		req.response <- response{err: err}

		return
	}

	ctx, cancel := context.WithCancel(req.ctx)
	defer cancel()

	stop := context.AfterFunc(q.ctx, cancel)
	defer stop()

	if q.timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, q.timeout)
		defer cancelTimeout()
	}

	q.log.DebugContext(ctx, "Running generation",
		"waited", time.Since(req.enqueued),
		"queueLen", len(q.queue),
		"textLength", utf8.RuneCountInString(req.input.Text))

	result, err := q.next.Summarize(ctx, req.input)
	if err != nil && q.ctx.Err() != nil && req.ctx.Err() == nil {
		err = ErrStopped
	}

	req.response <- response{
		result: result,
		err:    err,
	}
}
