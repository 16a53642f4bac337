// Package persist sends optimistic order changes to the store in the
// background and reports how each one went.
package persist

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"postboard/models"
)

var (
	orderSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postboard_order_submissions_total",
		Help: "Order submissions by result",
	}, []string{"result"})

	ordersInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "postboard_order_submissions_in_flight",
		Help: "Order submissions waiting for the store",
	})

	orderSubmitLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "postboard_order_submit_latency_seconds",
		Help:    "Round trip time of order submissions",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
	})
)

// OrderSubmitter persists a full order, returning the store's message
type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, ids []models.ID) (string, error)
}

// PersistenceError is a rejected or failed order submission. The optimistic
// order it belongs to stays on screen.
type PersistenceError struct {
	Seq        uint64
	OrderedIDs []models.ID
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("saving order #%d failed: %v", e.Seq, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Request is one submission. Done closes when the store has answered.
type Request struct {
	Seq        uint64
	OrderedIDs []models.ID

	done    chan struct{}
	err     error
	message string
}

func (r *Request) Done() <-chan struct{} {
	return r.done
}

// Err is the outcome, valid once Done is closed
func (r *Request) Err() error {
	return r.err
}

func (r *Request) Message() string {
	return r.message
}

// Synchronizer fires one submission per order change. Distinct orders are
// never queued, merged or retried; the last response to arrive has the final
// say on the server.
type Synchronizer struct {
	ctx       context.Context
	submitter OrderSubmitter
	notifier  Notifier
	timeout   time.Duration

	mu       sync.Mutex
	seq      uint64
	inFlight map[string]*Request
	wg       sync.WaitGroup
}

// NewSynchronizer wires a submitter and notifier. A zero timeout leaves each
// request bounded only by ctx.
func NewSynchronizer(ctx context.Context, submitter OrderSubmitter, notifier Notifier, timeout time.Duration) *Synchronizer {
	if notifier == nil {
		notifier = NotifierFunc(func(Notification) {})
	}
	return &Synchronizer{
		ctx:       ctx,
		submitter: submitter,
		notifier:  notifier,
		timeout:   timeout,
		inFlight:  make(map[string]*Request),
	}
}

func orderKey(ids []models.ID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, "\x00")
}

// Submit starts persisting ids and returns immediately. An identical order
// that is still in flight is returned instead of sending it twice.
func (s *Synchronizer) Submit(ids []models.ID) *Request {
	key := orderKey(ids)

	s.mu.Lock()
	if req, ok := s.inFlight[key]; ok {
		s.mu.Unlock()
		log.WithFields(log.Fields{"seq": req.Seq}).Debug("Order already in flight")
		return req
	}
	s.seq++
	req := &Request{
		Seq:        s.seq,
		OrderedIDs: append([]models.ID(nil), ids...),
		done:       make(chan struct{}),
	}
	s.inFlight[key] = req
	s.wg.Add(1)
	s.mu.Unlock()

	ordersInFlight.Inc()
	go s.run(key, req)
	return req
}

func (s *Synchronizer) run(key string, req *Request) {
	defer s.wg.Done()
	defer ordersInFlight.Dec()

	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	message, err := s.submitter.SubmitOrder(ctx, req.OrderedIDs)
	orderSubmitLatency.Observe(time.Since(start).Seconds())

	s.mu.Lock()
	delete(s.inFlight, key)
	s.mu.Unlock()

	if err != nil {
		perr := &PersistenceError{Seq: req.Seq, OrderedIDs: req.OrderedIDs, Err: err}
		req.err = perr
		orderSubmissions.WithLabelValues("error").Inc()
		log.WithFields(log.Fields{
			"seq":   req.Seq,
			"count": len(req.OrderedIDs),
			"error": err,
		}).Error("Failed to save post order")
		close(req.done)
		s.notifier.Notify(Notification{
			Level:   LevelError,
			Title:   "Error updating post order",
			Message: perr.Error(),
			Seq:     req.Seq,
			Err:     perr,
		})
		return
	}

	req.message = message
	orderSubmissions.WithLabelValues("ok").Inc()
	log.WithFields(log.Fields{
		"seq":     req.Seq,
		"count":   len(req.OrderedIDs),
		"latency": time.Since(start),
	}).Info("Saved post order")
	close(req.done)
	s.notifier.Notify(Notification{
		Level:   LevelInfo,
		Title:   "Post order saved",
		Message: message,
		Seq:     req.Seq,
	})
}

// Pending is the number of submissions still waiting on the store
func (s *Synchronizer) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inFlight)
}

// Wait blocks until every submission started so far has resolved
func (s *Synchronizer) Wait() {
	s.wg.Wait()
}
