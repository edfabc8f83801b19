package hashing

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/mfgops/operations-dashboard/internal/pkg/metrics"
)

// DefaultCost is the bcrypt work factor for stored passwords.
const DefaultCost = 10

const queueBuffer = 256

var ErrPoolStopped = errors.New("hashing pool stopped")

type opKind int

const (
	opHash opKind = iota
	opCompare
)

func (k opKind) String() string {
	if k == opHash {
		return "hash"
	}
	return "compare"
}

type job struct {
	op       opKind
	password string
	hash     string
	result   chan result
}

type result struct {
	hash  string
	match bool
	err   error
}

// Pool runs bcrypt on a fixed set of workers so CPU-heavy hashing cannot
// starve request goroutines. Callers block until their job completes or
// their context is cancelled.
type Pool struct {
	jobs    chan job
	workers int
	cost    int
	done    chan struct{}
	log     zerolog.Logger
}

// NewPool creates a Pool with numWorkers workers.
// If numWorkers <= 0, runtime.NumCPU() is used.
func NewPool(numWorkers, cost int, log zerolog.Logger) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if cost <= 0 {
		cost = DefaultCost
	}
	return &Pool{
		jobs:    make(chan job, queueBuffer),
		workers: numWorkers,
		cost:    cost,
		done:    make(chan struct{}),
		log:     log,
	}
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		go p.runWorker(ctx, i)
	}
	go func() {
		<-ctx.Done()
		close(p.done)
	}()
	p.log.Info().Int("workers", p.workers).Int("cost", p.cost).Msg("hashing pool started")
}

// Hash returns the bcrypt hash of password.
func (p *Pool) Hash(ctx context.Context, password string) (string, error) {
	res, err := p.submit(ctx, job{op: opHash, password: password})
	if err != nil {
		return "", err
	}
	return res.hash, res.err
}

// Compare reports whether password matches hash. A mismatch is not an error.
func (p *Pool) Compare(ctx context.Context, hash, password string) (bool, error) {
	res, err := p.submit(ctx, job{op: opCompare, hash: hash, password: password})
	if err != nil {
		return false, err
	}
	return res.match, res.err
}

func (p *Pool) submit(ctx context.Context, j job) (result, error) {
	select {
	case <-p.done:
		return result{}, ErrPoolStopped
	default:
	}

	j.result = make(chan result, 1)
	select {
	case p.jobs <- j:
		metrics.HashQueueDepth.Set(float64(len(p.jobs)))
	case <-ctx.Done():
		return result{}, ctx.Err()
	case <-p.done:
		return result{}, ErrPoolStopped
	}

	select {
	case res := <-j.result:
		return res, nil
	case <-ctx.Done():
		return result{}, ctx.Err()
	case <-p.done:
		return result{}, ErrPoolStopped
	}
}

func (p *Pool) runWorker(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-p.jobs:
			metrics.HashQueueDepth.Set(float64(len(p.jobs)))
			j.result <- p.run(j, id)
		}
	}
}

func (p *Pool) run(j job, id int) result {
	start := time.Now()
	defer func() {
		metrics.PasswordHashDuration.WithLabelValues(j.op.String()).Observe(time.Since(start).Seconds())
	}()

	switch j.op {
	case opHash:
		b, err := bcrypt.GenerateFromPassword([]byte(j.password), p.cost)
		if err != nil {
			p.log.Error().Err(err).Int("worker_id", id).Msg("password hashing failed")
			return result{err: fmt.Errorf("bcrypt hash: %w", err)}
		}
		return result{hash: string(b)}
	default:
		err := bcrypt.CompareHashAndPassword([]byte(j.hash), []byte(j.password))
		switch {
		case err == nil:
			return result{match: true}
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword), errors.Is(err, bcrypt.ErrPasswordTooLong):
			return result{}
		default:
			return result{err: fmt.Errorf("bcrypt compare: %w", err)}
		}
	}
}
