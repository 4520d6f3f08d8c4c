package workers

import (
	"c2c-client/contract"
	"c2c-client/domain/event"
	"c2c-client/errors"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const DefaultRestartDelay = 200 * time.Millisecond

// Supervisor runs each worker in its own goroutine, recovers panics and
// restarts the worker after a short delay. A worker returning nil is done.
// Cancelling the parent context stops everything; Run returns once all
// workers have returned.
type Supervisor struct {
	Cancel       context.CancelFunc
	wg           *sync.WaitGroup
	log          *slog.Logger
	diag         contract.Diagnostics
	restartDelay time.Duration
	workers      []contract.Worker
}

type SupervisorOption func(*Supervisor)

func WithRestartDelay(d time.Duration) SupervisorOption {
	return func(s *Supervisor) { s.restartDelay = d }
}

func WithDiagnostics(d contract.Diagnostics) SupervisorOption {
	return func(s *Supervisor) { s.diag = d }
}

func NewSupervisor(log *slog.Logger, opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{wg: &sync.WaitGroup{}, log: log, restartDelay: DefaultRestartDelay}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Supervisor) Run(ctx context.Context) {
	// Our own cancel only reaches our children; the parent's reaches us too.
	supervisedCtx, cancel := context.WithCancel(ctx)
	s.Cancel = cancel
	defer s.Cancel()

	for _, worker := range s.workers {
		s.Start(supervisedCtx, worker)
	}
	s.wg.Wait()
}

func (s *Supervisor) Add(worker ...contract.Worker) contract.ISupervisor {
	s.workers = append(s.workers, worker...)
	return s
}

// Start runs a worker under supervision. A panic or an error restarts it,
// a nil return ends it.
func (s *Supervisor) Start(ctx context.Context, worker contract.Worker) {
	s.wg.Add(1)
	workerName := contract.GetWorkerName(worker)

	go func() {
		defer s.wg.Done()

		for {
			if ctx.Err() != nil {
				s.log.Info(fmt.Sprintf("Stopping : %s", workerName))
				return
			}

			panicked := false
			err := func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						panicked = true
						err = fmt.Errorf("%w: %v", errors.ErrWorkerPanic, r)
					}
				}()
				return worker.Run(ctx)
			}()

			if err == nil {
				s.log.Info(fmt.Sprintf("Worker finished : %s", workerName))
				return
			}

			if ctx.Err() != nil {
				s.log.Info("Worker stopped (context canceled)", "name", workerName)
				return
			}

			if panicked && s.diag != nil {
				s.diag.Report(event.Diagnostic{
					Level:   slog.LevelError,
					Code:    event.WorkerRestartedCode,
					Message: "Worker panicked, restarting",
					Attrs:   []any{"name", workerName, "error", err},
				})
			} else {
				s.log.Warn("Worker crashed, restarting", "name", workerName, "error", err)
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(s.restartDelay):
			}
		}
	}()
}

// Stop cancels every worker. Run returns once they are all gone.
func (s *Supervisor) Stop() {
	if s.Cancel != nil {
		s.Cancel()
	}
}
