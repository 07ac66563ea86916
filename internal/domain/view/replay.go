package view

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	catalogevents "product-catalog/internal/domain/events"
	"product-catalog/pkg/logattr"

	"github.com/walletera/eventskit/events"
	"github.com/walletera/werrors"
)

type ReplayState int32

const (
	ReplayNotStarted ReplayState = iota
	ReplayInProgress
	ReplayCompleted
	ReplayFailed
)

func (s ReplayState) String() string {
	switch s {
	case ReplayNotStarted:
		return "NotStarted"
	case ReplayInProgress:
		return "InProgress"
	case ReplayCompleted:
		return "Completed"
	case ReplayFailed:
		return "Failed"
	default:
		return fmt.Sprintf("ReplayState(%d)", int32(s))
	}
}

// ErrReplayInProgress is returned when a replay is requested while
// another one is still running.
var ErrReplayInProgress = errors.New("a replay is already in progress")

type ReplayFailedError struct {
	Cause error
}

func (e ReplayFailedError) Error() string {
	return fmt.Sprintf("replay failed: %s", e.Cause.Error())
}

func (e ReplayFailedError) Unwrap() error {
	return e.Cause
}

// EventIterator walks the full event history ordered by stream and
// sequence number, so per-aggregate fold order is preserved.
type EventIterator interface {
	Next(ctx context.Context) (bool, events.Event[catalogevents.Handler], error)
	Close(ctx context.Context) error
}

type EventSource interface {
	ReadAllEvents(ctx context.Context) (EventIterator, error)
}

// ReplayStore is the shadow-store port: the replay is built into a
// shadow repository and atomically swapped in on commit. Readers keep
// seeing the previous consistent store for the whole replay, and an
// aborted replay leaves it untouched.
type ReplayStore interface {
	StartReplay(ctx context.Context) (Repository, werrors.WError)
	CommitReplay(ctx context.Context) werrors.WError
	AbortReplay(ctx context.Context) werrors.WError
}

// Replayer rebuilds the read store from the complete event history.
// Its lifecycle is NotStarted -> InProgress -> Completed|Failed, and a
// finished replayer can be started again.
type Replayer struct {
	source EventSource
	store  ReplayStore
	state  atomic.Int32
	logger *slog.Logger
}

func NewReplayer(source EventSource, store ReplayStore, logger *slog.Logger) *Replayer {
	return &Replayer{
		source: source,
		store:  store,
		logger: logger,
	}
}

func (r *Replayer) State() ReplayState {
	return ReplayState(r.state.Load())
}

func (r *Replayer) Replay(ctx context.Context) error {
	if !r.tryStart() {
		return ErrReplayInProgress
	}

	r.logger.Info("replay started", logattr.ReplayState(ReplayInProgress.String()))

	err := r.replay(ctx)
	if err != nil {
		r.state.Store(int32(ReplayFailed))
		r.logger.Error(
			"replay failed",
			logattr.Error(err.Error()),
			logattr.ReplayState(ReplayFailed.String()),
		)
		return ReplayFailedError{Cause: err}
	}

	r.state.Store(int32(ReplayCompleted))
	r.logger.Info("replay completed", logattr.ReplayState(ReplayCompleted.String()))
	return nil
}

func (r *Replayer) tryStart() bool {
	for {
		current := r.state.Load()
		if ReplayState(current) == ReplayInProgress {
			return false
		}
		if r.state.CompareAndSwap(current, int32(ReplayInProgress)) {
			return true
		}
	}
}

func (r *Replayer) replay(ctx context.Context) error {
	shadowRepository, werr := r.store.StartReplay(ctx)
	if werr != nil {
		return errors.New(werr.Message())
	}

	handler := NewEventsHandler(shadowRepository, r.logger.With(logattr.Component("view.replay.EventsHandler")))

	streamErr := r.streamHistory(ctx, handler)
	if streamErr != nil {
		abortErr := r.store.AbortReplay(ctx)
		if abortErr != nil {
			r.logger.Error("failed aborting replay", logattr.Error(abortErr.Message()))
		}
		return streamErr
	}

	commitErr := r.store.CommitReplay(ctx)
	if commitErr != nil {
		return errors.New(commitErr.Message())
	}
	return nil
}

func (r *Replayer) streamHistory(ctx context.Context, handler *EventsHandler) error {
	iterator, err := r.source.ReadAllEvents(ctx)
	if err != nil {
		return err
	}
	defer func() {
		closeErr := iterator.Close(ctx)
		if closeErr != nil {
			r.logger.Error("failed closing event history iterator", logattr.Error(closeErr.Error()))
		}
	}()

	for {
		ok, evt, err := iterator.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		werr := evt.Accept(ctx, handler)
		if werr != nil {
			return fmt.Errorf("failed projecting event %s: %s", evt.ID(), werr.Message())
		}
	}
}
