package sim

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"transit-planner/internal/logging"
	"transit-planner/internal/publisher"
)

type PositionPublisher interface {
	PublishPosition(msg publisher.PositionMessage) error
}

type FeedMetrics interface {
	ObserveFeedTick(vehicles int, d time.Duration)
}

// Feed periodically publishes the simulated position of every running
// vehicle on every line.
type Feed struct {
	board    *Board
	pub      PositionPublisher
	interval time.Duration
	metrics  FeedMetrics
	logger   *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewFeed(board *Board, pub PositionPublisher, interval time.Duration, m FeedMetrics, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Feed{board: board, pub: pub, interval: interval, metrics: m, logger: logger}
}

// Start launches the publish loop. It is a no-op for a non-positive interval.
func (f *Feed) Start(parent context.Context) {
	if f.interval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	f.cancel = cancel
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		ticker := time.NewTicker(f.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				f.Tick()
			}
		}
	}()
	f.logger.Info("simulated vehicle feed started", slog.Duration("interval", f.interval))
}

// Tick publishes one round of positions and returns how many were sent.
func (f *Feed) Tick() int {
	start := time.Now()
	now := f.board.clock.Now()
	sent := 0
	for _, line := range f.board.graph.Lines() {
		for _, v := range f.board.PositionsAt(line, now) {
			err := f.pub.PublishPosition(publisher.PositionMessage{
				VehicleID: v.ID,
				Line:      v.Line,
				Toward:    v.Toward,
				Next:      v.Next,
				Timestamp: v.Timestamp,
				Lat:       v.Lat,
				Lon:       v.Lon,
				Bearing:   v.Bearing,
				Progress:  v.Progress,
			})
			if err != nil {
				logging.LogError(f.logger, "publish vehicle position", err, slog.String("vehicle", v.ID))
				continue
			}
			sent++
		}
	}
	if f.metrics != nil {
		f.metrics.ObserveFeedTick(sent, time.Since(start))
	}
	return sent
}

// Stop cancels the loop and waits for it to exit.
func (f *Feed) Stop() {
	if f.cancel != nil {
		f.cancel()
	}
	f.wg.Wait()
}
