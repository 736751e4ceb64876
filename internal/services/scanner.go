package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/atomic"

	"draw-service/internal/logger"
)

// UnhealthyAfter consecutive failed scans flip the scanner's health.
const UnhealthyAfter = 3

// DrawScanner periodically looks for draws that should close and signals
// them. Failed scans back off exponentially; the scanner itself never stops.
type DrawScanner struct {
	Draws          *DrawService
	Dispatcher     Dispatcher
	Interval       time.Duration
	MaxBackoff     time.Duration
	OnHealthChange func(serving bool)

	cron     *cron.Cron
	running  atomic.Bool
	failures atomic.Int32
	nextRun  atomic.Int64
}

func NewDrawScanner(draws *DrawService, dispatcher Dispatcher, interval, maxBackoff time.Duration) *DrawScanner {
	return &DrawScanner{
		Draws:      draws,
		Dispatcher: dispatcher,
		Interval:   interval,
		MaxBackoff: maxBackoff,
	}
}

// Backoff is the delay before the next scan after n consecutive failures.
func (s *DrawScanner) Backoff(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	delay := s.Interval
	for i := 0; i < n; i++ {
		delay *= 2
		if delay >= s.MaxBackoff {
			return s.MaxBackoff
		}
	}
	return delay
}

func (s *DrawScanner) Failures() int {
	return int(s.failures.Load())
}

func (s *DrawScanner) Start() error {
	c := cron.New()
	_, err := c.AddFunc(fmt.Sprintf("@every %s", s.Interval), s.tick)
	if err != nil {
		return fmt.Errorf("schedule draw scanner: %w", err)
	}
	c.Start()
	s.cron = c
	logger.Infof("Draw scanner started (every %s)", s.Interval)
	return nil
}

func (s *DrawScanner) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

func (s *DrawScanner) tick() {
	if time.Now().UnixNano() < s.nextRun.Load() {
		return
	}
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	defer s.running.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), s.Interval)
	defer cancel()
	s.RunOnce(ctx)
}

// RunOnce performs a single scan and applies the failure policy.
func (s *DrawScanner) RunOnce(ctx context.Context) (int, error) {
	n, err := s.Scan(ctx)
	if err != nil {
		failures := int(s.failures.Inc())
		delay := s.Backoff(failures)
		s.nextRun.Store(time.Now().Add(delay).UnixNano())
		logger.Errorf("draw scan failed (%d in a row, next attempt in %s): %v", failures, delay, err)
		if failures == UnhealthyAfter && s.OnHealthChange != nil {
			s.OnHealthChange(false)
		}
		return n, err
	}

	if prev := s.failures.Swap(0); prev >= UnhealthyAfter && s.OnHealthChange != nil {
		s.OnHealthChange(true)
	}
	s.nextRun.Store(0)
	return n, nil
}

// Scan signals every draw that is due and returns how many were signalled.
func (s *DrawScanner) Scan(ctx context.Context) (int, error) {
	due, err := s.Draws.DueForClose(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}

	var errs []error
	sent := 0
	for _, sig := range due {
		if err := s.Dispatcher.EnqueueDrawClose(ctx, sig); err != nil {
			errs = append(errs, fmt.Errorf("draw %s: %w", sig.DrawID, err))
			continue
		}
		sent++
	}
	if sent > 0 {
		logger.Infof("Draw scanner signalled %d draws", sent)
	}
	return sent, errors.Join(errs...)
}
