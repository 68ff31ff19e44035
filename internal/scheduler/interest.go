package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// InterestAccruer applies one interest period to every savings account.
type InterestAccruer interface {
	AccrueAllSavings(ctx context.Context) (accrued, failed int, err error)
}

// InterestScheduler triggers periodic interest accrual on a cron schedule.
type InterestScheduler struct {
	cron    *cron.Cron
	accruer InterestAccruer
	log     *logrus.Logger
	timeout time.Duration
}

// NewInterestScheduler parses spec (standard five-field cron syntax) and
// registers the accrual job. The scheduler is idle until Start.
func NewInterestScheduler(spec string, accruer InterestAccruer, log *logrus.Logger) (*InterestScheduler, error) {
	s := &InterestScheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		accruer: accruer,
		log:     log,
		timeout: 10 * time.Minute,
	}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("invalid interest schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start runs the scheduler in its own goroutine.
func (s *InterestScheduler) Start() {
	s.cron.Start()
	s.log.Info("Interest scheduler started")
}

// Stop halts scheduling and waits for a running accrual to finish or ctx to end.
func (s *InterestScheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("Interest scheduler stop timed out")
	}
}

func (s *InterestScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	accrued, failed, err := s.accruer.AccrueAllSavings(ctx)
	fields := logrus.Fields{
		"accrued":  accrued,
		"failed":   failed,
		"duration": time.Since(start).String(),
	}
	if err != nil {
		s.log.WithFields(fields).WithError(err).Error("Scheduled interest accrual failed")
		return
	}
	s.log.WithFields(fields).Info("Scheduled interest accrual finished")
}
