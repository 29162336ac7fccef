package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/langschool-api/internal/models"
	"github.com/noah-isme/langschool-api/internal/service"
)

var errHelp = errors.New("help provided")

type jobSet struct {
	holidays   bool
	endingSoon bool
	exports    bool
}

func parseJobs(args []string) (jobSet, error) {
	fs := flag.NewFlagSet("sweep", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	holidays := fs.Bool("holidays", true, "Re-apply the holiday calendar to every course and class.")
	endingSoon := fs.Bool("ending-soon", true, "Raise ending_soon notifications for schedules ending inside the window.")
	exports := fs.Bool("exports", true, "Delete rendered exports older than EXPORTS_RESULT_TTL.")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fs.SetOutput(nil)
			fs.PrintDefaults()
			return jobSet{}, errHelp
		}
		return jobSet{}, err
	}
	return jobSet{holidays: *holidays, endingSoon: *endingSoon, exports: *exports}, nil
}

type holidaySweeper interface {
	Sweep(ctx context.Context) (*models.HolidaySweepResult, error)
}

type endingSoonSweeper interface {
	SweepEndingSoon(ctx context.Context, now time.Time) (*service.EndingSoonResult, error)
}

type exportCleaner interface {
	Cleanup(ttl time.Duration) ([]string, error)
}

type sweeper struct {
	holidays      holidaySweeper
	notifications endingSoonSweeper
	exports       exportCleaner
	exportTTL     time.Duration
	logger        *zap.Logger
	clock         func() time.Time
}

// run executes the selected jobs in order and returns how many failed. A
// failing job does not stop the ones after it.
func (s sweeper) run(ctx context.Context, jobs jobSet) int {
	now := time.Now().UTC()
	if s.clock != nil {
		now = s.clock()
	}
	failed := 0

	if jobs.holidays {
		result, err := s.holidays.Sweep(ctx)
		if err != nil {
			s.logger.Error("holiday sweep failed", zap.Error(err))
			failed++
		} else {
			s.logger.Info("holiday sweep done",
				zap.Int("scanned", result.Scanned),
				zap.Int("updated", result.Updated),
				zap.Int("marked", result.Marked),
				zap.Int("failed", result.Failed))
			if result.Failed > 0 {
				failed++
			}
		}
	}

	if jobs.endingSoon {
		result, err := s.notifications.SweepEndingSoon(ctx, now)
		if err != nil {
			s.logger.Error("ending-soon sweep failed", zap.Error(err))
			failed++
		} else {
			s.logger.Info("ending-soon sweep done",
				zap.Int("checked", result.Checked),
				zap.Int("raised", result.Raised),
				zap.Int("skipped", result.Skipped),
				zap.Int("failed", result.Failed))
		}
	}

	if jobs.exports {
		removed, err := s.exports.Cleanup(s.exportTTL)
		if err != nil {
			s.logger.Error("export cleanup failed", zap.Error(err))
			failed++
		} else {
			s.logger.Info("export cleanup done", zap.Int("removed", len(removed)))
		}
	}
	return failed
}
