package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// JobFunc is the body of a scheduled job. Jobs log their own failures.
type JobFunc func(ctx context.Context)

// Scheduler runs named polling jobs on clock-aligned schedules
type Scheduler struct {
	ctx             context.Context
	gocronScheduler gocron.Scheduler
	timezone        *time.Location
	runImmediately  bool
	logger          *slog.Logger

	mu    sync.RWMutex
	jobs  map[string]gocron.Job
	names []string
}

// Config holds scheduler configuration
type Config struct {
	Timezone       *time.Location // Timezone for cron expressions (default: UTC)
	RunImmediately bool           // Execute every job once on start
	Logger         *slog.Logger   // Logger for scheduler events
}

var (
	// cronPattern matches cron expressions (5 or 6 fields)
	cronPattern = regexp.MustCompile(`^(\S+\s+){4,5}\S+$`)

	// validMinuteIntervals are minute intervals that divide evenly into 60
	validMinuteIntervals = map[int]bool{
		1: true, 2: true, 3: true, 4: true, 5: true, 6: true, 10: true, 12: true,
		15: true, 20: true, 30: true,
	}

	// validHourIntervals are hour intervals that divide evenly into 24
	validHourIntervals = map[int]bool{
		1: true, 2: true, 3: true, 4: true, 6: true, 8: true, 12: true, 24: true,
	}

	// validSecondIntervals are second intervals that divide evenly into 60
	validSecondIntervals = map[int]bool{
		1: true, 2: true, 3: true, 4: true, 5: true, 6: true, 10: true, 12: true,
		15: true, 20: true, 30: true,
	}
)

// NewScheduler creates a scheduler whose jobs receive ctx
func NewScheduler(ctx context.Context, cfg Config) (*Scheduler, error) {
	if cfg.Timezone == nil {
		cfg.Timezone = time.UTC
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	gocronScheduler, err := gocron.NewScheduler(
		gocron.WithLocation(cfg.Timezone),
		gocron.WithLogger(newGocronLoggerAdapter(cfg.Logger)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	return &Scheduler{
		ctx:             ctx,
		gocronScheduler: gocronScheduler,
		timezone:        cfg.Timezone,
		runImmediately:  cfg.RunImmediately,
		logger:          cfg.Logger,
		jobs:            make(map[string]gocron.Job),
	}, nil
}

// AddJob registers fn under name. interval is a duration ("5s") or a cron
// expression. A run that is still going when the next tick fires makes that
// tick reschedule instead of overlapping.
func (s *Scheduler) AddJob(name, interval string, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}

	cronExpr, err := toCron(interval)
	if err != nil {
		return fmt.Errorf("invalid interval for job %q: %w", name, err)
	}

	job, err := s.gocronScheduler.NewJob(
		gocron.CronJob(cronExpr, strings.Count(cronExpr, " ") == 5), // withSeconds if 6 fields
		gocron.NewTask(func() {
			fn(s.ctx)
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create scheduled job %q: %w", name, err)
	}

	s.jobs[name] = job
	s.names = append(s.names, name)
	s.logger.Debug("Job scheduled", "job", name, "cron", cronExpr, "timezone", s.timezone.String())
	return nil
}

// Start begins the scheduler
func (s *Scheduler) Start() error {
	s.gocronScheduler.Start()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.runImmediately {
		s.logger.Info("Executing jobs immediately", "jobs", len(s.names))
		for _, name := range s.names {
			if err := s.jobs[name].RunNow(); err != nil {
				s.logger.Error("Immediate execution failed", "job", name, "error", err)
			}
		}
	}

	s.logger.Info("Scheduler started", "jobs", len(s.names), "timezone", s.timezone.String())
	return nil
}

// Stop stops the scheduler gracefully
func (s *Scheduler) Stop() error {
	s.logger.Info("Stopping scheduler")
	return s.gocronScheduler.Shutdown()
}

// Jobs returns the registered job names in registration order
func (s *Scheduler) Jobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.names...)
}

// NextRun returns the next scheduled run time of a job
func (s *Scheduler) NextRun(name string) (time.Time, error) {
	job, err := s.job(name)
	if err != nil {
		return time.Time{}, err
	}
	nextRun, err := job.NextRun()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get next run: %w", err)
	}
	return nextRun, nil
}

// LastRun returns the last run time of a job
func (s *Scheduler) LastRun(name string) (time.Time, error) {
	job, err := s.job(name)
	if err != nil {
		return time.Time{}, err
	}
	lastRun, err := job.LastRun()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get last run: %w", err)
	}
	return lastRun, nil
}

func (s *Scheduler) job(name string) (gocron.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[name]
	if !ok {
		return nil, fmt.Errorf("unknown job %q", name)
	}
	return job, nil
}

// ExpectedInterval returns the period of a duration interval. Cron
// expressions may be irregular, so they get a conservative default.
func ExpectedInterval(interval string) time.Duration {
	if duration, err := time.ParseDuration(interval); err == nil {
		return duration
	}
	return 5 * time.Minute
}

func toCron(interval string) (string, error) {
	if isCronExpression(interval) {
		return interval, nil
	}
	return durationToCron(interval)
}

// isCronExpression checks if a string is a cron expression (vs duration)
func isCronExpression(s string) bool {
	// Cron expressions have 5 or 6 space-separated fields
	return cronPattern.MatchString(s)
}

// durationToCron converts a duration string to a clock-aligned cron expression
// Examples:
//   "5m" -> "*/5 * * * *"
//   "1h" -> "0 */1 * * *"
//   "30s" -> "*/30 * * * * *"
func durationToCron(durationStr string) (string, error) {
	duration, err := time.ParseDuration(durationStr)
	if err != nil {
		return "", fmt.Errorf("invalid duration format: %w", err)
	}

	// Convert duration to appropriate cron expression based on magnitude
	switch {
	case duration < time.Minute:
		// Seconds-based cron (6 fields)
		seconds := int(duration.Seconds())
		if seconds == 0 || 60%seconds != 0 {
			return "", fmt.Errorf("second intervals must divide evenly into 60 (got %ds)", seconds)
		}
		if !validSecondIntervals[seconds] {
			return "", fmt.Errorf("second interval %ds is not a standard divisor of 60", seconds)
		}
		return fmt.Sprintf("*/%d * * * * *", seconds), nil

	case duration < time.Hour:
		// Minutes-based cron (5 fields)
		minutes := int(duration.Minutes())
		if minutes == 0 || 60%minutes != 0 {
			return "", fmt.Errorf("minute intervals must divide evenly into 60 (got %dm)", minutes)
		}
		if !validMinuteIntervals[minutes] {
			return "", fmt.Errorf("minute interval %dm is not a standard divisor of 60", minutes)
		}
		return fmt.Sprintf("*/%d * * * *", minutes), nil

	case duration%time.Hour == 0:
		// Hour-based cron (5 fields)
		hours := int(duration.Hours())
		if hours == 0 || 24%hours != 0 {
			return "", fmt.Errorf("hour intervals must divide evenly into 24 (got %dh)", hours)
		}
		if !validHourIntervals[hours] {
			return "", fmt.Errorf("hour interval %dh is not a standard divisor of 24", hours)
		}
		return fmt.Sprintf("0 */%d * * *", hours), nil

	default:
		return "", fmt.Errorf("duration must be whole seconds, minutes, or hours (got %s)", durationStr)
	}
}

// ValidateScheduleInterval validates a schedule interval (duration or cron)
func ValidateScheduleInterval(interval string) error {
	if interval == "" {
		return errors.New("interval is required")
	}

	// Check if it's a cron expression
	if isCronExpression(interval) {
		// Basic validation - gocron will do deeper validation
		fields := strings.Fields(interval)
		if len(fields) != 5 && len(fields) != 6 {
			return errors.New("cron expression must have 5 or 6 fields")
		}
		return nil
	}

	// Validate as duration
	_, err := durationToCron(interval)
	return err
}

// gocronLoggerAdapter adapts slog.Logger to gocron.Logger interface
type gocronLoggerAdapter struct {
	logger *slog.Logger
}

func newGocronLoggerAdapter(logger *slog.Logger) gocron.Logger {
	return &gocronLoggerAdapter{logger: logger}
}

func (a *gocronLoggerAdapter) Debug(msg string, args ...any) {
	a.logger.Debug(msg, args...)
}

func (a *gocronLoggerAdapter) Info(msg string, args ...any) {
	a.logger.Info(msg, args...)
}

func (a *gocronLoggerAdapter) Warn(msg string, args ...any) {
	a.logger.Warn(msg, args...)
}

func (a *gocronLoggerAdapter) Error(msg string, args ...any) {
	a.logger.Error(msg, args...)
}

// DescribeSchedule provides a human-readable description of the schedule
func DescribeSchedule(interval string, timezone *time.Location) string {
	if timezone == nil {
		timezone = time.UTC
	}

	if isCronExpression(interval) {
		return fmt.Sprintf("cron: %s (%s)", interval, timezone.String())
	}

	duration, err := time.ParseDuration(interval)
	if err != nil {
		return fmt.Sprintf("invalid: %s", interval)
	}

	cronExpr, err := durationToCron(interval)
	if err != nil {
		return fmt.Sprintf("duration: %s (non-aligned)", interval)
	}

	return fmt.Sprintf("every %s (aligned to clock, cron: %s, %s)", duration, cronExpr, timezone.String())
}
