package assist

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Scheduler periodically drains the assist queue in the background.
type Scheduler struct {
	service         *Service
	interval        time.Duration
	batchSize       int
	manualBatchSize int
	limiter         *rate.Limiter

	running       bool
	stopCh        chan struct{}
	wg            sync.WaitGroup
	mu            sync.Mutex
	batchMu       sync.Mutex // one batch at a time, ticker or manual
	logger        *slog.Logger
	processedChan chan int // For testing: reports processed count
}

// SchedulerConfig holds configuration for the scheduler.
type SchedulerConfig struct {
	Interval        time.Duration // How often to look for pending tasks
	BatchSize       int           // Max tasks per scheduled cycle
	ManualBatchSize int           // Max tasks per ProcessNow call
	TaskDelay       time.Duration // Minimum spacing between task starts
}

// DefaultSchedulerConfig returns default scheduler configuration.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:        30 * time.Second,
		BatchSize:       5,
		ManualBatchSize: 20,
		TaskDelay:       time.Second,
	}
}

// NewScheduler creates a new assist scheduler. Consecutive task starts are
// at least TaskDelay apart, across batches too. A zero TaskDelay disables
// the pause.
func NewScheduler(service *Service, config SchedulerConfig) *Scheduler {
	defaults := DefaultSchedulerConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.ManualBatchSize <= 0 {
		config.ManualBatchSize = defaults.ManualBatchSize
	}

	limit := rate.Inf
	if config.TaskDelay > 0 {
		limit = rate.Every(config.TaskDelay)
	}

	return &Scheduler{
		service:         service,
		interval:        config.Interval,
		batchSize:       config.BatchSize,
		manualBatchSize: config.ManualBatchSize,
		limiter:         rate.NewLimiter(limit, 1),
		stopCh:          make(chan struct{}),
		logger:          slog.Default(),
	}
}

// Start begins the scheduler loop. Starting a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	stopCh := make(chan struct{})
	s.stopCh = stopCh
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(ctx, stopCh)

	s.logger.Info("assist scheduler started", "interval", s.interval, "batch_size", s.batchSize)
	return nil
}

// Stop stops the loop and waits for the batch in progress to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("assist scheduler stopped")
}

// IsRunning returns whether the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SetLogger sets a custom logger.
func (s *Scheduler) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// EnableTestMode enables test mode with a channel for processed counts.
func (s *Scheduler) EnableTestMode() <-chan int {
	s.processedChan = make(chan int, 100)
	return s.processedChan
}

func (s *Scheduler) run(ctx context.Context, stopCh <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.processCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("assist scheduler context cancelled")
			return
		case <-stopCh:
			return
		case <-ticker.C:
			s.processCycle(ctx)
		}
	}
}

func (s *Scheduler) processCycle(ctx context.Context) {
	processed, err := s.processBatch(ctx, s.batchSize)
	if err != nil {
		s.logger.Error("failed to process assist tasks", "error", err)
		return
	}
	if processed > 0 {
		s.logger.Info("processed assist tasks", "count", processed)
	}

	if s.processedChan != nil {
		select {
		case s.processedChan <- processed:
		default:
		}
	}
}

func (s *Scheduler) processBatch(ctx context.Context, limit int) (int, error) {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	return s.service.ProcessPending(ctx, limit, s.limiter.Wait)
}

// RunOnce processes one scheduled batch immediately.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	return s.processBatch(ctx, s.batchSize)
}

// ProcessNow processes up to limit tasks immediately. limit is capped at
// the manual batch size, which is also used when limit is not positive.
func (s *Scheduler) ProcessNow(ctx context.Context, limit int) (int, error) {
	if limit <= 0 || limit > s.manualBatchSize {
		limit = s.manualBatchSize
	}
	return s.processBatch(ctx, limit)
}
