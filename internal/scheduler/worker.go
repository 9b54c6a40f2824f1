package scheduler

import (
	"context"
	"fmt"

	healthservice "imobportal_backend/internal/health/service"
	"imobportal_backend/internal/health/transport"
	"imobportal_backend/platform/config"
	"imobportal_backend/platform/logger"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// HealthEngine is the slice of the health service the worker depends on.
type HealthEngine interface {
	Recompute(ctx context.Context, userID string, trigger string, actorUserID *string) (transport.UserHealthSnapshot, error)
	ListUserIDs(ctx context.Context) ([]string, error)
}

// Worker consumes health engine tasks from the asynq queue.
type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	engine   HealthEngine
	enqueuer RecomputeEnqueuer
	log      *logger.Logger

	fanout  int
	limiter *rate.Limiter
}

func NewWorker(cfg config.SchedulerConfig, engine HealthEngine, enqueuer RecomputeEnqueuer, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	fanout := cfg.GetSweepFanout()
	if fanout < 1 {
		fanout = 8
	}

	perSecond := cfg.GetSweepRatePerSecond()
	if perSecond <= 0 {
		perSecond = 20
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:   server,
		mux:      mux,
		engine:   engine,
		enqueuer: enqueuer,
		log:      log,
		fanout:   fanout,
		limiter:  rate.NewLimiter(rate.Limit(perSecond), fanout),
	}

	mux.HandleFunc(TaskHealthSweep, w.handleSweep)
	mux.HandleFunc(TaskHealthRecompute, w.handleRecompute)

	return w, nil
}

// handleSweep recomputes every user on the roster. Users are processed
// concurrently up to the fanout limit, throttled against the database by
// the shared rate limiter. One user failing never aborts the sweep: the
// failure is logged and the user is re-enqueued as a targeted recompute
// task, which gets asynq's own retry backoff.
func (w *Worker) handleSweep(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseHealthSweepPayload(task)
	if err != nil {
		return fmt.Errorf("sweep payload: %w", err)
	}

	userIDs, err := w.engine.ListUserIDs(ctx)
	if err != nil {
		return fmt.Errorf("sweep roster: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.fanout)

	for _, userID := range userIDs {
		userID := userID
		g.Go(func() error {
			if err := w.limiter.Wait(gctx); err != nil {
				return err
			}
			if _, err := w.engine.Recompute(gctx, userID, healthservice.TriggerScheduledSweep, nil); err != nil {
				w.log.SweepUserError(userID, err)
				w.retryLater(gctx, userID)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("sweep aborted: %w", err)
	}

	w.log.Info("health sweep complete", "users", len(userIDs), "requestedAt", payload.RequestedAt)
	return nil
}

func (w *Worker) retryLater(ctx context.Context, userID string) {
	if w.enqueuer == nil {
		return
	}
	err := w.enqueuer.EnqueueRecompute(ctx, HealthRecomputePayload{
		UserID:  userID,
		Trigger: healthservice.TriggerScheduledSweep,
	})
	if err != nil {
		w.log.Error("sweep retry enqueue failed", "userId", userID, "error", err)
	}
}

func (w *Worker) handleRecompute(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseHealthRecomputePayload(task)
	if err != nil {
		return err
	}
	if payload.UserID == "" {
		return nil
	}

	trigger := payload.Trigger
	if trigger == "" {
		trigger = healthservice.TriggerScheduledSweep
	}

	_, err = w.engine.Recompute(ctx, payload.UserID, trigger, nil)
	return err
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
