package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/stagegraph/internal/domain"
	"github.com/shaiso/stagegraph/internal/engine"
	"github.com/shaiso/stagegraph/internal/mq"
	"github.com/shaiso/stagegraph/internal/telemetry"
)

const defaultPrefetch = 10

// StageStore — хранилище stages.
type StageStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Stage, error)
	UpdateContext(ctx context.Context, stage *domain.Stage) error
	CreateSubStages(ctx context.Context, stages []*domain.Stage) error
}

// Definitions — реестр определений stages.
type Definitions interface {
	Get(typeOrAlias string) (engine.StageDefinition, error)
}

// ReadyPublisher публикует sub-stages, готовые к запуску.
type ReadyPublisher interface {
	PublishStageReady(ctx context.Context, payload mq.StageEventPayload) error
}

// Config — конфигурация Service.
type Config struct {
	Store       StageStore
	Definitions Definitions

	// MQ
	Publisher ReadyPublisher
	Conn      *mq.Connection

	// HandlerTimeout — лимит на обработку одного события (0 — без лимита).
	HandlerTimeout time.Duration

	// Prefetch — prefetch каждого consumer (default: 10).
	Prefetch int

	Logger *slog.Logger
}

// Service обрабатывает события жизненного цикла stages.
type Service struct {
	store     StageStore
	defs      Definitions
	publisher ReadyPublisher
	conn      *mq.Connection

	// Активные фазы: parentID → состояние
	phases map[uuid.UUID]*PhaseState
	mu     sync.RWMutex

	consumers []*mq.Consumer
	timeout   time.Duration
	prefetch  int

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex
}

// New создаёт Service.
func New(cfg Config) *Service {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = defaultPrefetch
	}

	return &Service{
		store:     cfg.Store,
		defs:      cfg.Definitions,
		publisher: cfg.Publisher,
		conn:      cfg.Conn,
		phases:    make(map[uuid.UUID]*PhaseState),
		timeout:   cfg.HandlerTimeout,
		prefetch:  prefetch,
		logger:    telemetry.OrDefault(cfg.Logger),
	}
}

// Start запускает consumers для stages.cancel, stages.restart
// и stages.completed.
func (s *Service) Start(ctx context.Context) error {
	if s.conn == nil {
		return ErrNoConnection
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel

	s.logger.Info("starting orchestrator",
		"prefetch", s.prefetch,
		"handler_timeout", s.timeout,
	)

	handlers := []struct {
		queue   mq.Queue
		handler mq.Handler
	}{
		{mq.QueueStagesCancel, s.handleCancel},
		{mq.QueueStagesRestart, s.handleRestart},
		{mq.QueueStagesCompleted, s.handleCompleted},
	}

	for _, h := range handlers {
		consumer := mq.NewConsumer(s.conn, s.logger, mq.ConsumerConfig{
			Queue:          h.queue,
			Handler:        h.handler,
			Prefetch:       s.prefetch,
			HandlerTimeout: s.timeout,
		})
		s.consumers = append(s.consumers, consumer)

		s.wg.Add(1)
		go func(queue mq.Queue) {
			defer s.wg.Done()
			if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("consumer error", "queue", queue, "error", err)
			}
		}(h.queue)
	}

	s.logger.Info("orchestrator started")
	return nil
}

// Stop останавливает Service и ждёт завершения consumers.
func (s *Service) Stop() {
	s.stoppedMu.Lock()
	s.stopped = true
	s.stoppedMu.Unlock()

	s.logger.Info("stopping orchestrator...")

	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	for _, c := range s.consumers {
		c.Stop()
	}

	s.wg.Wait()

	s.logger.Info("orchestrator stopped", "active_phases", s.ActivePhases())
}

// IsStopped проверяет, остановлен ли Service.
func (s *Service) IsStopped() bool {
	s.stoppedMu.RLock()
	defer s.stoppedMu.RUnlock()
	return s.stopped
}

// ActivePhases возвращает количество отслеживаемых фаз.
func (s *Service) ActivePhases() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.phases)
}

// Phase возвращает состояние активной фазы родителя.
func (s *Service) Phase(parentID uuid.UUID) (*PhaseState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.phases[parentID]
	return state, ok
}

func (s *Service) trackPhase(state *PhaseState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phases[state.Parent.ID] = state
}

func (s *Service) forgetPhase(parentID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.phases, parentID)
}
