// Package service provides the core hatchery service implementing the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hatchlab/hatchd/internal/adapters/mq/queue"
	"github.com/hatchlab/hatchd/internal/adapters/mq/worker"
	"github.com/hatchlab/hatchd/internal/adapters/repository"
	"github.com/hatchlab/hatchd/internal/domain/catalog"
	"github.com/hatchlab/hatchd/internal/domain/dedupe"
	"github.com/hatchlab/hatchd/internal/domain/effects"
	"github.com/hatchlab/hatchd/internal/domain/model"
	"github.com/hatchlab/hatchd/internal/domain/reward"
	"github.com/hatchlab/hatchd/internal/domain/types"
	"github.com/hatchlab/hatchd/pkg/logger"
	"github.com/hatchlab/hatchd/pkg/metrics"
)

// Service owns the hatchery components: the egg catalog, the effect
// aggregation engine, the outcome queue and its recording workers.
type Service struct {
	mu sync.RWMutex

	// Core components
	catalog   *catalog.Catalog
	engine    *effects.Engine
	modifiers repository.ModifierStore
	history   repository.HistoryStore
	deduper   dedupe.Deduper
	outcomes  queue.Queue
	pool      *worker.Pool
	rng       reward.RandomSource

	// Configuration
	workerCount   int
	queueSize     int
	dedupeSize    int
	historySize   int
	purgeInterval time.Duration
	catalogPath   string
	watchCatalog  bool

	// State
	started bool
	stopCh  chan struct{}

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of outcome-recording workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the outcome queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the request deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithHistorySize sets how many hatch outcomes the history store
// retains.
func WithHistorySize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.historySize = size
		}
	}
}

// WithPurgeInterval sets the period of the expired-modifier sweep.
func WithPurgeInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.purgeInterval = interval
		}
	}
}

// WithCatalogPath sets the egg catalog file path.
func WithCatalogPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.catalogPath = path
		}
	}
}

// WithCatalogWatch enables reloading the catalog when its file changes.
func WithCatalogWatch(watch bool) Option {
	return func(s *Service) {
		s.watchCatalog = watch
	}
}

// WithRandomSource sets the random source used for draws. Tests inject
// seeded or fixed sources here.
func WithRandomSource(rng reward.RandomSource) Option {
	return func(s *Service) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// WithModifierStore sets the modifier persistence store. Active
// modifiers are seeded from it on Start and snapshotted back on Stop.
func WithModifierStore(store repository.ModifierStore) Option {
	return func(s *Service) {
		if store != nil {
			s.modifiers = store
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:   runtime.NumCPU() * 2,
		queueSize:     100000,
		dedupeSize:    50000,
		historySize:   10000,
		purgeInterval: 30 * time.Second,
		catalogPath:   "catalog.yaml",
		rng:           reward.DefaultSource(),
		stopCh:        make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start loads the catalog, restores persisted modifiers and launches
// the recording workers and the purge sweep.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting hatchery service...")

	cat, err := catalog.Load(ctx, s.catalogPath, catalog.WithReloadHook(func(eggCount int) {
		metrics.RecordCatalogReload()
		metrics.UpdateCatalogEggs(eggCount)
	}))
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	s.catalog = cat

	if s.watchCatalog {
		if err := s.catalog.Watch(ctx, func(reloadErr error) {
			if reloadErr != nil {
				s.logger.Error(ctx, "catalog reload failed", logger.Error(reloadErr))
				return
			}
			s.logger.Info(ctx, "catalog reloaded",
				logger.Int("eggs", len(s.catalog.EggIDs())),
			)
		}); err != nil {
			s.logger.Warn(ctx, "catalog watch unavailable", logger.Error(err))
		}
	}

	s.engine = effects.NewEngine()
	if s.modifiers == nil {
		s.modifiers = repository.NewMemModifierStore()
	}
	if err := s.restoreModifiers(ctx); err != nil {
		return err
	}

	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.outcomes = queue.NewInMemoryQueue(
		queue.WithCapacity(s.queueSize),
	)
	s.history = repository.NewMemHistoryStore(s.historySize)

	s.pool = worker.NewPool(s.workerCount, s.outcomes, s.history)
	s.pool.Start(ctx)

	go s.purgeLoop()

	s.started = true
	s.logger.Info(ctx, "hatchery service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("eggs", len(s.catalog.EggIDs())),
	)

	return nil
}

// restoreModifiers seeds the engine from persisted snapshots. Records
// whose remaining duration lapsed while saved are skipped by Seed.
func (s *Service) restoreModifiers(ctx context.Context) error {
	subjects, err := s.modifiers.Subjects(ctx)
	if err != nil {
		return fmt.Errorf("list persisted subjects: %w", err)
	}

	for _, subjectID := range subjects {
		records, err := s.modifiers.Load(ctx, subjectID)
		if err != nil {
			return fmt.Errorf("load modifiers for %s: %w", subjectID, err)
		}
		if err := s.engine.Seed(subjectID, records); err != nil {
			return fmt.Errorf("seed modifiers for %s: %w", subjectID, err)
		}
	}

	if len(subjects) > 0 {
		s.logger.Info(ctx, "restored persisted modifiers",
			logger.Int("subjects", len(subjects)),
		)
	}
	metrics.UpdateTrackedSubjects(s.engine.SubjectCount())
	return nil
}

// purgeLoop periodically sweeps expired modifiers. Reads never depend
// on the sweep; it only reclaims memory and keeps gauges honest.
func (s *Service) purgeLoop() {
	ticker := time.NewTicker(s.purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case now := <-ticker.C:
			if removed := s.engine.PurgeAllExpired(now); removed > 0 {
				metrics.RecordModifiersPurged(removed)
			}
			metrics.UpdateTrackedSubjects(s.engine.SubjectCount())
		}
	}
}

// Stop drains the outcome queue, snapshots modifier state and shuts the
// service down.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping hatchery service...")

	if s.pool != nil {
		_ = s.pool.Shutdown(ctx)
	}

	s.snapshotModifiers(ctx)

	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}

	s.started = false
	s.logger.Info(ctx, "hatchery service stopped")
}

// snapshotModifiers persists every subject's live modifiers with their
// remaining durations.
func (s *Service) snapshotModifiers(ctx context.Context) {
	now := time.Now()
	saved := 0
	for _, subjectID := range s.engine.Subjects() {
		if err := s.modifiers.Save(ctx, subjectID, s.engine.Export(subjectID, now)); err != nil {
			s.logger.Error(ctx, "saving modifier snapshot failed",
				logger.String("subject_id", subjectID),
				logger.Error(err),
			)
			continue
		}
		saved++
	}
	if saved > 0 {
		s.logger.Info(ctx, "saved modifier snapshots", logger.Int("subjects", saved))
	}
}

// Hatch resolves one egg for a subject. Requests carrying an already
// seen request ID are acknowledged without drawing a new reward.
func (s *Service) Hatch(ctx context.Context, requestID, subjectID, eggID string) (types.Reward, bool, error) {
	if requestID != "" && s.deduper.SeenAndRecord(ctx, requestID) {
		metrics.RecordHatchDuplicate()
		s.logger.Debug(ctx, "duplicate hatch request",
			logger.String("request_id", requestID),
			logger.String("subject_id", subjectID),
		)
		return types.Reward{}, true, nil
	}

	unrecord := func() {
		if requestID != "" {
			s.deduper.Unrecord(ctx, requestID)
		}
	}

	egg, err := s.catalog.Egg(eggID)
	if err != nil {
		unrecord()
		metrics.RecordHatchError()
		return types.Reward{}, false, err
	}

	now := time.Now()
	aggregates := s.engine.Aggregates(subjectID, now)

	start := time.Now()
	resolved, err := reward.Resolve(egg.Pool, egg.Table, egg.Caps, aggregates, s.rng)
	metrics.RecordResolveLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		unrecord()
		metrics.RecordHatchError()
		return types.Reward{}, false, fmt.Errorf("resolve %s: %w", eggID, err)
	}

	attrs, err := egg.Attributes(resolved.CategoryID, resolved.RarityID)
	if err != nil {
		unrecord()
		metrics.RecordHatchError()
		return types.Reward{}, false, err
	}

	hatchID := uuid.NewString()
	event := model.HatchEvent{
		HatchID:    hatchID,
		RequestID:  requestID,
		SubjectID:  subjectID,
		EggID:      eggID,
		CategoryID: resolved.CategoryID,
		RarityID:   resolved.RarityID,
		Luck:       aggregates[reward.DefaultLuckStat],
		At:         now,
	}
	// A saturated queue rejects the hatch instead of dropping the
	// record; the request ID is released so the client can retry.
	if !s.outcomes.Enqueue(ctx, event) {
		unrecord()
		metrics.RecordHatchError()
		s.logger.Warn(ctx, "outcome queue full, hatch rejected",
			logger.String("subject_id", subjectID),
			logger.String("egg_id", eggID),
		)
		return types.Reward{}, false, fmt.Errorf("record hatch: %w", queue.ErrFull)
	}

	metrics.RecordHatch(resolved.CategoryID, resolved.RarityID)

	return types.Reward{
		HatchID:    hatchID,
		EggID:      eggID,
		CategoryID: resolved.CategoryID,
		RarityID:   resolved.RarityID,
		Name:       attrs.Name,
		Power:      attrs.Power,
	}, false, nil
}

// ApplyEffect applies a stat modifier and persists the subject's new
// snapshot.
func (s *Service) ApplyEffect(ctx context.Context, subjectID, sourceID, statKey string, value float64, duration time.Duration, policy string) error {
	parsed, err := effects.ParsePolicy(policy)
	if err != nil {
		return err
	}

	if _, err := s.engine.Apply(subjectID, sourceID, statKey, value, duration, parsed); err != nil {
		return err
	}

	metrics.RecordModifierApplied()
	metrics.UpdateTrackedSubjects(s.engine.SubjectCount())

	return s.persistSubject(ctx, subjectID)
}

// RemoveEffect removes all modifiers from (subjectID, sourceID,
// statKey) and persists the subject's new snapshot.
func (s *Service) RemoveEffect(ctx context.Context, subjectID, sourceID, statKey string) (bool, error) {
	removed := s.engine.Remove(subjectID, sourceID, statKey)
	if !removed {
		return false, nil
	}

	metrics.RecordModifierRemoved()
	metrics.UpdateTrackedSubjects(s.engine.SubjectCount())

	if err := s.persistSubject(ctx, subjectID); err != nil {
		return true, err
	}
	return true, nil
}

func (s *Service) persistSubject(ctx context.Context, subjectID string) error {
	records := s.engine.Export(subjectID, time.Now())
	if err := s.modifiers.Save(ctx, subjectID, records); err != nil {
		return fmt.Errorf("persist modifiers for %s: %w", subjectID, err)
	}
	return nil
}

// Effects lists a subject's active modifiers.
func (s *Service) Effects(_ context.Context, subjectID string) []types.ModifierView {
	now := time.Now()
	mods := s.engine.Modifiers(subjectID, now)

	views := make([]types.ModifierView, 0, len(mods))
	for _, m := range mods {
		view := types.ModifierView{
			SourceID:  m.SourceID,
			StatKey:   m.StatKey,
			Value:     m.Value,
			Permanent: m.Permanent(),
		}
		if !m.Permanent() {
			view.SecondsLeft = m.ExpiresAt.Sub(now).Seconds()
		}
		views = append(views, view)
	}
	return views
}

// Aggregates returns the subject's per-stat aggregate bonuses.
func (s *Service) Aggregates(_ context.Context, subjectID string) map[string]float64 {
	return s.engine.Aggregates(subjectID, time.Now())
}

// Odds previews the effective rarity odds a subject currently sees for
// one egg. An empty subjectID reports the unboosted base odds.
func (s *Service) Odds(_ context.Context, eggID, subjectID string) ([]reward.Odds, error) {
	egg, err := s.catalog.Egg(eggID)
	if err != nil {
		return nil, err
	}

	var aggregates map[string]float64
	if subjectID != "" {
		aggregates = s.engine.Aggregates(subjectID, time.Now())
	}

	odds, err := reward.EffectiveOdds(egg.Table, egg.Caps, aggregates)
	if err != nil {
		return nil, fmt.Errorf("odds for %s: %w", eggID, err)
	}
	return odds, nil
}

// History lists recently recorded hatches, newest first.
func (s *Service) History(ctx context.Context, subjectID string, limit int) ([]types.HistoryEntry, error) {
	return s.history.Recent(ctx, subjectID, limit)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
	}

	if s.started {
		stats["queueLength"] = s.outcomes.Len(ctx)
		stats["trackedSubjects"] = s.engine.SubjectCount()
		stats["totalHatches"] = s.history.Count(ctx)
		stats["eggs"] = s.catalog.EggIDs()
		stats["catalogVersion"] = s.catalog.Version()
		if counts, err := s.history.Counts(ctx); err == nil {
			stats["hatchesByRarity"] = counts
		}
	}

	return stats
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}
