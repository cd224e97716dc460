package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/proctor-backend/internal/config"
	"github.com/stemsi/proctor-backend/internal/model"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// AuditWriter is the durable side of the audit trail.
type AuditWriter interface {
	CopyBatch(ctx context.Context, entries []model.AuditEntry) error
	Insert(ctx context.Context, e model.AuditEntry) error
}

// AuditWorker drains the audit queue filled by session transitions into
// session_audit_log, batching with COPY and degrading to row inserts.
type AuditWorker struct {
	store AuditWriter
	rdb   *redis.Client
	log   zerolog.Logger
}

func NewAuditWorker(store AuditWriter, rdb *redis.Client, log zerolog.Logger) *AuditWorker {
	return &AuditWorker{
		store: store,
		rdb:   rdb,
		log:   log.With().Str("component", "audit_worker").Logger(),
	}
}

func (w *AuditWorker) Start(ctx context.Context) {
	w.log.Info().Msg("AuditWorker started")

	buffer := make([]model.AuditEntry, 0, BatchSize)
	lastFlushTime := time.Now()

	for {
		if len(buffer) > 0 && (len(buffer) >= BatchSize || time.Since(lastFlushTime) >= BatchTimeout) {
			w.flushSafe(ctx, buffer)
			buffer = buffer[:0]
			lastFlushTime = time.Now()
		}

		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		// BLPop returns immediately if data exists.
		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistAuditQueue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				w.shutdown(buffer)
				return
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}
		if len(result) < 2 {
			continue
		}

		entry, err := decodeEntry([]byte(result[1]))
		if err != nil {
			// Malformed entries can never succeed.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed audit entry")
			continue
		}
		buffer = append(buffer, entry)
	}
}

var errIncompleteEntry = errors.New("audit entry is missing its session key or action")

func decodeEntry(data []byte) (model.AuditEntry, error) {
	var e model.AuditEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return e, err
	}
	if e.ExamID == uuid.Nil || e.UserID == "" || e.Action == "" {
		return e, errIncompleteEntry
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now().UTC()
	}
	return e, nil
}

// flushSafe attempts a bulk insert, then row inserts, then requeues what is left.
func (w *AuditWorker) flushSafe(ctx context.Context, batch []model.AuditEntry) {
	err := w.store.CopyBatch(ctx, batch)
	if err == nil {
		return
	}
	w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")

	if failed := w.fallbackInsert(ctx, batch); len(failed) > 0 {
		w.requeue(ctx, failed)
	}
}

func (w *AuditWorker) fallbackInsert(ctx context.Context, batch []model.AuditEntry) []model.AuditEntry {
	var failed []model.AuditEntry
	for _, e := range batch {
		if err := w.store.Insert(ctx, e); err != nil {
			w.log.Error().Err(err).
				Str("exam_id", e.ExamID.String()).
				Str("user_id", e.UserID).
				Str("action", string(e.Action)).
				Msg("Insert failed, requeueing")
			failed = append(failed, e)
		}
	}
	return failed
}

func (w *AuditWorker) requeue(ctx context.Context, items []model.AuditEntry) {
	pipe := w.rdb.Pipeline()
	for _, e := range items {
		data, _ := json.Marshal(e)
		pipe.RPush(ctx, config.WorkerKey.PersistAuditQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Int("count", len(items)).Msg("CRITICAL: Failed to requeue audit entries. Data loss occurred.")
		return
	}
	w.log.Info().Int("count", len(items)).Msg("Requeued failed audit entries")
	// Avoid thrashing while the database is down.
	time.Sleep(2 * time.Second)
}

func (w *AuditWorker) shutdown(buffer []model.AuditEntry) {
	w.log.Info().Int("pending", len(buffer)).Msg("Worker stopping, flushing remaining buffer")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}
}
