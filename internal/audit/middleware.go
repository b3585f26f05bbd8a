package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"entity-audit/internal/auth"
	"entity-audit/pkg/logger"
	"entity-audit/pkg/utils"

	"github.com/gin-gonic/gin"
)

// Recorder persists a built record. *Service satisfies it.
type Recorder interface {
	Create(ctx context.Context, r Record) (Record, error)
}

// DefaultMaxPayloadBytes is the serialized size ceiling for old/new values
// when EngineConfig leaves it unset.
const DefaultMaxPayloadBytes = 5000

type EngineConfig struct {
	MaxPayloadBytes int
	// MaxBodyBytes caps how much of a request or response body is buffered.
	// Larger bodies pass through untouched and are audited without payload.
	MaxBodyBytes   int64
	PersistTimeout time.Duration
}

// Engine is the interception middleware. It snapshots before UPDATEs, lets
// the handler run unmodified, and records successful mutations off the
// request path. Nothing it does can fail the request.
type Engine struct {
	classifier     *Classifier
	builder        *Builder
	snapshots      SnapshotFetcher
	store          Recorder
	metrics        *Metrics
	maxBody        int64
	persistTimeout time.Duration
}

func NewEngine(store Recorder, snapshots SnapshotFetcher, fields *FieldTable, cfg EngineConfig, metrics *Metrics) *Engine {
	if fields == nil {
		fields = NewFieldTable()
	}
	if cfg.MaxPayloadBytes <= 0 {
		cfg.MaxPayloadBytes = DefaultMaxPayloadBytes
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = 5 * time.Second
	}
	return &Engine{
		classifier:     NewClassifier(),
		builder:        NewBuilder(fields, cfg.MaxPayloadBytes),
		snapshots:      snapshots,
		store:          store,
		metrics:        metrics,
		maxBody:        cfg.MaxBodyBytes,
		persistTimeout: cfg.PersistTimeout,
	}
}

func (e *Engine) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		req := c.Request
		log := logger.FromGin(c)

		class := e.classifier.Classify(req.URL.Path, req.Method)
		if !class.ShouldAudit {
			e.skip(log, class.Reason, class)
			c.Next()
			return
		}
		actor, ok := auth.ActorFrom(req.Context())
		if !ok {
			e.skip(log, "no_actor", class)
			c.Next()
			return
		}

		body := e.captureBody(c)

		var snapshot map[string]any
		id := c.Param("id")
		if ActionFromMethod(req.Method) == ActionUpdate && id != "" && e.snapshots != nil {
			snapshot = e.snapshots.Fetch(req.Context(), class.Module, id)
			if snapshot == nil {
				log.Debug("audit: no snapshot, recording without old values", "module", string(class.Module), "entity_id", id)
			}
		}

		cw := &captureWriter{ResponseWriter: c.Writer, limit: e.maxBody}
		c.Writer = cw

		c.Next()

		if err := req.Context().Err(); err != nil {
			e.skip(log, "cancelled", class)
			return
		}

		params := make(map[string]string, len(c.Params))
		for _, p := range c.Params {
			params[p.Key] = p.Value
		}
		in := BuildInput{
			Method:    req.Method,
			Class:     class,
			ActorID:   actor.ID,
			ActorName: actor.Name,
			Params:    params,
			Body:      body,
			Snapshot:  snapshot,
			Status:    cw.Status(),
			Response:  cw.captured(),
			IPAddress: c.ClientIP(),
			UserAgent: req.UserAgent(),
		}
		ctx := logger.Detached(req.Context())
		utils.Go(log, func() { e.record(ctx, in) })
	}
}

func (e *Engine) record(ctx context.Context, in BuildInput) {
	log := logger.From(ctx).With("module", string(in.Class.Module), "method", in.Method)

	rec, err := e.builder.Build(in)
	switch {
	case errors.Is(err, ErrNoActor):
		e.skip(log, "no_actor", in.Class)
		return
	case errors.Is(err, ErrUnsuccessful):
		e.skip(log, "unsuccessful", in.Class)
		return
	case err != nil:
		e.metrics.fail(StageBuild)
		log.Error("audit: build failed", "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, e.persistTimeout)
	defer cancel()
	if _, err := e.store.Create(ctx, *rec); err != nil {
		e.metrics.fail(StagePersist)
		log.Error("audit: persist failed", "entity_id", rec.EntityID, "err", err)
		return
	}
	log.Debug("audit: recorded", "action", string(rec.Action), "entity_id", rec.EntityID)
}

func (e *Engine) skip(log *slog.Logger, reason string, class Classification) {
	e.metrics.skip(reason)
	log.Debug("audit: skipped", "reason", reason, "module", string(class.Module))
}

// captureBody buffers the request body, restores it for the handler and
// returns it decoded when it is a JSON object within the size limit.
func (e *Engine) captureBody(c *gin.Context) map[string]any {
	req := c.Request
	if req.Body == nil || req.Body == http.NoBody {
		return nil
	}
	if req.ContentLength > e.maxBody {
		return nil
	}

	buf, err := io.ReadAll(io.LimitReader(req.Body, e.maxBody+1))
	switch {
	case err != nil:
		// the handler must still see the read failure after the bytes we took
		req.Body = readCloser{io.MultiReader(bytes.NewReader(buf), errReader{err}), req.Body}
		return nil
	case int64(len(buf)) > e.maxBody:
		req.Body = readCloser{io.MultiReader(bytes.NewReader(buf), req.Body), req.Body}
		return nil
	}
	req.Body = readCloser{bytes.NewReader(buf), req.Body}
	if len(bytes.TrimSpace(buf)) == 0 {
		return nil
	}

	var out map[string]any
	dec := json.NewDecoder(bytes.NewReader(buf))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil
	}
	return out
}

// readCloser replays buffered bytes but closes the original body.
type readCloser struct {
	io.Reader
	io.Closer
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

// captureWriter tees the response body into a bounded buffer while it is
// written to the client.
type captureWriter struct {
	gin.ResponseWriter
	buf      bytes.Buffer
	limit    int64
	overflow bool
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.tee(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.tee([]byte(s))
	return w.ResponseWriter.WriteString(s)
}

func (w *captureWriter) tee(b []byte) {
	if w.overflow {
		return
	}
	if int64(w.buf.Len()+len(b)) > w.limit {
		w.overflow = true
		w.buf.Reset()
		return
	}
	w.buf.Write(b)
}

// captured returns the body, or nil when it exceeded the limit.
func (w *captureWriter) captured() []byte {
	if w.overflow {
		return nil
	}
	return bytes.Clone(w.buf.Bytes())
}
