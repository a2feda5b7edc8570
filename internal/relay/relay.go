// Package relay performs one outbound call on a caller's behalf and records
// the outcome in history.
package relay

import (
	"context"
	"maps"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/relay/internal/domain"
	"github.com/MrSnakeDoc/relay/internal/executor"
	"github.com/MrSnakeDoc/relay/internal/logger"
)

// DefaultWriteTimeout bounds the history insert once the outcome is known.
const DefaultWriteTimeout = 5 * time.Second

// Executor performs the outbound call.
type Executor interface {
	Execute(ctx context.Context, call executor.Call) (domain.Outcome, error)
}

// Recorder persists finished attempts.
type Recorder interface {
	Insert(ctx context.Context, rec domain.Record) (int64, error)
}

// Response is what the caller gets back: the relayed call, not the relay itself.
type Response struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers"`
	Body       domain.Body       `json:"body"`
	IsError    bool              `json:"isError"`

	AttemptID string `json:"-"`
	// RecordID is 0 when the history write failed.
	RecordID int64 `json:"-"`
}

// Options tunes a Service. Zero values pick the defaults.
type Options struct {
	WriteTimeout time.Duration
	Now          func() time.Time
}

// Service runs relay attempts. It is safe for concurrent use.
type Service struct {
	exec         Executor
	recorder     Recorder
	log          logger.Logger
	writeTimeout time.Duration
	now          func() time.Time
	stats        counters
}

// New wires a relay service.
func New(exec Executor, recorder Recorder, log logger.Logger, opts Options) *Service {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		exec:         exec,
		recorder:     recorder,
		log:          log,
		writeTimeout: opts.WriteTimeout,
		now:          opts.Now,
	}
}

// Relay validates req, sends it once, records the outcome and returns it.
//
// Errors: domain.ErrInvalidRequest before anything is sent, and
// executor.ErrCanceled when ctx ended before an outcome was known. Neither
// writes a record. A failed history write is logged and counted but never
// returned.
func (s *Service) Relay(ctx context.Context, req domain.Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	attemptID := uuid.NewString()
	log := s.log.With(logger.String("attempt_id", attemptID))

	call := executor.Call{
		Method:  req.NormalizedMethod(),
		URL:     req.URL,
		Headers: maps.Clone(req.Headers),
	}
	if call.Headers == nil {
		call.Headers = map[string]string{}
	}
	if req.HasBody() {
		wire, contentType := executor.EncodeBody(req.Body, req.Headers)
		call.Body = wire
		if contentType != "" {
			call.Headers["Content-Type"] = contentType
		}
	}

	start := time.Now()
	outcome, err := s.exec.Execute(ctx, call)
	elapsed := time.Since(start)
	if err != nil {
		s.stats.canceled.Add(1)
		log.Info("relay_attempt canceled by caller",
			logger.String("method", call.Method),
			logger.String("host", hostOf(req.URL)),
			logger.Duration("duration", elapsed),
			logger.Error(err))
		return nil, err
	}
	s.stats.attempts.Add(1)

	rec := domain.NewRecord(req, string(call.Body), outcome, s.now())
	recordID := s.record(ctx, log, rec)

	resp := buildResponse(rec)
	resp.AttemptID = attemptID
	resp.RecordID = recordID

	fields := []logger.Field{
		logger.String("method", rec.Method),
		logger.String("host", hostOf(rec.URL)),
		logger.String("outcome", outcomeKind(outcome)),
		logger.Int("status", rec.StatusCode),
		logger.Duration("duration", elapsed),
		logger.Int64("record_id", recordID),
	}
	switch o := outcome.(type) {
	case *domain.NetworkFailure:
		s.stats.networkFailures.Add(1)
		log.Warn("relay_attempt", append(fields, logger.String("error", o.Message))...)
	case *domain.HTTPResponse:
		if o.Truncated {
			log.Warn("relay_attempt response body truncated", append(fields, logger.Int("kept_bytes", len(o.Body)))...)
		} else {
			log.Info("relay_attempt", fields...)
		}
	}

	return resp, nil
}

// record inserts rec on a context that survives caller cancellation: the
// outcome is known at this point and must not be lost to a late disconnect.
func (s *Service) record(ctx context.Context, log logger.Logger, rec domain.Record) int64 {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.writeTimeout)
	defer cancel()

	id, err := s.recorder.Insert(writeCtx, rec)
	if err != nil {
		s.stats.historyWriteFailures.Add(1)
		log.Error("history write failed",
			logger.String("method", rec.Method),
			logger.String("host", hostOf(rec.URL)),
			logger.Int("status", rec.StatusCode),
			logger.Error(err))
		return 0
	}
	return id
}

// Stats returns the attempt counters since startup.
func (s *Service) Stats() Stats {
	return s.stats.snapshot()
}

func buildResponse(rec domain.Record) *Response {
	return &Response{
		StatusCode: rec.StatusCode,
		Headers:    rec.ResponseHeaders,
		Body:       domain.ParseBody(rec.ResponseBody),
		IsError:    rec.IsError(),
	}
}

// WrapperStatus is the relay endpoint's own HTTP status: the relayed one when
// it is a final status that may carry a body, 200 otherwise (network
// failures, 1xx, 204 and 304).
func WrapperStatus(relayed int) int {
	switch {
	case relayed == http.StatusNoContent, relayed == http.StatusNotModified:
		return http.StatusOK
	case relayed >= 200 && relayed <= 599:
		return relayed
	default:
		return http.StatusOK
	}
}

func outcomeKind(o domain.Outcome) string {
	if _, ok := o.(*domain.NetworkFailure); ok {
		return "network_failure"
	}
	return "http_response"
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Host
}
