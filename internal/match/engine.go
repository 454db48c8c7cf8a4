package match

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/justsurfingit/job-tracker/internal/logger"
	"github.com/justsurfingit/job-tracker/internal/metrics"
	"go.uber.org/zap"
)

const (
	defaultTemperature  = 0.3
	defaultMaxTokens    = 1000
	defaultMaxLogLength = 200

	reasonNoCredential = "no_credential"
	reasonParseFailed  = "parse_failed"
	reasonOK           = "ok"
)

type Options struct {
	// Completer is nil when no usable credential was configured; the engine
	// then scores with the keyword heuristic for its whole lifetime.
	Completer    Completer
	Breaker      *Breaker
	Temperature  float64
	MaxTokens    int
	// Timeout bounds each remote call; zero leaves it to the caller's context.
	Timeout      time.Duration
	Model        string
	MaxLogLength int
	Logger       *zap.Logger
}

// Engine scores resumes against job descriptions. It holds no mutable state
// and is safe for concurrent use.
type Engine struct {
	completer Completer
	breaker   *Breaker
	callOpts  CallOptions
	timeout   time.Duration
	model     string
	maxLogLen int
	logger    *zap.Logger
}

func New(opts Options) *Engine {
	if opts.Temperature < 0 {
		opts.Temperature = defaultTemperature
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.MaxLogLength <= 0 {
		opts.MaxLogLength = defaultMaxLogLength
	}

	return &Engine{
		completer: opts.Completer,
		breaker:   opts.Breaker,
		callOpts:  CallOptions{Temperature: opts.Temperature, MaxTokens: opts.MaxTokens},
		timeout:   opts.Timeout,
		model:     opts.Model,
		maxLogLen: opts.MaxLogLength,
		logger:    logger.OrNop(opts.Logger).With(zap.String("component", "match_engine")),
	}
}

// RemoteEnabled reports whether scoring goes to the language model first.
func (e *Engine) RemoteEnabled() bool {
	return e.completer != nil
}

// Mode is "remote" or "fallback", for health reporting.
func (e *Engine) Mode() string {
	if e.RemoteEnabled() {
		return metrics.PathRemote
	}
	return metrics.PathFallback
}

// BreakerState reports the circuit breaker state, or "disabled".
func (e *Engine) BreakerState() string {
	return e.breaker.State()
}

// ScoreMatch always returns an assessment. Remote failures and malformed
// model output degrade to the keyword heuristic or to default values; they
// are logged and counted, never returned.
func (e *Engine) ScoreMatch(ctx context.Context, resumeText, jobDescription string) Assessment {
	if e.completer == nil {
		return e.fallback(reasonNoCredential, resumeText, jobDescription)
	}

	res := e.callRemote(ctx, resumeText, jobDescription)
	if !res.ok() {
		e.logger.Warn("llm call failed, using fallback scoring",
			zap.String("reason", string(res.failure)),
			zap.Error(res.err),
		)
		return e.fallback(string(res.failure), resumeText, jobDescription)
	}

	assessment, ok := parseResponse(res.raw)
	if !ok {
		e.logger.Warn("could not parse llm response",
			zap.Int("response_length", utf8.RuneCountInString(res.raw)),
			zap.String("response_preview", logger.TruncateForLog(res.raw, e.maxLogLen)),
		)
		metrics.ScoringTotal.WithLabelValues(metrics.PathRemote, reasonParseFailed).Inc()
		return assessment
	}

	metrics.ScoringTotal.WithLabelValues(metrics.PathRemote, reasonOK).Inc()
	e.logger.Debug("llm match scored",
		zap.Int("score", assessment.Score),
		zap.Int("skills", len(assessment.SkillBreakdown)),
	)
	return assessment
}

func (e *Engine) fallback(reason, resumeText, jobDescription string) Assessment {
	metrics.ScoringTotal.WithLabelValues(metrics.PathFallback, reason).Inc()
	return fallbackAssessment(resumeText, jobDescription)
}

func (e *Engine) callRemote(ctx context.Context, resumeText, jobDescription string) (res remoteResult) {
	prompt := buildPrompt(resumeText, jobDescription)

	e.logger.Debug("llm match request",
		zap.String("model", e.model),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, e.maxLogLen)),
	)

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	started := time.Now()
	defer func() {
		// Provider SDK panics are treated like any other failed call.
		if r := recover(); r != nil {
			res = failed(fmt.Errorf("llm client panic: %v", r))
		}
		outcome := "ok"
		if !res.ok() {
			outcome = string(res.failure)
		}
		metrics.RemoteCallDuration.WithLabelValues(outcome).Observe(time.Since(started).Seconds())
	}()

	raw, err := e.breaker.Execute(func() (string, error) {
		return e.completer.Complete(ctx, systemInstruction, prompt, e.callOpts)
	})
	if err != nil {
		return failed(err)
	}
	return succeeded(raw)
}
