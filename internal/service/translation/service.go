// Package translation implements the TranslationService on top of an LLM.
// Every provider call runs under its own timeout, is retried on transient
// failures and goes through a circuit breaker shared by all callers.
package translation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/avast/retry-go/v4"
	"github.com/sony/gobreaker"
	"github.com/tidwall/gjson"

	"supportkb/internal/domain"
	wikiSvc "supportkb/internal/domain/services/wiki"
	"supportkb/internal/service/markup"
)

const maxRawInError = 500

// Options tune provider calls
type Options struct {
	Timeout    time.Duration // per attempt
	Attempts   uint
	RetryDelay time.Duration
	// Consecutive failures before the breaker opens
	BreakerThreshold uint32
	BreakerCooldown  time.Duration
}

// DefaultOptions returns the production defaults
func DefaultOptions() Options {
	return Options{
		Timeout:          60 * time.Second,
		Attempts:         3,
		RetryDelay:       time.Second,
		BreakerThreshold: 5,
		BreakerCooldown:  30 * time.Second,
	}
}

// service implements wikiSvc.TranslationService
type service struct {
	generator Generator
	breaker   *gobreaker.CircuitBreaker
	opts      Options
	logger    *slog.Logger
}

// NewService creates the LLM translation service
func NewService(generator Generator, opts Options, logger *slog.Logger) wikiSvc.TranslationService {
	if opts.Attempts == 0 {
		opts.Attempts = 1
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "translation",
		Timeout: opts.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return opts.BreakerThreshold > 0 && counts.ConsecutiveFailures >= opts.BreakerThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &service{
		generator: generator,
		breaker:   breaker,
		opts:      opts,
		logger:    logger,
	}
}

func (s *service) Translate(ctx context.Context, req *wikiSvc.TranslateRequest) (*wikiSvc.TranslateResult, error) {
	if strings.TrimSpace(req.SourceText) == "" {
		return &wikiSvc.TranslateResult{}, nil
	}

	var priorSource, priorTranslation string
	if req.Prior != nil {
		priorSource, priorTranslation = req.Prior.Source, req.Prior.Translation
	}
	prompt := buildTranslatePrompt(req.SourceLocale, req.TargetLocale, req.SourceText, priorSource, priorTranslation)

	raw, err := s.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	obj, ok := jsonObject(raw)
	if !ok {
		return nil, formatError("translation answer is not a JSON object", raw)
	}
	translation := gjson.Get(obj, "translation")
	if translation.Type != gjson.String {
		return nil, formatError("translation answer has no translation field", raw)
	}

	s.logger.Debug("text translated",
		"source_locale", req.SourceLocale,
		"target_locale", req.TargetLocale,
		"chars", len(req.SourceText),
	)

	return &wikiSvc.TranslateResult{
		Translation: translation.String(),
		Explanation: gjson.Get(obj, "explanation").String(),
	}, nil
}

// GetHeadingMap asks the provider to pair up headings. Only ids present in the
// respective documents survive; an unparseable answer yields an empty map.
func (s *service) GetHeadingMap(ctx context.Context, sourceHTML, targetHTML, sourceLocale, targetLocale string) (*wikiSvc.HeadingMap, error) {
	empty := &wikiSvc.HeadingMap{Map: map[string]string{}}

	source := markup.ExtractHeadings(sourceHTML)
	target := markup.ExtractHeadings(targetHTML)
	if len(source) == 0 || len(target) == 0 {
		return empty, nil
	}

	raw, err := s.complete(ctx, buildHeadingMapPrompt(sourceLocale, targetLocale, source, target))
	if err != nil {
		return nil, err
	}

	obj, ok := jsonObject(raw)
	if !ok || !gjson.Get(obj, "map").IsObject() {
		s.logger.Warn("unparseable heading map answer",
			"source_locale", sourceLocale,
			"target_locale", targetLocale,
			"raw", truncate(raw),
		)
		return empty, nil
	}

	sourceIDs := headingIDSet(source)
	targetIDs := headingIDSet(target)
	result := &wikiSvc.HeadingMap{
		Map:         make(map[string]string),
		Explanation: gjson.Get(obj, "explanation").String(),
	}
	gjson.Get(obj, "map").ForEach(func(key, value gjson.Result) bool {
		from, to := key.String(), value.String()
		if _, ok := sourceIDs[from]; !ok {
			return true
		}
		if _, ok := targetIDs[to]; !ok || value.Type != gjson.String {
			return true
		}
		result.Map[from] = to
		return true
	})

	return result, nil
}

// complete runs one prompt with per-attempt timeout, retries and the breaker
func (s *service) complete(ctx context.Context, prompt string) (string, error) {
	return retry.DoWithData(
		func() (string, error) {
			attemptCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
			defer cancel()

			out, err := s.breaker.Execute(func() (interface{}, error) {
				return s.generator.Generate(attemptCtx, prompt)
			})
			if err != nil {
				return "", err
			}
			return out.(string), nil
		},
		retry.Context(ctx),
		retry.Attempts(s.opts.Attempts),
		retry.Delay(s.opts.RetryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Warn("translation provider call failed, retrying", "attempt", n+1, "error", err)
		}),
	)
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, gobreaker.ErrOpenState),
		errors.Is(err, gobreaker.ErrTooManyRequests):
		return false
	}
	return true
}

// jsonObject pulls the outermost JSON object out of an answer that may be
// wrapped in prose or a code fence
func jsonObject(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return "", false
	}
	obj := raw[start : end+1]
	if !gjson.Valid(obj) {
		return "", false
	}
	return obj, true
}

func headingIDSet(headings []markup.Heading) map[string]struct{} {
	ids := make(map[string]struct{}, len(headings))
	for _, h := range headings {
		ids[h.ID] = struct{}{}
	}
	return ids
}

func formatError(message, raw string) error {
	return &domain.TranslationFormatError{
		Message: fmt.Sprintf("%s: %s", domain.ErrTranslationFormat, message),
		Raw:     truncate(raw),
	}
}

func truncate(s string) string {
	if len(s) <= maxRawInError {
		return s
	}
	cut := maxRawInError
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
