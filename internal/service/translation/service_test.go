package translation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supportkb/internal/domain"
	wikiSvc "supportkb/internal/domain/services/wiki"
)

// scriptedGenerator replays answers in order; the last one repeats
type scriptedGenerator struct {
	mu      sync.Mutex
	answers []answer
	prompts []string
}

type answer struct {
	text string
	err  error
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	a := g.answers[0]
	if len(g.answers) > 1 {
		g.answers = g.answers[1:]
	}
	g.mu.Unlock()
	return a.text, a.err
}

func (g *scriptedGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

func testOptions() Options {
	return Options{Timeout: time.Second, Attempts: 3, RetryDelay: time.Millisecond}
}

func newTestService(gen Generator, opts Options) wikiSvc.TranslationService {
	return NewService(gen, opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestTranslate(t *testing.T) {
	gen := &scriptedGenerator{answers: []answer{{
		text: "Sure! ```json\n{\"translation\": \"= Bonjour =\", \"explanation\": \"greeting\"}\n```",
	}}}
	svc := newTestService(gen, testOptions())

	res, err := svc.Translate(context.Background(), &wikiSvc.TranslateRequest{
		SourceText:   "= Hello =",
		SourceLocale: "en-US",
		TargetLocale: "fr",
		Prior:        &wikiSvc.TranslationPair{Source: "= Hi =", Translation: "= Salut ="},
	})
	require.NoError(t, err)
	assert.Equal(t, "= Bonjour =", res.Translation)
	assert.Equal(t, "greeting", res.Explanation)

	require.Equal(t, 1, gen.calls())
	assert.Contains(t, gen.prompts[0], "= Salut =")
	assert.Contains(t, gen.prompts[0], "from en-US to fr")
}

func TestTranslate_FormatErrors(t *testing.T) {
	tests := []struct {
		name   string
		answer string
	}{
		{name: "prose", answer: "I cannot do that"},
		{name: "missing field", answer: `{"explanation": "oops"}`},
		{name: "wrong type", answer: `{"translation": 42}`},
		{name: "broken json", answer: `{"translation": "x"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&scriptedGenerator{answers: []answer{{text: tt.answer}}}, testOptions())
			_, err := svc.Translate(context.Background(), &wikiSvc.TranslateRequest{SourceText: "x", SourceLocale: "en-US", TargetLocale: "fr"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrTranslationFormat), "got %v", err)

			var formatErr *domain.TranslationFormatError
			require.True(t, errors.As(err, &formatErr))
			assert.Equal(t, tt.answer, formatErr.Raw)
		})
	}
}

func TestTranslate_RetriesTransientFailures(t *testing.T) {
	gen := &scriptedGenerator{answers: []answer{
		{err: errors.New("502 bad gateway")},
		{err: errors.New("connection reset")},
		{text: `{"translation": "ok", "explanation": ""}`},
	}}
	svc := newTestService(gen, testOptions())

	res, err := svc.Translate(context.Background(), &wikiSvc.TranslateRequest{SourceText: "x", SourceLocale: "en-US", TargetLocale: "fr"})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Translation)
	assert.Equal(t, 3, gen.calls())
}

func TestTranslate_PerAttemptTimeout(t *testing.T) {
	gen := generatorFunc(func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	opts := testOptions()
	opts.Timeout = 10 * time.Millisecond
	opts.Attempts = 1
	svc := newTestService(gen, opts)

	_, err := svc.Translate(context.Background(), &wikiSvc.TranslateRequest{SourceText: "x", SourceLocale: "en-US", TargetLocale: "fr"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}

func TestTranslate_BreakerOpens(t *testing.T) {
	gen := &scriptedGenerator{answers: []answer{{err: errors.New("provider down")}}}
	opts := testOptions()
	opts.Attempts = 1
	opts.BreakerThreshold = 2
	opts.BreakerCooldown = time.Hour
	svc := newTestService(gen, opts)

	req := &wikiSvc.TranslateRequest{SourceText: "x", SourceLocale: "en-US", TargetLocale: "fr"}
	for i := 0; i < 2; i++ {
		_, err := svc.Translate(context.Background(), req)
		require.Error(t, err)
	}

	_, err := svc.Translate(context.Background(), req)
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState), "got %v", err)
	assert.Equal(t, 2, gen.calls(), "open breaker short-circuits the provider")
}

func TestTranslate_EmptySourceSkipsProvider(t *testing.T) {
	gen := &scriptedGenerator{answers: []answer{{err: errors.New("unexpected call")}}}
	svc := newTestService(gen, testOptions())

	res, err := svc.Translate(context.Background(), &wikiSvc.TranslateRequest{SourceText: "  ", SourceLocale: "en-US", TargetLocale: "fr"})
	require.NoError(t, err)
	assert.Empty(t, res.Translation)
	assert.Zero(t, gen.calls())
}

const (
	sourceHTML = `<h1 id="w_install">Install</h1><p>x</p><h2 id="w_requirements">Requirements</h2><h2 id="w_faq">FAQ</h2>`
	targetHTML = `<h1 id="w_installer">Installer</h1><p>x</p><h2 id="w_configuration-requise">Configuration requise</h2>`
)

func TestGetHeadingMap(t *testing.T) {
	gen := &scriptedGenerator{answers: []answer{{
		text: `{"map": {"w_install": "w_installer", "w_requirements": "w_configuration-requise", "w_faq": "w_made_up", "w_nope": "w_installer"}, "explanation": "matched by meaning"}`,
	}}}
	svc := newTestService(gen, testOptions())

	hm, err := svc.GetHeadingMap(context.Background(), sourceHTML, targetHTML, "en-US", "fr")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"w_install":      "w_installer",
		"w_requirements": "w_configuration-requise",
	}, hm.Map)
	assert.Equal(t, "matched by meaning", hm.Explanation)

	require.Equal(t, 1, gen.calls())
	assert.True(t, strings.Contains(gen.prompts[0], "w_requirements: Requirements"))
}

func TestGetHeadingMap_Degrades(t *testing.T) {
	t.Run("unparseable answer", func(t *testing.T) {
		svc := newTestService(&scriptedGenerator{answers: []answer{{text: "no idea"}}}, testOptions())
		hm, err := svc.GetHeadingMap(context.Background(), sourceHTML, targetHTML, "en-US", "fr")
		require.NoError(t, err)
		assert.Empty(t, hm.Map)
	})

	t.Run("no headings skips the provider", func(t *testing.T) {
		gen := &scriptedGenerator{answers: []answer{{err: errors.New("unexpected call")}}}
		svc := newTestService(gen, testOptions())
		hm, err := svc.GetHeadingMap(context.Background(), "<p>plain</p>", targetHTML, "en-US", "fr")
		require.NoError(t, err)
		assert.Empty(t, hm.Map)
		assert.Zero(t, gen.calls())
	})

	t.Run("transport failure is an error", func(t *testing.T) {
		opts := testOptions()
		opts.Attempts = 1
		svc := newTestService(&scriptedGenerator{answers: []answer{{err: errors.New("down")}}}, opts)
		_, err := svc.GetHeadingMap(context.Background(), sourceHTML, targetHTML, "en-US", "fr")
		assert.Error(t, err)
	})
}

type generatorFunc func(ctx context.Context, prompt string) (string, error)

func (f generatorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func TestTruncate_KeepsRunesWhole(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{name: "ascii", in: strings.Repeat("a", maxRawInError+10)},
		{name: "cjk across the limit", in: "a" + strings.Repeat("翻", maxRawInError)},
		{name: "emoji", in: "ab" + strings.Repeat("🙂", maxRawInError)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in)
			assert.True(t, utf8.ValidString(got), "got invalid UTF-8")
			assert.True(t, strings.HasSuffix(got, "..."))
			assert.LessOrEqual(t, len(got), maxRawInError+len("..."))
			assert.True(t, strings.HasPrefix(tt.in, strings.TrimSuffix(got, "...")))
		})
	}

	assert.Equal(t, "short", truncate("short"))
}
