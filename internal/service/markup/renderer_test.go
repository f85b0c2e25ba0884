package markup

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer() *Renderer {
	return NewRenderer(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRenderHeadings(t *testing.T) {
	r := newTestRenderer()

	out, err := r.Render(context.Background(), "= Getting started =\n\nHello.\n\n== Réglages avancés ==\n== Réglages avancés ==", "fr")
	require.NoError(t, err)

	assert.Contains(t, out, `<h1 id="w_getting-started">Getting started</h1>`)
	assert.Contains(t, out, `<h2 id="w_reglages-avances">Réglages avancés</h2>`)
	assert.Contains(t, out, `<h2 id="w_reglages-avances_2">Réglages avancés</h2>`)
	assert.Contains(t, out, `<p>Hello.</p>`)
}

func TestRenderIsDeterministic(t *testing.T) {
	r := newTestRenderer()
	src := "= A =\n* one\n* [[Cars#w_engine|engine]]\n\n'''bold''' and ''italic''"

	first, err := r.Render(context.Background(), src, "en-US")
	require.NoError(t, err)
	second, err := r.Render(context.Background(), src, "en-US")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Contains(t, first, "<ul><li>one</li>")
	assert.Contains(t, first, "<strong>bold</strong>")
	assert.Contains(t, first, "<em>italic</em>")
	assert.Contains(t, first, `href="/kb/en-US/Cars#w_engine"`)
}

func TestRenderEscapesAndSanitizes(t *testing.T) {
	r := newTestRenderer()

	out, err := r.Render(context.Background(), "<script>alert(1)</script> [[Image:logo.png|logo]]", "en-US")
	require.NoError(t, err)

	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, `<span class="hook">logo</span>`)
}

func TestRenderRedirect(t *testing.T) {
	r := newTestRenderer()

	out, err := r.Render(context.Background(), "REDIRECT [[New Title]]", "en-US")
	require.NoError(t, err)

	assert.Contains(t, out, `<p class="redirect">`)
	assert.Contains(t, out, `/kb/en-US/New%20Title`)
}

func TestExtractHeadings(t *testing.T) {
	doc := `<h1 id="w_cars">Cars</h1><p>x</p><h2 id="w_engine">The <em>engine</em></h2><h3>No id</h3><div><h6 id="w_deep">Deep</h6></div>`

	headings := ExtractHeadings(doc)

	assert.Equal(t, []Heading{
		{Level: 1, ID: "w_cars", Text: "Cars"},
		{Level: 2, ID: "w_engine", Text: "The engine"},
		{Level: 6, ID: "w_deep", Text: "Deep"},
	}, headings)
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Getting started", "getting-started"},
		{"  Pour commencer !  ", "pour-commencer"},
		{"Über Grösse", "uber-grosse"},
		{"Firefox 3.6", "firefox-3-6"},
		{"設定", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestIsHookTarget(t *testing.T) {
	assert.True(t, IsHookTarget("Image:logo.png"))
	assert.True(t, IsHookTarget("template:Note"))
	assert.True(t, IsHookTarget(" UI:Save"))
	assert.False(t, IsHookTarget("Cars"))
	assert.False(t, IsHookTarget("Imagery"))
}
