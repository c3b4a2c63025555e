package format

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMarkdownRendersBasicFormatting(t *testing.T) {
	out := string(Markdown("**Morning**\n\n1. Cleanser\n2. Serum"))
	require.Contains(t, out, "<strong>Morning</strong>")
	require.Contains(t, out, "<ol>")
	require.Contains(t, out, "<li>Serum</li>")
}

func TestMarkdownStripsScripts(t *testing.T) {
	out := string(Markdown("hi <script>alert(1)</script> <img src=x onerror=alert(2)>"))
	require.NotContains(t, out, "<script")
	require.NotContains(t, out, "onerror")
}

func TestMarkdownLinksOpenSafely(t *testing.T) {
	out := string(Markdown("See [the brand](https://example.com/serum) or https://www.google.com/search?q=serum"))
	require.Contains(t, out, `href="https://example.com/serum"`)
	require.Contains(t, out, `target="_blank"`)
	require.Contains(t, out, "nofollow")
	require.Contains(t, out, `href="https://www.google.com/search?q=serum"`)
}

func TestMarkdownDropsJavascriptLinks(t *testing.T) {
	out := string(Markdown("[click](javascript:alert(1))"))
	require.False(t, strings.Contains(out, "javascript:"), out)
}

func TestMarkdownEmpty(t *testing.T) {
	require.Empty(t, string(Markdown("   ")))
}

func TestExcerpt(t *testing.T) {
	require.Equal(t, "short", Excerpt("short", 10))
	require.Equal(t, "a b…", Excerpt("a  b  c d", 3))
	require.Equal(t, "éé…", Excerpt("ééé", 2))
}
