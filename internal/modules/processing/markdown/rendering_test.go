package markdown

import (
	"strings"
	"testing"
)

const sentinel = "PLEASE CROSS CHECK THE FILE YOU UPLOADED"

func TestRenderNarrativeStripsReasoning(t *testing.T) {
	n := RenderNarrative("<think>weigh the reviews</think>\n## Key points\n- **Delivery** is slow", sentinel)
	if strings.Contains(n.Raw, "weigh") || strings.Contains(string(n.HTML), "weigh") {
		t.Fatalf("reasoning leaked: %q", n.HTML)
	}
	if !strings.Contains(string(n.HTML), "<h2>Key points</h2>") {
		t.Fatalf("heading not rendered: %q", n.HTML)
	}
	if !strings.Contains(string(n.HTML), "<strong>Delivery</strong>") {
		t.Fatalf("emphasis not rendered: %q", n.HTML)
	}
	if n.Mismatch {
		t.Fatalf("unexpected mismatch")
	}
}

func TestRenderNarrativeDetectsSentinel(t *testing.T) {
	for _, reply := range []string{
		sentinel,
		"'" + sentinel + "'",
		"<think>not reviews</think>\n\"" + sentinel + ".\"",
	} {
		if n := RenderNarrative(reply, sentinel); !n.Mismatch {
			t.Fatalf("sentinel not detected in %q", reply)
		}
	}
}

func TestRenderDropsRawHTML(t *testing.T) {
	html := RenderMarkdownContent("hello <script>alert(1)</script>")
	if strings.Contains(html, "<script>") {
		t.Fatalf("raw html rendered: %q", html)
	}
}

func TestRenderHardWraps(t *testing.T) {
	html := RenderMarkdownContent("line one\nline two")
	if !strings.Contains(html, "<br />") {
		t.Fatalf("hard wrap missing: %q", html)
	}
}

func TestStripReasoningUnterminated(t *testing.T) {
	if got := StripReasoning("answer\n<think>cut off"); got != "answer" {
		t.Fatalf("StripReasoning = %q", got)
	}
}
