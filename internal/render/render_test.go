package render

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestStyleBootstrap(t *testing.T) {
	css := `body { background: "red"; }
.x { color: blue; }`
	script := styleBootstrap(css)

	if !strings.HasPrefix(strings.TrimSpace(script), "(() =>") {
		t.Error("Expected bootstrap to be self-invoking")
	}
	if !strings.Contains(script, `\"red\"`) {
		t.Error("Expected CSS quotes to be escaped")
	}
	if !strings.Contains(script, `\n`) {
		t.Error("Expected CSS newlines to be escaped into the literal")
	}
	if strings.Contains(script, "%s") {
		t.Error("Expected no leftover placeholder")
	}
}

func TestNavigationTimeoutSentinel(t *testing.T) {
	err := fmt.Errorf("navigation to https://example.com failed on both policies: %w", ErrNavigationTimeout)
	if !errors.Is(err, ErrNavigationTimeout) {
		t.Error("Expected wrapped error to match ErrNavigationTimeout")
	}
}
