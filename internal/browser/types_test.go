package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestComputeHash(t *testing.T) {
	h1 := ComputeHash("<html><body>hi</body></html>")
	h2 := ComputeHash("<html><body>hi</body></html>")
	h3 := ComputeHash("<html><body>bye</body></html>")

	assert.Len(t, h1, 16)
	assert.Equal(t, h1, h2, "identical HTML must hash identically")
	assert.NotEqual(t, h1, h3, "different HTML must not collide in this small sample")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.Headless)
	assert.Equal(t, 1280, cfg.ViewportWidth)
	assert.Equal(t, 720, cfg.ViewportHeight)
	assert.Equal(t, "en-US", cfg.Locale)
}

func TestActionResultConstructors(t *testing.T) {
	assert.Equal(t, StatusSuccess, ok("done").Status)
	assert.Equal(t, StatusFailure, fail("nope").Status)
	assert.Equal(t, StatusTimeout, timeout("slow").Status)
}
