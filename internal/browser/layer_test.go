package browser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequireStartedBeforeStart(t *testing.T) {
	l := New(DefaultConfig())
	result := l.Click(nil, "#button", 0) //nolint:staticcheck // nil ctx: layer rejects before touching it
	assert.Equal(t, StatusFailure, result.Status)
	assert.Contains(t, result.Detail, "not started")
}

func TestIsTimeout(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("context deadline exceeded"), true},
		{errors.New("wait for element timeout"), true},
		{errors.New("context canceled"), true},
		{errors.New("element not found"), false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, isTimeout(c.err), "err=%v", c.err)
	}
}

func TestScrollRejectsInvalidDirection(t *testing.T) {
	l := New(DefaultConfig())
	result := l.Scroll(nil, "sideways", "page") //nolint:staticcheck
	assert.Equal(t, StatusFailure, result.Status)
}

func TestPressKeyRejectsUnknownKey(t *testing.T) {
	l := &Layer{}
	_, known := namedKeys["shift+f4"]
	assert.False(t, known)
	_ = l
}
