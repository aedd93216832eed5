package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTML(t *testing.T) {
	assert.Equal(t, "&lt;b&gt;Tom &amp; Jerry&lt;/b&gt;", HTML("<b>Tom & Jerry</b>"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcd…", Truncate("abcdefgh", 5))
	assert.Equal(t, "привет", Truncate("привет", 6))
	assert.Equal(t, "unbounded", Truncate("unbounded", 0))
}

func TestDeref(t *testing.T) {
	s := "x"
	assert.Equal(t, "x", Deref(&s, "d"))
	assert.Equal(t, "d", Deref(nil, "d"))
	assert.Equal(t, 3, Deref[int](nil, 3))
}
