package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertMarkdown_HeadingBecomesBold(t *testing.T) {
	assert.Equal(t, "*Summary*\nbody text", ConvertMarkdown("## Summary\nbody text"))
}

func TestConvertMarkdown_BoldMarkerBecomesSlackBold(t *testing.T) {
	assert.Equal(t, "this is *important*", ConvertMarkdown("this is **important**"))
}

func TestConvertMarkdown_PlainTextPassesThrough(t *testing.T) {
	assert.Equal(t, "no markdown here", ConvertMarkdown("no markdown here"))
}
