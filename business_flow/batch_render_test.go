package businessflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderProgressBar(t *testing.T) {
	assert.Equal(t, "[░░░░░░░░░░] 0.0%", RenderProgressBar(0))
	assert.Equal(t, "[███░░░░░░░] 33.3%", RenderProgressBar(100.0/3))
	assert.Equal(t, "[█████░░░░░] 50.0%", RenderProgressBar(50))
	assert.Equal(t, "[█████████░] 99.0%", RenderProgressBar(99))
	assert.Equal(t, "[██████████] 100.0%", RenderProgressBar(100))
}

func TestFormatProgressText(t *testing.T) {
	text := FormatProgressText("@spam", 1, 3, 1, 0, 100.0/3, 4)
	assert.Equal(t,
		"📈 **Report Progress:**\n\n🎯 Target: `@spam`\n🔄 Completed: 1/3\n✅ Successful: 1\n❌ Failed: 0\n📊 Progress: [███░░░░░░░] 33.3%\n⏱️ ETA: 4 seconds",
		text)
}

func TestFormatCompletionText(t *testing.T) {
	text := FormatCompletionText("@spam", 3, 2, 1, 200.0/3, 6)
	assert.Equal(t,
		"🎉 **Reporting Completed!**\n\n🎯 Target: `@spam`\n📊 Total Reports: `3`\n✅ Successful: `2`\n❌ Failed: `1`\n📈 Success Rate: `66.7%`\n⏱️ Total Time: `6` seconds",
		text)
}
