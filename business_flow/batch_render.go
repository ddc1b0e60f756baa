package businessflow

import (
	"fmt"
	"strings"
)

const progressBarCells = 10

// RenderProgressBar draws percent as ten cells, e.g. "[███░░░░░░░] 33.3%".
func RenderProgressBar(percent float64) string {
	filled := int(progressBarCells * percent / 100)
	filled = min(max(filled, 0), progressBarCells)
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", progressBarCells-filled) + fmt.Sprintf("] %.1f%%", percent)
}

// FormatProgressText renders the in-flight message shown to the operator
func FormatProgressText(target string, completed, total, successful, failed int, percent float64, etaSeconds int) string {
	return fmt.Sprintf(
		"📈 **Report Progress:**\n\n🎯 Target: `%s`\n🔄 Completed: %d/%d\n✅ Successful: %d\n❌ Failed: %d\n📊 Progress: %s\n⏱️ ETA: %d seconds",
		target, completed, total, successful, failed, RenderProgressBar(percent), etaSeconds,
	)
}

// FormatCompletionText renders the final message of a finished batch
func FormatCompletionText(target string, total, successful, failed int, successRate float64, elapsedSeconds int) string {
	return fmt.Sprintf(
		"🎉 **Reporting Completed!**\n\n🎯 Target: `%s`\n📊 Total Reports: `%d`\n✅ Successful: `%d`\n❌ Failed: `%d`\n📈 Success Rate: `%.1f%%`\n⏱️ Total Time: `%d` seconds",
		target, total, successful, failed, successRate, elapsedSeconds,
	)
}

// FormatCancelledText renders the final message of a cancelled batch
func FormatCancelledText(target string, completed, total, successful, failed int) string {
	return fmt.Sprintf(
		"🛑 **Reporting Cancelled**\n\n🎯 Target: `%s`\n🔄 Completed: %d/%d\n✅ Successful: %d\n❌ Failed: %d",
		target, completed, total, successful, failed,
	)
}
