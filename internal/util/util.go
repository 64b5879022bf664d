// Package util provides small shared helpers for the replay tooling.
package util

import "fmt"

// FormatMissionClock renders elapsed mission seconds as "MM:SS".
// Negative values clamp to "00:00".
func FormatMissionClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
