// Package viz renders density profiles and run histories in the terminal.
//
// [ProfileChart] and [HistoryChart] draw static asciigraph plots for the
// CLI. [Model] is a Bubble Tea program that steps an experiment live.
//
// # Key Bindings
//
//	Space - Pause/Resume
//	R     - Reset to the initial profile
//	+/-   - More or fewer steps per frame
//	T     - Cycle color themes
//	?     - Show help overlay
//	Q     - Quit
package viz
