// Package store keeps a SQLite catalog of position log files that have been
// saved or opened, plus small persistent settings.
package store

import "time"

// Entry describes one catalogued log file.
type Entry struct {
	Path          string
	Title         string
	Description   string
	PositionCount int
	DesktopCount  int
	Digest        []byte
	LastSaved     time.Time // zero if never saved here
	LastLoaded    time.Time // zero if never opened here
}

// LastActivity returns the later of the save and load times.
func (e *Entry) LastActivity() time.Time {
	if e.LastSaved.After(e.LastLoaded) {
		return e.LastSaved
	}
	return e.LastLoaded
}

// Setting keys.
const (
	SettingLastDir = "last_dir"
)
