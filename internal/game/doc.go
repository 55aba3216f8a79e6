// Package game implements the session orchestrator: an explicit pause state
// machine layered over the stream controller, plus the player scoreboard.
//
// The orchestrator is the only mutator of PlayerStats. Modal opens pause the
// stream's producers, closes resume them, and every stat change happens in
// the corresponding close fold. A mandatory quiz appearing in the window
// forces the quiz state; if a detail modal is open it is queued and fires
// the moment the detail closes.
package game
