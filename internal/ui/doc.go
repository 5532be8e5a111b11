// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for playlist reconciliation:
//  1. [PlaylistListView] : Browse the local playlist library
//  2. [TrackListView] : Preview a playlist's tracks
//  3. [ConfirmView] : Choose and confirm the sync direction
//  4. [SyncView] : Monitor real-time progress updates
//  5. [ResultView] : Display the reconciliation outcome
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Progress updates flow through a channel from the sync engine, providing non-blocking status reporting during runs.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
