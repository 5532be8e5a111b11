package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/psync/internal/models"
	"github.com/desertthunder/psync/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistListView ViewState = iota
	TrackListView
	ConfirmView
	SyncView
	ResultView
)

// Library is the slice of the playlist store the picker reads.
type Library interface {
	List(criteria map[string]any) ([]*models.PersistedPlaylist, error)
	Tracks(playlistID string) ([]*models.PersistedTrack, error)
}

// Engine runs directional reconciliation for a selected playlist.
type Engine interface {
	Push(ctx context.Context, progress chan<- tasks.ProgressUpdate, playlistID string) (*tasks.SyncResult, error)
	Pull(ctx context.Context, progress chan<- tasks.ProgressUpdate, playlistID string) (*tasks.SyncResult, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	library      Library
	engine       Engine
	width        int
	height       int
	playlistList list.Model
	trackList    list.Model
	selected     playlistEntry
	direction    tasks.Direction
	progressChan chan tasks.ProgressUpdate
	progress     tasks.ProgressUpdate
	result       *tasks.SyncResult
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, library Library, engine Engine) *Model {
	return &Model{
		ctx:     ctx,
		view:    PlaylistListView,
		library: library,
		engine:  engine,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init initializes the TUI by loading the local playlist library.
func (m *Model) Init() tea.Cmd {
	return m.loadPlaylists()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.playlistList.Width() == 0 {
			m.playlistList.SetSize(msg.Width-4, msg.Height-8)
		}
		if m.trackList.Width() == 0 {
			m.trackList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case TrackListView:
			return m.handleTrackListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case playlistsLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		items := make([]list.Item, len(msg.playlists))
		for i, entry := range msg.playlists {
			items[i] = playlistItem{entry: entry}
		}
		m.playlistList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.playlistList.Title = "Local Playlists"
		m.playlistList.SetSize(m.width-4, m.height-8)
		return m, nil

	case tracksLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.view = PlaylistListView
			return m, nil
		}
		m.selected = msg.entry
		items := make([]list.Item, len(msg.tracks))
		for i, track := range msg.tracks {
			items[i] = trackItem{track: track}
		}
		m.trackList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.trackList.Title = fmt.Sprintf("Tracks in '%s'", msg.entry.name)
		m.trackList.SetSize(m.width-4, m.height-8)
		m.view = TrackListView
		return m, nil

	case progressMsg:
		m.progress = tasks.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case syncDoneMsg:
		m.result = msg.result
		m.err = msg.err
		m.view = ResultView
		m.progressChan = nil
		return m, nil
	}

	return m.updateLists(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case PlaylistListView:
		return m.renderPlaylistList()
	case TrackListView:
		return m.renderTrackList()
	case ConfirmView:
		return m.renderConfirm()
	case SyncView:
		return m.renderSync()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "enter":
		selected := m.playlistList.SelectedItem()
		if selected != nil {
			if pl, ok := selected.(playlistItem); ok {
				return m, m.loadTracks(pl.entry)
			}
		}
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handleTrackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = PlaylistListView
		return m, nil
	case "p":
		m.direction = tasks.DirectionPush
		m.view = ConfirmView
		return m, nil
	case "l":
		if m.selected.remoteID == "" {
			// Nothing to pull from until a first push binds the playlist.
			return m, nil
		}
		m.direction = tasks.DirectionPull
		m.view = ConfirmView
		return m, nil
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "n", "esc":
		m.view = TrackListView
		return m, nil
	case "y":
		m.view = SyncView
		return m, m.startSync()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		m.view = PlaylistListView
		m.result = nil
		m.err = nil
		return m, m.loadPlaylists()
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case PlaylistListView:
		m.playlistList, cmd = m.playlistList.Update(msg)
	case TrackListView:
		m.trackList, cmd = m.trackList.Update(msg)
	}
	return m, cmd
}

func (m *Model) loadPlaylists() tea.Cmd {
	return func() tea.Msg {
		playlists, err := m.library.List(nil)
		if err != nil {
			return playlistsLoadedMsg{err: err}
		}

		entries := make([]playlistEntry, 0, len(playlists))
		for _, pl := range playlists {
			tracks, err := m.library.Tracks(pl.ID())
			if err != nil {
				return playlistsLoadedMsg{err: err}
			}
			entries = append(entries, playlistEntry{
				id:         pl.ID(),
				name:       pl.Name(),
				desc:       pl.Description(),
				remoteID:   pl.RemoteID(),
				trackCount: len(tracks),
			})
		}
		return playlistsLoadedMsg{playlists: entries}
	}
}

func (m *Model) loadTracks(entry playlistEntry) tea.Cmd {
	return func() tea.Msg {
		tracks, err := m.library.Tracks(entry.id)
		if err != nil {
			return tracksLoadedMsg{err: err}
		}
		dtos := make([]models.Track, 0, len(tracks))
		for _, tr := range tracks {
			dtos = append(dtos, tr.DTO())
		}
		return tracksLoadedMsg{entry: entry, tracks: dtos}
	}
}

func (m *Model) startSync() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)

	progress := m.progressChan
	direction := m.direction
	id := m.selected.id

	go func() {
		var result *tasks.SyncResult
		var err error
		if direction == tasks.DirectionPull {
			result, err = m.engine.Pull(m.ctx, progress, id)
		} else {
			result, err = m.engine.Push(m.ctx, progress, id)
		}
		m.result = result
		m.err = err
		close(progress)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		if m.progressChan == nil {
			return syncDoneMsg{result: m.result, err: m.err}
		}

		update, ok := <-m.progressChan
		if !ok {
			return syncDoneMsg{result: m.result, err: m.err}
		}
		return progressMsg(update)
	}
}

func (m *Model) renderPlaylistList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.playlistList.View(), helpView)
}

func (m *Model) renderTrackList() string {
	helpKeys := []key.Binding{m.keys.push, m.keys.pull, m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.trackList.View(), helpView)
}

func (m *Model) renderConfirm() string {
	verb := "Push local state to the remote copy of"
	if m.direction == tasks.DirectionPull {
		verb = "Pull remote state into"
	}
	title := styles.title.Render(fmt.Sprintf("%s '%s'?", verb, m.selected.name))
	info := fmt.Sprintf("\nPlaylist: %s\nTracks: %d\n", m.selected.name, m.selected.trackCount)
	if m.direction == tasks.DirectionPush && m.selected.remoteID == "" {
		info += styles.warn.Render("A new remote playlist will be created.") + "\n"
	}

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderSync() string {
	title := styles.title.Render(fmt.Sprintf("Syncing '%s' (%s)", m.selected.name, m.direction))

	var phase string
	switch m.progress.Phase {
	case tasks.FetchingRemote:
		phase = "Fetching remote state..."
	case tasks.Recreating:
		phase = "Creating remote playlist..."
	case tasks.Reconciling:
		phase = fmt.Sprintf("Reconciling tracks (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.Uploading:
		phase = "Uploading cover image..."
	case tasks.CommittingBaseline:
		phase = "Recording baseline..."
	default:
		phase = "Working..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, m.progress.Message)
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Sync failed: %v\n\nPress r to go back, q to quit", m.err))
	}

	if m.result == nil {
		return styles.err.Render("No result available\n\nPress r to go back, q to quit")
	}

	title := styles.ok.Render("✓ Sync Complete")
	info := fmt.Sprintf(
		"\nPlaylist: %s (%s)\nTracks: +%d -%d",
		m.result.PlaylistName,
		m.result.Direction,
		m.result.TracksAdded,
		m.result.TracksRemoved,
	)
	if m.result.Recreated {
		info += "\nRemote playlist created"
	}
	if m.result.ImageUploaded {
		info += "\nCover image uploaded"
	}

	var warnings string
	if len(m.result.Errors) > 0 {
		warnings = fmt.Sprintf("\n\n%s", styles.warn.Render(fmt.Sprintf("%d warning(s):", len(m.result.Errors))))
		for _, msg := range m.result.ErrorMessages() {
			warnings += fmt.Sprintf("\n  ! %s", msg)
		}
	}

	helpKeys := []key.Binding{m.keys.restart, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info, warnings, helpView)
}
