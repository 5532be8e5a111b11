// package formatter renders diff and sync results for the terminal and
// exports playlist data to CSV and plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/desertthunder/psync/internal/models"
	"github.com/desertthunder/psync/internal/shared"
	"github.com/desertthunder/psync/internal/tasks"
)

// FormatDiff renders a playlist diff as a terminal-friendly summary.
func FormatDiff(name string, diff *tasks.PlaylistDiff) string {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", name))
	buf.WriteString(fmt.Sprintf("Remote state: %s\n", diff.RemoteState))

	if diff.InSync {
		buf.WriteString("✓ In sync\n")
		return buf.String()
	}

	if !diff.HasBaseline {
		buf.WriteString("Never synced: all local content pending first push\n")
	}

	if len(diff.OnlyLocal) > 0 {
		buf.WriteString(fmt.Sprintf("Only local (%d):\n", len(diff.OnlyLocal)))
		for _, id := range diff.OnlyLocal {
			buf.WriteString(fmt.Sprintf("  + %s\n", id))
		}
	}
	if len(diff.OnlyRemote) > 0 {
		buf.WriteString(fmt.Sprintf("Only remote (%d):\n", len(diff.OnlyRemote)))
		for _, id := range diff.OnlyRemote {
			buf.WriteString(fmt.Sprintf("  - %s\n", id))
		}
	}

	if diff.NameMismatch {
		buf.WriteString("Name differs\n")
	}
	if diff.DescriptionMismatch {
		buf.WriteString("Description differs\n")
	}

	if diff.HasBaseline {
		if diff.RemoteChanged.Any() {
			buf.WriteString(fmt.Sprintf("Changed remotely since last sync: %s\n", flagList(diff.RemoteChanged)))
		}
		if diff.LocalChanged.Any() {
			buf.WriteString(fmt.Sprintf("Changed locally since last sync: %s\n", flagList(diff.LocalChanged)))
		}
	}

	return buf.String()
}

func flagList(f tasks.ChangeFlags) string {
	var parts []string
	if f.Name {
		parts = append(parts, "name")
	}
	if f.Description {
		parts = append(parts, "description")
	}
	if f.Tracks {
		parts = append(parts, "tracks")
	}
	var buf bytes.Buffer
	for i, p := range parts {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(p)
	}
	return buf.String()
}

// FormatSyncResult renders one reconciliation outcome.
func FormatSyncResult(result *tasks.SyncResult) string {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s (%s)\n", result.PlaylistName, result.Direction))
	if result.Recreated {
		buf.WriteString("Remote playlist created\n")
	}
	buf.WriteString(fmt.Sprintf("Tracks: +%d -%d\n", result.TracksAdded, result.TracksRemoved))
	if result.MetadataUpdated {
		buf.WriteString("Metadata updated\n")
	}
	if result.ImageUploaded {
		buf.WriteString("Cover image uploaded\n")
	}

	if len(result.Errors) > 0 {
		buf.WriteString(fmt.Sprintf("Completed with %d warning(s):\n", len(result.Errors)))
		for _, msg := range result.ErrorMessages() {
			buf.WriteString(fmt.Sprintf("  ! %s\n", msg))
		}
	} else {
		buf.WriteString("✓ Sync complete\n")
	}

	return buf.String()
}

// FormatBulkResult renders a bulk reconciliation summary.
func FormatBulkResult(result *tasks.BulkSyncResult) string {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Synced %d playlist(s): %d succeeded, %d failed\n",
		result.TotalPlaylists, result.SuccessfulSyncs, result.FailedSyncs))

	for _, res := range result.Results {
		if res.Success {
			buf.WriteString(fmt.Sprintf("  ✓ %s (+%d -%d)\n",
				res.Result.PlaylistName, res.Result.TracksAdded, res.Result.TracksRemoved))
		} else {
			buf.WriteString(fmt.Sprintf("  ✗ %s: %v\n", res.PlaylistID, res.Error))
		}
	}

	return buf.String()
}

// ExportToCSV converts a playlist's tracks to CSV with columns: ID, ExternalID, Title, Artist, Album, Duration
func ExportToCSV(tracks []models.Track) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "ExternalID", "Title", "Artist", "Album", "Duration"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range tracks {
		record := []string{
			track.ID,
			track.ExternalID,
			track.Title,
			track.Artist,
			track.Album,
			strconv.Itoa(track.DurationSeconds),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToText converts a playlist to plain text format
func ExportToText(playlist models.Playlist, tracks []models.Track) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", playlist.Name))
	if playlist.Description != "" {
		buf.WriteString(fmt.Sprintf("Description: %s\n", playlist.Description))
	}
	buf.WriteString(fmt.Sprintf("Visibility: %s\n", shared.VisibilityString(playlist.Public)))
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(tracks)))

	for i, track := range tracks {
		buf.WriteString(fmt.Sprintf("%d. %s - %s [%s]\n", i+1, track.Artist, track.Title, shared.FormatDuration(track.DurationSeconds)))
	}

	return buf.Bytes()
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	TracksFile   string
	MetadataFile string
}

// WriteCSVExport exports a playlist to CSV with an accompanying metadata JSON file.
//
// Defaults to the playlist ID as the base filename and creates
// {base}_tracks.csv and {base}_metadata.json
func WriteCSVExport(playlist models.Playlist, tracks []models.Track, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = playlist.ID
	}

	csvData, err := ExportToCSV(tracks)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	tracksFile := baseFilepath + "_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := shared.MarshalJSON(playlist, true)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		TracksFile:   tracksFile,
		MetadataFile: metadataFile,
	}, nil
}
