// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/psync/internal/services"
	"golang.org/x/oauth2"
)

// MockGateway is a test double for [services.Gateway]. Each method delegates
// to the matching func field when set and succeeds with zero values
// otherwise. Calls are recorded for assertion.
type MockGateway struct {
	mu    sync.Mutex
	Calls []string

	FetchSnapshotFunc    func(remoteID string) (*services.RemoteSnapshot, error)
	CreatePlaylistFunc   func(accountID string, meta services.PlaylistMeta) (string, error)
	UpdateMetadataFunc   func(remoteID string, meta services.PlaylistMeta) error
	ReplaceTracksFunc    func(remoteID string, externalIDs []string) (*services.BatchReport, error)
	RemoveTracksFunc     func(remoteID string, externalIDs []string) (*services.BatchReport, error)
	IsFollowedByFunc     func(remoteID, accountID string) (bool, error)
	UnfollowFunc         func(remoteID string) error
	UploadCoverImageFunc func(remoteID string, image []byte) error
	CurrentAccountFunc   func() (string, error)
}

func (m *MockGateway) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}

// CallCount returns how many times the named operation was invoked.
func (m *MockGateway) CallCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, call := range m.Calls {
		if call == name {
			count++
		}
	}
	return count
}

func (m *MockGateway) FetchSnapshot(ctx context.Context, token *oauth2.Token, remoteID string) (*services.RemoteSnapshot, error) {
	m.record("FetchSnapshot")
	if m.FetchSnapshotFunc != nil {
		return m.FetchSnapshotFunc(remoteID)
	}
	return &services.RemoteSnapshot{RemoteID: remoteID, Exists: true, InLibrary: true}, nil
}

func (m *MockGateway) CreatePlaylist(ctx context.Context, token *oauth2.Token, accountID string, meta services.PlaylistMeta) (string, error) {
	m.record("CreatePlaylist")
	if m.CreatePlaylistFunc != nil {
		return m.CreatePlaylistFunc(accountID, meta)
	}
	return "mock-remote-id", nil
}

func (m *MockGateway) UpdateMetadata(ctx context.Context, token *oauth2.Token, remoteID string, meta services.PlaylistMeta) error {
	m.record("UpdateMetadata")
	if m.UpdateMetadataFunc != nil {
		return m.UpdateMetadataFunc(remoteID, meta)
	}
	return nil
}

func (m *MockGateway) ReplaceTracks(ctx context.Context, token *oauth2.Token, remoteID string, externalIDs []string) (*services.BatchReport, error) {
	m.record("ReplaceTracks")
	if m.ReplaceTracksFunc != nil {
		return m.ReplaceTracksFunc(remoteID, externalIDs)
	}
	return &services.BatchReport{Pages: 1, Applied: len(externalIDs)}, nil
}

func (m *MockGateway) RemoveTracks(ctx context.Context, token *oauth2.Token, remoteID string, externalIDs []string) (*services.BatchReport, error) {
	m.record("RemoveTracks")
	if m.RemoveTracksFunc != nil {
		return m.RemoveTracksFunc(remoteID, externalIDs)
	}
	return &services.BatchReport{Pages: 1, Applied: len(externalIDs)}, nil
}

func (m *MockGateway) IsFollowedBy(ctx context.Context, token *oauth2.Token, remoteID, accountID string) (bool, error) {
	m.record("IsFollowedBy")
	if m.IsFollowedByFunc != nil {
		return m.IsFollowedByFunc(remoteID, accountID)
	}
	return true, nil
}

func (m *MockGateway) Unfollow(ctx context.Context, token *oauth2.Token, remoteID string) error {
	m.record("Unfollow")
	if m.UnfollowFunc != nil {
		return m.UnfollowFunc(remoteID)
	}
	return nil
}

func (m *MockGateway) UploadCoverImage(ctx context.Context, token *oauth2.Token, remoteID string, image []byte) error {
	m.record("UploadCoverImage")
	if m.UploadCoverImageFunc != nil {
		return m.UploadCoverImageFunc(remoteID, image)
	}
	return nil
}

func (m *MockGateway) CurrentAccount(ctx context.Context, token *oauth2.Token) (string, error) {
	m.record("CurrentAccount")
	if m.CurrentAccountFunc != nil {
		return m.CurrentAccountFunc()
	}
	return "mock-account", nil
}

func (m *MockGateway) Name() string { return "mock" }

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
