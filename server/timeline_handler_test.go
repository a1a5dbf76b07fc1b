package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"reelcomp/core/loader"
	"reelcomp/core/timeline"
	"reelcomp/model"

	"github.com/gorilla/websocket"
)

type fakeSource struct {
	mu        sync.Mutex
	snap      *loader.Snapshot
	subs      []func(*loader.Snapshot)
	refreshes atomic.Int32
}

func (f *fakeSource) Current() *loader.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeSource) State() loader.State {
	if s := f.Current(); s != nil {
		return s.State
	}
	return loader.StateLoading
}

func (f *fakeSource) Refresh() { f.refreshes.Add(1) }

func (f *fakeSource) Subscribe(fn func(*loader.Snapshot)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, fn)
	return func() {}
}

func (f *fakeSource) publish(s *loader.Snapshot) {
	f.mu.Lock()
	f.snap = s
	subs := append([]func(*loader.Snapshot){}, f.subs...)
	f.mu.Unlock()
	for _, fn := range subs {
		fn(s)
	}
}

func testSnapshot(revision string, seconds float64) *loader.Snapshot {
	tl := &model.Timeline{Tracks: model.Stack{Children: []*model.Track{{
		Kind: model.TrackKindVideo,
		Name: "Main",
		Children: []model.Item{&model.Clip{
			SourceRange: model.TimeRange{
				StartTime: model.RationalTime{Rate: 30},
				Duration:  model.NewRationalTimeFromSeconds(seconds, 30),
			},
			MediaReferences:         map[string]model.MediaReference{"DEFAULT_MEDIA": {TargetURL: "https://cdn/a.mp4"}},
			ActiveMediaReferenceKey: "DEFAULT_MEDIA",
		}},
	}}}}
	return &loader.Snapshot{
		Revision:    revision,
		ProjectID:   "demo",
		State:       loader.StateLoaded,
		Source:      loader.SourceNative,
		Timeline:    tl,
		Composition: timeline.Compose(tl, timeline.Options{FPS: 30}),
		LoadedAt:    time.Now(),
	}
}

func newTestServer(t *testing.T, src *fakeSource, index loader.ProjectIndex) *httptest.Server {
	t.Helper()
	h := NewTimelineHandler(src, index, NewHub())
	t.Cleanup(h.Watch())
	srv := httptest.NewServer(NewRouter(h, "", nil))
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestTimelineEndpoints(t *testing.T) {
	src := &fakeSource{}
	srv := newTestServer(t, src, loader.StaticIndex{{ID: "demo", Path: "demo"}})

	if code := getJSON(t, srv.URL+"/api/timeline", nil); code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 while loading, got %d", code)
	}

	src.publish(testSnapshot("rev-1", 4))

	var sum SnapshotSummary
	if code := getJSON(t, srv.URL+"/api/timeline", &sum); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if sum.Revision != "rev-1" || sum.DurationFrames != 120 || len(sum.Tracks) != 1 || sum.Tracks[0].Role != timeline.RoleSequential {
		t.Fatalf("unexpected summary: %+v", sum)
	}

	var frame FrameResponse
	if code := getJSON(t, srv.URL+"/api/timeline/frames/60", &frame); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(frame.Instructions) != 1 || frame.Instructions[0].Locator != "https://cdn/a.mp4" {
		t.Fatalf("unexpected frame: %+v", frame)
	}
	if code := getJSON(t, srv.URL+"/api/timeline/frames/120", nil); code != http.StatusNotFound {
		t.Fatalf("expected 404 past the end, got %d", code)
	}

	var projects []model.Project
	if code := getJSON(t, srv.URL+"/api/projects", &projects); code != http.StatusOK || len(projects) != 1 {
		t.Fatalf("unexpected projects: %d %+v", code, projects)
	}

	resp, err := http.Get(srv.URL + "/api/timeline?format=otio")
	if err != nil {
		t.Fatalf("GET otio: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), `"OTIO_SCHEMA"`) || resp.Header.Get("X-Timeline-Revision") != "rev-1" {
		t.Fatalf("unexpected otio response: %s", body)
	}

	resp, err = http.Post(srv.URL+"/api/timeline/refresh", "application/json", nil)
	if err != nil {
		t.Fatalf("POST refresh: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted || src.refreshes.Load() != 1 {
		t.Fatalf("refresh not scheduled: %d", resp.StatusCode)
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read websocket: %v", err)
	}
	return msg
}

func TestTimelineWebSocket(t *testing.T) {
	src := &fakeSource{}
	src.publish(testSnapshot("rev-1", 4))
	srv := newTestServer(t, src, nil)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/timeline"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	msg := readMessage(t, conn)
	var sum SnapshotSummary
	if msg.Type != MsgTypeSnapshot || json.Unmarshal(msg.Data, &sum) != nil || sum.Revision != "rev-1" {
		t.Fatalf("expected initial snapshot, got %+v", msg)
	}

	frame := 30
	if err := conn.WriteJSON(WSMessage{Type: MsgTypeFrame, Frame: &frame}); err != nil {
		t.Fatalf("write: %v", err)
	}
	msg = readMessage(t, conn)
	var fr FrameResponse
	if msg.Type != MsgTypeFrameResult || json.Unmarshal(msg.Data, &fr) != nil || fr.Frame != 30 || len(fr.Instructions) != 1 {
		t.Fatalf("unexpected frame result: %+v", msg)
	}

	src.publish(testSnapshot("rev-2", 6))
	msg = readMessage(t, conn)
	if msg.Type != MsgTypeSnapshot || json.Unmarshal(msg.Data, &sum) != nil || sum.Revision != "rev-2" || sum.DurationFrames != 180 {
		t.Fatalf("expected pushed snapshot, got %+v", msg)
	}

	if err := conn.WriteJSON(WSMessage{Type: "bogus"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if msg = readMessage(t, conn); msg.Type != MsgTypeError {
		t.Fatalf("expected error message, got %+v", msg)
	}
}

func TestMediaHandler_ServesLocalFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "demo"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "demo", "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	src := &fakeSource{}
	h := NewTimelineHandler(src, nil, NewHub())
	srv := httptest.NewServer(NewRouter(h, "/media", NewMediaHandler("/media", dir, nil, "", "")))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/media/demo/a.txt")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "hello" {
		t.Fatalf("unexpected response %d %q", resp.StatusCode, body)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS header")
	}

	resp, err = http.Get(srv.URL + "/media/demo/missing.txt")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
