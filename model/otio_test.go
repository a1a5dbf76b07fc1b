package model

import (
	"errors"
	"testing"
)

func decodeSingleItem(t *testing.T, item string) Item {
	t.Helper()
	doc := `{"tracks": [{"kind": "Video", "name": "Main", "children": [` + item + `]}]}`
	tl, err := DecodeTimeline([]byte(doc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tl.Tracks.Children) != 1 {
		t.Fatalf("expected 1 track, got %d", len(tl.Tracks.Children))
	}
	children := tl.Tracks.Children[0].Children
	if len(children) != 1 {
		t.Fatalf("expected 1 item, got %d", len(children))
	}
	return children[0]
}

const sixtyFrames = `{"start_time": {"rate": 30, "value": 0}, "duration": {"rate": 30, "value": 60}}`

func TestDecodeTimeline_PlainItemInference(t *testing.T) {
	cases := []struct {
		name string
		item string
		want string
	}{
		{"media references", `{"source_range": ` + sixtyFrames + `, "media_references": {"DEFAULT_MEDIA": {"target_url": "a.mp4"}}}`, "Clip"},
		{"active key without references", `{"name": "broken", "source_range": ` + sixtyFrames + `, "active_media_reference_key": "DEFAULT_MEDIA", "metadata": {"fade_in_duration": 0.5}}`, "Clip"},
		{"metadata with source range", `{"source_range": ` + sixtyFrames + `, "metadata": {"volume": 0.5}}`, "Clip"},
		{"component tag", `{"source_range": ` + sixtyFrames + `, "metadata": {"remotion_component": "Title"}}`, "Clip"},
		{"source range only", `{"source_range": ` + sixtyFrames + `}`, "Gap"},
		{"explicit gap kind", `{"kind": "gap", "source_range": ` + sixtyFrames + `, "metadata": {"note": "x"}}`, "Gap"},
		{"explicit clip type", `{"type": "Clip", "source_range": ` + sixtyFrames + `}`, "Clip"},
		{"offsets", `{"in_offset": {"rate": 30, "value": 15}, "out_offset": {"rate": 30, "value": 15}}`, "Transition"},
		{"explicit transition kind", `{"kind": "transition"}`, "Transition"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := decodeSingleItem(t, tc.item).itemKind(); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestDecodeTimeline_ActiveKeyWithoutReferencesHasNoTarget(t *testing.T) {
	item := decodeSingleItem(t, `{"source_range": `+sixtyFrames+`, "active_media_reference_key": "DEFAULT_MEDIA"}`)
	clip, ok := item.(*Clip)
	if !ok {
		t.Fatalf("expected clip, got %T", item)
	}
	if _, ok := clip.ActiveTarget(); ok {
		t.Fatalf("clip without references must not resolve a target")
	}
	if clip.SourceRange.Duration.Value != 60 {
		t.Fatalf("source range lost: %+v", clip.SourceRange)
	}
}

func TestDecodeTimeline_Clip1MediaReference(t *testing.T) {
	doc := `{
  "OTIO_SCHEMA": "Timeline.1",
  "tracks": {"OTIO_SCHEMA": "Stack.1", "children": [
    {"OTIO_SCHEMA": "Track.1", "kind": "Video", "name": "Main", "children": [
      {"OTIO_SCHEMA": "Clip.1", "name": "a", "source_range": ` + sixtyFrames + `,
       "media_reference": {"OTIO_SCHEMA": "ExternalReference.1", "target_url": "/public/a.mp4"}}
    ]}
  ]}
}`
	tl, err := DecodeTimeline([]byte(doc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	clip, ok := tl.Tracks.Children[0].Children[0].(*Clip)
	if !ok {
		t.Fatalf("expected clip, got %T", tl.Tracks.Children[0].Children[0])
	}
	if clip.ActiveMediaReferenceKey != DefaultMediaKey {
		t.Fatalf("expected active key %s, got %q", DefaultMediaKey, clip.ActiveMediaReferenceKey)
	}
	if target, ok := clip.ActiveTarget(); !ok || target != "/public/a.mp4" {
		t.Fatalf("unexpected target %q %v", target, ok)
	}
}

func TestDecodeTimeline_SkipsUnknownSchemas(t *testing.T) {
	doc := `{
  "OTIO_SCHEMA": "Timeline.1",
  "tracks": {"OTIO_SCHEMA": "Stack.1", "children": [
    {"OTIO_SCHEMA": "Stack.1", "children": []},
    {"OTIO_SCHEMA": "Track.1", "kind": "audio", "name": "Music", "children": [
      {"OTIO_SCHEMA": "Marker.2", "name": "beat"},
      {"OTIO_SCHEMA": "Gap.1", "source_range": ` + sixtyFrames + `}
    ]}
  ]}
}`
	tl, err := DecodeTimeline([]byte(doc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tl.Tracks.Children) != 1 {
		t.Fatalf("nested stack should be skipped, got %d tracks", len(tl.Tracks.Children))
	}
	track := tl.Tracks.Children[0]
	if track.Kind != TrackKindAudio {
		t.Fatalf("expected audio kind, got %q", track.Kind)
	}
	if len(track.Children) != 1 {
		t.Fatalf("unknown item schema should be skipped, got %d items", len(track.Children))
	}
	if _, ok := track.Children[0].(*Gap); !ok {
		t.Fatalf("expected gap, got %T", track.Children[0])
	}
}

func TestDecodeTimeline_Errors(t *testing.T) {
	if _, err := DecodeTimeline([]byte("  ")); !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("expected ErrEmptyDocument, got %v", err)
	}
	if _, err := DecodeTimeline([]byte(`{"OTIO_SCHEMA": "Clip.2"}`)); err == nil {
		t.Fatalf("expected error for non-timeline root")
	}
	if _, err := DecodeTimeline([]byte(`{"tracks": [`)); err == nil {
		t.Fatalf("expected error for truncated document")
	}
}

func TestEncodeTimeline_RoundTrip(t *testing.T) {
	docs := map[string]string{
		"tagged": `{
  "OTIO_SCHEMA": "Timeline.1",
  "name": "demo",
  "metadata": {"project_namespace": "demo"},
  "tracks": {"OTIO_SCHEMA": "Stack.1", "children": [
    {"OTIO_SCHEMA": "Track.1", "kind": "Video", "name": "Main", "metadata": {"fade_in_duration": 1}, "children": [
      {"OTIO_SCHEMA": "Clip.1", "name": "a", "source_range": ` + sixtyFrames + `,
       "media_reference": {"target_url": "a.mp4"}, "metadata": {"volume": 0.8, "style": {"left": "10%"}}},
      {"OTIO_SCHEMA": "Transition.1", "transition_type": "SMPTE_Dissolve",
       "in_offset": {"rate": 30, "value": 15}, "out_offset": {"rate": 30, "value": 15}},
      {"OTIO_SCHEMA": "Gap.1", "source_range": ` + sixtyFrames + `}
    ]},
    {"OTIO_SCHEMA": "Track.1", "kind": "Video", "name": "Overlays", "children": [
      {"OTIO_SCHEMA": "Clip.2", "source_range": ` + sixtyFrames + `,
       "metadata": {"remotion_component": "Title", "globalTimelineStart": 2, "props": {"text": "hi"}}}
    ]}
  ]}
}`,
		"plain": `{"name": "plain", "tracks": [
  {"kind": "Audio", "name": "Voice", "children": [
    {"source_range": ` + sixtyFrames + `, "active_media_reference_key": "voice", "metadata": {"audioReactive": true}}
  ]}
]}`,
	}
	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			first, err := DecodeTimeline([]byte(doc))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			encoded, err := EncodeTimeline(first)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			second, err := DecodeTimeline(encoded)
			if err != nil {
				t.Fatalf("decode encoded: %v", err)
			}
			if !first.Equal(second) {
				t.Fatalf("round trip changed the timeline:\n%s", encoded)
			}
		})
	}
}

func TestEncodeTimeline_Nil(t *testing.T) {
	if _, err := EncodeTimeline(nil); !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("expected ErrEmptyDocument, got %v", err)
	}
}

func TestTimelineEqual(t *testing.T) {
	a := &Timeline{Name: "x", Metadata: Metadata{"k": 1.0}}
	b := &Timeline{Name: "x", Metadata: Metadata{"k": 1.0}}
	if !a.Equal(b) {
		t.Fatalf("expected equal timelines")
	}
	b.Metadata["k"] = 2.0
	if a.Equal(b) {
		t.Fatalf("metadata change should be detected")
	}
	var nilTL *Timeline
	if nilTL.Equal(a) || !nilTL.Equal(nil) {
		t.Fatalf("nil comparison mismatch")
	}
}
