package loader

import (
	"testing"

	"reelcomp/core/timeline"
	"reelcomp/model"
)

func TestSelectResource_Priority(t *testing.T) {
	localA := model.SceneResource{ID: "la", Path: "/public/a.png"}
	localB := model.SceneResource{ID: "lb", Path: "/public/b.png"}
	remoteA := model.SceneResource{ID: "ra", URL: "https://cdn/a.png"}
	remoteB := model.SceneResource{ID: "rb", URL: "https://cdn/b.png"}

	cases := []struct {
		name  string
		scene model.Scene
		want  string
	}{
		{"selected local wins", model.Scene{Resources: []model.SceneResource{remoteA, localA, localB}, SelectedID: "lb"}, "lb"},
		{"any local beats selected remote", model.Scene{Resources: []model.SceneResource{remoteA, localA}, SelectedID: "ra"}, "la"},
		{"selected remote", model.Scene{Resources: []model.SceneResource{remoteA, remoteB}, SelectedID: "rb"}, "rb"},
		{"selected flag", model.Scene{Resources: []model.SceneResource{remoteA, {ID: "rc", URL: "https://cdn/c.png", Selected: true}}}, "rc"},
		{"any remote", model.Scene{Resources: []model.SceneResource{remoteA, remoteB}}, "ra"},
	}
	for _, tc := range cases {
		got, ok := SelectResource(tc.scene)
		if !ok || got.ID != tc.want {
			t.Fatalf("%s: got %q (ok=%v), want %q", tc.name, got.ID, ok, tc.want)
		}
	}

	if _, ok := SelectResource(model.Scene{Resources: []model.SceneResource{{ID: "empty"}}}); ok {
		t.Fatalf("resource without path or url should not be selected")
	}
}

func TestConvertScript_Tracks(t *testing.T) {
	off := false
	script := &model.SceneScript{
		Title: "demo",
		Scenes: []model.Scene{
			{ID: "s1", Text: "one", Start: 1, End: 3, Resources: []model.SceneResource{{Path: "/public/demo/a.mp4", Kind: "video"}}},
			{ID: "s2", Start: 3, End: 4},
			{ID: "bad", Start: 5, End: 5},
		},
		Voice: &model.VoiceTrack{Path: "voice.mp3", Volume: 0.8},
	}

	tl := ConvertScript(script, ConvertOptions{FPS: 30, Namespace: "demo"})
	if len(tl.Tracks.Children) != 3 {
		t.Fatalf("expected scenes, voice and captions tracks, got %d", len(tl.Tracks.Children))
	}

	scenes := tl.Tracks.Children[0]
	if scenes.Name != TrackScenes || len(scenes.Children) != 3 {
		t.Fatalf("expected leading gap plus two scenes, got %+v", scenes.Children)
	}
	if _, ok := scenes.Children[0].(*model.Gap); !ok {
		t.Fatalf("expected leading gap, got %T", scenes.Children[0])
	}
	placeholder := scenes.Children[2].(*model.Clip)
	if !placeholder.Metadata.Bool(metaPlaceholder) || len(placeholder.MediaReferences) != 0 {
		t.Fatalf("scene without resources should be a placeholder: %+v", placeholder)
	}

	voice := tl.Tracks.Children[1]
	if voice.Kind != model.TrackKindAudio || voice.Name != TrackVoice {
		t.Fatalf("unexpected voice track: %+v", voice)
	}

	comp := timeline.Compose(tl, timeline.Options{FPS: 30})
	if comp.DurationFrames != 120 {
		t.Fatalf("expected 120 frames, got %d", comp.DurationFrames)
	}
	var captions, scene int
	for _, inst := range comp.FrameAt(45) {
		switch inst.Track {
		case TrackCaptions:
			captions++
			if inst.Props["text"] != "one" {
				t.Fatalf("unexpected caption props: %+v", inst.Props)
			}
		case TrackScenes:
			scene++
			if inst.Locator != "demo/a.mp4" {
				t.Fatalf("unexpected scene locator %q", inst.Locator)
			}
		}
	}
	if captions != 1 || scene != 1 {
		t.Fatalf("expected one caption and one scene at frame 45, got %d/%d", captions, scene)
	}

	script.Captions = &off
	if tl := ConvertScript(script, ConvertOptions{FPS: 30}); len(tl.Tracks.Children) != 2 {
		t.Fatalf("captions disabled should drop the track")
	}
}
