package timeline

import (
	"testing"

	"reelcomp/model"
)

func TestResolver_RewriteOrder(t *testing.T) {
	r := Resolver{ServedRoot: "/media", Namespace: "demo"}

	cases := []struct {
		name string
		in   string
		kind model.TrackKind
		want Resolution
	}{
		{"remote url", "https://cdn.example.com/a.mp4", model.TrackKindVideo, Resolution{"https://cdn.example.com/a.mp4", MediaVideo}},
		{"data url", "data:image/png;base64,AAAA", model.TrackKindVideo, Resolution{"data:image/png;base64,AAAA", MediaImage}},
		{"served path", "/media/demo/b.mp3", model.TrackKindAudio, Resolution{"/media/demo/b.mp3", MediaAudio}},
		{"file url under public", "file:///home/me/app/public/projects/demo/c.jpg", model.TrackKindVideo, Resolution{"projects/demo/c.jpg", MediaImage}},
		{"absolute path under public", "/srv/app/public/videos/d.mp4", model.TrackKindVideo, Resolution{"videos/d.mp4", MediaVideo}},
		{"windows path under public", `C:\work\app\public\music\e.mp3`, model.TrackKindAudio, Resolution{"music/e.mp3", MediaAudio}},
		{"asset category", "/images/f.webp", model.TrackKindVideo, Resolution{"/media/images/f.webp", MediaImage}},
		{"relative with namespace", "scenes/g.mp4", model.TrackKindVideo, Resolution{"demo/scenes/g.mp4", MediaVideo}},
		{"already namespaced", "demo/h.mp4", model.TrackKindVideo, Resolution{"demo/h.mp4", MediaVideo}},
		{"query string image", "https://x.io/i.JPG?w=10", model.TrackKindVideo, Resolution{"https://x.io/i.JPG?w=10", MediaImage}},
	}
	for _, tc := range cases {
		if got := r.Resolve(tc.in, tc.kind); got != tc.want {
			t.Fatalf("%s: Resolve(%q) = %+v, want %+v", tc.name, tc.in, got, tc.want)
		}
	}
}

func TestResolver_NoNamespaceLeavesRelative(t *testing.T) {
	var r Resolver
	if got := r.Resolve("clips/a.mp4", model.TrackKindVideo); got.Locator != "clips/a.mp4" {
		t.Fatalf("expected unchanged locator, got %q", got.Locator)
	}
}

func TestResolver_MissingReference(t *testing.T) {
	r := Resolver{ServedRoot: "/media"}

	clip := &model.Clip{
		SourceRange:             rangeAt(0, 1),
		MediaReferences:         map[string]model.MediaReference{"hi": {TargetURL: "a.mp4"}},
		ActiveMediaReferenceKey: "lo",
	}
	if got := r.ResolveClip(clip, model.TrackKindVideo); got.Kind != MediaMissingPlaceholder {
		t.Fatalf("expected missing placeholder for unknown key, got %+v", got)
	}
	if got := r.ResolveClip(&model.Clip{}, model.TrackKindVideo); got.Kind != MediaMissingPlaceholder {
		t.Fatalf("expected missing placeholder for clip without references, got %+v", got)
	}
	if got := r.Resolve("   ", model.TrackKindAudio); got.Kind != MediaMissingPlaceholder {
		t.Fatalf("expected missing placeholder for blank locator, got %+v", got)
	}
}
