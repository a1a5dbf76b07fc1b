package timeline

import (
	"sync"
	"testing"

	"reelcomp/model"
)

type fixedModulator struct{ dx, dy float64 }

func (m fixedModulator) Offset(string, int, float64) (float64, float64) {
	return m.dx, m.dy
}

func sampleTimeline() *model.Timeline {
	voice := mediaClip("voice.mp3", 5)
	voice.Metadata = model.Metadata{model.MetaVolume: 0.5, model.MetaAudioFadeIn: 1.0}

	return &model.Timeline{
		Metadata: model.Metadata{model.MetaProjectNamespace: "demo"},
		Tracks: model.Stack{Children: []*model.Track{
			{
				Kind: model.TrackKindVideo,
				Name: "Main",
				Children: []model.Item{
					mediaClip("a.mp4", 3),
					fade(0.5, 0.5),
					mediaClip("b.mp4", 4),
				},
			},
			{
				Kind:     model.TrackKindAudio,
				Name:     "Voice",
				Children: []model.Item{voice},
			},
			{
				Kind: model.TrackKindVideo,
				Name: "V3",
				Metadata: model.Metadata{
					model.MetaAudioReactive: true,
					model.MetaAudioSrc:      "voice.mp3",
				},
				Children: []model.Item{
					componentClip("title", 1, 2, map[string]any{"text": "Hello"}),
				},
			},
		}},
	}
}

func TestCompose_DurationIsLongestTrack(t *testing.T) {
	comp := Compose(sampleTimeline(), Options{FPS: 30})
	if comp.DurationFrames != 180 {
		t.Fatalf("expected 180 frames, got %d", comp.DurationFrames)
	}
	if len(comp.Layouts) != 3 {
		t.Fatalf("expected 3 layouts, got %d", len(comp.Layouts))
	}
	roles := []TrackRole{RoleSequential, RoleParallel, RoleOverlay}
	for i, want := range roles {
		if comp.Layouts[i].Role != want {
			t.Fatalf("layout %d role = %s, want %s", i, comp.Layouts[i].Role, want)
		}
	}
}

func TestCompose_EmptyTimelineUsesDefaultDuration(t *testing.T) {
	comp := Compose(&model.Timeline{}, Options{FPS: 24, DefaultDurationSeconds: 10})
	if comp.DurationFrames != 240 {
		t.Fatalf("expected 240 frames, got %d", comp.DurationFrames)
	}
	if got := comp.FrameAt(0); len(got) != 0 {
		t.Fatalf("expected no instructions, got %+v", got)
	}
}

func TestFrameAt_CrossFadeInsideTransition(t *testing.T) {
	comp := Compose(sampleTimeline(), Options{FPS: 30})

	insts := comp.FrameAt(75)
	var main []Instruction
	for _, inst := range insts {
		if inst.Track == "Main" {
			main = append(main, inst)
		}
	}
	if len(main) != 2 {
		t.Fatalf("expected both clips during transition, got %+v", main)
	}
	if main[0].Locator != "demo/a.mp4" || main[1].Locator != "demo/b.mp4" {
		t.Fatalf("unexpected locators: %q %q", main[0].Locator, main[1].Locator)
	}
	if !approx(main[0].Opacity, 0.5) || !approx(main[1].Opacity, 0.5) {
		t.Fatalf("expected half-way cross fade, got %v and %v", main[0].Opacity, main[1].Opacity)
	}
	if main[1].LocalFrame != 15 || main[0].Transition != TransitionCrossFade {
		t.Fatalf("unexpected transition instruction: %+v", main[1])
	}

	after := comp.FrameAt(100)
	count := 0
	for _, inst := range after {
		if inst.Track == "Main" {
			count++
			if inst.Opacity != 1 {
				t.Fatalf("expected full opacity after transition, got %v", inst.Opacity)
			}
		}
	}
	if count != 1 {
		t.Fatalf("expected a single main clip after transition, got %d", count)
	}
}

func TestFrameAt_VolumeAndOverlay(t *testing.T) {
	comp := Compose(sampleTimeline(), Options{FPS: 30, Modulator: fixedModulator{dx: 3, dy: -2}})

	insts := comp.FrameAt(15)
	var voice, title *Instruction
	for i := range insts {
		switch insts[i].Track {
		case "Voice":
			voice = &insts[i]
		case "V3":
			title = &insts[i]
		}
	}
	if voice == nil {
		t.Fatalf("expected voice instruction at frame 15")
	}
	if !approx(voice.Volume, 0.25) {
		t.Fatalf("expected base 0.5 x fade 0.5 = 0.25, got %v", voice.Volume)
	}
	if voice.OffsetX != 0 {
		t.Fatalf("non reactive track should not move, got %v", voice.OffsetX)
	}
	if title != nil {
		t.Fatalf("title should not be active before its start")
	}

	insts = comp.FrameAt(45)
	for i := range insts {
		if insts[i].Track == "V3" {
			title = &insts[i]
		}
	}
	if title == nil || title.Kind != SegmentComponent || title.Component != ComponentTitle {
		t.Fatalf("expected title component at frame 45, got %+v", title)
	}
	if title.Props["text"] != "Hello" || title.OffsetX != 3 || title.OffsetY != -2 {
		t.Fatalf("unexpected title instruction: %+v", title)
	}
	for i := 1; i < len(insts); i++ {
		if insts[i].Layer < insts[i-1].Layer {
			t.Fatalf("instructions not sorted by layer")
		}
	}
}

func TestFrameAt_OutOfRange(t *testing.T) {
	comp := Compose(sampleTimeline(), Options{FPS: 30})
	if got := comp.FrameAt(-1); got != nil {
		t.Fatalf("expected nil for negative frame")
	}
	if got := comp.FrameAt(comp.DurationFrames); got != nil {
		t.Fatalf("expected nil past the end")
	}
}

func TestFrameAt_TrackFadeMultipliesClipFade(t *testing.T) {
	clip := mediaClip("a.mp4", 2)
	clip.Metadata = model.Metadata{model.MetaFadeIn: 1.0}
	tl := &model.Timeline{Tracks: model.Stack{Children: []*model.Track{{
		Kind:     model.TrackKindVideo,
		Name:     "Main",
		Metadata: model.Metadata{model.MetaFadeIn: 1.0},
		Children: []model.Item{clip},
	}}}}

	comp := Compose(tl, Options{FPS: 30})
	insts := comp.FrameAt(15)
	if len(insts) != 1 || !approx(insts[0].Opacity, 0.25) {
		t.Fatalf("expected 0.5 x 0.5 opacity, got %+v", insts)
	}
}

func TestFrameAt_ConcurrentQueriesAreIndependent(t *testing.T) {
	comp := Compose(sampleTimeline(), Options{FPS: 30, Modulator: fixedModulator{dx: 1}})
	want := make([][]Instruction, comp.DurationFrames)
	for f := range want {
		want[f] = comp.FrameAt(f)
	}

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			for f := comp.DurationFrames - 1 - offset; f >= 0; f -= 4 {
				got := comp.FrameAt(f)
				if len(got) != len(want[f]) {
					t.Errorf("frame %d: %d instructions, want %d", f, len(got), len(want[f]))
					return
				}
				for i := range got {
					if got[i].Opacity != want[f][i].Opacity || got[i].Locator != want[f][i].Locator {
						t.Errorf("frame %d differs on re-evaluation", f)
						return
					}
				}
			}
		}(w)
	}
	wg.Wait()
}
