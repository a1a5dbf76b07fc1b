package loader

import (
	"strings"

	"reelcomp/core/timeline"
	"reelcomp/model"
)

// 脚本转换生成的轨道名
const (
	TrackScenes   = "Scenes"
	TrackVoice    = "Voice"
	TrackCaptions = "Captions"
)

const (
	refLocal        = "local"
	refRemote       = "remote"
	metaPlaceholder = "placeholder"
	metaSceneID     = "scene_id"
)

// ConvertOptions 脚本转换参数
type ConvertOptions struct {
	FPS       float64
	Namespace string
}

// ConvertScript 把场景脚本转换成时间线：场景轨 + 旁白轨 + 字幕叠加轨。
// 场景之间的空隙补 Gap，保证画面与旁白对齐。
func ConvertScript(script *model.SceneScript, opts ConvertOptions) *model.Timeline {
	fps := opts.FPS
	if fps <= 0 {
		fps = 30
	}
	tl := &model.Timeline{Name: script.Title}
	if opts.Namespace != "" {
		tl.Metadata = model.Metadata{model.MetaProjectNamespace: opts.Namespace}
	}

	scenes := &model.Track{Kind: model.TrackKindVideo, Name: TrackScenes}
	captions := &model.Track{Kind: model.TrackKindVideo, Name: TrackCaptions}

	cursor := 0.0
	end := 0.0
	for _, scene := range script.Scenes {
		dur := scene.Duration()
		if dur <= 0 {
			continue
		}
		if scene.Start > cursor {
			scenes.Children = append(scenes.Children, &model.Gap{
				SourceRange: span(0, scene.Start-cursor, fps),
			})
		}
		scenes.Children = append(scenes.Children, sceneClip(scene, fps))
		cursor = scene.Start + dur
		if cursor > end {
			end = cursor
		}

		if text := strings.TrimSpace(scene.Text); text != "" {
			captions.Children = append(captions.Children, &model.Clip{
				Name:        "caption-" + scene.ID,
				SourceRange: span(0, dur, fps),
				Metadata: model.Metadata{
					model.MetaComponent:   string(timeline.ComponentCaption),
					model.MetaGlobalStart: scene.Start,
					model.MetaProps:       map[string]any{"text": text},
				},
			})
		}
	}

	tl.Tracks.Children = append(tl.Tracks.Children, scenes)

	if v := script.Voice; v != nil && strings.TrimSpace(v.Path) != "" {
		dur := v.Duration
		if dur <= 0 {
			dur = end
		}
		meta := model.Metadata{model.MetaGlobalStart: 0.0}
		if v.Volume > 0 {
			meta[model.MetaVolume] = v.Volume
		}
		tl.Tracks.Children = append(tl.Tracks.Children, &model.Track{
			Kind: model.TrackKindAudio,
			Name: TrackVoice,
			Children: []model.Item{&model.Clip{
				Name:                    "voice",
				SourceRange:             span(0, dur, fps),
				MediaReferences:         map[string]model.MediaReference{refLocal: {TargetURL: v.Path}},
				ActiveMediaReferenceKey: refLocal,
				Metadata:                meta,
			}},
		})
	}

	if script.CaptionsEnabled() && len(captions.Children) > 0 {
		tl.Tracks.Children = append(tl.Tracks.Children, captions)
	}
	return tl
}

func sceneClip(scene model.Scene, fps float64) *model.Clip {
	clip := &model.Clip{
		Name:        scene.ID,
		SourceRange: span(0, scene.Duration(), fps),
		Metadata: model.Metadata{
			metaSceneID:         scene.ID,
			model.MetaObjectFit: "cover",
		},
	}

	res, ok := SelectResource(scene)
	if !ok {
		// 没有可用素材：保留时长，渲染为占位
		clip.Metadata[metaPlaceholder] = true
		return clip
	}

	key := refRemote
	if res.IsLocal() {
		key = refLocal
	}
	clip.MediaReferences = map[string]model.MediaReference{key: {TargetURL: res.Locator()}}
	clip.ActiveMediaReferenceKey = key
	if res.Kind == "image" {
		clip.Metadata[model.MetaEffect] = "ken_burns"
	}
	return clip
}

// SelectResource 素材优先级：选中的本地 > 任意本地 > 选中的远程 > 任意远程
func SelectResource(scene model.Scene) (model.SceneResource, bool) {
	selected := func(r model.SceneResource) bool {
		return r.Selected || (scene.SelectedID != "" && r.ID == scene.SelectedID)
	}
	remote := func(r model.SceneResource) bool {
		return strings.TrimSpace(r.URL) != ""
	}

	passes := []func(model.SceneResource) bool{
		func(r model.SceneResource) bool { return r.IsLocal() && selected(r) },
		model.SceneResource.IsLocal,
		func(r model.SceneResource) bool { return remote(r) && selected(r) },
		remote,
	}
	for _, match := range passes {
		for _, r := range scene.Resources {
			if match(r) {
				return r, true
			}
		}
	}
	return model.SceneResource{}, false
}

func span(start, dur, fps float64) model.TimeRange {
	return model.TimeRange{
		StartTime: model.NewRationalTimeFromSeconds(start, fps),
		Duration:  model.NewRationalTimeFromSeconds(dur, fps),
	}
}
