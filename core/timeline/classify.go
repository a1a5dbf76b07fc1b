package timeline

import (
	"strings"

	"reelcomp/model"
)

// TrackRole 轨道在合成中的角色
type TrackRole string

const (
	RoleSequential TrackRole = "sequential"
	RoleParallel   TrackRole = "parallel"
	RoleOverlay    TrackRole = "overlay"
)

// 名称即表明是叠加层的轨道
var overlayTrackNames = map[string]bool{
	"overlay":    true,
	"overlays":   true,
	"titles":     true,
	"text":       true,
	"captions":   true,
	"subtitles":  true,
	"graphics":   true,
	"components": true,
}

// IsOverlayTrackName 大小写、分隔符不敏感
func IsOverlayTrackName(name string) bool {
	return overlayTrackNames[normalizeName(name)]
}

// Classify 视频轨：所有 Clip 都带组件标签或轨道名是叠加层名称 → Overlay；否则 Sequential。
// 音频轨 → Parallel。
func Classify(track *model.Track) TrackRole {
	if track == nil || track.Kind == model.TrackKindAudio {
		return RoleParallel
	}
	if IsOverlayTrackName(track.Name) || allTagged(track) {
		return RoleOverlay
	}
	return RoleSequential
}

// allTagged 至少有一个 Clip，且每个 Clip 都带组件标签
func allTagged(track *model.Track) bool {
	clips := 0
	for _, item := range track.Children {
		clip, ok := item.(*model.Clip)
		if !ok {
			continue
		}
		if clip.ComponentName() == "" {
			return false
		}
		clips++
	}
	return clips > 0
}

func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("_", "", "-", "", " ", "", ".", "").Replace(s)
}
