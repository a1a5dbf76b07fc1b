package timeline

import (
	"path"
	"strings"

	"reelcomp/model"
)

// MediaKind 媒体分类
type MediaKind string

const (
	MediaImage              MediaKind = "image"
	MediaVideo              MediaKind = "video"
	MediaAudio              MediaKind = "audio"
	MediaMissingPlaceholder MediaKind = "missing"
)

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".webp": true, ".svg": true, ".bmp": true, ".avif": true,
}

// 可直接透传的外部资源前缀
var externalPrefixes = []string{"http://", "https://", "data:", "blob:"}

// 已知素材类别的裸绝对路径前缀，改写到服务根下
var assetCategoryPrefixes = []string{"/images/", "/videos/", "/audio/", "/music/", "/fonts/", "/assets/"}

const (
	fileURLPrefix = "file://"
	publicMarker  = "/public/"
)

// Resolution 解析结果
type Resolution struct {
	Locator string
	Kind    MediaKind
}

// Resolver 媒体引用改写器。零值可用：没有服务根时不做第 3 步改写。
type Resolver struct {
	ServedRoot string // 例如 /media
	Namespace  string // 项目命名空间
}

// WithNamespace returns a copy bound to another project namespace.
func (r Resolver) WithNamespace(ns string) Resolver {
	r.Namespace = ns
	return r
}

// Resolve 按顺序尝试：外部资源透传 → 本地 public 目录改写 → 素材类别前缀改写 → 命名空间前缀。
// 不会失败，无法解析时返回 MissingPlaceholder。
func (r Resolver) Resolve(locator string, kind model.TrackKind) Resolution {
	loc := strings.TrimSpace(locator)
	if loc == "" {
		return Resolution{Kind: MediaMissingPlaceholder}
	}
	resolved := r.rewrite(loc)
	return Resolution{Locator: resolved, Kind: classifyMedia(resolved, kind)}
}

// ResolveClip 解析 Clip 当前激活的媒体引用
func (r Resolver) ResolveClip(clip *model.Clip, kind model.TrackKind) Resolution {
	target, ok := clip.ActiveTarget()
	if !ok {
		return Resolution{Kind: MediaMissingPlaceholder}
	}
	return r.Resolve(target, kind)
}

func (r Resolver) rewrite(loc string) string {
	lower := strings.ToLower(loc)
	for _, p := range externalPrefixes {
		if strings.HasPrefix(lower, p) {
			return loc
		}
	}
	root := strings.TrimRight(r.ServedRoot, "/")
	if root != "" && strings.HasPrefix(loc, root+"/") {
		return loc
	}

	local := loc
	if strings.HasPrefix(lower, fileURLPrefix) {
		local = loc[len(fileURLPrefix):]
	}
	slashed := strings.ReplaceAll(local, "\\", "/")
	if i := strings.LastIndex(slashed, publicMarker); i >= 0 && isLocalPath(slashed) {
		return slashed[i+len(publicMarker):]
	}

	if root != "" {
		for _, p := range assetCategoryPrefixes {
			if strings.HasPrefix(slashed, p) {
				return root + slashed
			}
		}
	}

	if r.Namespace != "" {
		ns := strings.Trim(r.Namespace, "/")
		rel := strings.TrimLeft(slashed, "/")
		if strings.HasPrefix(rel, ns+"/") {
			return rel
		}
		return ns + "/" + rel
	}
	return local
}

// isLocalPath 以 / 开头或带盘符
func isLocalPath(p string) bool {
	if strings.HasPrefix(p, "/") {
		return true
	}
	return len(p) > 2 && p[1] == ':' && p[2] == '/'
}

func classifyMedia(locator string, kind model.TrackKind) MediaKind {
	clean := locator
	if i := strings.IndexAny(clean, "?#"); i >= 0 {
		clean = clean[:i]
	}
	if imageExtensions[strings.ToLower(path.Ext(clean))] {
		return MediaImage
	}
	if strings.HasPrefix(strings.ToLower(locator), "data:image/") {
		return MediaImage
	}
	if kind == model.TrackKindAudio {
		return MediaAudio
	}
	return MediaVideo
}
