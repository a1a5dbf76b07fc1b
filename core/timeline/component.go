package timeline

import (
	"fmt"
	"strings"
)

// ComponentKind 叠加层组件类型（封闭集合）
type ComponentKind string

const (
	ComponentTitle        ComponentKind = "title"
	ComponentLowerThird   ComponentKind = "lower_third"
	ComponentCaption      ComponentKind = "caption"
	ComponentSubtitle     ComponentKind = "subtitle"
	ComponentTextOverlay  ComponentKind = "text_overlay"
	ComponentImageOverlay ComponentKind = "image_overlay"
	ComponentKineticText  ComponentKind = "kinetic_text"
	ComponentQuote        ComponentKind = "quote"
	ComponentCallout      ComponentKind = "callout"
	ComponentProgressBar  ComponentKind = "progress_bar"
	ComponentWatermark    ComponentKind = "watermark"
	ComponentCountdown    ComponentKind = "countdown"
	ComponentChart        ComponentKind = "chart"
	ComponentNoProject    ComponentKind = "no_project"
)

// PropsContext 组件解析 props 时可用的片段信息
type PropsContext struct {
	DurationFrames int
	FPS            float64
}

// PropsResolver 校验并补全某类组件的 props，返回的 map 不与输入共享
type PropsResolver func(props map[string]any, ctx PropsContext) (map[string]any, error)

// ComponentRegistry 组件名 → 解析函数
type ComponentRegistry struct {
	resolvers map[ComponentKind]PropsResolver
	aliases   map[string]ComponentKind
}

// NewComponentRegistry 创建空注册表
func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{
		resolvers: make(map[ComponentKind]PropsResolver),
		aliases:   make(map[string]ComponentKind),
	}
}

// Register 注册组件，名称匹配忽略大小写与分隔符（LowerThird / lower-third / lower_third）
func (r *ComponentRegistry) Register(kind ComponentKind, resolver PropsResolver, aliases ...string) {
	r.resolvers[kind] = resolver
	r.aliases[normalizeName(string(kind))] = kind
	for _, a := range aliases {
		r.aliases[normalizeName(a)] = kind
	}
}

// Lookup 未注册的名称返回 false，调用方按普通媒体处理
func (r *ComponentRegistry) Lookup(name string) (ComponentKind, bool) {
	if r == nil {
		return "", false
	}
	kind, ok := r.aliases[normalizeName(name)]
	return kind, ok
}

// Resolve 调用组件自己的解析函数
func (r *ComponentRegistry) Resolve(kind ComponentKind, props map[string]any, ctx PropsContext) (map[string]any, error) {
	resolver, ok := r.resolvers[kind]
	if !ok {
		return nil, fmt.Errorf("component %q not registered", kind)
	}
	return resolver(props, ctx)
}

// DefaultComponents 内置组件
var DefaultComponents = newDefaultRegistry()

func newDefaultRegistry() *ComponentRegistry {
	r := NewComponentRegistry()
	r.Register(ComponentTitle, textResolver(map[string]any{"position": "center", "fontSize": 72.0}, "title"), "TitleCard", "Heading")
	r.Register(ComponentLowerThird, lowerThirdResolver, "NameTag")
	r.Register(ComponentCaption, textResolver(map[string]any{"position": "bottom", "maxLines": 2.0}, "caption"), "Captions")
	r.Register(ComponentSubtitle, textResolver(map[string]any{"position": "bottom", "maxLines": 2.0}, "subtitle"), "Subtitles")
	r.Register(ComponentTextOverlay, textResolver(map[string]any{"position": "center"}), "Text", "TextCard")
	r.Register(ComponentImageOverlay, imageOverlayResolver, "Image", "Sticker")
	r.Register(ComponentKineticText, kineticTextResolver, "AnimatedText", "Typewriter")
	r.Register(ComponentQuote, requireText(map[string]any{"author": ""}), "QuoteCard")
	r.Register(ComponentCallout, requireText(map[string]any{"position": "top-right"}), "Annotation")
	r.Register(ComponentProgressBar, defaultsOnly(map[string]any{"color": "#ffffff", "height": 8.0, "position": "bottom"}), "Progress")
	r.Register(ComponentWatermark, watermarkResolver, "Logo")
	r.Register(ComponentCountdown, countdownResolver, "Timer")
	r.Register(ComponentChart, chartResolver, "BarChart", "Graph")
	r.Register(ComponentNoProject, defaultsOnly(map[string]any{"message": "No project available"}), "NoProject", "Placeholder")
	return r
}

func cloneProps(props map[string]any) map[string]any {
	out := make(map[string]any, len(props)+4)
	for k, v := range props {
		out[k] = v
	}
	return out
}

func withDefaults(props map[string]any, defaults map[string]any) map[string]any {
	out := cloneProps(props)
	for k, v := range defaults {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	return out
}

func stringProp(props map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := props[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func defaultsOnly(defaults map[string]any) PropsResolver {
	return func(props map[string]any, _ PropsContext) (map[string]any, error) {
		return withDefaults(props, defaults), nil
	}
}

// textResolver 文本可以放在 text 或别名字段里，统一写回 text
func textResolver(defaults map[string]any, textAliases ...string) PropsResolver {
	keys := append([]string{"text"}, textAliases...)
	return func(props map[string]any, _ PropsContext) (map[string]any, error) {
		out := withDefaults(props, defaults)
		out["text"] = stringProp(props, keys...)
		return out, nil
	}
}

func requireText(defaults map[string]any) PropsResolver {
	return func(props map[string]any, _ PropsContext) (map[string]any, error) {
		text := stringProp(props, "text")
		if text == "" {
			return nil, fmt.Errorf("missing text")
		}
		out := withDefaults(props, defaults)
		out["text"] = text
		return out, nil
	}
}

func lowerThirdResolver(props map[string]any, _ PropsContext) (map[string]any, error) {
	title := stringProp(props, "title", "name", "text")
	if title == "" {
		return nil, fmt.Errorf("lower third needs a title")
	}
	out := withDefaults(props, map[string]any{"subtitle": "", "position": "bottom-left"})
	out["title"] = title
	return out, nil
}

func imageOverlayResolver(props map[string]any, _ PropsContext) (map[string]any, error) {
	src := stringProp(props, "src", "url", "image")
	if src == "" {
		return nil, fmt.Errorf("image overlay needs src")
	}
	out := withDefaults(props, map[string]any{"objectFit": "contain", "position": "center"})
	out["src"] = src
	return out, nil
}

func kineticTextResolver(props map[string]any, _ PropsContext) (map[string]any, error) {
	text := stringProp(props, "text")
	out := withDefaults(props, map[string]any{"position": "center"})
	out["text"] = text
	if _, ok := props["words"]; !ok {
		words := strings.Fields(text)
		list := make([]any, len(words))
		for i, w := range words {
			list[i] = w
		}
		out["words"] = list
	}
	return out, nil
}

func watermarkResolver(props map[string]any, _ PropsContext) (map[string]any, error) {
	if stringProp(props, "text", "src") == "" {
		return nil, fmt.Errorf("watermark needs text or src")
	}
	return withDefaults(props, map[string]any{"position": "bottom-right", "opacity": 0.6}), nil
}

// countdownResolver 缺省从片段时长开始倒数
func countdownResolver(props map[string]any, ctx PropsContext) (map[string]any, error) {
	out := withDefaults(props, nil)
	if _, ok := props["from"].(float64); !ok && ctx.FPS > 0 {
		out["from"] = float64(ctx.DurationFrames) / ctx.FPS
	}
	return out, nil
}

func chartResolver(props map[string]any, _ PropsContext) (map[string]any, error) {
	data, ok := props["data"].([]any)
	if !ok || len(data) == 0 {
		return nil, fmt.Errorf("chart needs non-empty data")
	}
	return withDefaults(props, map[string]any{"type": "bar"}), nil
}
