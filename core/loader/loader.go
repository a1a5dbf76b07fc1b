package loader

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync"
	"sync/atomic"
	"time"

	"reelcomp/core/timeline"
	"reelcomp/logger"
	"reelcomp/model"

	"github.com/google/uuid"
)

// State 加载状态
type State string

const (
	StateLoading       State = "loading"
	StateLoaded        State = "loaded"
	StateErrorFallback State = "error_fallback"
)

// Snapshot 数据来源
const (
	SourceNative      = "native"
	SourceScript      = "script"
	SourceCache       = "cache"
	SourceDefault     = "default"
	SourcePlaceholder = "placeholder"
)

const (
	DefaultTimelineFile = "timeline.json"
	DefaultScriptFile   = "script.json"
	defaultFetchTimeout = 10 * time.Second
)

// Snapshot 一次加载的完整结果，发布后不再修改
type Snapshot struct {
	Revision    string
	ProjectID   string
	State       State
	Source      string
	Timeline    *model.Timeline
	Composition *timeline.Composition
	Err         string
	LoadedAt    time.Time
}

// Options 加载器配置
type Options struct {
	Fetcher   Fetcher
	Index     ProjectIndex // 为 nil 时只加载 ProjectID
	Store     SnapshotStore
	ProjectID string

	Interval     time.Duration
	FetchTimeout time.Duration
	TimelineFile string
	ScriptFile   string

	// Fallback 首次加载失败且没有缓存时使用
	Fallback *model.Timeline
	Compose  timeline.Options
}

// Loader 时间线加载/轮询器。当前快照保存在原子指针中，读取方总能看到完整的旧值或新值。
type Loader struct {
	opts Options

	current atomic.Pointer[Snapshot]
	alive   atomic.Bool
	good    bool // 只在轮询 goroutine 中读写：当前快照是否来自一次成功加载

	ready     chan struct{}
	readyOnce sync.Once
	trigger   chan struct{}

	cancel context.CancelFunc
	wg     sync.WaitGroup

	subsMu  sync.RWMutex
	subs    map[int]func(*Snapshot)
	nextSub int
}

// New 创建加载器，调用 Start 后才开始工作
func New(opts Options) *Loader {
	if opts.Interval <= 0 {
		opts.Interval = 2 * time.Second
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaultFetchTimeout
	}
	if opts.TimelineFile == "" {
		opts.TimelineFile = DefaultTimelineFile
	}
	if opts.ScriptFile == "" {
		opts.ScriptFile = DefaultScriptFile
	}
	if opts.Compose.FPS <= 0 {
		opts.Compose.FPS = 30
	}
	if opts.Compose.DefaultDurationSeconds <= 0 {
		opts.Compose.DefaultDurationSeconds = 30
	}
	return &Loader{
		opts:    opts,
		ready:   make(chan struct{}),
		trigger: make(chan struct{}, 1),
		subs:    make(map[int]func(*Snapshot)),
	}
}

// Start 启动后台轮询。首次加载完成（无论成功失败）后 Ready 关闭。
func (l *Loader) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.alive.Store(true)

	logger.Info("时间线加载器启动",
		logger.String("projectId", l.opts.ProjectID),
		logger.Duration("interval", l.opts.Interval))

	l.wg.Add(1)
	go l.run(ctx)
}

// Stop 取消定时器与进行中的请求，之后的结果一律丢弃
func (l *Loader) Stop() {
	l.alive.Store(false)
	if l.cancel != nil {
		l.cancel()
	}
	l.wg.Wait()
	l.markReady()
	logger.Info("时间线加载器已停止")
}

// Ready 首次加载结束的一次性信号
func (l *Loader) Ready() <-chan struct{} {
	return l.ready
}

// WaitReady 阻塞直到首次加载结束或 ctx 取消
func (l *Loader) WaitReady(ctx context.Context) error {
	select {
	case <-l.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Current 当前快照，首次加载前为 nil
func (l *Loader) Current() *Snapshot {
	return l.current.Load()
}

// State 当前状态
func (l *Loader) State() State {
	if s := l.current.Load(); s != nil {
		return s.State
	}
	return StateLoading
}

// Refresh 请求立即重新加载，不阻塞；已有待处理请求时合并
func (l *Loader) Refresh() {
	select {
	case l.trigger <- struct{}{}:
	default:
	}
}

// Subscribe 注册快照变化回调，返回取消函数。回调在轮询 goroutine 中执行，应尽快返回。
func (l *Loader) Subscribe(fn func(*Snapshot)) func() {
	l.subsMu.Lock()
	id := l.nextSub
	l.nextSub++
	l.subs[id] = fn
	l.subsMu.Unlock()

	return func() {
		l.subsMu.Lock()
		delete(l.subs, id)
		l.subsMu.Unlock()
	}
}

func (l *Loader) markReady() {
	l.readyOnce.Do(func() { close(l.ready) })
}

func (l *Loader) run(ctx context.Context) {
	defer l.wg.Done()

	l.loadOnce(ctx)
	l.markReady()

	ticker := time.NewTicker(l.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.loadOnce(ctx)
		case <-l.trigger:
			l.loadOnce(ctx)
		}
	}
}

// loadOnce 拉取 → 解析 → 比较 → 提交
func (l *Loader) loadOnce(ctx context.Context) {
	fctx, cancel := context.WithTimeout(ctx, l.opts.FetchTimeout)
	defer cancel()

	res, err := l.fetch(fctx)

	// 组件已退役：丢弃迟到的结果
	if !l.alive.Load() || ctx.Err() != nil {
		return
	}

	if err == nil {
		// 内容未变化时不重复写入持久化存储
		if l.commit(res, StateLoaded, "") {
			l.persist(ctx, res)
		}
		l.good = true
		return
	}

	logger.Warn("时间线加载失败",
		logger.String("projectId", res.projectID),
		logger.ErrorField(err))

	if l.good {
		// 保留上一次成功的快照
		return
	}
	if l.current.Load() != nil {
		return
	}
	l.commit(l.fallback(ctx, res.projectID), StateErrorFallback, err.Error())
}

type loadResult struct {
	projectID string
	project   *model.Project
	timeline  *model.Timeline
	source    string
	raw       []byte
}

func (l *Loader) fetch(ctx context.Context) (loadResult, error) {
	project, err := l.selectProject(ctx)
	if err != nil {
		return loadResult{projectID: l.opts.ProjectID}, err
	}
	res := loadResult{projectID: project.ID, project: project}

	if l.opts.Fetcher == nil {
		return res, fmt.Errorf("no fetcher configured")
	}

	if project.HasNativeTimeline {
		data, err := l.opts.Fetcher.Fetch(ctx, path.Join(project.Path, l.opts.TimelineFile))
		switch {
		case err == nil:
			tl, err := model.DecodeTimeline(data)
			if err != nil {
				return res, err
			}
			res.timeline, res.source, res.raw = tl, SourceNative, data
			return res, nil
		case errors.Is(err, ErrNotFound) && project.HasSceneScript:
			logger.Debug("原生时间线不存在，改用脚本", logger.String("projectId", project.ID))
		default:
			return res, err
		}
	}

	if project.HasSceneScript {
		data, err := l.opts.Fetcher.Fetch(ctx, path.Join(project.Path, l.opts.ScriptFile))
		if err != nil {
			return res, err
		}
		script, err := model.DecodeSceneScript(data)
		if err != nil {
			return res, err
		}
		res.timeline = ConvertScript(script, ConvertOptions{
			FPS:       l.opts.Compose.FPS,
			Namespace: project.Namespace(),
		})
		res.source = SourceScript
		return res, nil
	}

	return res, ErrNoDocument
}

// selectProject 按 ID 查找，找不到取索引第一个
func (l *Loader) selectProject(ctx context.Context) (*model.Project, error) {
	if l.opts.Index == nil {
		if l.opts.ProjectID == "" {
			return nil, ErrNoProject
		}
		return &model.Project{
			ID:                l.opts.ProjectID,
			Path:              l.opts.ProjectID,
			HasNativeTimeline: true,
			HasSceneScript:    true,
		}, nil
	}

	projects, err := l.opts.Index.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return SelectProject(projects, l.opts.ProjectID)
}

// SelectProject 在索引中按 ID 查找；ID 为空或不存在时返回第一个
func SelectProject(projects []model.Project, id string) (*model.Project, error) {
	if len(projects) == 0 {
		return nil, ErrNoProject
	}
	for i := range projects {
		if projects[i].ID == id {
			return &projects[i], nil
		}
	}
	if id != "" {
		logger.Warn("项目不存在，使用索引中的第一个",
			logger.String("requested", id),
			logger.String("using", projects[0].ID))
	}
	return &projects[0], nil
}

// fallback 顺序：持久化的最后成功快照 > 调用方默认值 > "无项目" 占位
func (l *Loader) fallback(ctx context.Context, projectID string) loadResult {
	res := loadResult{projectID: projectID}

	if l.opts.Store != nil && projectID != "" {
		data, err := l.opts.Store.Load(ctx, projectID)
		if err == nil && len(data) > 0 {
			if tl, err := model.DecodeTimeline(data); err == nil {
				res.timeline, res.source = tl, SourceCache
				return res
			}
		}
	}
	if l.opts.Fallback != nil {
		res.timeline, res.source = l.opts.Fallback, SourceDefault
		return res
	}
	res.timeline = NoProjectTimeline(l.opts.Compose.DefaultDurationSeconds, l.opts.Compose.FPS)
	res.source = SourcePlaceholder
	return res
}

func (l *Loader) persist(ctx context.Context, res loadResult) {
	if l.opts.Store == nil || res.projectID == "" {
		return
	}
	doc := res.raw
	if doc == nil {
		var err error
		if doc, err = model.EncodeTimeline(res.timeline); err != nil {
			logger.Warn("时间线序列化失败", logger.ErrorField(err))
			return
		}
	}
	if err := l.opts.Store.Save(ctx, res.projectID, doc); err != nil {
		logger.Warn("保存时间线快照失败",
			logger.String("projectId", res.projectID),
			logger.ErrorField(err))
	}
}

// commit 内容与状态都未变化时不替换，也不通知订阅者
func (l *Loader) commit(res loadResult, state State, errMsg string) bool {
	cur := l.current.Load()
	if cur != nil && cur.State == state && cur.ProjectID == res.projectID && cur.Timeline.Equal(res.timeline) {
		logger.Debug("时间线内容未变化", logger.String("revision", cur.Revision))
		return false
	}

	// 文档自带命名空间优先，其次取项目
	opts := l.opts.Compose
	if res.project != nil && res.timeline.Metadata.String(model.MetaProjectNamespace) == "" {
		opts.Resolver = opts.Resolver.WithNamespace(res.project.Namespace())
	}
	snap := &Snapshot{
		Revision:    uuid.NewString(),
		ProjectID:   res.projectID,
		State:       state,
		Source:      res.source,
		Timeline:    res.timeline,
		Composition: timeline.Compose(res.timeline, opts),
		Err:         errMsg,
		LoadedAt:    time.Now(),
	}
	l.current.Store(snap)

	logger.Info("时间线快照已更新",
		logger.String("projectId", snap.ProjectID),
		logger.String("revision", snap.Revision),
		logger.String("state", string(state)),
		logger.String("source", snap.Source),
		logger.Int("durationFrames", snap.Composition.DurationFrames),
		logger.Int("dropped", len(snap.Composition.Dropped)))

	l.notify(snap)
	return true
}

func (l *Loader) notify(snap *Snapshot) {
	l.subsMu.RLock()
	fns := make([]func(*Snapshot), 0, len(l.subs))
	for _, fn := range l.subs {
		fns = append(fns, fn)
	}
	l.subsMu.RUnlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// NoProjectTimeline 覆盖默认时长的 "无项目" 占位时间线
func NoProjectTimeline(seconds, fps float64) *model.Timeline {
	return &model.Timeline{
		Name: "no-project",
		Tracks: model.Stack{Children: []*model.Track{{
			Kind: model.TrackKindVideo,
			Name: "Overlays",
			Children: []model.Item{&model.Clip{
				Name: "no-project",
				SourceRange: model.TimeRange{
					StartTime: model.RationalTime{Rate: fps},
					Duration:  model.NewRationalTimeFromSeconds(seconds, fps),
				},
				Metadata: model.Metadata{model.MetaComponent: string(timeline.ComponentNoProject)},
			}},
		}}},
	}
}
