package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"reelcomp/cache"
	"reelcomp/config"
	"reelcomp/core/loader"
	"reelcomp/core/reactive"
	"reelcomp/core/timeline"
	"reelcomp/db"
	"reelcomp/logger"
	"reelcomp/model"
	"reelcomp/repository"
	"reelcomp/storage"
)

const (
	sourceFile  = "file"
	sourceHTTP  = "http"
	sourceMinio = "minio"
	sourceDB    = "db"
)

// app 各命令共用的组件装配结果
type app struct {
	Loader  *loader.Loader
	Index   loader.ProjectIndex
	Spectra *reactive.Library

	closers []func() error
}

// Close 按相反顺序释放外部连接
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("释放资源失败", logger.ErrorField(err))
		}
	}
}

func newApp(cfg *config.Config) (*app, error) {
	a := &app{}

	if cfg.MinioEnabled() {
		if err := storage.InitMinio(cfg); err != nil {
			return nil, err
		}
	}

	fetcher, err := newFetcher(cfg)
	if err != nil {
		return nil, err
	}
	if a.Index, err = a.newIndex(cfg); err != nil {
		a.Close()
		return nil, err
	}

	var store loader.SnapshotStore
	if cfg.RedisEnabled() {
		if err := cache.ConnectRedis(cfg); err != nil {
			// 快照持久化只是兜底，连接失败不影响启动
			logger.Warn("Redis 不可用，跳过快照持久化", logger.ErrorField(err))
		} else {
			a.closers = append(a.closers, cache.CloseRedis)
			store = cache.NewSnapshotCache(cache.RedisClient, cfg.SnapshotTTL)
		}
	}

	a.Spectra = reactive.NewLibrary(cfg.MediaDir).ServeFrom(cfg.ServedRoot)

	a.Loader = loader.New(loader.Options{
		Fetcher:   fetcher,
		Index:     a.Index,
		Store:     store,
		ProjectID: cfg.ProjectID,
		Interval:  cfg.PollInterval,
		Compose: timeline.Options{
			FPS:                    cfg.FPS,
			DefaultDurationSeconds: cfg.DefaultDurationSeconds,
			Resolver:               timeline.Resolver{ServedRoot: cfg.ServedRoot},
			Components:             timeline.DefaultComponents,
			Modulator:              reactive.NewModulator(reactive.DefaultConfig, a.Spectra),
		},
	})
	a.Loader.Subscribe(a.preloadSpectra)
	return a, nil
}

func newFetcher(cfg *config.Config) (loader.Fetcher, error) {
	switch cfg.TimelineSource {
	case sourceFile, "":
		return loader.FileFetcher{Root: cfg.ProjectsDir}, nil
	case sourceHTTP:
		if cfg.TimelineBaseURL == "" {
			return nil, fmt.Errorf("TIMELINE_BASE_URL is required for http source")
		}
		return loader.NewHTTPFetcher(cfg.TimelineBaseURL), nil
	case sourceMinio:
		if storage.GetMinioClient() == nil {
			return nil, fmt.Errorf("minio source requires MINIO_ENDPOINT and credentials")
		}
		return storage.NewMinioFetcher(nil, cfg.MinioBucket, cfg.MinioPrefix), nil
	}
	return nil, fmt.Errorf("unknown timeline source %q", cfg.TimelineSource)
}

func (a *app) newIndex(cfg *config.Config) (loader.ProjectIndex, error) {
	switch cfg.IndexSource {
	case sourceFile, "":
		if _, err := os.Stat(cfg.ProjectIndexFile); cfg.ProjectIndexFile == "" || err != nil {
			// 没有索引文件时只加载 PROJECT_ID
			logger.Info("未找到项目索引文件", logger.String("path", cfg.ProjectIndexFile))
			return nil, nil
		}
		return repository.NewFileProjectIndex(cfg.ProjectIndexFile), nil
	case sourceDB:
		if err := db.ConnectGormDB(cfg); err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.CloseGormDB)
		if err := db.AutoMigrateModels(&model.Project{}); err != nil {
			return nil, err
		}
		return repository.NewGormProjectRepository(db.GormDB), nil
	case sourceMinio:
		if storage.GetMinioClient() == nil {
			return nil, fmt.Errorf("minio index requires MINIO_ENDPOINT and credentials")
		}
		return storage.NewMinioIndex(nil, cfg.MinioBucket, cfg.MinioPrefix), nil
	}
	return nil, fmt.Errorf("unknown index source %q", cfg.IndexSource)
}

// preloadSpectra 为音频响应轨道加载 WAV 频谱，其他格式只使用基线运动
func (a *app) preloadSpectra(s *loader.Snapshot) {
	for _, layout := range s.Composition.Layouts {
		src := layout.AudioSrc
		if !layout.AudioReactive || src == "" || a.Spectra.Has(src) {
			continue
		}
		if filepath.Ext(src) != ".wav" {
			logger.Debug("非 WAV 音频，跳过频谱分析", logger.String("src", src))
			continue
		}
		if err := a.Spectra.LoadWAV(src); err != nil {
			logger.Warn("加载音频频谱失败", logger.String("src", src), logger.ErrorField(err))
		}
	}
}
