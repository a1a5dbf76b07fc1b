package loader

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"reelcomp/logger"

	"github.com/fsnotify/fsnotify"
)

// Refresher 接收"文档可能已变化"的通知
type Refresher interface {
	Refresh()
}

// FileWatcher 监听项目目录中的 json 文档，写入稳定后触发一次刷新。
// 只是加速手段，轮询仍然是最终保证。
type FileWatcher struct {
	root     string
	target   Refresher
	debounce time.Duration

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewFileWatcher 递归注册 root 下所有目录
func NewFileWatcher(root string, target Refresher, debounce time.Duration) (*FileWatcher, error) {
	if debounce <= 0 {
		debounce = 150 * time.Millisecond
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(p)
		}
		return nil
	})
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", root, err)
	}

	return &FileWatcher{root: root, target: target, debounce: debounce, watcher: w}, nil
}

// Start 启动监听 goroutine
func (fw *FileWatcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	fw.cancel = cancel
	fw.wg.Add(1)
	go fw.loop(ctx)
	logger.Info("文件监听已启动", logger.String("root", fw.root))
}

// Stop 停止监听并释放 watcher
func (fw *FileWatcher) Stop() {
	if fw.cancel != nil {
		fw.cancel()
	}
	fw.wg.Wait()
	fw.watcher.Close()
}

func (fw *FileWatcher) loop(ctx context.Context) {
	defer fw.wg.Done()

	// 最近一次相关事件的时间，零值表示没有待处理变化
	var pending time.Time
	checkTicker := time.NewTicker(fw.debounce / 3)
	defer checkTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create != 0 {
				// 新建的子目录也要监听
				if isDir(event.Name) {
					if err := fw.watcher.Add(event.Name); err != nil {
						logger.Warn("添加监听目录失败", logger.String("path", event.Name), logger.ErrorField(err))
					}
					continue
				}
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 && isDocument(event.Name) {
				pending = time.Now()
			}

		case <-checkTicker.C:
			if pending.IsZero() || time.Since(pending) < fw.debounce {
				continue
			}
			pending = time.Time{}
			logger.Debug("检测到文档变化，触发刷新", logger.String("root", fw.root))
			fw.target.Refresh()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("文件监听错误", logger.ErrorField(err))
		}
	}
}

func isDocument(name string) bool {
	switch filepath.Ext(name) {
	case ".json", ".otio":
		return true
	}
	return false
}

func isDir(name string) bool {
	info, err := os.Stat(name)
	return err == nil && info.IsDir()
}
