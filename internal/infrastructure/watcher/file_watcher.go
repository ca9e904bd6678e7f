package watcher

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/webforge/backend/internal/domain/events"
	"github.com/webforge/backend/internal/infrastructure/config"
	"github.com/webforge/backend/internal/infrastructure/log"
)

// WatchConfig FileWatcher 配置
type WatchConfig struct {
	// RootDir 监听根目录（generated_apps）
	RootDir string
	// DebounceDelay 防抖延迟
	DebounceDelay time.Duration
	// Extensions 关注的文件扩展名
	Extensions []string
}

// NewWatchConfig 由应用配置生成监听配置
func NewWatchConfig(ws *config.WorkspaceConfig, wc *config.WatcherConfig) WatchConfig {
	delay := wc.Debounce
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	return WatchConfig{
		RootDir:       ws.GeneratedAppsDir(),
		DebounceDelay: delay,
		Extensions:    []string{".html", ".css", ".js"},
	}
}

// FileWatcher 递归监听生成项目目录
type FileWatcher struct {
	config   WatchConfig
	eventBus events.EventBus
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	debounceTimers map[string]*time.Timer
	pending        map[string]fsnotify.Op // 防抖窗口内合并的操作
	debounceMu     sync.Mutex

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewFileWatcher 创建文件监听器
func NewFileWatcher(config WatchConfig, eventBus events.EventBus) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &FileWatcher{
		config:         config,
		eventBus:       eventBus,
		watcher:        w,
		logger:         log.NewModuleLogger("watcher", "file_watcher"),
		debounceTimers: make(map[string]*time.Timer),
		pending:        make(map[string]fsnotify.Op),
		stopCh:         make(chan struct{}),
	}, nil
}

// Start 启动文件监听
func (fw *FileWatcher) Start() error {
	if err := os.MkdirAll(fw.config.RootDir, 0o755); err != nil {
		return err
	}
	fw.logger.Info("Starting file watcher", "root", fw.config.RootDir)

	if err := fw.addDirRecursive(fw.config.RootDir); err != nil {
		return err
	}

	fw.wg.Add(1)
	go fw.watchLoop()
	return nil
}

// Stop 停止文件监听，可重复调用
func (fw *FileWatcher) Stop() {
	fw.stopOnce.Do(func() {
		fw.logger.Info("Stopping file watcher")
		close(fw.stopCh)
		fw.watcher.Close()
		fw.wg.Wait()

		fw.debounceMu.Lock()
		for path, timer := range fw.debounceTimers {
			timer.Stop()
			delete(fw.debounceTimers, path)
		}
		fw.debounceMu.Unlock()
		fw.logger.Info("File watcher stopped")
	})
}

// addDirRecursive 监听目录及其全部子目录
func (fw *FileWatcher) addDirRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := fw.watcher.Add(path); err != nil {
				fw.logger.Debug("Failed to add directory to watch", "path", path, "error", err)
			}
		}
		return nil
	})
}

func (fw *FileWatcher) watchLoop() {
	defer fw.wg.Done()
	for {
		select {
		case <-fw.stopCh:
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleFsEvent(event)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Error("Watcher error", "error", err)
		}
	}
}

func (fw *FileWatcher) handleFsEvent(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			// 新项目目录，补充监听并补发其中已有文件
			_ = fw.addDirRecursive(event.Name)
			fw.emitExisting(event.Name)
			return
		}
	}
	if !fw.isTracked(event.Name) {
		return
	}
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	fw.debounce(event)
}

// emitExisting 目录创建与文件写入几乎同时发生时，文件事件可能先于监听注册
func (fw *FileWatcher) emitExisting(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() && fw.isTracked(path) {
			fw.debounce(fsnotify.Event{Name: path, Op: fsnotify.Create})
		}
		return nil
	})
}

func (fw *FileWatcher) isTracked(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range fw.config.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// debounce 同一路径在延迟窗口内只发布一次
func (fw *FileWatcher) debounce(event fsnotify.Event) {
	fw.debounceMu.Lock()
	defer fw.debounceMu.Unlock()

	path := event.Name
	fw.pending[path] |= event.Op
	if timer, ok := fw.debounceTimers[path]; ok {
		timer.Stop()
	}
	fw.debounceTimers[path] = time.AfterFunc(fw.config.DebounceDelay, func() {
		fw.debounceMu.Lock()
		op := fw.pending[path]
		delete(fw.pending, path)
		delete(fw.debounceTimers, path)
		fw.debounceMu.Unlock()

		fw.emit(path, op)
	})
}

func (fw *FileWatcher) emit(path string, op fsnotify.Op) {
	select {
	case <-fw.stopCh:
		return
	default:
	}

	var eventType events.EventType
	_, statErr := os.Stat(path)
	switch {
	case statErr != nil:
		// 窗口结束时文件已不存在，按删除处理
		eventType = events.ProjectFileDeleted
	case op.Has(fsnotify.Create):
		eventType = events.ProjectFileCreated
	default:
		eventType = events.ProjectFileModified
	}

	fw.eventBus.Publish(&events.ProjectFileEvent{
		EventType:   eventType,
		FilePath:    path,
		ProjectName: fw.projectName(path),
		EventTime:   time.Now(),
	})
	fw.logger.Debug("Project file event", "type", eventType, "path", path)
}

// projectName generated_apps 下的第一级目录名
func (fw *FileWatcher) projectName(path string) string {
	rel, err := filepath.Rel(fw.config.RootDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return ""
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[0]
}
