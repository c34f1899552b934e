// Package daemon serves symbol queries over a unix socket. It holds the
// in-memory symbol index loaded from the sqlite database an external
// indexer maintains, and hot-reloads it when that database changes.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	ignore "github.com/sabhiram/go-gitignore"

	"codequery/internal/index"
	"codequery/internal/logging"
)

// Daemon owns the loaded symbol index and the IPC surface.
type Daemon struct {
	cfg Config

	mu      sync.RWMutex
	idx     *index.SymbolIndex
	files   *index.FileTable
	exclude *ignore.GitIgnore

	watcher *fsnotify.Watcher

	reloadMu    sync.Mutex
	reloadTimer *time.Timer

	ctx     context.Context
	cancel  context.CancelFunc
	logger  *slog.Logger
	logFile *os.File

	startedAt time.Time
	queries   atomic.Int64
}

// DaemonStatus represents the current state of the daemon.
type DaemonStatus struct {
	Running   bool      `json:"running"`
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
	Symbols   int       `json:"symbols"`
	Files     int       `json:"files"`
	Queries   int64     `json:"queries"`
}

// Config holds daemon configuration.
type Config struct {
	DBPath      string
	SocketPath  string
	LogPath     string
	PIDPath     string
	ProjectRoot string // when set, results matching its .gitignore are excluded
	DebounceMs  int
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "codequery")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "codequery")
}

// DefaultConfig returns the default daemon configuration.
func DefaultConfig() Config {
	configDir := DefaultConfigDir()
	return Config{
		DBPath:     filepath.Join(configDir, "symbols.db"),
		SocketPath: DefaultSocketPath(),
		LogPath:    filepath.Join(configDir, "daemon.log"),
		PIDPath:    filepath.Join(configDir, "daemon.pid"),
		DebounceMs: 500,
	}
}

// New creates a daemon and loads the symbol index from cfg.DBPath.
func New(cfg Config) (*Daemon, error) {
	if cfg.DebounceMs <= 0 {
		cfg.DebounceMs = 500
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	// Use a log file if configured, otherwise the logging package defaults.
	var logFile *os.File
	var logger *slog.Logger
	if cfg.LogPath != "" {
		logFile, err = os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			watcher.Close()
			cancel()
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		logCfg := logging.LoadConfigFromEnv("codequery-daemon")
		logCfg.Output = logFile
		logger = logging.New(logCfg)
	} else {
		logger = logging.Default("codequery-daemon")
	}

	idx, files, err := index.Load(cfg.DBPath)
	if err != nil {
		watcher.Close()
		cancel()
		if logFile != nil {
			logFile.Close()
		}
		return nil, fmt.Errorf("loading symbol index: %w", err)
	}

	d := &Daemon{
		cfg:       cfg,
		idx:       idx,
		files:     files,
		watcher:   watcher,
		ctx:       ctx,
		cancel:    cancel,
		logger:    logger,
		logFile:   logFile,
		startedAt: time.Now(),
	}
	if cfg.ProjectRoot != "" {
		d.exclude = loadGitignore(cfg.ProjectRoot)
	}
	return d, nil
}

// Run starts the daemon and blocks until shutdown.
func (d *Daemon) Run() error {
	d.logger.Info("daemon starting", "db", d.cfg.DBPath, "symbols", d.idx.Len())

	if d.cfg.PIDPath != "" {
		if err := d.writePIDFile(d.cfg.PIDPath); err != nil {
			return fmt.Errorf("writing PID file: %w", err)
		}
		defer os.Remove(d.cfg.PIDPath)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	ipcServer, err := NewIPCServer(d.cfg.SocketPath, d)
	if err != nil {
		return fmt.Errorf("starting IPC server: %w", err)
	}
	defer ipcServer.Close()

	go ipcServer.Serve(d.ctx)

	if err := d.watchIndexFile(); err != nil {
		d.logger.Warn("index file watch unavailable", "error", err)
	}
	go d.watcherLoop()

	d.logger.Info("daemon started", "pid", os.Getpid(), "socket", d.cfg.SocketPath)

	select {
	case sig := <-sigChan:
		d.logger.Info("received signal", "signal", sig)
	case <-d.ctx.Done():
		d.logger.Info("context cancelled")
	}

	d.logger.Info("daemon shutting down")
	d.cancel()
	d.watcher.Close()
	if d.logFile != nil {
		d.logFile.Close()
	}

	return nil
}

// Stop signals the daemon to shut down.
func (d *Daemon) Stop() {
	d.cancel()
}

// Status returns the current daemon status.
func (d *Daemon) Status() DaemonStatus {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return DaemonStatus{
		Running:   true,
		PID:       os.Getpid(),
		StartedAt: d.startedAt,
		Symbols:   d.idx.Len(),
		Files:     d.files.Len(),
		Queries:   d.queries.Load(),
	}
}

// snapshot returns the current index state. Jobs run against the
// snapshot so a concurrent reload never mutates an index under query.
func (d *Daemon) snapshot() (*index.SymbolIndex, *index.FileTable, *ignore.GitIgnore) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.idx, d.files, d.exclude
}

// watchIndexFile watches the directory holding the index database.
// Indexers typically replace the file wholesale, which a watch on the
// file itself would miss.
func (d *Daemon) watchIndexFile() error {
	return d.watcher.Add(filepath.Dir(d.cfg.DBPath))
}

// watcherLoop debounces filesystem events on the index database into
// reloads.
func (d *Daemon) watcherLoop() {
	debounce := time.Duration(d.cfg.DebounceMs) * time.Millisecond
	base := filepath.Base(d.cfg.DBPath)

	for {
		select {
		case <-d.ctx.Done():
			return
		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			// The WAL and journal sidecars share the db file's base name.
			if !strings.HasPrefix(filepath.Base(event.Name), base) {
				continue
			}
			d.scheduleReload(debounce)
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.logger.Error("watcher error", "error", err)
		}
	}
}

// scheduleReload resets the debounce timer for an index reload.
func (d *Daemon) scheduleReload(debounce time.Duration) {
	d.reloadMu.Lock()
	defer d.reloadMu.Unlock()
	if d.reloadTimer != nil {
		d.reloadTimer.Stop()
	}
	d.reloadTimer = time.AfterFunc(debounce, d.reload)
}

// reload swaps in a freshly loaded index. In-flight queries keep their
// snapshot of the old one.
func (d *Daemon) reload() {
	idx, files, err := index.Load(d.cfg.DBPath)
	if err != nil {
		d.logger.Error("index reload failed", "error", err)
		return
	}

	d.mu.Lock()
	d.idx = idx
	d.files = files
	d.mu.Unlock()

	d.logger.Info("index reloaded", "symbols", idx.Len(), "files", files.Len())
}

// writePIDFile writes the daemon PID to a file.
func (d *Daemon) writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(fmt.Sprintf("%d", os.Getpid())), 0644)
}

// loadGitignore loads gitignore patterns from the project's .gitignore
// and the global ~/.gitignore.
func loadGitignore(rootPath string) *ignore.GitIgnore {
	var patterns []string

	if homeDir, err := os.UserHomeDir(); err == nil {
		patterns = append(patterns, readIgnoreLines(filepath.Join(homeDir, ".gitignore"))...)
	}
	patterns = append(patterns, readIgnoreLines(filepath.Join(rootPath, ".gitignore"))...)

	if len(patterns) == 0 {
		return nil
	}
	return ignore.CompileIgnoreLines(patterns...)
}

// readIgnoreLines returns the non-empty, non-comment lines of a
// gitignore file, or nil if it cannot be read.
func readIgnoreLines(path string) []string {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var lines []string
	for _, line := range strings.Split(string(content), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
