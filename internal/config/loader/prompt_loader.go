package loader

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"diagnoseme/internal/logger"
	"diagnoseme/internal/prompt"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// ChangeListener is called after every successful reload.
type ChangeListener func(PromptSnapshot)

// PromptSnapshot is the catalog currently in effect.
type PromptSnapshot struct {
	Version  int64
	LoadedAt time.Time
	Catalog  *prompt.Catalog
}

// PromptLoader reads a prompt catalog file and keeps it fresh on FS events.
// A broken edit is logged and the previous catalog stays active.
type PromptLoader struct {
	path string
	v    *viper.Viper

	mu        sync.RWMutex
	snapshot  PromptSnapshot
	listeners []ChangeListener
}

func NewPromptLoader(path string) (*PromptLoader, error) {
	return newPromptLoader(path, true)
}

func newPromptLoader(path string, watch bool) (*PromptLoader, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("prompt loader requires path")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read prompt catalog failed: %w", err)
	}
	l := &PromptLoader{path: path, v: v}
	if err := l.reload(); err != nil {
		return nil, err
	}
	if watch {
		v.OnConfigChange(func(evt fsnotify.Event) {
			if err := l.reload(); err != nil {
				logger.Errorf("prompt catalog reload failed (%s): %v", evt.Name, err)
				return
			}
			l.notify()
		})
		v.WatchConfig()
	}
	return l, nil
}

// Catalog implements prompt.Source.
func (l *PromptLoader) Catalog() *prompt.Catalog {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshot.Catalog
}

func (l *PromptLoader) Snapshot() PromptSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshot
}

// Subscribe registers fn; it is not invoked for the initial load.
func (l *PromptLoader) Subscribe(fn ChangeListener) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.listeners = append(l.listeners, fn)
	l.mu.Unlock()
}

func (l *PromptLoader) notify() {
	l.mu.RLock()
	snap := l.snapshot
	listeners := append([]ChangeListener(nil), l.listeners...)
	l.mu.RUnlock()
	for _, fn := range listeners {
		func(cb ChangeListener) {
			defer func() {
				if r := recover(); r != nil {
					logger.Errorf("prompt listener panic: %v", r)
				}
			}()
			cb(snap)
		}(fn)
	}
}

func (l *PromptLoader) reload() error {
	var file prompt.File
	if err := l.v.Unmarshal(&file, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
		dc.ErrorUnused = true
	}); err != nil {
		return fmt.Errorf("parse prompt catalog failed: %w", err)
	}
	catalog, err := prompt.New(file)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.snapshot = PromptSnapshot{
		Version:  l.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Catalog:  catalog,
	}
	l.mu.Unlock()
	logger.Infof("Prompt loader loaded %d templates from %s (default=%s)", len(catalog.Names()), filepath.Base(l.path), catalog.Default().Name)
	return nil
}
