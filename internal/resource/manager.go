package resource

import (
	"context"
	"sync"
	"time"

	"ClubLedger/internal/logger"
	"ClubLedger/internal/serviceiface"
)

// ResourceManager hands out one exclusive lock per key. The importer keys by club id, so
// imports of one club run one at a time while different clubs proceed in parallel.
type ResourceManager struct {
	locks             map[string]*keyLock
	mu                sync.Mutex
	stopChan          chan struct{}
	stopOnce          sync.Once
	heartbeatInterval time.Duration
}

type keyLock struct {
	ch      chan struct{}
	holders int // goroutines holding or waiting
	since   time.Time
}

func NewResourceManager() *ResourceManager {
	return &ResourceManager{
		locks:             make(map[string]*keyLock),
		stopChan:          make(chan struct{}),
		heartbeatInterval: time.Minute,
	}
}

func NewResourceManagerService(cfg map[string]interface{}) serviceiface.Service {
	rm := NewResourceManager()
	if val, ok := cfg["heartbeat_interval"]; ok {
		switch v := val.(type) {
		case string:
			if d, err := time.ParseDuration(v); err == nil {
				rm.heartbeatInterval = d
			}
		case int:
			rm.heartbeatInterval = time.Duration(v) * time.Second
		case float64:
			rm.heartbeatInterval = time.Duration(v) * time.Second
		}
	}
	return rm
}

func (rm *ResourceManager) Name() string { return "resourcemanager" }

func (rm *ResourceManager) Start() error {
	logger.LogAudit("resourcemanager_started", nil)
	go rm.heartbeatLoop()
	return nil
}

func (rm *ResourceManager) Stop() error {
	rm.stopOnce.Do(func() { close(rm.stopChan) })
	return nil
}

// heartbeatLoop reports locks held longer than one interval.
func (rm *ResourceManager) heartbeatLoop() {
	ticker := time.NewTicker(rm.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-rm.stopChan:
			return
		case now := <-ticker.C:
			for key, held := range rm.held() {
				if now.Sub(held) > rm.heartbeatInterval {
					lg := logger.L()
					lg.Warn().Str("key", key).Dur("held", now.Sub(held)).Msg("lock held past heartbeat")
				}
			}
		}
	}
}

// Acquire blocks until key is free or ctx is done. The returned func releases the lock.
func (rm *ResourceManager) Acquire(ctx context.Context, key string) (func(), error) {
	rm.mu.Lock()
	l, ok := rm.locks[key]
	if !ok {
		l = &keyLock{ch: make(chan struct{}, 1)}
		rm.locks[key] = l
	}
	l.holders++
	rm.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		rm.drop(key, l)
		return nil, ctx.Err()
	}
	rm.mu.Lock()
	l.since = time.Now()
	rm.mu.Unlock()
	return rm.releaser(key, l), nil
}

// TryAcquire takes key only if it is free right now.
func (rm *ResourceManager) TryAcquire(key string) (func(), bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	l, ok := rm.locks[key]
	if !ok {
		l = &keyLock{ch: make(chan struct{}, 1)}
	}
	select {
	case l.ch <- struct{}{}:
	default:
		return nil, false
	}
	rm.locks[key] = l
	l.holders++
	l.since = time.Now()
	return rm.releaser(key, l), true
}

func (rm *ResourceManager) releaser(key string, l *keyLock) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.ch
			rm.drop(key, l)
		})
	}
}

func (rm *ResourceManager) drop(key string, l *keyLock) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	l.holders--
	if l.holders == 0 {
		delete(rm.locks, key)
	}
}

func (rm *ResourceManager) held() map[string]time.Time {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	out := make(map[string]time.Time)
	for k, l := range rm.locks {
		if len(l.ch) > 0 {
			out[k] = l.since
		}
	}
	return out
}

// ListResources returns the keys currently locked or waited on.
func (rm *ResourceManager) ListResources() []string {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	keys := make([]string, 0, len(rm.locks))
	for key := range rm.locks {
		keys = append(keys, key)
	}
	return keys
}
