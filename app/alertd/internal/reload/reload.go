// Package reload 监听配置文件变化并热更新告警路由
package reload

import (
	"sync/atomic"

	"github.com/atmquant/atmquant/pkg/config"
	"github.com/atmquant/atmquant/pkg/logger"
	"github.com/atmquant/atmquant/pkg/notify/alert"
)

// Target 可热更新的告警组件，*alert.Manager 即满足
type Target interface {
	Reload(cfg *alert.Config) error
}

// Watcher 实现 app.Server
type Watcher struct {
	mgr    config.Manager
	key    string
	target Target
	logger logger.Logger

	reloads  atomic.Int64
	failures atomic.Int64
}

// New 创建配置监听器，key 为告警配置在文件中的路径，如 "alert"
func New(mgr config.Manager, key string, target Target, l logger.Logger) *Watcher {
	return &Watcher{
		mgr:    mgr,
		key:    key,
		target: target,
		logger: logger.OrNoop(l).Named("reload"),
	}
}

// Start 注册文件变更回调
func (w *Watcher) Start() error {
	if w.mgr == nil {
		return nil
	}
	return w.mgr.Watch(w.Apply)
}

// Stop 底层监听随进程退出
func (w *Watcher) Stop() error {
	return nil
}

// Apply 重新读取告警配置并应用，失败时保留旧配置
func (w *Watcher) Apply() {
	var cfg alert.Config
	if err := w.mgr.UnmarshalKey(w.key, &cfg); err != nil {
		w.failures.Add(1)
		w.logger.Error("failed to read alert config, keeping previous", "error", err)
		return
	}
	if err := w.target.Reload(&cfg); err != nil {
		w.failures.Add(1)
		w.logger.Error("failed to apply alert config, keeping previous", "error", err)
		return
	}
	w.reloads.Add(1)
	w.logger.Info("alert config reloaded")
}

// Stats 成功与失败的热更新次数
func (w *Watcher) Stats() (reloads, failures int64) {
	return w.reloads.Load(), w.failures.Load()
}
