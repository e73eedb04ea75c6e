package logger

import "sync"

var named sync.Map // name -> *Logger

// Register pins a logger under name, overriding the derived default.
func Register(name string, l *Logger) {
	named.Store(name, l)
}

// Get returns the logger registered under name, or the global logger
// tagged with component=name.
func Get(name string) *Logger {
	if l, ok := named.Load(name); ok {
		return l.(*Logger)
	}
	return GetGlobalLogger().WithComponent(name)
}
