package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ Mapper          = (*Service)(nil)
	_ Mapper          = (*Engine)(nil)
	_ RuleInvalidator = (*Service)(nil)
	_ RuleSetLoader   = (*RuleCache)(nil)
	_ RuleStore       = (*MemoryRuleStore)(nil)
	_ MetricsRecorder = NopMetricsRecorder{}
	_ JobWorkerHook   = serviceWorkerHook{}

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
