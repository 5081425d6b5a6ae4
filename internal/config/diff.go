package config

import "github.com/MrWong99/glidekey/pkg/gesture"

// Changes describes what changed between two configs.
type Changes struct {
	// Settings holds the new value of every hot-reloadable setting that
	// changed, in a fixed order.
	Settings []Setting

	// RestartRequired lists the YAML paths of changed values that only take
	// effect after a restart.
	RestartRequired []string
}

// Empty reports whether nothing changed.
func (c Changes) Empty() bool {
	return len(c.Settings) == 0 && len(c.RestartRequired) == 0
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) Changes {
	var c Changes

	if old.Server.LogLevel != new.Server.LogLevel {
		c.Settings = append(c.Settings, new.Server.LogLevel)
	}
	c.Settings = append(c.Settings, diffGesture(old.Gesture.Resolve(), new.Gesture.Resolve())...)

	restart := func(changed bool, key string) {
		if changed {
			c.RestartRequired = append(c.RestartRequired, key)
		}
	}
	restart(old.Server.ListenAddr != new.Server.ListenAddr, "server.listen_addr")
	restart(!sameTLS(old.Server.TLS, new.Server.TLS), "server.tls")
	restart(old.Assets != new.Assets, "assets")
	restart(!sameEntries(old.Engine.Completion, new.Engine.Completion), "engine.completion")
	restart(!sameEntries(old.Engine.NextWord, new.Engine.NextWord), "engine.next_word")
	restart(old.Engine.MaxResults != new.Engine.MaxResults, "engine.max_results")
	restart(old.Engine.CacheSize != new.Engine.CacheSize, "engine.cache_size")
	restart(old.Learning != new.Learning, "learning")
	restart(old.Telemetry != new.Telemetry, "telemetry")
	return c
}

func diffGesture(old, new gesture.Configuration) []Setting {
	var out []Setting
	if old.MinSwipeDistance != new.MinSwipeDistance {
		out = append(out, MinSwipeDistance(new.MinSwipeDistance))
	}
	if old.MaxSwipeVelocity != new.MaxSwipeVelocity {
		out = append(out, MaxSwipeVelocity(new.MaxSwipeVelocity))
	}
	if old.SmoothingFactor != new.SmoothingFactor {
		out = append(out, SmoothingFactor(new.SmoothingFactor))
	}
	if old.ConfidenceThreshold != new.ConfidenceThreshold {
		out = append(out, ConfidenceThreshold(new.ConfidenceThreshold))
	}
	if old.MaxSuggestions != new.MaxSuggestions {
		out = append(out, MaxSuggestions(new.MaxSuggestions))
	}
	if old.MaxAlternatives != new.MaxAlternatives {
		out = append(out, MaxAlternatives(new.MaxAlternatives))
	}
	if old.PreviewEnabled != new.PreviewEnabled {
		out = append(out, PreviewEnabled(new.PreviewEnabled))
	}
	if old.PreviewInterval != new.PreviewInterval {
		out = append(out, PreviewInterval(new.PreviewInterval))
	}
	if old.KeyTolerance != new.KeyTolerance {
		out = append(out, KeyTolerance(new.KeyTolerance))
	}
	if old.SmoothOnComplete != new.SmoothOnComplete {
		out = append(out, SmoothOnComplete(new.SmoothOnComplete))
	}
	if old.Sensitivity != new.Sensitivity {
		out = append(out, Sensitivity(new.Sensitivity))
	}
	return out
}

func sameTLS(a, b *TLSConfig) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameEntries(a, b []ProviderEntry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
