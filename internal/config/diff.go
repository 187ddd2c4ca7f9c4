package config

// Diff describes what changed between two configs. Only the log level,
// the provider entries, the admin e-mail, and the sweep cron expression
// are tracked; applying a change is left to the caller.
type Diff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	LLMChanged         bool
	LLMFallbackChanged bool
	STTChanged         bool
	TTSChanged         bool

	AdminEmailChanged bool
	SweepCronChanged  bool
}

// Changed reports whether any tracked field differs.
func (d Diff) Changed() bool {
	return d.LogLevelChanged || d.LLMChanged || d.LLMFallbackChanged ||
		d.STTChanged || d.TTSChanged || d.AdminEmailChanged || d.SweepCronChanged
}

// ComputeDiff compares old and new configs and returns what changed.
func ComputeDiff(old, new *Config) Diff {
	var d Diff

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	if providerEntryChanged(old.Providers.LLM, new.Providers.LLM) {
		d.LLMChanged = true
	}
	if providerEntryChanged(old.Providers.LLMFallback, new.Providers.LLMFallback) {
		d.LLMFallbackChanged = true
	}
	if providerEntryChanged(old.Providers.STT, new.Providers.STT) {
		d.STTChanged = true
	}
	if providerEntryChanged(old.Providers.TTS, new.Providers.TTS) {
		d.TTSChanged = true
	}
	if old.Mail.AdminEmail != new.Mail.AdminEmail {
		d.AdminEmailChanged = true
	}
	if old.Queue.SweepCron != new.Queue.SweepCron {
		d.SweepCronChanged = true
	}

	return d
}

// providerEntryChanged compares the fields that affect how a provider is
// constructed; Options is intentionally excluded since it's an unordered
// map[string]any and not worth a deep-equal check for hot-reload purposes.
func providerEntryChanged(old, new ProviderEntry) bool {
	return old.Name != new.Name || old.APIKey != new.APIKey ||
		old.BaseURL != new.BaseURL || old.Model != new.Model
}
