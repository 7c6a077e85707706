package config

import "time"

type Config interface {
	APIConfig
	RealtimeConfig
	RuntimeConfig
}

type APIConfig interface {
	GetBaseURL() string
	GetRequestTimeout() time.Duration
	GetThrottleInterval() time.Duration
	GetManagedBackend() bool
	GetProbeAttempts() int
	GetProbeInterval() time.Duration
	GetProbeTimeout() time.Duration
}

type RealtimeConfig interface {
	GetStreamPath() string
}

type RuntimeConfig interface {
	GetAppName() string
	GetDataDir() string
	GetDebug() bool
}

type mainConfig struct {
	API
	Realtime
	Runtime
}

func New() Config {
	return mainConfig{}
}
