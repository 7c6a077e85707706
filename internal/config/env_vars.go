package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	baseURLVar          = "PHARMACY_API_URL"
	requestTimeoutVar   = "PHARMACY_REQUEST_TIMEOUT"
	throttleIntervalVar = "PHARMACY_THROTTLE_INTERVAL"
	managedBackendVar   = "PHARMACY_MANAGED_BACKEND"
	probeAttemptsVar    = "PHARMACY_PROBE_ATTEMPTS"
	probeIntervalVar    = "PHARMACY_PROBE_INTERVAL"
	probeTimeoutVar     = "PHARMACY_PROBE_TIMEOUT"
	streamPathVar       = "PHARMACY_STREAM_PATH"
	appNameVar          = "PHARMACY_APP_NAME"
	dataDirVar          = "PHARMACY_DATA_DIR"
	debugVar            = "PHARMACY_DEBUG"
)

type API struct{}

var _ APIConfig = API{}

func (API) GetBaseURL() string {
	return strings.TrimRight(GetEnv(baseURLVar, "http://localhost:8080"), "/")
}

func (API) GetRequestTimeout() time.Duration {
	return GetEnvDuration(requestTimeoutVar, 30*time.Second)
}

func (API) GetThrottleInterval() time.Duration {
	return GetEnvDuration(throttleIntervalVar, time.Second)
}

// GetManagedBackend reports whether the client runs alongside a locally
// managed backend process. When false the backend is assumed always-on and
// readiness probing is skipped.
func (API) GetManagedBackend() bool {
	return GetEnvBool(managedBackendVar, false)
}

func (API) GetProbeAttempts() int {
	return GetEnvInt(probeAttemptsVar, 30)
}

func (API) GetProbeInterval() time.Duration {
	return GetEnvDuration(probeIntervalVar, time.Second)
}

func (API) GetProbeTimeout() time.Duration {
	return GetEnvDuration(probeTimeoutVar, 2*time.Second)
}

type Realtime struct{}

var _ RealtimeConfig = Realtime{}

func (Realtime) GetStreamPath() string {
	return GetEnv(streamPathVar, "/api/stream")
}

type Runtime struct{}

var _ RuntimeConfig = Runtime{}

func (Runtime) GetAppName() string {
	return GetEnv(appNameVar, "Pharmacy Client")
}

func (Runtime) GetDataDir() string {
	return GetEnv(dataDirVar, "./data")
}

func (Runtime) GetDebug() bool {
	return GetEnvBool(debugVar, false)
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvDuration(envVar string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

func GetEnvInt(envVar string, defaultValue int) int {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func GetEnvBool(envVar string, defaultValue bool) bool {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}
