package config

import "time"

// Default constants for application configuration
const (
	DefaultLogLevel = "warn"
	DefaultJSONLog  = false

	DefaultSeed = 0 // time-based

	DefaultMinContentLength = 500
	DefaultMaxContentLength = 50000
	DefaultScanWindow       = 2048

	DefaultBatchConcurrency = 5
	DefaultBatchMinContent  = 100
	DefaultMaxBatchWorkers  = 50

	DefaultRateLimitRPS   = 1.0
	DefaultRateLimitBurst = 2

	DefaultWorkerPoolSize    = 4
	DefaultMaxWorkerPoolSize = 32
	DefaultBrowserPoolSize   = 2
	DefaultBrowserHeadless   = true

	DefaultImpersonationTimeout = 25 * time.Second
	DefaultHeaderClientTimeout  = 20 * time.Second
	DefaultSolverTimeout        = 30 * time.Second
	DefaultBrowserBasicTimeout  = 25 * time.Second
	DefaultBrowserHumanTimeout  = 35 * time.Second
	DefaultBrowserChalTimeout   = 45 * time.Second
	DefaultScriptBudget         = 5 * time.Second
)

// DefaultStrategies is the full ladder in escalation order
var DefaultStrategies = []string{
	"tls-impersonation",
	"browser-headers",
	"challenge-solver",
	"browser-basic",
	"browser-human",
	"browser-challenge",
}

// EnvPrefix is prepended to every environment override
const EnvPrefix = "SCHOLARFETCH"
