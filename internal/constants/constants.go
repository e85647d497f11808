package constants

const (
	// Traffic constants
	BytesInGB = 1024 * 1024 * 1024

	// Duration constants
	MillisecondsInDay = 24 * 60 * 60 * 1000

	// Subscription constants
	SubIDLength      = 16
	EmailSubIDSuffix = 5

	// Trial constants
	TrialDurationDays = 1
	TrialTotalGB      = 5
	TrialDeviceLimit  = 1

	// Network constants
	DefaultTimeout          = 30
	DefaultRetryCount       = 3
	DefaultRetryWaitTime    = 5
	DefaultRetryMaxWaitTime = 20

	// Cache constants
	CacheExpiration      = 30 // minutes
	CacheCleanupInterval = 10 // minutes

	// Sync constants
	DefaultSyncSchedule = "0 */6 * * *"

	// Formatting constants
	TimestampFormat = "2006-01-02 15:04:05"
	DateFormat      = "2006-01-02"
)
