package models

const (
	// KeyPrefix namespaces every record the engine writes to the KV store.
	KeyPrefix = "@obsessless:"

	KeyQueue      = KeyPrefix + "queue"
	KeyQuarantine = KeyPrefix + "quarantine"
)

const (
	// DateLayout is the calendar-day format used by streak tracking and exports.
	DateLayout = "2006-01-02"

	// ExportVersion is stamped into every export bundle.
	ExportVersion = "1.0"

	// DefaultRetryCeiling is how many failed transmissions a queue item
	// survives before quarantine.
	DefaultRetryCeiling = 3

	// DefaultDispatchTimeoutSeconds bounds a single remote call during a
	// drain pass.
	DefaultDispatchTimeoutSeconds = 15

	// DefaultReminderTime is used when the profile carries no preference.
	DefaultReminderTime = "09:00"
)

// Progress-related KV keys, one record per user.
func KeyProgress(userID string) string    { return KeyPrefix + "progress:" + userID }
func KeyProfile(userID string) string     { return KeyPrefix + "profile:" + userID }
func KeyCompulsions(userID string) string { return KeyPrefix + "compulsions:" + userID }
func KeyERPSessions(userID string) string { return KeyPrefix + "erp_sessions:" + userID }
func KeyAssessments(userID string) string { return KeyPrefix + "ybocs:" + userID }
