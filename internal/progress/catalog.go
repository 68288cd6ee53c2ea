package progress

// Metric names an UserProgress counter an achievement is measured against.
const (
	MetricERPSessions = "erp_sessions"
	MetricResisted    = "resisted"
	MetricStreak      = "streak"
	MetricPoints      = "points"
	MetricAnyActivity = "any_activity"
)

// Definition is one entry of the fixed achievement catalog.
type Definition struct {
	ID          string
	Title       string
	Description string
	Metric      string
	Requirement int
	Points      int
}

// catalog is evaluated top to bottom after every recordable event. The
// list is fixed and small; a linear pass is all the engine ever needs.
var catalog = []Definition{
	{ID: "first_step", Title: "First Step", Description: "Record your first activity", Metric: MetricAnyActivity, Requirement: 1, Points: 10},
	{ID: "erp_1", Title: "Facing Fear", Description: "Complete your first ERP exercise", Metric: MetricERPSessions, Requirement: 1, Points: 25},
	{ID: "erp_10", Title: "Exposure Apprentice", Description: "Complete 10 ERP exercises", Metric: MetricERPSessions, Requirement: 10, Points: 100},
	{ID: "erp_50", Title: "Exposure Veteran", Description: "Complete 50 ERP exercises", Metric: MetricERPSessions, Requirement: 50, Points: 300},
	{ID: "resist_10", Title: "Holding Ground", Description: "Resist 10 compulsions", Metric: MetricResisted, Requirement: 10, Points: 50},
	{ID: "resist_100", Title: "Iron Will", Description: "Resist 100 compulsions", Metric: MetricResisted, Requirement: 100, Points: 250},
	{ID: "streak_3", Title: "Warming Up", Description: "Stay active 3 days in a row", Metric: MetricStreak, Requirement: 3, Points: 30},
	{ID: "streak_7", Title: "One Full Week", Description: "Stay active 7 days in a row", Metric: MetricStreak, Requirement: 7, Points: 75},
	{ID: "streak_30", Title: "Habit Built", Description: "Stay active 30 days in a row", Metric: MetricStreak, Requirement: 30, Points: 300},
	{ID: "points_500", Title: "Collector", Description: "Earn 500 lifetime points", Metric: MetricPoints, Requirement: 500, Points: 100},
}

// Catalog returns a copy of the definitions.
func Catalog() []Definition {
	return append([]Definition(nil), catalog...)
}
