package model

import "time"

// ConstraintKind identifies the kind of an optimization constraint.
// At most one constraint of each kind may appear in a request.
type ConstraintKind string

const (
	ConstraintFuyouLimit       ConstraintKind = "fuyou_limit"
	ConstraintWeeklyHours      ConstraintKind = "weekly_hours"
	ConstraintDailyHours       ConstraintKind = "daily_hours"
	ConstraintAvailability     ConstraintKind = "availability"
	ConstraintJobSourceLimit   ConstraintKind = "job_source_limit"
	ConstraintMinimumIncome    ConstraintKind = "minimum_income"
	ConstraintBreakConstraints ConstraintKind = "break_constraints"
)

// ConstraintUnit is the unit a constraint value is expressed in.
type ConstraintUnit string

const (
	UnitYen        ConstraintUnit = "yen"
	UnitHours      ConstraintUnit = "hours"
	UnitMinutes    ConstraintUnit = "minutes"
	UnitDays       ConstraintUnit = "days"
	UnitShifts     ConstraintUnit = "shifts"
	UnitPercentage ConstraintUnit = "percentage"
)

// ObjectiveKind selects the utility function to optimize.
type ObjectiveKind string

const (
	ObjectiveMaximizeIncome ObjectiveKind = "maximize_income"
	ObjectiveMinimizeHours  ObjectiveKind = "minimize_hours"
	ObjectiveBalanceSources ObjectiveKind = "balance_sources"
	ObjectiveMulti          ObjectiveKind = "multi_objective"
)

// AlgorithmKind selects the solver strategy.
type AlgorithmKind string

const (
	AlgorithmLinearProgramming  AlgorithmKind = "linear_programming"
	AlgorithmGenetic            AlgorithmKind = "genetic_algorithm"
	AlgorithmSimulatedAnnealing AlgorithmKind = "simulated_annealing"
	AlgorithmNSGA2              AlgorithmKind = "multi_objective_nsga2"
)

// TierLevel is the subscription tier of the requesting user.
type TierLevel string

const (
	TierFree     TierLevel = "free"
	TierStandard TierLevel = "standard"
	TierPro      TierLevel = "pro"
)

// Priority levels shared by constraints, availability slots and shifts.
const (
	PriorityHard = 1
	PrioritySoft = 2
	PriorityNice = 3
)

// Constraint is a single optimization constraint.
type Constraint struct {
	Type     ConstraintKind         `json:"constraint_type"`
	Value    float64                `json:"constraint_value"`
	Unit     ConstraintUnit         `json:"constraint_unit"`
	Priority int                    `json:"priority"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// JobSource is an employer record. Immutable within a request.
type JobSource struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	HourlyRate           float64 `json:"hourly_rate"`
	IsActive             bool    `json:"is_active"`
	ExpectedMonthlyHours *int    `json:"expected_monthly_hours,omitempty"`
	DefaultBreakMinutes  int     `json:"default_break_minutes"`
}

// ExistingShift is a committed work block the user already holds.
type ExistingShift struct {
	Date          Date    `json:"date"`
	StartTime     string  `json:"start_time"`
	EndTime       string  `json:"end_time"`
	JobSourceID   string  `json:"job_source_id,omitempty"`
	JobSourceName string  `json:"job_source_name"`
	IsConfirmed   bool    `json:"is_confirmed"`
	HourlyRate    float64 `json:"hourly_rate"`
	BreakMinutes  int     `json:"break_minutes"`
}

// AvailabilitySlot is a recurring weekly availability window.
// DayOfWeek uses 0=Sunday .. 6=Saturday.
type AvailabilitySlot struct {
	DayOfWeek   int    `json:"day_of_week"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	IsAvailable bool   `json:"is_available"`
	JobSourceID string `json:"job_source_id,omitempty"`
	Priority    int    `json:"priority"`
}

// TimeRange is the half-open horizon [Start, End) shifts may be scheduled in.
type TimeRange struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// Days returns the number of calendar days covered by the range.
func (r TimeRange) Days() int {
	return r.End.DaysSince(r.Start)
}

// Preferences carries solver tuning options.
type Preferences struct {
	Algorithm            AlgorithmKind `json:"algorithm"`
	MaxIterations        *int          `json:"max_iterations,omitempty"`
	Timeout              *int          `json:"timeout,omitempty"`
	ConvergenceThreshold *float64      `json:"convergence_threshold,omitempty"`
	EnableParallel       bool          `json:"enable_parallel"`
	RandomSeed           *int64        `json:"random_seed,omitempty"`
}

// EffectiveAlgorithm returns the selected algorithm, defaulting to LP.
func (p Preferences) EffectiveAlgorithm() AlgorithmKind {
	if p.Algorithm == "" {
		return AlgorithmLinearProgramming
	}
	return p.Algorithm
}

// OptimizationRequest is the full input to one optimization run.
type OptimizationRequest struct {
	UserID         string             `json:"user_id"`
	Objective      ObjectiveKind      `json:"objective"`
	TimeRange      TimeRange          `json:"time_range"`
	Constraints    []Constraint       `json:"constraints"`
	JobSources     []JobSource        `json:"job_sources"`
	ExistingShifts []ExistingShift    `json:"existing_shifts,omitempty"`
	Availability   []AvailabilitySlot `json:"availability,omitempty"`
	Preferences    Preferences        `json:"preferences"`
	TierLevel      TierLevel          `json:"tier_level"`
}

// ConstraintByKind indexes the request constraints for O(1) lookup.
func (r *OptimizationRequest) ConstraintByKind() map[ConstraintKind]Constraint {
	m := make(map[ConstraintKind]Constraint, len(r.Constraints))
	for _, c := range r.Constraints {
		m[c.Type] = c
	}
	return m
}

// SuggestedShift is one candidate shift produced by a solver.
type SuggestedShift struct {
	ID                 string  `json:"id"`
	JobSourceID        string  `json:"job_source_id,omitempty"`
	JobSourceName      string  `json:"job_source_name"`
	Date               Date    `json:"date"`
	StartTime          string  `json:"start_time"`
	EndTime            string  `json:"end_time"`
	HourlyRate         float64 `json:"hourly_rate"`
	BreakMinutes       int     `json:"break_minutes"`
	WorkingHours       float64 `json:"working_hours"`
	CalculatedEarnings float64 `json:"calculated_earnings"`
	Confidence         float64 `json:"confidence"`
	Priority           int     `json:"priority"`
	Reasoning          string  `json:"reasoning"`
	IsOriginal         bool    `json:"is_original"`
}

// OptimizationSolution is the domain-level result of a solver run.
type OptimizationSolution struct {
	SuggestedShifts       []SuggestedShift        `json:"suggested_shifts"`
	ObjectiveValue        float64                 `json:"objective_value"`
	ConstraintsSatisfied  map[ConstraintKind]bool `json:"constraints_satisfied"`
	AlgorithmUsed         AlgorithmKind           `json:"algorithm_used"`
	ExecutionTimeMS       int64                   `json:"execution_time_ms"`
	ConfidenceScore       float64                 `json:"confidence_score"`
	Metadata              map[string]interface{}  `json:"metadata,omitempty"`
	TotalIncome           float64                 `json:"total_income"`
	TotalHours            float64                 `json:"total_hours"`
	TotalShifts           int                     `json:"total_shifts"`
	JobSourceDistribution map[string]int          `json:"job_source_distribution"`
}

// OptimizationResponse is the envelope returned by /optimize.
type OptimizationResponse struct {
	Success          bool                  `json:"success"`
	RunID            string                `json:"optimization_run_id"`
	Solution         *OptimizationSolution `json:"solution,omitempty"`
	Error            string                `json:"error,omitempty"`
	Timestamp        time.Time             `json:"timestamp"`
	ProcessingTimeMS int64                 `json:"processing_time_ms"`
	Warnings         []string              `json:"warnings,omitempty"`
	Suggestions      []string              `json:"suggestions,omitempty"`
}

// RunState is the lifecycle state of an asynchronous run.
type RunState string

const (
	RunStarted   RunState = "started"
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
	RunFailed    RunState = "failed"
	RunCancelled RunState = "cancelled"
)

// RunStatus reports progress of an asynchronous optimization run.
type RunStatus struct {
	RunID               string     `json:"run_id"`
	Status              RunState   `json:"status"`
	Progress            float64    `json:"progress"`
	Message             string     `json:"message"`
	EstimatedCompletion *time.Time `json:"est_completion,omitempty"`
}

// Violation is one structured validation failure.
type Violation struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// ValidationResult is the outcome of a validation stage. Violations are
// fatal; warnings and suggestions flow through to the response.
type ValidationResult struct {
	IsValid      bool        `json:"is_valid"`
	ErrorMessage string      `json:"error_message,omitempty"`
	Warnings     []string    `json:"warnings"`
	Suggestions  []string    `json:"suggestions"`
	Violations   []Violation `json:"violations"`
}

// Merge folds another stage result into this one.
func (v *ValidationResult) Merge(other ValidationResult) {
	v.Warnings = append(v.Warnings, other.Warnings...)
	v.Suggestions = append(v.Suggestions, other.Suggestions...)
	v.Violations = append(v.Violations, other.Violations...)
}

// Finalize recomputes IsValid and ErrorMessage from the collected violations.
func (v *ValidationResult) Finalize() {
	v.IsValid = len(v.Violations) == 0
	if v.IsValid {
		v.ErrorMessage = ""
		return
	}
	msgs := make([]string, len(v.Violations))
	for i, violation := range v.Violations {
		msgs[i] = violation.Message
	}
	v.ErrorMessage = joinSemicolon(msgs)
}

func joinSemicolon(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "; "
		}
		out += p
	}
	return out
}

// TierLimits describes what a subscription tier may request.
type TierLimits struct {
	MaxOptimizationRuns int             `json:"max_optimization_runs"`
	AvailableAlgorithms []AlgorithmKind `json:"available_algorithms"`
	MaxConstraints      int             `json:"max_constraints"`
	MaxTimeHorizon      int             `json:"max_time_horizon"`
	AnalyticsAccess     bool            `json:"analytics_access"`
	APIAccess           bool            `json:"api_access"`
	SupportLevel        string          `json:"support_level"`
}

// AllowsAlgorithm reports whether the tier may run the given algorithm.
func (t TierLimits) AllowsAlgorithm(a AlgorithmKind) bool {
	for _, allowed := range t.AvailableAlgorithms {
		if allowed == a {
			return true
		}
	}
	return false
}

// AlgorithmInfo is one entry of the /algorithms catalog.
type AlgorithmInfo struct {
	ID              AlgorithmKind          `json:"id"`
	Name            string                 `json:"name"`
	Description     string                 `json:"description"`
	Complexity      string                 `json:"complexity"`
	ExecutionTime   string                 `json:"execution_time"`
	SuitableFor     []ObjectiveKind        `json:"suitable_for"`
	TierRequirement TierLevel              `json:"tier_requirement"`
	Parameters      map[string]interface{} `json:"parameters,omitempty"`
}
