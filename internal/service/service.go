package service

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"shiftopt/internal/config"
	"shiftopt/internal/model"
	"shiftopt/internal/objective"
	"shiftopt/internal/problem"
	"shiftopt/internal/solver"
	"shiftopt/internal/validate"
)

// ValidationError is returned when a request fails pre-solve validation.
// The HTTP layer turns it into a 400 with the structured result attached.
type ValidationError struct {
	Result model.ValidationResult
}

func (e *ValidationError) Error() string {
	return e.Result.ErrorMessage
}

// Service owns the optimization pipeline: validation, problem building,
// solver dispatch, post-solve checks, async run tracking and metrics. One
// Service value is constructed at startup and shared by all requests.
type Service struct {
	cfg         *config.AppConfig
	constraints *validate.ConstraintManager
	solutions   *validate.SolutionValidator
	builder     *problem.Builder
	runs        *RunStore
	metrics     *Metrics
	gate        *semaphore.Weighted
}

// New assembles a service from configuration.
func New(cfg *config.AppConfig) *Service {
	return &Service{
		cfg:         cfg,
		constraints: validate.NewConstraintManager(),
		solutions:   validate.NewSolutionValidator(),
		builder:     problem.NewBuilder(),
		runs:        NewRunStore(),
		metrics:     NewMetrics(),
		gate:        semaphore.NewWeighted(int64(cfg.MaxConcurrentOptimizations)),
	}
}

// Optimize runs the full pipeline synchronously.
func (s *Service) Optimize(ctx context.Context, req *model.OptimizationRequest) (*model.OptimizationResponse, error) {
	return s.run(ctx, req, uuid.NewString())
}

// OptimizeAsync starts a background run and returns its initial status.
func (s *Service) OptimizeAsync(req *model.OptimizationRequest) model.RunStatus {
	runID := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	status := s.runs.Start(runID, cancel)

	go func() {
		defer cancel()
		s.runs.MarkRunning(runID, 0.1, "Optimization running")

		response, err := s.run(ctx, req, runID)
		if err != nil {
			log.Warn().Err(err).Str("run_id", runID).Msg("Async optimization failed")
			s.runs.Fail(runID, err.Error())
			return
		}
		s.runs.Complete(runID, response)
	}()

	return status
}

// RunStatus returns the status of an async run.
func (s *Service) RunStatus(runID string) (model.RunStatus, bool) {
	return s.runs.Status(runID)
}

// RunResponse returns the final response of a completed async run.
func (s *Service) RunResponse(runID string) (*model.OptimizationResponse, bool) {
	return s.runs.Response(runID)
}

// ValidateConstraints runs the pre-flight constraint check in isolation.
func (s *Service) ValidateConstraints(constraints []model.Constraint) model.ValidationResult {
	return s.constraints.ValidateConstraints(constraints)
}

// Algorithms lists the solver catalog.
func (s *Service) Algorithms() []model.AlgorithmInfo {
	return algorithmCatalog()
}

// MetricsHandler serves Prometheus text metrics.
func (s *Service) MetricsHandler() http.Handler {
	return s.metrics.Handler()
}

// Shutdown cancels all in-flight async runs.
func (s *Service) Shutdown() {
	s.runs.CancelAll()
}

func (s *Service) run(ctx context.Context, req *model.OptimizationRequest, runID string) (*model.OptimizationResponse, error) {
	started := time.Now()
	algorithm := req.Preferences.EffectiveAlgorithm()

	validation := s.constraints.ValidateRequest(req)
	if !validation.IsValid {
		s.metrics.RecordRun(algorithm, elapsedMS(started), false)
		return nil, &ValidationError{Result: validation}
	}

	if err := s.gate.Acquire(ctx, 1); err != nil {
		s.metrics.RecordRun(algorithm, elapsedMS(started), false)
		return nil, err
	}
	defer s.gate.Release(1)

	p, err := s.builder.Build(req)
	if err != nil {
		s.metrics.RecordRun(algorithm, elapsedMS(started), false)
		return nil, &ValidationError{Result: structureFailure(err.Error())}
	}

	strategy, err := solver.ForAlgorithm(algorithm)
	if err != nil {
		s.metrics.RecordRun(algorithm, elapsedMS(started), false)
		return nil, err
	}
	if ga, ok := strategy.(*solver.GeneticStrategy); ok {
		ga.Population = s.cfg.GAPopulation
		ga.Generations = s.cfg.GAGenerations
	}

	solveCtx, cancel := context.WithTimeout(ctx, s.solveTimeout(req))
	defer cancel()

	result, err := strategy.Optimize(solveCtx, p)
	if err != nil {
		s.metrics.RecordRun(algorithm, elapsedMS(started), false)
		return nil, err
	}

	if max := s.cfg.MaxShiftsPerOptimization; max > 0 && len(result.Shifts) > max {
		log.Warn().
			Str("run_id", runID).
			Int("shifts", len(result.Shifts)).
			Int("limit", max).
			Msg("Truncating solution to shift limit")
		result.Shifts = result.Shifts[:max]
	}

	solution := s.assembleSolution(req, result, algorithm, started)

	post := s.postValidate(runID, solution, req.Constraints)

	processingMS := elapsedMS(started)
	s.metrics.RecordRun(algorithm, processingMS, true)

	log.Info().
		Str("run_id", runID).
		Str("algorithm", string(algorithm)).
		Int("shifts", solution.TotalShifts).
		Float64("income", solution.TotalIncome).
		Float64("processing_ms", processingMS).
		Msg("Optimization finished")

	return &model.OptimizationResponse{
		Success:          true,
		RunID:            runID,
		Solution:         solution,
		Timestamp:        time.Now().UTC(),
		ProcessingTimeMS: int64(processingMS),
		Warnings:         append(validation.Warnings, post.Warnings...),
		Suggestions:      append(validation.Suggestions, post.Suggestions...),
	}, nil
}

// postValidate runs the post-solve checks. A failing solution is kept but
// degraded: its confidence is halved and each violation is counted in the
// metrics.
func (s *Service) postValidate(runID string, solution *model.OptimizationSolution, constraints []model.Constraint) model.ValidationResult {
	post := s.solutions.ValidateSolution(solution, constraints)
	if !post.IsValid {
		solution.ConfidenceScore *= 0.5
		for _, violation := range post.Violations {
			s.metrics.RecordViolation(violation.Type)
		}
		log.Warn().
			Str("run_id", runID).
			Int("violations", len(post.Violations)).
			Msg("Solution degraded by post-solve validation")
	}
	return post
}

func (s *Service) solveTimeout(req *model.OptimizationRequest) time.Duration {
	timeout := s.cfg.MaxOptimizationTime
	if req.Preferences.Timeout != nil && *req.Preferences.Timeout > 0 && *req.Preferences.Timeout < timeout {
		timeout = *req.Preferences.Timeout
	}
	return time.Duration(timeout) * time.Second
}

func (s *Service) assembleSolution(req *model.OptimizationRequest, result *solver.Result, algorithm model.AlgorithmKind, started time.Time) *model.OptimizationSolution {
	solution := &model.OptimizationSolution{
		SuggestedShifts:       result.Shifts,
		ObjectiveValue:        result.ObjectiveValue,
		AlgorithmUsed:         algorithm,
		ExecutionTimeMS:       int64(elapsedMS(started)),
		ConfidenceScore:       result.Confidence,
		Metadata:              result.Metadata,
		TotalShifts:           len(result.Shifts),
		JobSourceDistribution: make(map[string]int),
	}
	for _, shift := range result.Shifts {
		solution.TotalIncome += shift.CalculatedEarnings
		solution.TotalHours += shift.WorkingHours
		solution.JobSourceDistribution[shift.JobSourceID]++
	}
	solution.ConstraintsSatisfied = constraintsSatisfied(req.Constraints, result.Shifts, solution.TotalIncome)

	score, breakdown := objective.ForObjective(req.Objective, result.Shifts, req.JobSources)
	penalty := objective.ConstraintPenalty(result.Shifts, req.ConstraintByKind(), objective.DefaultPenaltyWeights())
	if solution.Metadata == nil {
		solution.Metadata = make(map[string]interface{})
	}
	solution.Metadata["objective_score"] = score
	solution.Metadata["objective_breakdown"] = breakdown
	solution.Metadata["constraint_penalty"] = penalty

	return solution
}

// constraintsSatisfied recomputes each requested constraint against the
// produced shifts. Kinds without a behavioral check report true.
func constraintsSatisfied(constraints []model.Constraint, shifts []model.SuggestedShift, totalIncome float64) map[model.ConstraintKind]bool {
	satisfied := make(map[model.ConstraintKind]bool, len(constraints))
	for _, c := range constraints {
		switch c.Type {
		case model.ConstraintFuyouLimit:
			satisfied[c.Type] = totalIncome <= c.Value
		case model.ConstraintDailyHours:
			ok := true
			for _, hours := range validate.DailyHours(shifts) {
				if hours > c.Value {
					ok = false
					break
				}
			}
			satisfied[c.Type] = ok
		case model.ConstraintWeeklyHours:
			ok := true
			for _, hours := range validate.WeeklyHours(shifts) {
				if hours > c.Value {
					ok = false
					break
				}
			}
			satisfied[c.Type] = ok
		default:
			satisfied[c.Type] = true
		}
	}
	return satisfied
}

func structureFailure(message string) model.ValidationResult {
	result := model.ValidationResult{
		Violations: []model.Violation{{Message: message, Type: "structure_error"}},
	}
	result.Finalize()
	return result
}

func elapsedMS(started time.Time) float64 {
	return float64(time.Since(started).Microseconds()) / 1000
}
