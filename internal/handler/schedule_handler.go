package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/noah-isme/classsched/internal/dto"
	"github.com/noah-isme/classsched/internal/metrics"
	"github.com/noah-isme/classsched/internal/scheduler"
	appErrors "github.com/noah-isme/classsched/pkg/errors"
	"github.com/noah-isme/classsched/pkg/response"
)

// ScheduleHandler exposes the scheduler core over HTTP.
type ScheduleHandler struct {
	run      *scheduler.Run
	metrics  *metrics.Service
	validate *validator.Validate
}

// NewScheduleHandler constructs a handler around an already-wired Run.
func NewScheduleHandler(run *scheduler.Run, metricsSvc *metrics.Service) *ScheduleHandler {
	return &ScheduleHandler{run: run, metrics: metricsSvc, validate: validator.New()}
}

// Generate godoc
// @Summary Generate a conflict-free class schedule
// @Description Builds a conflict graph, colors it, and optionally refines the result with the genetic optimizer.
// @Tags Scheduler
// @Accept json
// @Produce json
// @Param payload body dto.GenerateScheduleRequest true "Generate schedule payload"
// @Success 200 {object} response.Envelope
// @Router /schedule/generate [post]
func (h *ScheduleHandler) Generate(c *gin.Context) {
	var req dto.GenerateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, http.StatusBadRequest, err.Error()))
		return
	}

	input, err := toRunInput(req)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, http.StatusBadRequest, err.Error()))
		return
	}

	start := time.Now()
	result := h.run.Execute(c.Request.Context(), input)
	h.metrics.ObserveRun(string(input.Mode), string(result.State), time.Since(start))
	h.metrics.RecordCacheLookup(result.CacheHit)
	if result.Optimization != nil {
		h.metrics.ObserveOptimizerGenerations(result.Optimization.Generations)
	}

	if result.Err != nil {
		response.Error(c, result.Err)
		return
	}
	response.JSON(c, http.StatusOK, toGenerateResponse(result), nil)
}

func toRunInput(req dto.GenerateScheduleRequest) (scheduler.RunInput, error) {
	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return scheduler.RunInput{}, err
	}

	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	classes := make([]scheduler.ClassItem, 0, len(req.Classes))
	for _, c := range req.Classes {
		forbidden := make([]scheduler.Slot, 0, len(c.Forbidden))
		for _, s := range c.Forbidden {
			forbidden = append(forbidden, scheduler.Slot{Weekday: s.Weekday, Period: s.Period})
		}
		classes = append(classes, scheduler.ClassItem{
			ID:        c.ID,
			Label:     c.Label,
			GradeTag:  c.GradeTag,
			Forbidden: forbidden,
			Active:    c.Active,
			Weeks:     c.Weeks,
		})
	}

	blackouts := make([]scheduler.BlackoutEntry, 0, len(req.Constraints.Blackouts))
	for _, b := range req.Constraints.Blackouts {
		date, err := time.Parse("2006-01-02", b.Date)
		if err != nil {
			return scheduler.RunInput{}, err
		}
		blackouts = append(blackouts, scheduler.BlackoutEntry{Date: date, AllDay: b.AllDay, Periods: b.Periods})
	}

	mode := scheduler.SolverMode(req.Mode)
	if mode == "" {
		mode = scheduler.SolverGraphOptimize
	}

	return scheduler.RunInput{
		RunID:     runID,
		StartDate: startDate,
		WeekCount: req.WeekCount,
		Classes:   classes,
		Constraints: scheduler.ScheduleConstraints{
			MaxPeriodsPerDay:      req.Constraints.MaxPeriodsPerDay,
			MaxPeriodsPerWeek:     req.Constraints.MaxPeriodsPerWeek,
			MaxConsecutivePeriods: req.Constraints.MaxConsecutivePeriods,
			AvoidConsecutive:      req.Constraints.AvoidConsecutive,
			Blackouts:             blackouts,
		},
		Mode: mode,
		Seed: req.Seed,
	}, nil
}

func toGenerateResponse(result scheduler.RunResult) dto.GenerateScheduleResponse {
	resp := dto.GenerateScheduleResponse{
		RunID:    result.RunID,
		State:    string(result.State),
		CacheHit: result.CacheHit,
	}

	resp.Schedule = make([]dto.ScheduleEntryResponse, 0, len(result.Schedule))
	for _, entry := range result.Schedule {
		resp.Schedule = append(resp.Schedule, dto.ScheduleEntryResponse{
			ClassID:      entry.ClassID,
			AssignedDate: entry.AssignedDate,
			Period:       entry.Period,
		})
	}

	if result.Quality != nil {
		q := result.Quality
		resp.Quality = &dto.QualityScoreResponse{
			Total:                  q.Total,
			DayDistribution:        q.DayDistribution,
			TimeGaps:               q.TimeGaps,
			PeriodUtilization:      q.PeriodUtilization,
			WeekDistribution:       q.WeekDistribution,
			ConstraintSatisfaction: q.ConstraintSatisfaction,
			WeekCount:              q.WeekCount,
			ClassesPerDay:          q.Details.ClassesPerDay,
			AverageGap:             q.Details.AverageGap,
			ContinuousBlocks:       q.Details.ContinuousBlocks,
			WeeksUsed:              q.Details.WeeksUsed,
		}
	}

	if result.Optimization != nil {
		o := result.Optimization
		resp.Optimization = &dto.OptimizationMetricsResponse{
			Generations:     o.Generations,
			ElapsedMillis:   o.ElapsedMillis,
			Improvements:    o.Improvements,
			FinalAvgFitness: o.FinalAvgFitness,
		}
	}

	return resp
}
