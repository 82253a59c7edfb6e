package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"liquidity-mcs/internal/config"
	"liquidity-mcs/internal/runner"
	"liquidity-mcs/internal/scenario"
	"liquidity-mcs/internal/simulation"
)

// SimulationHandler handles simulation requests.
type SimulationHandler struct {
	cfg    *config.AppConfig
	runner *runner.Runner
}

// NewSimulationHandler creates a new simulation handler.
func NewSimulationHandler(cfg *config.AppConfig, r *runner.Runner) *SimulationHandler {
	return &SimulationHandler{cfg: cfg, runner: r}
}

// bind decodes a request body as JSON, or YAML when the content type says so.
func bind(c *gin.Context) (simulation.Request, bool) {
	var req simulation.Request
	var err error
	switch c.ContentType() {
	case "application/yaml", "application/x-yaml", "text/yaml":
		req, err = scenario.Decode(c.Request.Body, scenario.YAML)
	default:
		err = c.ShouldBindJSON(&req)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{Code: CodeInvalidRequest, Message: err.Error()},
		})
		return req, false
	}
	return req, true
}

func validationFailed(c *gin.Context, verrs simulation.ValidationErrors) {
	c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
		Error: ErrorDetail{
			Code:    CodeValidationFailed,
			Message: "scenario violates configuration constraints",
			Details: verrs,
		},
	})
}

// Simulate handles POST /api/v1/simulate
func (h *SimulationHandler) Simulate(c *gin.Context) {
	req, ok := bind(c)
	if !ok {
		return
	}
	h.cfg.ApplyRequestDefaults(&req)

	resp, err := h.runner.Run(c.Request.Context(), req)
	if err != nil {
		var verrs simulation.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			validationFailed(c, verrs)
		case errors.Is(err, runner.ErrSuperseded):
			c.JSON(http.StatusConflict, ErrorResponse{
				Error: ErrorDetail{Code: CodeSuperseded, Message: err.Error()},
			})
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{
				Error: ErrorDetail{Code: CodeCancelled, Message: err.Error()},
			})
		default:
			log.Error().Err(err).Msg("Simulation failed")
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error: ErrorDetail{Code: CodeInternal, Message: err.Error()},
			})
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Validate handles POST /api/v1/validate
func (h *SimulationHandler) Validate(c *gin.Context) {
	req, ok := bind(c)
	if !ok {
		return
	}
	h.cfg.ApplyRequestDefaults(&req)

	if err := simulation.Validate(simulation.ApplyDefaults(req)); err != nil {
		var verrs simulation.ValidationErrors
		if errors.As(err, &verrs) {
			validationFailed(c, verrs)
			return
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{Code: CodeInvalidRequest, Message: err.Error()},
		})
		return
	}

	months, _ := simulation.MonthRange(req.Project.StartMonth, req.Project.DurationMonths)
	c.JSON(http.StatusOK, ValidateResponse{Valid: true, Horizon: months})
}
