package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/bridgerank/internal/bridge"
	"github.com/mbd888/bridgerank/internal/health"
	"github.com/mbd888/bridgerank/internal/logging"
	"github.com/mbd888/bridgerank/internal/ranking"
	"github.com/mbd888/bridgerank/internal/security"
)

// quotesHandler handles GET /v1/quotes
func (s *Server) quotesHandler(c *gin.Context) {
	req, err := parseQuoteRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}

	weights, err := parseWeights(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}

	result, cached, err := s.aggregator.GetQuotes(c.Request.Context(), req, weights)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}

	if cached {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}
	c.JSON(http.StatusOK, result)
}

func parseQuoteRequest(c *gin.Context) (bridge.RouteRequest, error) {
	req := bridge.RouteRequest{
		FromChain: c.Query("from"),
		ToChain:   c.Query("to"),
		Token:     c.Query("token"),
		Slippage:  bridge.DefaultSlippage,
	}

	amountStr := c.Query("amount")
	if amountStr == "" {
		return req, errors.New("amount is required")
	}
	amount, err := strconv.ParseFloat(amountStr, 64)
	if err != nil {
		return req, errors.New("amount must be a number")
	}
	req.Amount = amount

	if slippageStr := c.Query("slippage"); slippageStr != "" {
		slippage, err := strconv.ParseFloat(slippageStr, 64)
		if err != nil {
			return req, errors.New("slippage must be a number")
		}
		req.Slippage = slippage
	}

	return req, req.Validate()
}

// parseWeights reads optional ranking weight overrides. Returns nil when
// none are given so the default weighting (and the cache) applies.
func parseWeights(c *gin.Context) (*ranking.Weights, error) {
	costStr := c.Query("weight_cost")
	speedStr := c.Query("weight_speed")
	secStr := c.Query("weight_security")
	if costStr == "" && speedStr == "" && secStr == "" {
		return nil, nil
	}

	w := ranking.DefaultWeights
	for _, p := range []struct {
		raw  string
		dst  *float64
		name string
	}{
		{costStr, &w.Cost, "weight_cost"},
		{speedStr, &w.Speed, "weight_speed"},
		{secStr, &w.Security, "weight_security"},
	} {
		if p.raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(p.raw, 64)
		if err != nil || v < 0 {
			return nil, errors.New(p.name + " must be a non-negative number")
		}
		*p.dst = v
	}
	return &w, nil
}

// providersHandler handles GET /v1/providers
func (s *Server) providersHandler(c *gin.Context) {
	providers := s.aggregator.Providers()
	c.JSON(http.StatusOK, gin.H{
		"providers": providers,
		"count":     len(providers),
	})
}

// securityOverviewHandler handles GET /v1/security
func (s *Server) securityOverviewHandler(c *gin.Context) {
	scores, err := s.aggregator.SecurityOverview(c.Request.Context())
	if err != nil {
		logging.L(c.Request.Context()).Error("security overview failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to load security assessments",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"bridges": scores,
		"count":   len(scores),
	})
}

// securityReportHandler handles GET /v1/security/:bridge
func (s *Server) securityReportHandler(c *gin.Context) {
	bridgeID := c.Param("bridge")

	report, err := s.aggregator.SecurityReport(c.Request.Context(), bridgeID)
	if err != nil {
		if errors.Is(err, security.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "No security record for bridge: " + bridgeID,
			})
			return
		}
		logging.L(c.Request.Context()).Error("security report failed", "bridge", bridgeID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to load security record",
		})
		return
	}

	c.JSON(http.StatusOK, report)
}

// -----------------------------------------------------------------------------
// Health & info
// -----------------------------------------------------------------------------

// HealthResponse for health check endpoints
type HealthResponse struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	Checks    []health.Status `json:"checks,omitempty"`
	Timestamp string          `json:"timestamp"`
}

func (s *Server) healthHandler(c *gin.Context) {
	healthy, statuses := s.checks.CheckAll(c.Request.Context())

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Version:   "0.1.0",
		Checks:    statuses,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "BridgeRank",
		"description": "Cross-chain bridge quote aggregation and ranking",
		"version":     "0.1.0",
		"endpoints": gin.H{
			"quotes":    "GET /v1/quotes?from=ethereum&to=polygon&token=USDC&amount=1000",
			"providers": "GET /v1/providers",
			"security":  "GET /v1/security/{bridge}",
		},
	})
}
