// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/AleutianAI/gumtree/budget"
	"github.com/AleutianAI/gumtree/cuncert"
	"github.com/AleutianAI/gumtree/services/evaluator/telemetry"
	"github.com/AleutianAI/gumtree/uncert"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const (
	EVAL_TIMEOUT = 30 * time.Second // Upper bound on a single evaluation request
)

const serviceName = "gumtree-evaluator"

// Evaluator runs a validated budget and returns its report rows.
// The indirection allows injecting failing evaluators for testing.
type Evaluator interface {
	Evaluate(ctx context.Context, b *budget.Budget) ([]budget.Result, error)
}

// Server struct holds all dependencies
type Server struct {
	Evaluator Evaluator
}

// budgetEvaluator is the production Evaluator: build the measurement
// model from the budget, then run every output.
type budgetEvaluator struct{}

func (budgetEvaluator) Evaluate(ctx context.Context, b *budget.Budget) ([]budget.Result, error) {
	model, err := b.Build()
	if err != nil {
		return nil, err
	}
	return model.Evaluate(ctx)
}

// --- API Request/Response Structs ---

// The request body of POST /v1/evaluate is a budget document itself,
// YAML or JSON (JSON parses as YAML), not a wrapper object.

type EvaluateResponse struct {
	Name    string          `json:"name"`
	Domain  string          `json:"domain"`
	Results []budget.Result `json:"results"`
	Count   int             `json:"count"`
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := telemetry.DefaultConfig()
	cfg.ServiceName = serviceName
	shutdown, err := telemetry.Init(context.Background(), cfg)
	if err != nil {
		slog.Error("Failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer shutdown(context.Background())

	server := &Server{Evaluator: budgetEvaluator{}}
	router := setupRouter(server)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8030"
	}

	slog.Info("Starting budget evaluation API server", "port", port)
	if err := router.Run(":" + port); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

// setupRouter wires the HTTP routes. Split from main so tests can
// exercise the full route surface.
func setupRouter(server *Server) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware(serviceName))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": serviceName})
	})

	// telemetry.MetricsHandler is nil until Init selects the prometheus
	// exporter; the plain promhttp handler still serves the promauto
	// metrics in that case.
	metricsHandler := telemetry.MetricsHandler()
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	router.GET("/metrics", gin.WrapH(metricsHandler))

	router.POST("/v1/evaluate", server.handleEvaluate)

	return router
}

// handleEvaluate parses a budget document and evaluates its outputs.
func (s *Server) handleEvaluate(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body", "details": err.Error()})
		return
	}

	start := time.Now()
	b, err := budget.Parse(body)
	if err != nil {
		recordEvaluation("unknown", "invalid", time.Since(start).Seconds())
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid budget", "details": err.Error()})
		return
	}
	domain := string(b.Domain)

	log := telemetry.LoggerWithTrace(c.Request.Context(), slog.Default())
	log.Info("Handling evaluation request", "budget", b.Name, "domain", domain, "outputs", len(b.Outputs))

	ctx, cancel := context.WithTimeout(c.Request.Context(), EVAL_TIMEOUT)
	defer cancel()

	ctx, span := telemetry.StartSpan(ctx, "evaluator", "Model.Evaluate")
	defer span.End()

	results, err := s.Evaluator.Evaluate(ctx, b)
	if err != nil {
		telemetry.RecordError(span, err)
		if isDomainError(err) {
			recordEvaluation(domain, "domain_error", time.Since(start).Seconds())
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Evaluation failed", "details": err.Error()})
			return
		}
		recordEvaluation(domain, "error", time.Since(start).Seconds())
		log.Error("Evaluation failed", "budget", b.Name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Evaluation failed", "details": err.Error()})
		return
	}

	recordEvaluation(domain, "success", time.Since(start).Seconds())
	c.JSON(http.StatusOK, EvaluateResponse{
		Name:    b.Name,
		Domain:  domain,
		Results: results,
		Count:   len(results),
	})
}

// isDomainError reports whether err is a mathematical domain failure
// in either engine rather than an infrastructure fault. Domain failures
// are the client's problem: the budget asked for an undefined quantity.
func isDomainError(err error) bool {
	return errors.Is(err, uncert.ErrDomain) ||
		errors.Is(err, uncert.ErrDivisionByZero) ||
		errors.Is(err, cuncert.ErrDomain) ||
		errors.Is(err, cuncert.ErrDivisionByZero)
}
