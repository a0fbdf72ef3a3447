// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// Tests for the budget evaluation service

package main

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/AleutianAI/gumtree/budget"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// --- Mock Evaluator ---

type MockEvaluator struct {
	EvaluateFunc func(ctx context.Context, b *budget.Budget) ([]budget.Result, error)
	SeenBudgets  []string
}

func (m *MockEvaluator) Evaluate(ctx context.Context, b *budget.Budget) ([]budget.Result, error) {
	m.SeenBudgets = append(m.SeenBudgets, b.Name)
	if m.EvaluateFunc != nil {
		return m.EvaluateFunc(ctx, b)
	}
	return nil, nil
}

// Compile-time checks that both evaluators satisfy the interface.
var _ Evaluator = budgetEvaluator{}
var _ Evaluator = (*MockEvaluator)(nil)

// --- Test Fixtures ---

const resistanceJSON = `{
  "name": "resistance",
  "inputs": [
    {"name": "V", "value": 4.9990, "uncertainty": 0.0032},
    {"name": "I", "value": 19.6610e-3, "uncertainty": 9.5e-6},
    {"name": "phi", "value": 1.04446, "uncertainty": 0.00075}
  ],
  "correlations": [
    {"a": "V", "b": "I", "coefficient": -0.36},
    {"a": "V", "b": "phi", "coefficient": 0.86},
    {"a": "I", "b": "phi", "coefficient": -0.65}
  ],
  "outputs": [
    {"name": "R", "formula": "V * cos(phi) / I"}
  ]
}`

const impedanceJSON = `{
  "name": "impedance",
  "domain": "complex",
  "inputs": [
    {"name": "V", "value": 4.9990, "uncertainty": 0.003209},
    {"name": "I", "value": 19.661e-3, "uncertainty": 9.47e-6},
    {"name": "phi", "value": 1.04446, "uncertainty": 7.521e-4}
  ],
  "correlations": [
    {"a": "V", "b": "I", "matrix": [[-0.36, 0], [0, 0]]},
    {"a": "V", "b": "phi", "matrix": [[0.86, 0], [0, 0]]},
    {"a": "I", "b": "phi", "matrix": [[-0.65, 0], [0, 0]]}
  ],
  "outputs": [
    {"name": "Z", "formula": "V * exp(j * phi) / I"}
  ]
}`

func createTestServer() *Server {
	return &Server{Evaluator: budgetEvaluator{}}
}

func postEvaluate(server *Server, body string) *httptest.ResponseRecorder {
	router := setupRouter(server)
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/evaluate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

// --- handleEvaluate Tests ---

func TestHandleEvaluate_GumResistance(t *testing.T) {
	w := postEvaluate(createTestServer(), resistanceJSON)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var resp EvaluateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if resp.Name != "resistance" {
		t.Errorf("Expected budget name 'resistance', got %q", resp.Name)
	}
	if resp.Domain != "scalar" {
		t.Errorf("Expected domain 'scalar', got %q", resp.Domain)
	}
	if resp.Count != 1 || len(resp.Results) != 1 {
		t.Fatalf("Expected 1 result, got count=%d len=%d", resp.Count, len(resp.Results))
	}

	r := resp.Results[0]
	if r.Name != "R" {
		t.Errorf("Expected result name 'R', got %q", r.Name)
	}
	if math.Abs(r.Value-127.732169928) > 1e-6 {
		t.Errorf("Expected R = 127.732169928, got %v", r.Value)
	}
	if r.StdUncertainty == nil {
		t.Fatal("Expected a standard uncertainty for a scalar result")
	}
	if math.Abs(*r.StdUncertainty-0.069978727988) > 1e-9 {
		t.Errorf("Expected u(R) = 0.069978727988, got %v", *r.StdUncertainty)
	}
	if r.DegreesOfFreedom != nil {
		t.Errorf("Expected infinite dof (null), got %v", *r.DegreesOfFreedom)
	}
	if len(r.Contributions) != 3 {
		t.Errorf("Expected 3 contribution rows, got %d", len(r.Contributions))
	}
}

func TestHandleEvaluate_ComplexImpedance(t *testing.T) {
	w := postEvaluate(createTestServer(), impedanceJSON)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var resp EvaluateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if resp.Domain != "complex" {
		t.Errorf("Expected domain 'complex', got %q", resp.Domain)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(resp.Results))
	}

	z := resp.Results[0]
	if math.Abs(z.Value-127.732169928) > 1e-5 {
		t.Errorf("Expected Re(Z) = 127.732169928, got %v", z.Value)
	}
	if math.Abs(z.ValueIm-219.846511913) > 1e-5 {
		t.Errorf("Expected Im(Z) = 219.846511913, got %v", z.ValueIm)
	}
	if z.StdUncertainty != nil {
		t.Error("Complex results should carry a covariance, not a scalar uncertainty")
	}
	if z.Covariance == nil {
		t.Fatal("Expected a covariance matrix for a complex result")
	}
	if math.Abs(z.Covariance[0][0]-0.00493636) > 1e-8 {
		t.Errorf("Expected cov[0][0] = 0.00493636, got %v", z.Covariance[0][0])
	}
	if math.Abs(z.Covariance[0][1]-(-0.01237897)) > 1e-8 {
		t.Errorf("Expected cov[0][1] = -0.01237897, got %v", z.Covariance[0][1])
	}
}

func TestHandleEvaluate_InvalidJSON(t *testing.T) {
	w := postEvaluate(createTestServer(), "{invalid")

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}

	var resp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["error"] != "Invalid budget" {
		t.Errorf("Expected 'Invalid budget' error, got %v", resp["error"])
	}
}

func TestHandleEvaluate_UnknownField(t *testing.T) {
	body := `{"name": "x", "bogus": true, "inputs": [{"name": "a", "value": 1, "uncertainty": 0.1}], "outputs": [{"name": "y", "formula": "a"}]}`
	w := postEvaluate(createTestServer(), body)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	if !strings.Contains(w.Body.String(), "field bogus not found") {
		t.Errorf("Expected unknown-field details, got %s", w.Body.String())
	}
}

func TestHandleEvaluate_MissingOutputs(t *testing.T) {
	body := `{"name": "x", "inputs": [{"name": "a", "value": 1, "uncertainty": 0.1}]}`
	w := postEvaluate(createTestServer(), body)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	if !strings.Contains(w.Body.String(), "'Outputs'") {
		t.Errorf("Expected a validation failure on Outputs, got %s", w.Body.String())
	}
}

func TestHandleEvaluate_DomainError(t *testing.T) {
	// sqrt is differentiable everywhere except its branch point, so the
	// failure only surfaces when the derivative is taken during evaluation.
	body := `{"name": "x", "inputs": [{"name": "a", "value": 0, "uncertainty": 0.1}], "outputs": [{"name": "s", "formula": "sqrt(a)"}]}`
	w := postEvaluate(createTestServer(), body)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected status %d, got %d: %s", http.StatusUnprocessableEntity, w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "division by zero") {
		t.Errorf("Expected a division by zero detail, got %s", w.Body.String())
	}
}

func TestHandleEvaluate_BuildDomainError(t *testing.T) {
	// Dividing by an exact zero fails while the tree is constructed,
	// before any derivative is taken. Still the client's mistake.
	body := `{"name": "x", "inputs": [{"name": "a", "value": 1, "uncertainty": 0.1}, {"name": "z", "value": 0, "distribution": "constant"}], "outputs": [{"name": "y", "formula": "a / z"}]}`
	w := postEvaluate(createTestServer(), body)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected status %d, got %d: %s", http.StatusUnprocessableEntity, w.Code, w.Body.String())
	}
}

func TestHandleEvaluate_EvaluatorFailure(t *testing.T) {
	mock := &MockEvaluator{
		EvaluateFunc: func(ctx context.Context, b *budget.Budget) ([]budget.Result, error) {
			return nil, errors.New("engine offline")
		},
	}
	w := postEvaluate(&Server{Evaluator: mock}, resistanceJSON)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}

	var resp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["error"] != "Evaluation failed" {
		t.Errorf("Expected 'Evaluation failed' error, got %v", resp["error"])
	}
}

func TestHandleEvaluate_PassesParsedBudget(t *testing.T) {
	canned := []budget.Result{{Name: "R", Value: 1.0}}
	mock := &MockEvaluator{
		EvaluateFunc: func(ctx context.Context, b *budget.Budget) ([]budget.Result, error) {
			return canned, nil
		},
	}
	w := postEvaluate(&Server{Evaluator: mock}, resistanceJSON)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	if len(mock.SeenBudgets) != 1 || mock.SeenBudgets[0] != "resistance" {
		t.Errorf("Expected the evaluator to receive budget 'resistance', got %v", mock.SeenBudgets)
	}

	var resp EvaluateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Count != 1 || resp.Results[0].Name != "R" {
		t.Errorf("Expected the canned result to round-trip, got %+v", resp)
	}
}

// --- Endpoint Tests ---

func TestHealthEndpoint(t *testing.T) {
	router := setupRouter(createTestServer())
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	if !strings.Contains(w.Body.String(), serviceName) {
		t.Errorf("Expected health body to name the service, got %s", w.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	server := createTestServer()

	// Evaluate once so the counter vector has at least one series.
	if w := postEvaluate(server, resistanceJSON); w.Code != http.StatusOK {
		t.Fatalf("Evaluation failed with status %d", w.Code)
	}

	router := setupRouter(server)
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	if !strings.Contains(w.Body.String(), "gumtree_evaluator_evaluations_total") {
		t.Error("Expected the evaluation counter in the metrics exposition")
	}
}
