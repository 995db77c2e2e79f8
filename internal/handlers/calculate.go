package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"minecarbon/internal/calc"
)

// CalculatorHandler exposes the calculators without persisting anything.
type CalculatorHandler struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewCalculatorHandler(logger *zap.Logger) *CalculatorHandler {
	return &CalculatorHandler{logger: logger, now: time.Now}
}

func (h *CalculatorHandler) Emissions(w http.ResponseWriter, r *http.Request) {
	var in calc.EmissionInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	res, err := calc.Emissions(in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *CalculatorHandler) Sequestration(w http.ResponseWriter, r *http.Request) {
	var in calc.SequestrationInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	res, err := calc.Sequestration(in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Simulate runs from the current calendar year (UTC).
func (h *CalculatorHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	var in calc.SimulationInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	res, err := calc.Simulate(in, h.now().UTC().Year())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *CalculatorHandler) Strategies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, calc.StrategyCatalog())
}
