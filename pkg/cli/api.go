package cli

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mchmarny/riskscore/pkg/data"
	"github.com/mchmarny/riskscore/pkg/scoring"
)

const (
	scoreRoute = "/credit-score"
	modelRoute = "/api/model"

	bannerMessage = "Credit Risk Scoring API is running. Use /credit-score endpoint to POST data."

	maxRequestBytes = 1 << 16
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func rootHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": bannerMessage})
	}
}

func scoreHandler(s *scoring.Scorer, m *serverMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in scoring.Input
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
		if err := dec.Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}

		res, err := s.Score(in)
		if err != nil {
			if errors.Is(err, scoring.ErrInvalidInput) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			slog.Error("failed to score borrower", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to score borrower")
			return
		}

		m.recordScore(r.Context(), res)
		slog.Debug("borrower scored", "pd", res.PD, "score", res.CreditScore, "risk", res.RiskTier)
		writeJSON(w, http.StatusOK, newScoreResponse(res))
	}
}

// queryParamInt returns the integer value of key, or def when it is absent.
func queryParamInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return i, nil
}

func borrowersHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		skip, err := queryParamInt(r, "skip", 0)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		limit, err := queryParamInt(r, "limit", data.PageLimitDefault)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if skip < 0 {
			writeError(w, http.StatusBadRequest, "skip must be greater than or equal to 0")
			return
		}
		if limit < 1 || limit > data.PageLimitMax {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", data.PageLimitMax))
			return
		}

		list, err := data.GetBorrowers(db, skip, limit)
		if err != nil {
			slog.Error("failed to list borrowers", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to list borrowers")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func borrowerHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := r.PathValue("id")
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("borrower ID must be an integer, got %q", v))
			return
		}

		b, err := data.GetBorrower(db, id)
		if err != nil {
			if errors.Is(err, data.ErrNotFound) {
				writeError(w, http.StatusNotFound, fmt.Sprintf("Borrower with ID %d not found", id))
				return
			}
			slog.Error("failed to get borrower", "id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to get borrower")
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

func modelHandler(db *sql.DB, s *scoring.Scorer, path string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		a := s.Artifact()
		summary := newModelSummary(path, &a)

		run, err := data.GetLatestTrainingRun(db)
		if err != nil {
			slog.Error("failed to get latest training run", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to get model summary")
			return
		}
		if run != nil {
			summary.Runs = []*data.TrainingRun{run}
		}
		writeJSON(w, http.StatusOK, summary)
	}
}
