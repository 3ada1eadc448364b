package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/DominikIlski/Finansista/internal/history"
)

type APIResponse[T any] struct {
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func writeJSON[T any](w http.ResponseWriter, status int, data T) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIResponse[T]{
		Message: "ok",
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIResponse[string]{
		Message: message,
		Data:    "",
	})
}

func writeCSV(w http.ResponseWriter, series history.Series) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=history.csv")
	w.WriteHeader(http.StatusOK)

	_, _ = fmt.Fprintln(w, "Ticker,Market,Date,Close,Currency,Source")
	for _, p := range series.Rows {
		_, _ = fmt.Fprintf(w, "%s,%s,%s,%.6f,%s,%s\n", //nolint:gosec // CSV output from internal domain types, not user input
			p.Ticker,
			p.Market,
			p.Date.Format(time.DateOnly),
			p.Price,
			p.Currency,
			p.Source,
		)
	}
}
