package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/DominikIlski/Finansista/internal/apperror"
	"github.com/DominikIlski/Finansista/internal/provider"
)

const dateFormat = "2006-01-02"

type handler struct {
	svcs Services
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) listMarkets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svcs.Markets.Definitions())
}

func (h *handler) validateSymbol(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(r.PathValue("ticker"))
	mkt := r.PathValue("market")

	result, err := h.svcs.Symbols.Validate(r.Context(), ticker, mkt)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) resolveName(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(r.PathValue("ticker"))
	mkt := r.PathValue("market")

	name, err := h.svcs.Symbols.ResolveName(r.Context(), ticker, mkt)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if name == "" {
		writeError(w, http.StatusNotFound, "no name found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"name": name})
}

func (h *handler) getQuote(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(r.PathValue("ticker"))
	mkt := r.PathValue("market")
	forceRefresh := r.URL.Query().Get("refresh") == "true"

	latest, err := h.svcs.Quotes.GetLatest(r.Context(), ticker, mkt, forceRefresh)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, latest)
}

func (h *handler) getHistory(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(r.PathValue("ticker"))
	mkt := r.PathValue("market")
	q := r.URL.Query()

	fromStr := q.Get("from")
	if fromStr == "" {
		writeError(w, http.StatusBadRequest, "from is required")
		return
	}
	from, err := time.Parse(dateFormat, fromStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from format, expected YYYY-MM-DD")
		return
	}

	to := time.Now().UTC()
	if v := q.Get("to"); v != "" {
		to, err = time.Parse(dateFormat, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to format, expected YYYY-MM-DD")
			return
		}
	}

	interval := provider.IntervalDaily
	if v := q.Get("interval"); v != "" {
		interval = provider.Interval(v)
	}
	forceRefresh := q.Get("refresh") == "true"

	series, err := h.svcs.Histories.Get(r.Context(), ticker, mkt, from, to, interval, forceRefresh)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if q.Get("format") == "csv" {
		writeCSV(w, series)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

func (h *handler) getFxRate(w http.ResponseWriter, r *http.Request) {
	base := r.PathValue("base")
	quote := r.PathValue("quote")

	rate, err := h.svcs.Fx.GetRate(r.Context(), base, quote)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"base":  strings.ToUpper(base),
		"quote": strings.ToUpper(quote),
		"rate":  rate,
	})
}

func (h *handler) getPerformance(w http.ResponseWriter, r *http.Request) {
	portfolioID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid portfolio id")
		return
	}
	q := r.URL.Query()

	var from, to time.Time
	if v := q.Get("from"); v != "" {
		from, err = time.Parse(dateFormat, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from format, expected YYYY-MM-DD")
			return
		}
	}
	if v := q.Get("to"); v != "" {
		to, err = time.Parse(dateFormat, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to format, expected YYYY-MM-DD")
			return
		}
	}

	baseCurrency := strings.ToUpper(q.Get("currency"))
	if baseCurrency == "" {
		baseCurrency = "PLN"
	}
	forceRefresh := q.Get("refresh") == "true"

	series, err := h.svcs.Performance.GetSeries(r.Context(), portfolioID, from, to, baseCurrency, forceRefresh)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

// writeServiceError maps service errors onto HTTP statuses: apperrors carry
// their own status, chain exhaustion reads as upstream unavailability.
func writeServiceError(w http.ResponseWriter, err error) {
	var ae *apperror.AppError
	if errors.As(err, &ae) {
		writeError(w, ae.HTTPStatus(), ae.Message())
		return
	}
	if provider.IsProviderError(err) || errors.Is(err, provider.ErrNoProviders) {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
