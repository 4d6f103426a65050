// Package server exposes the latest pipeline results, charts and metrics over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"MarketLens/internal/logger"
	"MarketLens/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// ResultSource provides the most recent pipeline result, or nil before the first run.
type ResultSource interface {
	LatestResult() *model.PipelineResult
}

// HistorySource provides observations accumulated across runs.
type HistorySource interface {
	History(ctx context.Context, name model.DatasetName) (*model.Dataset, error)
}

// Server is the HTTP surface of the daemon.
type Server struct {
	addr     string
	chartDir string
	results  ResultSource
	history  HistorySource
	log      *logger.Log
	router   *chi.Mux
}

// New builds the router. history may be nil.
func New(addr, chartDir string, results ResultSource, history HistorySource, l *logger.Log) *Server {
	if l == nil {
		l = logger.Discard()
	}
	s := &Server{
		addr:     addr,
		chartDir: chartDir,
		results:  results,
		history:  history,
		log:      l,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.healthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/datasets", s.listDatasets)
		r.Get("/datasets/{name}", s.getDataset)
		r.Get("/datasets/{name}/history", s.getHistory)
	})

	r.Route("/charts", func(r chi.Router) {
		r.Handle("/*", http.StripPrefix("/charts", http.FileServer(http.Dir(s.chartDir))))
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithComponent("server").WithFields(logger.Fields{"addr": s.addr}).Info("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func requestLogger(l *logger.Log) func(http.Handler) http.Handler {
	log := l.WithComponent("server")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.WithFields(logger.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"duration_ms": time.Since(start).Milliseconds(),
				"request_id":  middleware.GetReqID(r.Context()),
			}).Debug("request")
		})
	}
}

// Problem is an RFC 7807 error body.
type Problem struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (p Problem) Render(_ http.ResponseWriter, r *http.Request) error {
	render.Status(r, p.Status)
	return nil
}

func problem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	_ = render.Render(w, r, Problem{Title: http.StatusText(status), Status: status, Detail: detail})
}

type healthResponse struct {
	Status  string     `json:"status"`
	LastRun *time.Time `json:"last_run,omitempty"`
	RunID   string     `json:"run_id,omitempty"`
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if res := s.results.LatestResult(); res != nil {
		t := res.FinishedAt
		resp.LastRun = &t
		resp.RunID = res.RunID
	}
	render.JSON(w, r, resp)
}

type datasetStatus struct {
	Name         model.DatasetName `json:"name"`
	Title        string            `json:"title"`
	Status       string            `json:"status"`
	Observations int               `json:"observations"`
	Dropped      int               `json:"dropped"`
	Error        string            `json:"error,omitempty"`
}

func (s *Server) listDatasets(w http.ResponseWriter, r *http.Request) {
	res := s.results.LatestResult()
	out := make([]datasetStatus, 0, len(model.AllDatasets))
	for _, name := range model.AllDatasets {
		st := datasetStatus{Name: name, Title: name.Title(), Status: "pending"}
		if res != nil {
			if ds, ok := res.Datasets[name]; ok {
				st.Status = "ok"
				st.Observations = ds.Len()
				st.Dropped = res.Dropped[name]
			} else if err, ok := res.Failures[name]; ok {
				st.Status = "failed"
				st.Error = err.Error()
			}
		}
		out = append(out, st)
	}
	render.JSON(w, r, out)
}

type observationView struct {
	Date           string              `json:"date"`
	Open           decimal.NullDecimal `json:"open"`
	High           decimal.NullDecimal `json:"high"`
	Low            decimal.NullDecimal `json:"low"`
	Close          decimal.NullDecimal `json:"close"`
	Volume         decimal.NullDecimal `json:"volume"`
	AdjustedClose  decimal.NullDecimal `json:"adjusted_close"`
	DividendAmount decimal.NullDecimal `json:"dividend_amount"`
}

type datasetView struct {
	Name         model.DatasetName `json:"name"`
	Title        string            `json:"title"`
	RunID        string            `json:"run_id,omitempty"`
	Observations []observationView `json:"observations"`
}

func newDatasetView(ds *model.Dataset, runID string) datasetView {
	v := datasetView{Name: ds.Name, Title: ds.Name.Title(), RunID: runID, Observations: make([]observationView, 0, ds.Len())}
	for i := range ds.Observations {
		o := &ds.Observations[i]
		v.Observations = append(v.Observations, observationView{
			Date:           o.Date.Format(model.DateLayout),
			Open:           o.Open,
			High:           o.High,
			Low:            o.Low,
			Close:          o.Close,
			Volume:         o.Volume,
			AdjustedClose:  o.AdjustedClose,
			DividendAmount: o.DividendAmount,
		})
	}
	return v
}

func datasetParam(r *http.Request) (model.DatasetName, bool) {
	name := model.DatasetName(chi.URLParam(r, "name"))
	for _, n := range model.AllDatasets {
		if n == name {
			return name, true
		}
	}
	return name, false
}

func (s *Server) getDataset(w http.ResponseWriter, r *http.Request) {
	name, ok := datasetParam(r)
	if !ok {
		problem(w, r, http.StatusNotFound, "unknown dataset "+string(name))
		return
	}
	res := s.results.LatestResult()
	if res == nil {
		problem(w, r, http.StatusServiceUnavailable, "no run has completed yet")
		return
	}
	ds, ok := res.Datasets[name]
	if !ok {
		detail := "dataset not available"
		if err, failed := res.Failures[name]; failed {
			detail = err.Error()
		}
		problem(w, r, http.StatusNotFound, detail)
		return
	}
	render.JSON(w, r, newDatasetView(ds, res.RunID))
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	name, ok := datasetParam(r)
	if !ok {
		problem(w, r, http.StatusNotFound, "unknown dataset "+string(name))
		return
	}
	if s.history == nil {
		problem(w, r, http.StatusNotFound, "history is not recorded")
		return
	}
	ds, err := s.history.History(r.Context(), name)
	if err != nil {
		s.log.WithComponent("server").WithError(err).Error("load history")
		problem(w, r, http.StatusInternalServerError, "failed to load history")
		return
	}
	render.JSON(w, r, newDatasetView(ds, ""))
}
