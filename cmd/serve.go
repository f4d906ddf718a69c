package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leadgrid/prospect-cli/internal/config"
	"github.com/leadgrid/prospect-cli/internal/job"
	"github.com/leadgrid/prospect-cli/internal/model"
	"github.com/leadgrid/prospect-cli/internal/prospect"
	"github.com/leadgrid/prospect-cli/internal/store"
)

// discoverer is the discovery surface the server needs; satisfied by
// *prospect.Pipeline.
type discoverer interface {
	Discover(ctx context.Context, tenantID string, raw prospect.RawFilter) (*prospect.Result, error)
}

// jobRunner is the job surface the server needs; satisfied by
// *job.Runner.
type jobRunner interface {
	Run(ctx context.Context, jobID string) (*model.QualificationJob, error)
	Reset(ctx context.Context, jobID string) error
}

type server struct {
	cfg        *config.Config
	store      store.Store
	discoverer discoverer
	runner     jobRunner
}

type discoverRequest struct {
	TenantID string `json:"tenant_id"`
	prospect.RawFilter
}

// discoverResponse is the wire shape of a discovery result. Field names
// follow the consumer contract, hence the mixed languages.
type discoverResponse struct {
	Sucesso     bool                  `json:"sucesso"`
	Empresas    []model.ScoredCompany `json:"empresas"`
	Total       int                   `json:"total"`
	Page        int                   `json:"page"`
	PageSize    int                   `json:"pageSize"`
	HasMore     bool                  `json:"has_more"`
	Diagnostics model.Diagnostics     `json:"diagnostics"`
}

type errorResponse struct {
	Sucesso   bool   `json:"sucesso"`
	Error     string `json:"error"`
	ErrorCode string `json:"error_code,omitempty"`
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/discover", s.handleDiscover)
		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", s.handleListJobs)
			r.Get("/{id}", s.handleGetJob)
			r.Post("/{id}/run", s.handleRunJob)
			r.Post("/{id}/reset", s.handleResetJob)
		})
	})

	return r
}

func (s *server) handleDiscover(w http.ResponseWriter, req *http.Request) {
	var body discoverRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "corpo da requisição inválido"})
		return
	}
	if body.TenantID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "tenant_id é obrigatório"})
		return
	}

	if err := s.cfg.ValidateSecrets(); err != nil {
		// Fatal at request scope: an empty result set plus the error code.
		resp := struct {
			discoverResponse
			Error     string `json:"error"`
			ErrorCode string `json:"error_code,omitempty"`
		}{
			discoverResponse: discoverResponse{Empresas: []model.ScoredCompany{}},
			Error:            err.Error(),
		}
		var mk *config.MissingKeyError
		if errors.As(err, &mk) {
			resp.ErrorCode = mk.Code()
		}
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	result, err := s.discoverer.Discover(req.Context(), body.TenantID, body.RawFilter)
	if err != nil {
		zap.L().Error("discovery failed", zap.String("tenant_id", body.TenantID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "erro interno na descoberta"})
		return
	}

	empresas := result.Companies
	if empresas == nil {
		empresas = []model.ScoredCompany{}
	}
	writeJSON(w, http.StatusOK, discoverResponse{
		Sucesso:     true,
		Empresas:    empresas,
		Total:       result.Total,
		Page:        result.Page,
		PageSize:    result.PageSize,
		HasMore:     result.HasMore,
		Diagnostics: result.Diagnostics,
	})
}

func (s *server) handleRunJob(w http.ResponseWriter, req *http.Request) {
	jobID := chi.URLParam(req, "id")

	finished, err := s.runner.Run(req.Context(), jobID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "job não encontrado"})
	case errors.Is(err, store.ErrJobNotRunnable):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "job não está pendente"})
	case err != nil:
		zap.L().Error("job run failed", zap.String("job_id", jobID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusOK, job.Summarize(finished))
	}
}

func (s *server) handleResetJob(w http.ResponseWriter, req *http.Request) {
	jobID := chi.URLParam(req, "id")

	err := s.runner.Reset(req.Context(), jobID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "job não encontrado"})
	case errors.Is(err, store.ErrJobNotResettable):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "apenas jobs concluídos podem ser reiniciados"})
	case err != nil:
		zap.L().Error("job reset failed", zap.String("job_id", jobID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

func (s *server) handleGetJob(w http.ResponseWriter, req *http.Request) {
	jobID := chi.URLParam(req, "id")

	j, err := s.store.GetJob(req.Context(), jobID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "job não encontrado"})
	case err != nil:
		zap.L().Error("job lookup failed", zap.String("job_id", jobID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusOK, j)
	}
}

func (s *server) handleListJobs(w http.ResponseWriter, req *http.Request) {
	filter := store.JobFilter{
		TenantID: req.URL.Query().Get("tenant_id"),
		Status:   model.JobStatus(req.URL.Query().Get("status")),
	}

	jobs, err := s.store.ListJobs(req.Context(), filter)
	if err != nil {
		zap.L().Error("job list failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if jobs == nil {
		jobs = []model.QualificationJob{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("response encode failed", zap.Error(err))
	}
}

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		s := &server{
			cfg:        cfg,
			store:      env.Store,
			discoverer: env.Pipeline,
			runner:     env.Runner,
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           s.routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
