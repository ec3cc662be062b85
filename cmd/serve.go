package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
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

	"github.com/chefme/onboarding-cli/internal/form"
	"github.com/chefme/onboarding-cli/internal/uploads"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the onboarding form intake server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		engine := newEngine()
		validator := uploads.NewValidator(cfg.Uploads.MaxFileSizeMB)

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Get("/lead/{leadID}", func(w http.ResponseWriter, req *http.Request) {
			sub, err := engine.LeadData(req.Context(), chi.URLParam(req, "leadID"))
			if err != nil {
				zap.L().Error("lead prefill failed", zap.Error(err))
				writeJSON(w, http.StatusBadGateway, map[string]bool{"success": false})
				return
			}
			writeJSON(w, http.StatusOK, sub)
		})

		r.Post("/onboarding", func(w http.ResponseWriter, req *http.Request) {
			sub, status, err := parseSubmission(req, validator)
			if err != nil {
				zap.L().Warn("rejected submission", zap.Error(err))
				writeJSON(w, status, map[string]bool{"success": false})
				return
			}

			if sub.LeadID != "" {
				err = engine.UpdateByLead(req.Context(), sub.LeadID, sub, true)
			} else {
				err = engine.Create(req.Context(), sub)
			}
			if err != nil {
				// The outward response stays terse; the log line carries the
				// failure detail and CRM response bodies.
				zap.L().Error("submission sync failed",
					zap.String("leadID", sub.LeadID),
					zap.String("company", sub.CompanyName),
					zap.Error(err))
				writeJSON(w, http.StatusBadGateway, map[string]bool{"success": false})
				return
			}
			writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		})

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", serverPort()),
			Handler: r,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			gracefulShutdown(srv)
		}()

		zap.L().Info("starting server", zap.Int("port", serverPort()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

// gracefulShutdown drains in-flight requests on a fresh timeout context; the
// signal context that triggered the shutdown is already cancelled and would
// abort the drain immediately.
func gracefulShutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zap.L().Warn("server shutdown", zap.Error(err))
	}
}

func serverPort() int {
	if servePort != 0 {
		return servePort
	}
	return cfg.Server.Port
}

// parseSubmission decodes the multipart request: a "payload" JSON part with
// the form fields plus one file part per attachment slot, named by slot.
func parseSubmission(req *http.Request, validator *uploads.Validator) (*form.Submission, int, error) {
	maxBytes := int64(cfg.Uploads.MaxFileSizeMB) * 1024 * 1024
	// Nine slots plus the payload part, with multipart overhead.
	if err := req.ParseMultipartForm(10*maxBytes + 1024*1024); err != nil {
		return nil, http.StatusBadRequest, eris.Wrap(err, "parse multipart form")
	}

	var sub form.Submission
	if err := json.Unmarshal([]byte(req.FormValue("payload")), &sub); err != nil {
		return nil, http.StatusBadRequest, eris.Wrap(err, "parse payload")
	}

	sub.Attachments = make(form.AttachmentSet)
	for _, kind := range form.Kinds() {
		files := req.MultipartForm.File[string(kind)]
		if len(files) == 0 {
			continue
		}
		header := files[0]
		if err := validator.Check(header.Filename, header.Size, header.Header.Get("Content-Type")); err != nil {
			return nil, http.StatusBadRequest, err
		}
		f, err := header.Open()
		if err != nil {
			return nil, http.StatusBadRequest, eris.Wrapf(err, "open attachment %s", kind)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, http.StatusBadRequest, eris.Wrapf(err, "read attachment %s", kind)
		}
		sub.Attachments[kind] = form.Attachment{FileName: header.Filename, Data: data}
	}
	return &sub, http.StatusOK, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
