// Package daemon serves the message contract over local HTTP so browser
// extensions and scripts can reach the coordinator.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/runnerr0/memorylane/internal/capture"
	"github.com/runnerr0/memorylane/internal/memory"
	"github.com/runnerr0/memorylane/internal/message"
)

const (
	DefaultRequestTimeout = 10 * time.Second
	DefaultMaxRequestSize = 16 << 20

	timeoutMessage = "request timed out"
)

// kindSkipped marks an auto capture refused by the capture policy.
const kindSkipped message.Kind = "skipped"

// Options configures a Server. Zero values take the defaults.
type Options struct {
	RequestTimeout time.Duration
	MaxRequestSize int64
	Policy         capture.AutoCapturePolicy
	Logger         zerolog.Logger
	Now            func() time.Time
	Version        string
}

// Server routes HTTP requests to a message.Dispatcher.
type Server struct {
	svc    message.Service
	disp   *message.Dispatcher
	opts   Options
	log    zerolog.Logger
	router *mux.Router
}

// New builds a Server around svc.
func New(svc message.Service, opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.MaxRequestSize <= 0 {
		opts.MaxRequestSize = DefaultMaxRequestSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{
		svc:  svc,
		disp: message.NewDispatcher(svc, opts.Logger),
		opts: opts,
		log:  opts.Logger,
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() *mux.Router {
	root := mux.NewRouter()
	root.Use(requestIDMiddleware, recoverMiddleware(s.log))

	root.HandleFunc("/api/health", s.handleHealth).Methods("GET")
	root.HandleFunc("/api/message", s.handleMessage).Methods("POST")
	root.HandleFunc("/api/capture", s.handleCapture).Methods("POST")
	root.Handle("/metrics", promhttp.Handler()).Methods("GET")
	return root
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", ln.Addr().String()).Msg("daemon listening")
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.log.Info().Msg("shutting down daemon")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.opts.Version,
		"time":    s.opts.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	raw, ok := s.readBody(w, r)
	if !ok {
		return
	}
	req, err := message.Decode(raw)
	if err != nil {
		operationsTotal.WithLabelValues("unknown", string(message.KindMalformed)).Inc()
		writeResponse(w, message.Failure(err))
		return
	}
	s.dispatch(w, r, req)
}

// capturePayload is a page sent by a content script.
type capturePayload struct {
	URL        string `json:"url"`
	HTML       string `json:"html"`
	Auto       bool   `json:"auto"`
	Screenshot string `json:"screenshot,omitempty"`
}

// handleCapture extracts a page server-side and saves it. Auto captures
// are checked against the capture policy first.
func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	raw, ok := s.readBody(w, r)
	if !ok {
		return
	}
	var p capturePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		writeResponse(w, message.Failure(fmt.Errorf("%w: %v", memory.ErrMalformedInput, err)))
		return
	}
	if p.HTML == "" {
		writeResponse(w, message.Failure(fmt.Errorf("%w: html is required", memory.ErrMalformedInput)))
		return
	}

	page, err := capture.ExtractPage(strings.NewReader(p.HTML), p.URL)
	if err != nil {
		writeResponse(w, message.Failure(fmt.Errorf("%w: %v", memory.ErrMalformedInput, err)))
		return
	}
	if p.Auto {
		if allowed, reason := s.opts.Policy.Allow(p.URL, page.Content); !allowed {
			operationsTotal.WithLabelValues(message.ActionSaveContent, string(kindSkipped)).Inc()
			s.log.Debug().Str("url", p.URL).Str("reason", reason).Msg("auto capture skipped")
			writeResponse(w, message.Response{Success: false, Error: reason, ErrorKind: kindSkipped})
			return
		}
	}

	now := s.opts.Now()
	req := page.SaveRequest(memory.NewID(now), now, p.Auto)
	req.Screenshot = p.Screenshot
	s.dispatch(w, r, message.SaveContent{Data: req})
}

// dispatch runs req under the request timeout. A request still running at
// the deadline is answered with a timeout failure; the coordinator sees the
// cancelled context and abandons its work.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, req message.Request) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(r.Context(), s.opts.RequestTimeout)
	defer cancel()

	done := make(chan message.Response, 1)
	go func() { done <- s.disp.Dispatch(ctx, req) }()

	var resp message.Response
	select {
	case resp = <-done:
	case <-ctx.Done():
		resp = message.Response{Success: false, Error: timeoutMessage, ErrorKind: message.KindTimeout}
	}

	operationsTotal.WithLabelValues(req.Action(), outcome(resp.Success, string(resp.ErrorKind))).Inc()
	requestDuration.WithLabelValues(req.Action()).Observe(time.Since(start).Seconds())
	writeResponse(w, resp)
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxRequestSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, message.Response{
				Success:   false,
				Error:     fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
				ErrorKind: message.KindMalformed,
			})
			return nil, false
		}
		writeResponse(w, message.Failure(fmt.Errorf("%w: reading body: %v", memory.ErrMalformedInput, err)))
		return nil, false
	}
	return raw, true
}

func writeResponse(w http.ResponseWriter, resp message.Response) {
	writeJSON(w, statusFor(resp), resp)
}

func statusFor(resp message.Response) int {
	if resp.Success {
		return http.StatusOK
	}
	switch resp.ErrorKind {
	case message.KindNotFound:
		return http.StatusNotFound
	case message.KindMalformed:
		return http.StatusBadRequest
	case message.KindTimeout:
		return http.StatusGatewayTimeout
	case kindSkipped:
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
