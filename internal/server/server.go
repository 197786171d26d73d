package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"connectrpc.com/otelconnect"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

type Server struct {
	srv *http.Server
}

type (
	HandlerFunc func(opts ...connect.HandlerOption) (string, http.Handler)
	Option      func(*options)
)

type options struct {
	handlers  []HandlerFunc
	telemetry *Telemetry
}

// WithHandlerFunc mounts the handler under the pattern returned by fn.
func WithHandlerFunc(fn HandlerFunc) Option {
	return func(o *options) {
		o.handlers = append(o.handlers, fn)
	}
}

// WithTelemetry serves /metrics and measures connect handlers with the
// telemetry meter provider.
func WithTelemetry(t *Telemetry) Option {
	return func(o *options) {
		o.telemetry = t
	}
}

func New(
	ctx context.Context,
	address string,
	opts ...Option,
) (*Server, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	mux := http.NewServeMux()

	// OpenTelemetry and prometheus metrics
	var otelOpts []otelconnect.Option
	if o.telemetry != nil {
		mux.Handle("/metrics", o.telemetry.Handler())
		otelOpts = append(otelOpts, otelconnect.WithMeterProvider(o.telemetry.MeterProvider()))
	}

	otelInterceptor, err := otelconnect.NewInterceptor(otelOpts...)
	if err != nil {
		return nil, err
	}

	for _, fn := range o.handlers {
		pattern, handler := fn(connect.WithInterceptors(otelInterceptor))
		mux.Handle(pattern, handler)
	}

	// Liveliness and readiness probes
	mux.HandleFunc("/healthz", healthZHandleFunc())
	mux.HandleFunc("/readyz", readyZHandleFunc(ctx))

	srv := &http.Server{
		Addr: address,
		// Use h2c, so we can serve HTTP/2 without TLS.
		Handler: h2c.NewHandler(
			mux,
			&http2.Server{},
		),
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       1 * time.Minute,
		WriteTimeout:      1 * time.Minute,
		MaxHeaderBytes:    16 * 1024, // 16KiB
		BaseContext: func(listener net.Listener) context.Context {
			return ctx
		},
	}

	return &Server{
		srv: srv,
	}, nil
}

func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) Serve(l net.Listener) error {
	return s.srv.Serve(l)
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

var (
	statusHealthy    = []byte(`{"status":"HEALTHY"}`)
	statusNotServing = []byte(`{"status":"NOT_SERVING"}`)
	statusServing    = []byte(`{"status":"SERVING"}`)
)

func readyZHandleFunc(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Content-Type", "application/json")
		if ctx.Err() != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write(statusNotServing)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write(statusServing)
	}
}

func healthZHandleFunc() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write(statusHealthy)
	}
}
