// Package server hosts the HTTP and WebSocket JSON-RPC 2.0 servers
// (C7), registering the four bridgerpc groups under a go-ethereum
// rpc.Server and serving them behind gorilla/mux with any-origin CORS,
// matching the bind/port conventions of §6.2.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	ethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/velas/evm-bridge/internal/bridgerpc"
	"github.com/velas/evm-bridge/internal/tracing"
)

// corsMaxAge is the CORS preflight cache lifetime of §6.2.
const corsMaxAge = 86400

// Host owns the HTTP and WebSocket listeners.
type Host struct {
	httpAddr string
	wsAddr   string
	rpc      *ethrpc.Server
	httpSrv  *http.Server
	wsSrv    *http.Server
	tracer   trace.Tracer
}

// New builds the rpc.Server, registers every namespace, and prepares
// (without yet binding) the HTTP and WS hosts. bindingAddress is the
// HTTP bind address; WS binds on the next port (§6.2). tracer
// annotates each inbound HTTP request with a span (§6.1
// --jaeger-collector-url); pass a no-op tracer to disable this.
func New(bindingAddress string, deps *bridgerpc.Deps, tracer trace.Tracer) (*Host, error) {
	rpcServer := ethrpc.NewServer()

	namespaces := map[string]interface{}{
		"eth":   bridgerpc.NewBridgeService(deps),
		"net":   bridgerpc.NewNetService(deps),
		"web3":  bridgerpc.NewWeb3Service(deps),
		"trace": bridgerpc.NewTraceService(deps),
	}
	for ns, svc := range namespaces {
		if err := rpcServer.RegisterName(ns, svc); err != nil {
			return nil, fmt.Errorf("register %s namespace: %w", ns, err)
		}
	}
	if err := rpcServer.RegisterName("eth", bridgerpc.NewGeneralService(deps)); err != nil {
		return nil, fmt.Errorf("register eth general methods: %w", err)
	}
	if err := rpcServer.RegisterName("eth", bridgerpc.NewChainService(deps)); err != nil {
		return nil, fmt.Errorf("register eth chain methods: %w", err)
	}

	wsAddr, err := nextPort(bindingAddress)
	if err != nil {
		return nil, err
	}

	return &Host{httpAddr: bindingAddress, wsAddr: wsAddr, rpc: rpcServer, tracer: tracer}, nil
}

// nextPort computes the WS bind address as bindingAddress's port + 1
// (§6.2).
func nextPort(addr string) (string, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("parse binding address %q: %w", addr, err)
	}
	var port int
	if _, err := fmt.Sscanf(portStr, "%d", &port); err != nil {
		return "", fmt.Errorf("parse port %q: %w", portStr, err)
	}
	return net.JoinHostPort(host, fmt.Sprintf("%d", port+1)), nil
}

// Serve runs the HTTP and WS servers under g until ctx is cancelled,
// shutting both down gracefully (§5, §6.2), mirroring the teacher's
// JSON-RPC server lifecycle.
func (h *Host) Serve(ctx context.Context, g *errgroup.Group) error {
	router := mux.NewRouter()
	router.HandleFunc("/", h.traced(h.rpc.ServeHTTP)).Methods("POST")

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodPost, http.MethodOptions},
		MaxAge:         corsMaxAge,
	})

	h.httpSrv = &http.Server{
		Addr:    h.httpAddr,
		Handler: corsHandler.Handler(router),
	}
	httpLn, err := net.Listen("tcp", h.httpAddr)
	if err != nil {
		return fmt.Errorf("bind http %s: %w", h.httpAddr, err)
	}

	wsRouter := mux.NewRouter()
	wsRouter.Handle("/", h.rpc.WebsocketHandler([]string{"*"}))
	h.wsSrv = &http.Server{Addr: h.wsAddr, Handler: wsRouter}
	wsLn, err := net.Listen("tcp", h.wsAddr)
	if err != nil {
		httpLn.Close()
		return fmt.Errorf("bind ws %s: %w", h.wsAddr, err)
	}

	g.Go(func() error { return serveUntilShutdown(ctx, h.httpSrv, httpLn) })
	g.Go(func() error { return serveUntilShutdown(ctx, h.wsSrv, wsLn) })
	return nil
}

// traced wraps next with a span covering one HTTP round trip.
func (h *Host) traced(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, end := tracing.StartSpan(r.Context(), h.tracer, "rpc.request")
		defer end(nil)
		next(w, r.WithContext(ctx))
	}
}

func serveUntilShutdown(ctx context.Context, srv *http.Server, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
