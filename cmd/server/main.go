package main

import (
    "compress/gzip"
    "context"
    "encoding/json"
    "errors"
    "io"
    "net/http"
    "os"
    "os/signal"
    "path/filepath"
    "strings"
    "sync"
    "syscall"
    "time"

    "github.com/rs/zerolog/log"

    "oitracker/internal/aggregate"
    "oitracker/internal/config"
    "oitracker/internal/logging"
    "oitracker/internal/svc"
)

// coinService is what the HTTP layer needs from aggregate.Service.
type coinService interface {
    Symbols(ctx context.Context) ([]aggregate.SymbolEntry, error)
    Coin(ctx context.Context, symbol string) (aggregate.Coin, error)
}

type errorResponse struct {
    Detail string `json:"detail"`
}

func main() {
    cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
    if err != nil {
        logging.Init("info", true)
        log.Fatal().Err(err).Msg("config")
    }
    logging.Init(cfg.Log.Level, cfg.Log.Pretty)

    sc := svc.NewServiceContext(cfg, nil)
    timeout := time.Duration(cfg.Server.RequestTimeoutSec) * time.Second

    srv := &http.Server{
        Addr:              ":" + cfg.Server.Port,
        Handler:           withRequestLog(withAPIHeaders(withGzip(recoverPanic(newMux(sc.Service, cfg.Server.StaticDir, timeout))))),
        ReadHeaderTimeout: 5 * time.Second,
        ReadTimeout:       15 * time.Second,
        WriteTimeout:      timeout + 10*time.Second,
        IdleTimeout:       60 * time.Second,
    }

    go func() {
        log.Info().Str("addr", srv.Addr).Msg("server listening")
        if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
            log.Fatal().Err(err).Msg("server")
        }
    }()

    // graceful shutdown
    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()
    <-ctx.Done()
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    _ = srv.Shutdown(shutdownCtx)
    log.Info().Msg("server stopped")
}

func newMux(service coinService, staticDir string, timeout time.Duration) *http.ServeMux {
    mux := http.NewServeMux()
    mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
        w.WriteHeader(http.StatusOK)
        _, _ = w.Write([]byte("ok"))
    })
    mux.HandleFunc("GET /api/symbols", func(w http.ResponseWriter, r *http.Request) {
        ctx, cancel := context.WithTimeout(r.Context(), timeout)
        defer cancel()
        writeSymbols(ctx, w, service)
    })
    mux.HandleFunc("GET /api/coin/{symbol}", func(w http.ResponseWriter, r *http.Request) {
        ctx, cancel := context.WithTimeout(r.Context(), timeout)
        defer cancel()
        writeCoin(ctx, w, service, r.PathValue("symbol"))
    })

    if st, err := os.Stat(staticDir); err == nil && st.IsDir() {
        mux.Handle("GET /assets/", http.StripPrefix("/assets/", http.FileServer(http.Dir(staticDir))))
        index := filepath.Join(staticDir, "index.html")
        mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
            http.ServeFile(w, r, index)
        })
    } else if staticDir != "" {
        log.Warn().Str("dir", staticDir).Msg("static dir not found; frontend disabled")
    }
    return mux
}

func writeSymbols(ctx context.Context, w http.ResponseWriter, service coinService) {
    entries, err := service.Symbols(ctx)
    if err != nil {
        log.Error().Err(err).Msg("symbols")
        writeJSON(w, http.StatusBadGateway, errorResponse{Detail: "upstream error"})
        return
    }
    writeJSON(w, http.StatusOK, entries)
}

func writeCoin(ctx context.Context, w http.ResponseWriter, service coinService, symbol string) {
    symbol = strings.ToUpper(strings.TrimSpace(symbol))
    coin, err := service.Coin(ctx, symbol)
    switch {
    case err == nil:
        writeJSON(w, http.StatusOK, coin)
    case errors.Is(err, aggregate.ErrUnknownSymbol):
        writeJSON(w, http.StatusNotFound, errorResponse{Detail: symbol + " not found on Binance Futures"})
    default:
        log.Error().Err(err).Str("symbol", symbol).Msg("coin")
        writeJSON(w, http.StatusBadGateway, errorResponse{Detail: "upstream error"})
    }
}

func writeJSON(w http.ResponseWriter, status int, v any) {
    w.Header().Set("Content-Type", "application/json; charset=utf-8")
    w.WriteHeader(status)
    enc := json.NewEncoder(w)
    enc.SetEscapeHTML(false)
    _ = enc.Encode(v)
}

// withAPIHeaders adds CORS headers to /api/ routes and answers preflights.
func withAPIHeaders(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if !strings.HasPrefix(r.URL.Path, "/api/") {
            next.ServeHTTP(w, r)
            return
        }
        w.Header().Set("Access-Control-Allow-Origin", "*")
        w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
        w.Header().Set("Access-Control-Allow-Headers", "*")
        if r.Method == http.MethodOptions {
            w.WriteHeader(http.StatusNoContent)
            return
        }
        next.ServeHTTP(w, r)
    })
}

// withGzip compresses response when client supports gzip.
// Range requests and bodiless statuses pass through uncompressed.
func withGzip(next http.Handler) http.Handler {
    var gzPool = sync.Pool{New: func() any {
        // Prefer best speed to reduce CPU usage since payloads are JSON
        w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
        return w
    }}
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") || r.Header.Get("Range") != "" {
            next.ServeHTTP(w, r)
            return
        }
        gz := gzPool.Get().(*gzip.Writer)
        gz.Reset(w)
        w.Header().Set("Content-Encoding", "gzip")
        w.Header().Add("Vary", "Accept-Encoding")
        gw := &gzipResponseWriter{ResponseWriter: w, Writer: gz}
        defer func() {
            if !gw.bypass {
                _ = gz.Close()
            }
            gz.Reset(io.Discard)
            gzPool.Put(gz)
        }()
        next.ServeHTTP(gw, r)
    })
}

type gzipResponseWriter struct {
    http.ResponseWriter
    Writer      *gzip.Writer
    wroteHeader bool
    bypass      bool
}

func (g *gzipResponseWriter) Write(b []byte) (int, error) {
    if !g.wroteHeader {
        g.WriteHeader(http.StatusOK)
    }
    if g.bypass {
        return g.ResponseWriter.Write(b)
    }
    return g.Writer.Write(b)
}

// WriteHeader drops any length set by file serving; the compressed size differs.
// 204 and 304 carry no body, so they are sent without gzip framing.
func (g *gzipResponseWriter) WriteHeader(code int) {
    if g.wroteHeader {
        return
    }
    g.wroteHeader = true
    if code == http.StatusNoContent || code == http.StatusNotModified {
        g.bypass = true
        g.Header().Del("Content-Encoding")
    } else {
        g.Header().Del("Content-Length")
    }
    g.ResponseWriter.WriteHeader(code)
}

// recoverPanic protects handlers from panics.
func recoverPanic(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        defer func() {
            if rec := recover(); rec != nil {
                log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("handler panic")
                http.Error(w, "internal server error", http.StatusInternalServerError)
            }
        }()
        next.ServeHTTP(w, r)
    })
}

type statusRecorder struct {
    http.ResponseWriter
    status int
}

func (s *statusRecorder) WriteHeader(code int) {
    s.status = code
    s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
    if s.status == 0 {
        s.status = http.StatusOK
    }
    return s.ResponseWriter.Write(b)
}

// withRequestLog logs one line per request.
func withRequestLog(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        start := time.Now()
        rec := &statusRecorder{ResponseWriter: w}
        next.ServeHTTP(rec, r)
        log.Info().
            Str("method", r.Method).
            Str("path", r.URL.Path).
            Int("status", rec.status).
            Dur("duration", time.Since(start)).
            Msg("request")
    })
}
