package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"reelcomp/logger"

	"github.com/gorilla/mux"
)

// corsMiddleware 预览前端与服务通常不同源
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS, HEAD")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Range")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range, X-Timeline-Revision")
		w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NewRouter 注册全部路由。media 为 nil 时不提供媒体文件服务。
func NewRouter(h *TimelineHandler, servedRoot string, media http.Handler) *mux.Router {
	router := mux.NewRouter()
	router.Use(corsMiddleware)

	router.HandleFunc("/api/health", h.HealthHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/projects", h.ProjectsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/timeline", h.GetTimelineHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/timeline/frames/{frame:-?[0-9]+}", h.GetFrameHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/timeline/refresh", h.RefreshHandler).Methods(http.MethodPost)
	router.HandleFunc("/ws/timeline", h.WebSocketHandler)

	if media != nil && servedRoot != "" {
		router.PathPrefix(servedRoot + "/").Handler(media).Methods(http.MethodGet, http.MethodHead)
	}
	return router
}

// Run 启动 HTTP 服务，ctx 取消后优雅关闭
func Run(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP 服务启动", logger.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("正在关闭 HTTP 服务...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("HTTP 服务已停止")
	return nil
}
