package control

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/betbot/poolhedge/internal/domain"
	"github.com/betbot/poolhedge/internal/hedge"
)

var log = logrus.WithField("component", "control")

// Engine 需要暴露给控制面的引擎能力
type Engine interface {
	Control() *hedge.RunControl
	Status() []hedge.PoolStatus
}

// Trigger 立即执行一轮（经由调度器，保证不与定时轮次重叠）
type Trigger interface {
	Trigger() bool
}

// History 对冲记录查询
type History interface {
	Recent(pool string, limit int) ([]domain.HedgeRecord, error)
}

type Config struct {
	Engine  Engine
	Trigger Trigger
	History History      // 可选
	Metrics http.Handler // 可选
	DryRun  bool
}

// Server 启停 / 状态 / 手动触发 / 对冲记录 的 HTTP 控制面
type Server struct {
	cfg Config
}

func New(cfg Config) (*Server, error) {
	if cfg.Engine == nil {
		return nil, errors.New("control: engine is required")
	}
	if cfg.Trigger == nil {
		return nil, errors.New("control: trigger is required")
	}
	return &Server{cfg: cfg}, nil
}

func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.wrap(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))
	if s.cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(s.cfg.Metrics))
	}

	api := r.Group("/api")
	api.GET("/status", s.wrap(s.handleStatus))
	api.POST("/start", s.wrap(s.handleStart))
	api.POST("/stop", s.wrap(s.handleStop))
	api.POST("/run", s.wrap(s.handleRun))
	api.GET("/hedges/:pool", s.wrap(s.handleHedges))

	return r
}

// ListenAndServe 阻塞运行，ctx 结束时优雅关闭
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Infof("控制面监听 %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type paramsKeyType string

const paramsKey paramsKeyType = "poolhedge_path_params"

// wrap 把 net/http handler 适配成 gin handler，路径参数放进 request context
func (s *Server) wrap(h func(http.ResponseWriter, *http.Request)) gin.HandlerFunc {
	return func(c *gin.Context) {
		m := map[string]string{}
		for _, p := range c.Params {
			m[p.Key] = p.Value
		}
		ctx := context.WithValue(c.Request.Context(), paramsKey, m)
		c.Request = c.Request.WithContext(ctx)
		h(c.Writer, c.Request)
	}
}

func pathParam(r *http.Request, key string) string {
	m, _ := r.Context().Value(paramsKey).(map[string]string)
	return m[key]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}
