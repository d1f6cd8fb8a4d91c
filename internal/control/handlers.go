package control

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/betbot/poolhedge/internal/domain"
	"github.com/betbot/poolhedge/internal/hedge"
)

// StatusResponse GET /api/status
type StatusResponse struct {
	Running bool               `json:"running"`
	DryRun  bool               `json:"dry_run"`
	Pools   []hedge.PoolStatus `json:"pools"`
}

func (s *Server) status() StatusResponse {
	pools := s.cfg.Engine.Status()
	if pools == nil {
		pools = []hedge.PoolStatus{}
	}
	return StatusResponse{
		Running: s.cfg.Engine.Control().Running(),
		DryRun:  s.cfg.DryRun,
		Pools:   pools,
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.cfg.Engine.Control().Start()
	log.Info("收到 start 请求，对冲已开启")
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.cfg.Engine.Control().Stop()
	log.Info("收到 stop 请求，对冲已关闭")
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	queued := s.cfg.Trigger.Trigger()
	writeJSON(w, http.StatusAccepted, map[string]any{
		"queued":  queued,
		"running": s.cfg.Engine.Control().Running(),
	})
}

func (s *Server) handleHedges(w http.ResponseWriter, r *http.Request) {
	if s.cfg.History == nil {
		writeError(w, http.StatusNotFound, "journal disabled")
		return
	}
	pool := strings.TrimSpace(pathParam(r, "pool"))
	if pool == "" {
		writeError(w, http.StatusBadRequest, "pool is required")
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 1000 {
			writeError(w, http.StatusBadRequest, "limit must be in [1, 1000]")
			return
		}
		limit = n
	}
	recs, err := s.cfg.History.Recent(pool, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("journal: %v", err))
		return
	}
	if recs == nil {
		recs = []domain.HedgeRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}
