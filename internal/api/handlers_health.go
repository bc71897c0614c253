package api

import (
	"net/http"
	"time"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	node := BitcoinNodeHealth{Network: s.network.Name}
	if height, err := s.backend.TipHeight(r.Context()); err == nil {
		node.Connected = true
		node.BlockHeight = height
	} else {
		s.log.Warn("health check: bitcoin backend unavailable", "error", err)
	}

	db := DatabaseHealth{Connected: s.store.Ping() == nil}

	status := "ok"
	if !node.Connected || !db.Connected {
		status = "degraded"
	}

	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:       status,
		Dependencies: HealthDependencies{BitcoinNode: node, Database: db},
		UptimeSecs:   int64(time.Since(s.startedAt).Seconds()),
	})
}
