package report

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"backtest_go/internal/engine"
	"backtest_go/internal/service"
)

// Server exposes a finished run over HTTP: JSON endpoints for the
// summary and full history, and a websocket that replays the run
// tick by tick for charting clients. With a run service attached it
// also serves the persisted-run comparison endpoints.
type Server struct {
	hist     *engine.History
	summary  Summary
	runs     *service.RunService
	upgrader websocket.Upgrader
}

type tickFrame struct {
	Timestamp int64               `json:"timestamp"`
	Rows      map[string]frameRow `json:"rows"`
	TotalPnl  float64             `json:"total_pnl"`
}

type frameRow struct {
	Position      int64   `json:"position"`
	RealizedPnl   float64 `json:"realized_pnl"`
	UnrealizedPnl float64 `json:"unrealized_pnl"`
	TotalPnl      float64 `json:"total_pnl"`
	MidPrice      float64 `json:"mid_price"`
	Volume        int64   `json:"volume"`
}

type outboundMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// NewServer builds a server for a frozen history. runs may be nil when
// no run database is configured.
func NewServer(hist *engine.History, runs *service.RunService) *Server {
	return &Server{
		hist:     hist,
		summary:  Summarize(hist),
		runs:     runs,
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/summary", s.handleSummary)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/ws/replay", s.handleReplay)
	if s.runs != nil {
		mux.HandleFunc("/api/runs", s.handleRuns)
		mux.HandleFunc("/api/runs/compare", s.handleCompare)
	}
	return mux
}

// Serve blocks on http.ListenAndServe.
func (s *Server) Serve(addr string) error {
	slog.Info("report server listening", "addr", addr)
	return http.ListenAndServe(addr, s.Routes())
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.summary)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.frames())
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	runs, err := s.runs.ListRuns()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	a, errA := strconv.ParseUint(r.URL.Query().Get("a"), 10, 32)
	b, errB := strconv.ParseUint(r.URL.Query().Get("b"), 10, 32)
	if errA != nil || errB != nil {
		writeError(w, http.StatusBadRequest, errors.New("a and b run ids are required"))
		return
	}
	cmp, err := s.runs.Compare(uint(a), uint(b))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

// handleReplay streams one frame per tick, paced by the optional
// interval_ms query parameter, then a closing summary message. Each
// connection gets its own walk over the frozen history.
func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	interval := time.Duration(0)
	if raw := r.URL.Query().Get("interval_ms"); raw != "" {
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil && ms > 0 {
			interval = time.Duration(ms) * time.Millisecond
		}
	}

	for _, frame := range s.frames() {
		if err := conn.WriteJSON(outboundMessage{Type: "tick", Data: frame}); err != nil {
			return
		}
		if interval > 0 {
			time.Sleep(interval)
		}
	}
	_ = conn.WriteJSON(outboundMessage{Type: "summary", Data: s.summary})
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "replay complete"))
}

func (s *Server) frames() []tickFrame {
	products := s.hist.Products()
	total := s.hist.TotalPnl()
	frames := make([]tickFrame, 0, s.hist.Len())
	for i, ts := range s.hist.Timestamps() {
		frame := tickFrame{Timestamp: ts, Rows: make(map[string]frameRow, len(products))}
		for _, p := range products {
			series := s.hist.Series(p)
			frame.Rows[p] = frameRow{
				Position:      series.Position[i],
				RealizedPnl:   series.RealizedPnl[i],
				UnrealizedPnl: series.UnrealizedPnl[i],
				TotalPnl:      series.TotalPnl[i],
				MidPrice:      series.MidPrice[i],
				Volume:        series.Volume[i],
			}
		}
		frame.TotalPnl = total[i]
		frames = append(frames, frame)
	}
	return frames
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
