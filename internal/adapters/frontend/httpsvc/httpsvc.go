// Package httpsvc implements C8's REST adapter ("/v1/*") and C9's
// WebSocket push ("/register-updates"), mirroring grpcsvc's RPCs 1:1 per
// spec.md §4.8. Grounded on the teacher's internal/adapters/web/server
// (router/server split, otelhttp instrumentation, graceful shutdown) and
// internal/adapters/web/websocket/ws_manager.go (client set + broadcast),
// generalized from a 2s poll ticker to an event-driven push via
// scene.Store.OnChange.
package httpsvc

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/netsim/internal/adapters/frontend/report"
	"github.com/google/netsim/internal/core/domain"
	"github.com/google/netsim/internal/core/ports"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// SceneNotifier is implemented by *scene.Store; kept as a narrow interface
// so httpsvc does not need to import the concrete services/scene package.
type SceneNotifier interface {
	OnChange(callback func()) (unregister func())
}

// Server wires the scene store, pcap manager, and audit log to loopback
// HTTP.
type Server struct {
	Addr     string
	Scene    ports.SceneStore
	Notifier SceneNotifier
	Pcap     ports.PcapManager
	Audit    ports.AuditLog

	ws  *wsHub
	srv *http.Server
}

// Run starts the REST/WS server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.ws = newWSHub(func() domain.Scene { return s.Scene.ListDevices(context.Background()) })
	unregister := s.Notifier.OnChange(func() { s.ws.broadcastChanged() })
	defer unregister()

	router := s.routes()
	instrumented := otelhttp.NewHandler(router, "netsim-frontend")

	s.srv = &http.Server{Addr: s.Addr, Handler: instrumented, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		log.Println("httpsvc: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("httpsvc: shutdown error: %v", err)
		}
	}()

	log.Printf("httpsvc: listening on %s", s.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/v1/devices", s.handleListDevices).Methods(http.MethodGet)
	r.HandleFunc("/v1/devices", s.handleCreateDevice).Methods(http.MethodPost)
	r.HandleFunc("/v1/devices/{id}", s.handlePatchDevice).Methods(http.MethodPatch)
	r.HandleFunc("/v1/devices/subscribe", s.handleSubscribe).Methods(http.MethodGet)
	r.HandleFunc("/v1/chips/{id}", s.handleDeleteChip).Methods(http.MethodDelete)
	r.HandleFunc("/v1/reset", s.handleReset).Methods(http.MethodPost)
	r.HandleFunc("/v1/captures", s.handleListCaptures).Methods(http.MethodGet)
	r.HandleFunc("/v1/captures/{id}", s.handleGetCapture).Methods(http.MethodGet)
	r.HandleFunc("/v1/captures/{id}", s.handlePatchCapture).Methods(http.MethodPatch)
	r.HandleFunc("/v1/version", s.handleVersion).Methods(http.MethodGet)
	r.HandleFunc("/v1/audit", s.handleAudit).Methods(http.MethodGet)
	r.HandleFunc("/v1/report.pdf", s.handleReportPDF).Methods(http.MethodGet)
	r.HandleFunc("/v1/report.csv", s.handleReportCSV).Methods(http.MethodGet)
	r.HandleFunc("/register-updates", s.ws.handle)
	return r
}

// errBody is the uniform REST error shape (spec.md §4.8).
type errBody struct {
	Code         int    `json:"code"`
	ErrorMessage string `json:"error_message"`
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch domain.KindOf(err) {
	case domain.KindInvalidArgument, domain.KindParseError:
		code = http.StatusBadRequest
	case domain.KindNotFound:
		code = http.StatusNotFound
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(errBody{Code: code, ErrorMessage: err.Error()})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Scene.ListDevices(r.Context()))
}

func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var create domain.DeviceCreate
	if err := json.NewDecoder(r.Body).Decode(&create); err != nil {
		writeError(w, domain.Wrap(domain.KindInvalidArgument, err, "decode device create body"))
		return
	}
	dev, err := s.Scene.CreateDevice(r.Context(), create)
	if err != nil {
		writeError(w, err)
		return
	}
	if s.Audit != nil {
		_ = s.Audit.Record(r.Context(), "create_device", create.Name)
	}
	writeJSON(w, dev)
}

func (s *Server) handlePatchDevice(w http.ResponseWriter, r *http.Request) {
	idOrName := mux.Vars(r)["id"]
	var patch domain.PatchFields
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, domain.Wrap(domain.KindInvalidArgument, err, "decode patch body"))
		return
	}
	if err := s.Scene.PatchDevice(r.Context(), idOrName, patch); err != nil {
		writeError(w, err)
		return
	}
	if s.Audit != nil {
		_ = s.Audit.Record(r.Context(), "patch_device", idOrName)
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if v := r.URL.Query().Get("last_modified"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			since = time.UnixMilli(ms)
		}
	}
	writeJSON(w, s.Scene.Subscribe(r.Context(), since))
}

func (s *Server) handleDeleteChip(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil {
		writeError(w, domain.NewError(domain.KindInvalidArgument, "invalid chip id"))
		return
	}
	if err := s.Scene.DeleteChip(r.Context(), uint32(id)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.Scene.Reset(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	if s.Audit != nil {
		_ = s.Audit.Record(r.Context(), "reset", "")
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleListCaptures(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Pcap.List(r.Context()))
}

func (s *Server) handleGetCapture(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil {
		writeError(w, domain.NewError(domain.KindInvalidArgument, "invalid chip id"))
		return
	}
	w.Header().Set("Content-Type", "application/vnd.tcpdump.pcap")
	if err := s.Pcap.Stream(r.Context(), uint32(id), w); err != nil {
		log.Printf("httpsvc: stream capture %d: %v", id, err)
	}
}

func (s *Server) handlePatchCapture(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil {
		writeError(w, domain.NewError(domain.KindInvalidArgument, "invalid chip id"))
		return
	}
	var body struct {
		State domain.CaptureState `json:"state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, domain.Wrap(domain.KindInvalidArgument, err, "decode capture patch body"))
		return
	}
	if err := s.Pcap.SetState(r.Context(), uint32(id), body.State); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// reportSnapshot assembles a report.Snapshot. Each device's Chips already
// carries full chip detail, so the report can read radio counters
// alongside captures without a further per-chip lookup.
func (s *Server) reportSnapshot(r *http.Request) report.Snapshot {
	ctx := r.Context()
	scn := s.Scene.ListDevices(ctx)
	chips := make(map[uint32]domain.Chip)
	for _, d := range scn.Devices {
		for _, c := range d.Chips {
			chips[c.Id] = c
		}
	}
	return report.Snapshot{Scene: scn, Captures: s.Pcap.List(ctx), Chips: chips}
}

func (s *Server) handleReportPDF(w http.ResponseWriter, r *http.Request) {
	data, err := report.PDF(s.reportSnapshot(r))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Write(data)
}

func (s *Server) handleReportCSV(w http.ResponseWriter, r *http.Request) {
	data, err := report.CSV(s.reportSnapshot(r))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Write(data)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"version": "netsim-go/0.1"})
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if s.Audit == nil {
		writeJSON(w, []ports.AuditEntry{})
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	entries, err := s.Audit.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, entries)
}

// wsHub pushes the current scene snapshot to every connected client on
// each change, grounded on the teacher's WSManager.broadcastMessage but
// event-driven instead of ticker-polled.
type wsHub struct {
	mu       sync.Mutex
	clients  map[*websocket.Conn]struct{}
	snapshot func() domain.Scene
}

func newWSHub(snapshot func() domain.Scene) *wsHub {
	return &wsHub{clients: make(map[*websocket.Conn]struct{}), snapshot: snapshot}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (h *wsHub) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("httpsvc: ws upgrade: %v", err)
		return
	}
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.clients, conn)
			h.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// broadcastChanged runs as a scene change callback, while the scene store
// still holds its lock, so the snapshot and the writes happen on their own
// goroutine.
func (h *wsHub) broadcastChanged() {
	go h.broadcast()
}

func (h *wsHub) broadcast() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.clients) == 0 {
		return
	}
	payload, err := json.Marshal(h.snapshot())
	if err != nil {
		log.Printf("httpsvc: marshal ws snapshot: %v", err)
		return
	}
	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}
