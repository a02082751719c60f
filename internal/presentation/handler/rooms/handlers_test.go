package rooms

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/amachi/voicedeck/internal/coordinator"
	"github.com/amachi/voicedeck/internal/domain"
	"github.com/amachi/voicedeck/internal/infrastructure/ws"
	"github.com/amachi/voicedeck/internal/persistence/statestore"
)

// memCatalog is an in-memory RoomCatalog for handler tests.
type memCatalog struct {
	mu    sync.Mutex
	rooms map[string]*domain.Room
}

func newMemCatalog() *memCatalog {
	return &memCatalog{rooms: make(map[string]*domain.Room)}
}

func (c *memCatalog) Create(_ context.Context, room *domain.Room) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.rooms[room.ID]; ok {
		return domain.ErrRoomAlreadyExists
	}
	cp := *room
	c.rooms[room.ID] = &cp
	return nil
}

func (c *memCatalog) GetByID(_ context.Context, id string) (*domain.Room, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	room, ok := c.rooms[id]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	cp := *room
	return &cp, nil
}

func (c *memCatalog) ListActive(_ context.Context, limit int) ([]domain.Room, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Room, 0, len(c.rooms))
	for _, room := range c.rooms {
		if room.IsActive && room.IsPublic && len(out) < limit {
			out = append(out, *room)
		}
	}
	return out, nil
}

func (c *memCatalog) SetParticipantCount(_ context.Context, id string, count int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	room, ok := c.rooms[id]
	if !ok {
		return domain.ErrRoomNotFound
	}
	room.ParticipantCount = count
	return nil
}

func (c *memCatalog) Close(_ context.Context, id string) (*domain.Room, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	room, ok := c.rooms[id]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	room.IsActive = false
	cp := *room
	return &cp, nil
}

func (c *memCatalog) EnsureIndexes(context.Context) error { return nil }

func setupHandlers(t *testing.T) (*Handler, *statestore.Memory, http.Handler) {
	t.Helper()

	store := statestore.NewMemory()
	coord := coordinator.New(store, nil)
	catalog := newMemCatalog()
	core := ws.NewCore(store, coord, nil)

	h := NewHandler(catalog, store, coord, core, 20)

	r := chi.NewRouter()
	r.Route("/api/rooms", func(r chi.Router) {
		r.Post("/", h.CreateRoomHandler)
		r.Get("/", h.ListRoomsHandler)
		r.Get("/{roomId}", h.GetRoomHandler)
		r.Delete("/{roomId}", h.CloseRoomHandler)
		r.Post("/{roomId}/join", h.JoinRoomHandler)
		r.Post("/{roomId}/leave", h.LeaveRoomHandler)
		r.Post("/{roomId}/hand", h.SetHandRaisedHandler)
		r.Post("/{roomId}/promote", h.PromoteHandler)
		r.Post("/{roomId}/demote", h.DemoteHandler)
		r.Post("/{roomId}/mute", h.MuteHandler)
		r.Post("/{roomId}/moderators", h.GrantModeratorHandler)
		r.Delete("/{roomId}/moderators/{uid}", h.RevokeModeratorHandler)
	})

	return h, store, r
}

func doJSON(t *testing.T, mux http.Handler, method, path, uid string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if uid != "" {
		req.Header.Set("X-Member-UID", uid)
	}

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func createRoom(t *testing.T, mux http.Handler, hostUID string) string {
	t.Helper()

	w := doJSON(t, mux, http.MethodPost, "/api/rooms", hostUID, map[string]any{
		"name":     "Morning Show",
		"username": "alice",
		"isPublic": true,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create room: status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		RoomID string `json:"roomId"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	return resp.RoomID
}

func TestCreateRoomInitializesState(t *testing.T) {
	_, store, mux := setupHandlers(t)

	w := doJSON(t, mux, http.MethodPost, "/api/rooms", "host1", map[string]any{
		"name":     "Morning Show",
		"username": "alice",
		"isPublic": true,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create room: status = %d, body = %s", w.Code, w.Body.String())
	}

	var created struct {
		RoomID string `json:"roomId"`
	}
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	roomID := created.RoomID

	if got := w.Header().Get("Location"); got != "/api/rooms/"+roomID {
		t.Errorf("Location = %q, want /api/rooms/%s", got, roomID)
	}

	state, err := store.Read(context.Background(), roomID)
	if err != nil {
		t.Fatalf("state not initialized: %v", err)
	}
	if state.HostUID != "host1" {
		t.Errorf("hostUid = %q, want host1", state.HostUID)
	}
	if !state.IsSpeaker("host1") {
		t.Error("host is not a speaker")
	}
}

func TestCreateRoomRejectsBadUsername(t *testing.T) {
	_, _, mux := setupHandlers(t)

	w := doJSON(t, mux, http.MethodPost, "/api/rooms", "host1", map[string]any{
		"name":     "Morning Show",
		"username": "x y z!",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestJoinFlow(t *testing.T) {
	_, store, mux := setupHandlers(t)
	roomID := createRoom(t, mux, "host1")

	w := doJSON(t, mux, http.MethodPost, "/api/rooms/"+roomID+"/join", "u2", map[string]any{
		"displayName": "Guest",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("join: status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		UID  string `json:"uid"`
		Role string `json:"role"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode join response: %v", err)
	}
	if resp.UID != "u2" {
		t.Errorf("uid = %q, want u2", resp.UID)
	}
	if resp.Role != "listener" {
		t.Errorf("role = %q, want listener", resp.Role)
	}

	state, err := store.Read(context.Background(), roomID)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !state.IsListener("u2") {
		t.Error("u2 not in listenerUids after join")
	}
}

func TestJoinMissingRoomIs404(t *testing.T) {
	_, _, mux := setupHandlers(t)

	w := doJSON(t, mux, http.MethodPost, "/api/rooms/ghost/join", "u2", map[string]any{
		"displayName": "Guest",
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestPromoteRequiresModerator(t *testing.T) {
	_, store, mux := setupHandlers(t)
	roomID := createRoom(t, mux, "host1")

	doJSON(t, mux, http.MethodPost, "/api/rooms/"+roomID+"/join", "u2", map[string]any{"displayName": "Guest"})
	doJSON(t, mux, http.MethodPost, "/api/rooms/"+roomID+"/join", "u3", map[string]any{"displayName": "Other"})

	// A listener cannot promote.
	w := doJSON(t, mux, http.MethodPost, "/api/rooms/"+roomID+"/promote", "u3", map[string]any{"uid": "u2"})
	if w.Code != http.StatusForbidden {
		t.Errorf("listener promote: status = %d, want 403", w.Code)
	}

	// The host can.
	w = doJSON(t, mux, http.MethodPost, "/api/rooms/"+roomID+"/promote", "host1", map[string]any{"uid": "u2"})
	if w.Code != http.StatusNoContent {
		t.Errorf("host promote: status = %d, want 204", w.Code)
	}

	state, err := store.Read(context.Background(), roomID)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !state.IsSpeaker("u2") {
		t.Error("u2 not promoted")
	}
}

func TestModerationOnAbsentRoomIsSkipped(t *testing.T) {
	_, _, mux := setupHandlers(t)

	w := doJSON(t, mux, http.MethodPost, "/api/rooms/ghost/promote", "host1", map[string]any{"uid": "u2"})
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204 (silent skip)", w.Code)
	}
}

func TestCloseRoomHostOnly(t *testing.T) {
	_, store, mux := setupHandlers(t)
	roomID := createRoom(t, mux, "host1")

	doJSON(t, mux, http.MethodPost, "/api/rooms/"+roomID+"/join", "u2", map[string]any{"displayName": "Guest"})

	w := doJSON(t, mux, http.MethodDelete, "/api/rooms/"+roomID, "u2", nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("non-host close: status = %d, want 403", w.Code)
	}

	w = doJSON(t, mux, http.MethodDelete, "/api/rooms/"+roomID, "host1", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("host close: status = %d, want 204", w.Code)
	}

	if _, err := store.Read(context.Background(), roomID); err != domain.ErrRoomStateNotFound {
		t.Errorf("state still present after close: err = %v", err)
	}

	// Closing again is quiet.
	w = doJSON(t, mux, http.MethodDelete, "/api/rooms/"+roomID, "host1", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("second close: status = %d, want 204", w.Code)
	}
}

func TestLeaveSyncsParticipantCount(t *testing.T) {
	h, _, mux := setupHandlers(t)
	roomID := createRoom(t, mux, "host1")

	doJSON(t, mux, http.MethodPost, "/api/rooms/"+roomID+"/join", "u2", map[string]any{"displayName": "Guest"})

	w := doJSON(t, mux, http.MethodPost, "/api/rooms/"+roomID+"/leave", "u2", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("leave: status = %d", w.Code)
	}

	room, err := h.catalog.GetByID(context.Background(), roomID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if room.ParticipantCount != 1 {
		t.Errorf("participantCount = %d, want 1", room.ParticipantCount)
	}
}

func TestMuteSelf(t *testing.T) {
	_, store, mux := setupHandlers(t)
	roomID := createRoom(t, mux, "host1")

	w := doJSON(t, mux, http.MethodPost, "/api/rooms/"+roomID+"/mute", "host1", map[string]any{"isMuted": true})
	if w.Code != http.StatusNoContent {
		t.Fatalf("mute: status = %d", w.Code)
	}

	state, err := store.Read(context.Background(), roomID)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !state.Members["host1"].IsMuted {
		t.Error("host not muted")
	}
}

func TestGrantAndRevokeModerator(t *testing.T) {
	_, store, mux := setupHandlers(t)
	roomID := createRoom(t, mux, "host1")

	doJSON(t, mux, http.MethodPost, "/api/rooms/"+roomID+"/join", "u2", map[string]any{"displayName": "Guest"})
	doJSON(t, mux, http.MethodPost, "/api/rooms/"+roomID+"/promote", "host1", map[string]any{"uid": "u2"})

	w := doJSON(t, mux, http.MethodPost, "/api/rooms/"+roomID+"/moderators", "host1", map[string]any{"uid": "u2"})
	if w.Code != http.StatusNoContent {
		t.Fatalf("grant: status = %d", w.Code)
	}

	state, _ := store.Read(context.Background(), roomID)
	if !state.IsModerator("u2") {
		t.Fatal("u2 not a moderator after grant")
	}

	// Revoking the host stays a no-op.
	w = doJSON(t, mux, http.MethodDelete, "/api/rooms/"+roomID+"/moderators/host1", "u2", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("revoke host: status = %d", w.Code)
	}
	state, _ = store.Read(context.Background(), roomID)
	if !state.IsModerator("host1") {
		t.Error("host lost moderation")
	}

	w = doJSON(t, mux, http.MethodDelete, "/api/rooms/"+roomID+"/moderators/u2", "host1", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("revoke u2: status = %d", w.Code)
	}
	state, _ = store.Read(context.Background(), roomID)
	if state.IsModerator("u2") {
		t.Error("u2 still a moderator after revoke")
	}
}

func TestListRooms(t *testing.T) {
	_, _, mux := setupHandlers(t)
	createRoom(t, mux, "host1")

	w := doJSON(t, mux, http.MethodGet, "/api/rooms/", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: status = %d", w.Code)
	}

	var resp struct {
		Rooms []domain.Room `json:"rooms"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(resp.Rooms) != 1 {
		t.Errorf("rooms = %d, want 1", len(resp.Rooms))
	}
}
