package rooms

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/amachi/voicedeck/internal/coordinator"
	"github.com/amachi/voicedeck/internal/domain"
	"github.com/amachi/voicedeck/internal/infrastructure/json"
	"github.com/amachi/voicedeck/internal/infrastructure/ws"
	"github.com/amachi/voicedeck/internal/presentation/utils"
)

type Handler struct {
	catalog   domain.RoomCatalog
	store     domain.RoomStateStore
	coord     *coordinator.Coordinator
	core      *ws.Core
	listLimit int
}

func NewHandler(
	catalog domain.RoomCatalog,
	store domain.RoomStateStore,
	coord *coordinator.Coordinator,
	core *ws.Core,
	listLimit int,
) *Handler {
	return &Handler{
		catalog:   catalog,
		store:     store,
		coord:     coord,
		core:      core,
		listLimit: listLimit,
	}
}

// CreateRoomHandler creates a catalog entry and initializes the live
// room state with the caller as host.
func (h *Handler) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	hostUID := utils.EnsureMemberUID(w, r)

	user, err := domain.NewUser(req.Username)
	if err != nil {
		json.WriteValidationError(w, err)
		return
	}

	newRoom, err := domain.NewRoom(hostUID, user.DisplayName, req.Name, req.Description, req.IsPublic, req.Tags)
	if err != nil {
		json.WriteValidationError(w, err)
		return
	}

	ctx := r.Context()
	if err := h.catalog.Create(ctx, newRoom); err != nil {
		switch {
		case errors.Is(err, domain.ErrRoomAlreadyExists):
			json.WriteError(w, http.StatusConflict, err, "Room already exists")
		default:
			log.Printf("Repository error creating room %s: %v", newRoom.ID, err)
			json.WriteInternalError(w, err)
		}
		return
	}

	if err := h.coord.Initialize(ctx, newRoom.ID, hostUID, user.DisplayName); err != nil {
		log.Printf("Failed to initialize room state %s: %v", newRoom.ID, err)
		json.WriteInternalError(w, err)
		return
	}

	w.Header().Set("Location", utils.FormatRoomPath(newRoom.ID))
	json.Write(w, http.StatusCreated, createRoomResponse{
		RoomID:          newRoom.ID,
		Name:            newRoom.Name,
		HostUID:         hostUID,
		LivekitRoomName: newRoom.LivekitRoomName,
		IsPublic:        newRoom.IsPublic,
		CreatedAt:       newRoom.CreatedAt,
	})
}

// ListRoomsHandler returns active public rooms, newest first.
func (h *Handler) ListRoomsHandler(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.catalog.ListActive(r.Context(), h.listLimit)
	if err != nil {
		log.Printf("Failed to list rooms: %v", err)
		json.WriteInternalError(w, err)
		return
	}

	json.Write(w, http.StatusOK, listRoomsResponse{Rooms: rooms})
}

// GetRoomHandler returns the catalog entry plus the live state when the
// room is still open.
func (h *Handler) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	if roomID == "" {
		json.WriteValidationError(w, errors.New("room ID is missing"))
		return
	}

	room, err := h.catalog.GetByID(r.Context(), roomID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRoomNotFound):
			json.WriteNotFoundError(w, "Room not found")
		default:
			log.Printf("Failed to find room: %v", err)
			json.WriteInternalError(w, err)
		}
		return
	}

	resp := roomResponse{Room: room}

	state, err := h.store.Read(r.Context(), roomID)
	if err == nil {
		resp.State = state.Clone().Normalize()
	} else if !errors.Is(err, domain.ErrRoomStateNotFound) {
		log.Printf("Failed to read room state %s: %v", roomID, err)
	}

	json.Write(w, http.StatusOK, resp)
}

func (h *Handler) JoinRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	if roomID == "" {
		json.WriteValidationError(w, errors.New("room ID is missing"))
		return
	}

	var req joinRoomRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}
	if req.DisplayName == "" {
		json.WriteValidationError(w, errors.New("displayName is required"))
		return
	}

	uid := utils.EnsureMemberUID(w, r)

	room, err := h.catalog.GetByID(r.Context(), roomID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRoomNotFound):
			json.WriteNotFoundError(w, "Room not found")
		default:
			log.Printf("Failed to find room: %v", err)
			json.WriteInternalError(w, err)
		}
		return
	}
	if !room.IsActive {
		json.WriteError(w, http.StatusGone, domain.ErrRoomClosed, "Room is closed")
		return
	}

	if err := h.coord.JoinAsListener(r.Context(), roomID, uid, req.DisplayName); err != nil {
		log.Printf("Failed to join room %s: %v", roomID, err)
		json.WriteInternalError(w, err)
		return
	}

	role := string(domain.RoleListener)
	if state, err := h.store.Read(r.Context(), roomID); err == nil {
		if member, ok := state.Members[uid]; ok {
			role = string(member.Role)
		}
		h.syncParticipantCount(r.Context(), roomID, state)
	}

	json.Write(w, http.StatusOK, joinRoomResponse{
		RoomID: roomID,
		UID:    uid,
		Role:   role,
	})
}

func (h *Handler) SetHandRaisedHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	if roomID == "" {
		json.WriteValidationError(w, errors.New("room ID is missing"))
		return
	}

	var req handRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	uid := utils.GetMemberUIDFromRequest(r)
	if uid == "" {
		json.WriteError(w, http.StatusUnauthorized, errors.New("unauthorized"), "Missing or invalid authentication")
		return
	}

	if err := h.coord.SetHandRaised(r.Context(), roomID, uid, req.Raised); err != nil {
		log.Printf("Failed to set hand state in room %s: %v", roomID, err)
		json.WriteInternalError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) PromoteHandler(w http.ResponseWriter, r *http.Request) {
	roomID, target, ok := h.moderatorAction(w, r)
	if !ok {
		return
	}

	if err := h.coord.PromoteToSpeaker(r.Context(), roomID, target); err != nil {
		log.Printf("Failed to promote %s in room %s: %v", target, roomID, err)
		json.WriteInternalError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DemoteHandler(w http.ResponseWriter, r *http.Request) {
	roomID, target, ok := h.moderatorAction(w, r)
	if !ok {
		return
	}

	if err := h.coord.DemoteToListener(r.Context(), roomID, target); err != nil {
		log.Printf("Failed to demote %s in room %s: %v", target, roomID, err)
		json.WriteInternalError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GrantModeratorHandler(w http.ResponseWriter, r *http.Request) {
	roomID, target, ok := h.moderatorAction(w, r)
	if !ok {
		return
	}

	if err := h.coord.GrantModerator(r.Context(), roomID, target); err != nil {
		log.Printf("Failed to grant moderator to %s in room %s: %v", target, roomID, err)
		json.WriteInternalError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RevokeModeratorHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	target := chi.URLParam(r, "uid")
	if roomID == "" || target == "" {
		json.WriteValidationError(w, errors.New("room ID and uid are required"))
		return
	}

	state, ok := h.requireModerator(w, r, roomID)
	if !ok {
		return
	}

	if err := h.coord.RevokeModerator(r.Context(), roomID, target, state.HostUID); err != nil {
		log.Printf("Failed to revoke moderator %s in room %s: %v", target, roomID, err)
		json.WriteInternalError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MuteHandler updates the caller's own mute flag.
func (h *Handler) MuteHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	if roomID == "" {
		json.WriteValidationError(w, errors.New("room ID is missing"))
		return
	}

	var req muteRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	uid := utils.GetMemberUIDFromRequest(r)
	if uid == "" {
		json.WriteError(w, http.StatusUnauthorized, errors.New("unauthorized"), "Missing or invalid authentication")
		return
	}

	if err := h.coord.UpdateMuteState(r.Context(), roomID, uid, req.IsMuted); err != nil {
		log.Printf("Failed to update mute state in room %s: %v", roomID, err)
		json.WriteInternalError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) LeaveRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	if roomID == "" {
		json.WriteValidationError(w, errors.New("room ID is missing"))
		return
	}

	uid := utils.GetMemberUIDFromRequest(r)
	if uid == "" {
		json.WriteError(w, http.StatusUnauthorized, errors.New("unauthorized"), "Missing or invalid authentication")
		return
	}

	// Best-effort by contract: a disconnect proceeds whether or not the
	// state mutation lands.
	if err := h.coord.LeaveRoom(r.Context(), roomID, uid); err != nil {
		log.Printf("Failed to leave room %s: %v", roomID, err)
	}

	if state, err := h.store.Read(r.Context(), roomID); err == nil {
		h.syncParticipantCount(r.Context(), roomID, state)
	}

	w.WriteHeader(http.StatusNoContent)
}

// CloseRoomHandler tears the room down: catalog entry closed, live
// state deleted, subscribers notified.
func (h *Handler) CloseRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	if roomID == "" {
		json.WriteValidationError(w, errors.New("room ID is missing"))
		return
	}

	uid := utils.GetMemberUIDFromRequest(r)
	if uid == "" {
		json.WriteError(w, http.StatusUnauthorized, errors.New("unauthorized"), "Missing or invalid authentication")
		return
	}

	state, err := h.store.Read(r.Context(), roomID)
	if err != nil {
		if errors.Is(err, domain.ErrRoomStateNotFound) {
			// Already gone; closing twice is not an error.
			w.WriteHeader(http.StatusNoContent)
			return
		}
		log.Printf("Failed to read room state %s: %v", roomID, err)
		json.WriteInternalError(w, err)
		return
	}

	if state.HostUID != uid {
		json.WriteError(w, http.StatusForbidden, errors.New("forbidden"), "Only the host can close the room")
		return
	}

	if _, err := h.catalog.Close(r.Context(), roomID); err != nil && !errors.Is(err, domain.ErrRoomNotFound) {
		log.Printf("Failed to close catalog entry %s: %v", roomID, err)
	}

	if err := h.coord.CloseRoom(r.Context(), roomID); err != nil {
		log.Printf("Failed to close room %s: %v", roomID, err)
		json.WriteInternalError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SubscribeHandler upgrades to WebSocket and attaches the caller to the
// room's live state feed.
func (h *Handler) SubscribeHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	if roomID == "" {
		json.WriteValidationError(w, errors.New("room ID is missing"))
		return
	}

	uid := utils.EnsureMemberUID(w, r)

	conn, err := h.core.RoomManager().Upgrade(w, r)
	if err != nil {
		log.Printf("WebSocket upgrade failed for room %s: %v", roomID, err)
		return
	}

	client := ws.NewClient(conn, uid, roomID)
	h.core.Register() <- client

	go client.WriteMessage()
	go client.ReadMessage(h.core)
}

// moderatorAction decodes the target uid and checks the caller may
// moderate the room. ok=false means a response has been written.
func (h *Handler) moderatorAction(w http.ResponseWriter, r *http.Request) (roomID, target string, ok bool) {
	roomID = chi.URLParam(r, "roomId")
	if roomID == "" {
		json.WriteValidationError(w, errors.New("room ID is missing"))
		return "", "", false
	}

	var req targetRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return "", "", false
	}
	if req.UID == "" {
		json.WriteValidationError(w, errors.New("uid is required"))
		return "", "", false
	}

	if _, modOK := h.requireModerator(w, r, roomID); !modOK {
		return "", "", false
	}

	return roomID, req.UID, true
}

// requireModerator loads the room state and verifies the caller is a
// moderator. An absent room writes 204: late-arriving moderation on a
// closed room is a legitimate skip, not an error.
func (h *Handler) requireModerator(w http.ResponseWriter, r *http.Request, roomID string) (*domain.RoomState, bool) {
	uid := utils.GetMemberUIDFromRequest(r)
	if uid == "" {
		json.WriteError(w, http.StatusUnauthorized, errors.New("unauthorized"), "Missing or invalid authentication")
		return nil, false
	}

	state, err := h.store.Read(r.Context(), roomID)
	if err != nil {
		if errors.Is(err, domain.ErrRoomStateNotFound) {
			w.WriteHeader(http.StatusNoContent)
			return nil, false
		}
		log.Printf("Failed to read room state %s: %v", roomID, err)
		json.WriteInternalError(w, err)
		return nil, false
	}

	if !state.IsModerator(uid) {
		json.WriteError(w, http.StatusForbidden, errors.New("forbidden"), "Moderator privileges required")
		return nil, false
	}

	return state, true
}

func (h *Handler) syncParticipantCount(ctx context.Context, roomID string, state *domain.RoomState) {
	if state == nil {
		return
	}
	if err := h.catalog.SetParticipantCount(ctx, roomID, len(state.Members)); err != nil &&
		!errors.Is(err, domain.ErrRoomNotFound) {
		log.Printf("Failed to sync participant count for room %s: %v", roomID, err)
	}
}
