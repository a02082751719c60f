package utils

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

const CookieNameMemberUID = "member_uid"

// FormatRoomPath builds the canonical API path for a room, used as the
// Location of newly created rooms.
func FormatRoomPath(roomID string) string {
	return fmt.Sprintf("/api/rooms/%s", url.QueryEscape(roomID))
}

// EnsureMemberUID returns the caller's stable identity, minting and
// setting a new one when the cookie is absent.
func EnsureMemberUID(w http.ResponseWriter, r *http.Request) string {
	if uid := GetMemberUIDFromRequest(r); uid != "" {
		return uid
	}
	newUID := uuid.New().String()
	SetPersistentMemberUIDCookie(newUID, w)
	return newUID
}

func GetMemberUIDFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(CookieNameMemberUID)
	if err != nil {
		return ""
	}
	decoded, err := base64.StdEncoding.DecodeString(cookie.Value)
	if err != nil {
		return ""
	}
	return string(decoded)
}

func SetPersistentMemberUIDCookie(memberUID string, w http.ResponseWriter) {
	expires := time.Now().Add(30 * 24 * time.Hour)
	http.SetCookie(w, &http.Cookie{
		Name:     CookieNameMemberUID,
		Value:    base64.StdEncoding.EncodeToString([]byte(memberUID)),
		Path:     "/",
		HttpOnly: true,
		Expires:  expires,
		SameSite: http.SameSiteLaxMode,
		Secure:   true,
	})
}

func GetMemberUIDFromRequest(r *http.Request) string {
	// First try header (for API clients)
	if uid := r.Header.Get("X-Member-UID"); uid != "" {
		return uid
	}

	// Fall back to cookie (for browsers and WebSocket)
	return GetMemberUIDFromCookie(r)
}
