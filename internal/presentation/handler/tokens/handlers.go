package tokens

import (
	"errors"
	"net/http"

	"github.com/amachi/voicedeck/internal/domain"
	"github.com/amachi/voicedeck/internal/infrastructure/json"
	"github.com/amachi/voicedeck/internal/token"
)

type Handler struct {
	tokens *token.Service
}

func NewHandler(tokens *token.Service) *Handler {
	return &Handler{tokens: tokens}
}

// IssueTokenHandler mints a media access token for the given room and
// username. Publish rights follow the role query parameter: host,
// moderator and speaker publish, everyone else listens.
func (h *Handler) IssueTokenHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	room := q.Get("room")
	username := q.Get("username")
	if room == "" || username == "" {
		json.WriteBadRequestError(w, "room and username are required")
		return
	}

	roleStr := q.Get("role")
	if roleStr == "" {
		roleStr = string(domain.RoleListener)
	}
	role := domain.Role(roleStr)

	signed, err := h.tokens.Mint(room, username, username, role)
	if err != nil {
		if errors.Is(err, token.ErrMissingCredentials) {
			json.WriteError(w, http.StatusInternalServerError, err, "Media credentials are not configured")
			return
		}
		json.WriteInternalError(w, err)
		return
	}

	json.Write(w, http.StatusOK, tokenResponse{
		Token:      signed,
		Role:       roleStr,
		CanPublish: role.CanPublish(),
	})
}
