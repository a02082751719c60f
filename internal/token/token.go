package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/amachi/voicedeck/internal/domain"
)

const defaultTTL = 2 * time.Hour

var ErrMissingCredentials = errors.New("media credentials are not configured")

// Service mints room access tokens for the media server. Tokens are
// HS256-signed with the shared API secret, issuer set to the API key
// and subject to the participant identity.
type Service struct {
	apiKey    string
	apiSecret string
	ttl       time.Duration
}

func NewService(apiKey, apiSecret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Service{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		ttl:       ttl,
	}
}

func (s *Service) Configured() bool {
	return s.apiKey != "" && s.apiSecret != ""
}

// VideoGrant mirrors the media server's room grant claim.
type VideoGrant struct {
	RoomJoin       bool   `json:"roomJoin"`
	Room           string `json:"room"`
	CanPublish     bool   `json:"canPublish"`
	CanSubscribe   bool   `json:"canSubscribe"`
	CanPublishData bool   `json:"canPublishData"`
}

func grantFor(role domain.Role, livekitRoom string) VideoGrant {
	return VideoGrant{
		RoomJoin:       true,
		Room:           livekitRoom,
		CanPublish:     role.CanPublish(),
		CanSubscribe:   true,
		CanPublishData: true,
	}
}

// Mint builds a signed access token granting identity entry to the
// given media room with publish rights derived from role.
func (s *Service) Mint(livekitRoom, identity, displayName string, role domain.Role) (string, error) {
	if !s.Configured() {
		return "", ErrMissingCredentials
	}

	now := time.Now()

	b := jwt.NewBuilder().
		Issuer(s.apiKey).
		Subject(identity).
		NotBefore(now).
		Expiration(now.Add(s.ttl))

	tok, err := b.Build()
	if err != nil {
		return "", err
	}

	grant := grantFor(role, livekitRoom)
	if err = tok.Set("video", map[string]any{
		"roomJoin":       grant.RoomJoin,
		"room":           grant.Room,
		"canPublish":     grant.CanPublish,
		"canSubscribe":   grant.CanSubscribe,
		"canPublishData": grant.CanPublishData,
	}); err != nil {
		return "", fmt.Errorf("unable to set `video` claim: %w", err)
	}

	if displayName != "" {
		if err = tok.Set("name", displayName); err != nil {
			return "", fmt.Errorf("unable to set `name` claim: %w", err)
		}
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte(s.apiSecret)))
	if err != nil {
		return "", err
	}

	return string(signed), nil
}

// Parse validates a token minted by this service. Used by tests and
// diagnostic tooling.
func (s *Service) Parse(raw string) (jwt.Token, error) {
	return jwt.Parse([]byte(raw),
		jwt.WithKey(jwa.HS256, []byte(s.apiSecret)),
		jwt.WithValidate(true),
	)
}
