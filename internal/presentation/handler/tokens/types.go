package tokens

// tokenResponse carries a signed media access token.
type tokenResponse struct {
	Token      string `json:"token"`
	Role       string `json:"role"`
	CanPublish bool   `json:"canPublish"`
}
