package upstream

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// Session holds the caller's platform tokens. It replaces ambient token state:
// the client reads from it and writes refreshed tokens back to it.
type Session struct {
	mu       sync.RWMutex
	tok      *oauth2.Token
	onChange func(*oauth2.Token)
}

func NewSession() *Session {
	return &Session{}
}

// OnChange registers fn to be called after every login or logout. Logout
// passes nil.
func (s *Session) OnChange(fn func(*oauth2.Token)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Session) Login(tok *oauth2.Token) {
	if tok == nil || tok.AccessToken == "" {
		s.Logout()
		return
	}
	cp := *tok
	if cp.TokenType == "" {
		cp.TokenType = "Bearer"
	}

	s.mu.Lock()
	s.tok = &cp
	fn := s.onChange
	s.mu.Unlock()

	if fn != nil {
		out := cp
		fn(&out)
	}
}

// LoginTokens logs in with raw tokens. The expiry is read from the access
// token's exp claim when it is a JWT.
func (s *Session) LoginTokens(access, refresh string) {
	s.Login(&oauth2.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		Expiry:       tokenExpiry(access),
	})
}

func (s *Session) Logout() {
	s.mu.Lock()
	had := s.tok != nil
	s.tok = nil
	fn := s.onChange
	s.mu.Unlock()

	if had && fn != nil {
		fn(nil)
	}
}

// Token returns a copy of the current token.
func (s *Session) Token() (*oauth2.Token, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tok == nil {
		return nil, false
	}
	cp := *s.tok
	return &cp, true
}

func (s *Session) LoggedIn() bool {
	_, ok := s.Token()
	return ok
}

func (s *Session) CanRefresh() bool {
	tok, ok := s.Token()
	return ok && tok.RefreshToken != ""
}

func tokenExpiry(access string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, claims); err != nil {
		return time.Time{}
	}
	nd, err := claims.GetExpirationTime()
	if err != nil || nd == nil {
		return time.Time{}
	}
	return nd.Time
}
