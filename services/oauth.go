package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"

	"github.com/ssaemtalk/server/config"
	"github.com/ssaemtalk/server/utils"
)

const oauthStateTTL = 10 * time.Minute

// SocialProfile is the identity a provider reports for an access token.
type SocialProfile struct {
	Provider string
	ID       string
	Email    string
	Name     string
	Avatar   string
}

// OAuthProvider couples an oauth2 config with the endpoints that describe the user.
type OAuthProvider struct {
	Name      string
	Config    *oauth2.Config
	UserURL   string
	EmailsURL string
}

// OAuthService runs the server-side authorization code flow and
// checks provider access tokens presented on social login.
type OAuthService struct {
	auth      *AuthService
	providers map[string]*OAuthProvider
}

// NewOAuthService builds providers from config. Providers without a client id are left out.
func NewOAuthService(auth *AuthService) *OAuthService {
	cfg := config.Get()
	s := &OAuthService{auth: auth, providers: map[string]*OAuthProvider{}}
	base := strings.TrimRight(cfg.OAuthRedirectBase, "/")
	if cfg.GitHubClientID != "" {
		s.Register(&OAuthProvider{
			Name: "github",
			Config: &oauth2.Config{
				ClientID:     cfg.GitHubClientID,
				ClientSecret: cfg.GitHubClientSecret,
				RedirectURL:  base + "/api/auth/oauth/github/callback",
				Scopes:       []string{"read:user", "user:email"},
				Endpoint:     github.Endpoint,
			},
			UserURL:   "https://api.github.com/user",
			EmailsURL: "https://api.github.com/user/emails",
		})
	}
	if cfg.GoogleClientID != "" {
		s.Register(&OAuthProvider{
			Name: "google",
			Config: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				RedirectURL:  base + "/api/auth/oauth/google/callback",
				Scopes:       []string{"openid", "email", "profile"},
				Endpoint:     google.Endpoint,
			},
			UserURL: "https://www.googleapis.com/oauth2/v3/userinfo",
		})
	}
	if cfg.SocialVerifyTokens {
		auth.SetVerifier(s)
	}
	return s
}

// Register adds or replaces a provider.
func (s *OAuthService) Register(p *OAuthProvider) {
	s.providers[p.Name] = p
}

func (s *OAuthService) provider(name string) (*OAuthProvider, error) {
	p, ok := s.providers[strings.ToLower(name)]
	if !ok {
		return nil, utils.BadRequest(fmt.Sprintf("지원하지 않는 로그인 방식입니다: %s", name))
	}
	return p, nil
}

// AuthURL returns the consent URL for provider together with its single-use state.
func (s *OAuthService) AuthURL(ctx context.Context, provider string) (url, state string, err error) {
	p, err := s.provider(provider)
	if err != nil {
		return "", "", err
	}
	state = uuid.NewString()
	utils.SaveState(ctx, state, oauthStateTTL)
	return p.Config.AuthCodeURL(state, oauth2.AccessTypeOnline), state, nil
}

// Callback consumes state, exchanges code and logs the resolved identity in.
func (s *OAuthService) Callback(ctx context.Context, provider, code, state string) (*AuthResult, error) {
	if code == "" || state == "" {
		return nil, utils.BadRequest("code와 state가 필요합니다.")
	}
	p, err := s.provider(provider)
	if err != nil {
		return nil, err
	}
	if !utils.ConsumeState(ctx, state) {
		return nil, utils.BadRequest("state가 유효하지 않거나 만료되었습니다.")
	}
	token, err := p.Config.Exchange(ctx, code)
	if err != nil {
		return nil, utils.NewError(http.StatusBadGateway, utils.CodeInvalidToken, "인가 코드를 교환하지 못했습니다.")
	}
	profile, err := s.fetchProfile(ctx, p, token)
	if err != nil {
		return nil, utils.NewError(http.StatusBadGateway, utils.CodeInvalidToken, "사용자 정보를 가져오지 못했습니다.")
	}
	if profile.Email == "" {
		return nil, utils.BadRequest("소셜 계정에 이메일이 없습니다.")
	}
	return s.auth.SocialLogin(ctx, SocialLoginInput{
		Provider:     p.Name,
		Email:        profile.Email,
		Name:         profile.Name,
		ProfileImage: profile.Avatar,
	})
}

// VerifyAccessToken implements ProfileVerifier.
func (s *OAuthService) VerifyAccessToken(ctx context.Context, provider, accessToken string) (*SocialProfile, error) {
	p, err := s.provider(provider)
	if err != nil {
		return nil, err
	}
	return s.fetchProfile(ctx, p, &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
}

func (s *OAuthService) fetchProfile(ctx context.Context, p *OAuthProvider, token *oauth2.Token) (*SocialProfile, error) {
	client := p.Config.Client(ctx, token)
	client.Timeout = 10 * time.Second

	if p.Name == "github" {
		var payload struct {
			ID        int64  `json:"id"`
			Login     string `json:"login"`
			Name      string `json:"name"`
			Email     string `json:"email"`
			AvatarURL string `json:"avatar_url"`
		}
		if err := getJSON(ctx, client, p.UserURL, &payload); err != nil {
			return nil, err
		}
		email := payload.Email
		if email == "" && p.EmailsURL != "" {
			email, _ = primaryGitHubEmail(ctx, client, p.EmailsURL)
		}
		return &SocialProfile{
			Provider: p.Name,
			ID:       fmt.Sprintf("%d", payload.ID),
			Email:    email,
			Name:     firstNonEmpty(payload.Name, payload.Login),
			Avatar:   payload.AvatarURL,
		}, nil
	}

	var payload struct {
		Sub     string `json:"sub"`
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := getJSON(ctx, client, p.UserURL, &payload); err != nil {
		return nil, err
	}
	return &SocialProfile{
		Provider: p.Name,
		ID:       firstNonEmpty(payload.Sub, payload.ID),
		Email:    payload.Email,
		Name:     payload.Name,
		Avatar:   payload.Picture,
	}, nil
}

func primaryGitHubEmail(ctx context.Context, client *http.Client, url string) (string, error) {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := getJSON(ctx, client, url, &emails); err != nil {
		return "", err
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	if len(emails) > 0 {
		return emails[0].Email, nil
	}
	return "", nil
}

func getJSON(ctx context.Context, client *http.Client, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
