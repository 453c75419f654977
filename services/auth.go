package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ssaemtalk/server/models"
	"github.com/ssaemtalk/server/store"
	"github.com/ssaemtalk/server/utils"
)

// SignupInput is the body of a credential signup.
type SignupInput struct {
	Name              string              `json:"name" binding:"required,min=2,max=50"`
	Email             string              `json:"email" binding:"required,email"`
	Password          string              `json:"password" binding:"required,min=6,max=100"`
	Role              models.Role         `json:"type" binding:"required"`
	TeacherLevel      models.TeacherLevel `json:"teacherType"`
	YearsOfExperience *int                `json:"yearsOfExperience" binding:"omitempty,min=0,max=50"`
	Bio               string              `json:"bio" binding:"max=500"`
}

// LoginInput is the body of a credential login.
type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// SocialLoginInput describes an identity asserted by a social provider.
type SocialLoginInput struct {
	Provider     string `json:"provider" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Name         string `json:"name"`
	ProfileImage string `json:"profileImage"`
	AccessToken  string `json:"accessToken"`
}

// CompleteSocialSignupInput fills in the profile of a placeholder account.
type CompleteSocialSignupInput struct {
	Email             string              `json:"email" binding:"required,email"`
	Name              string              `json:"name" binding:"omitempty,min=2,max=50"`
	Role              models.Role         `json:"type" binding:"required"`
	TeacherLevel      models.TeacherLevel `json:"teacherType"`
	YearsOfExperience *int                `json:"yearsOfExperience" binding:"omitempty,min=0,max=50"`
}

// UpdateProfileInput carries optional profile edits; nil fields are left unchanged.
type UpdateProfileInput struct {
	Name              *string              `json:"name" binding:"omitempty,min=2,max=50"`
	Bio               *string              `json:"bio" binding:"omitempty,max=500"`
	Avatar            *string              `json:"avatar" binding:"omitempty,max=512"`
	YearsOfExperience *int                 `json:"yearsOfExperience" binding:"omitempty,min=0,max=50"`
	TeacherLevel      *models.TeacherLevel `json:"teacherType"`
}

// AuthResult is returned by every operation that issues tokens.
type AuthResult struct {
	User      *models.User    `json:"user"`
	Tokens    utils.TokenPair `json:"tokens"`
	IsNewUser bool            `json:"isNewUser,omitempty"`
}

// ProfileVerifier resolves the identity behind a provider access token.
type ProfileVerifier interface {
	VerifyAccessToken(ctx context.Context, provider, accessToken string) (*SocialProfile, error)
}

// AuthService implements signup, login, social login and token lifecycle.
type AuthService struct {
	users    store.UserStore
	verifier ProfileVerifier
}

// NewAuthService creates an AuthService without a provider token verifier.
func NewAuthService(users store.UserStore) *AuthService {
	return &AuthService{users: users}
}

// SetVerifier enables provider access token checks on social login.
func (s *AuthService) SetVerifier(v ProfileVerifier) {
	s.verifier = v
}

func validateRoleFields(role models.Role, level models.TeacherLevel) error {
	if !role.Valid() {
		return utils.BadRequest("type은 mentor 또는 mentee여야 합니다.")
	}
	if level != "" && !level.Valid() {
		return utils.BadRequest("teacherType은 초등학교, 중학교, 고등학교 중 하나여야 합니다.")
	}
	if role == models.RoleMentor && level == "" {
		return utils.BadRequest("멘토는 teacherType이 필요합니다.")
	}
	return nil
}

// Signup creates a credential account and issues tokens.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	if err := validateRoleFields(in.Role, in.TeacherLevel); err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, utils.Internal(err)
	}
	user := &models.User{
		Name:              utils.SanitizePlain(in.Name),
		Email:             models.NormalizeEmail(in.Email),
		PasswordHash:      hash,
		Role:              in.Role,
		TeacherLevel:      in.TeacherLevel,
		YearsOfExperience: in.YearsOfExperience,
		Bio:               utils.SanitizePlain(in.Bio),
		Provider:          models.ProviderLocal,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, utils.Conflict(utils.CodeEmailTaken, "이미 가입된 이메일입니다.")
		}
		return nil, utils.Internal(err)
	}
	return s.issue(ctx, user, false)
}

func invalidCredentials() error {
	return utils.NewError(http.StatusUnauthorized, utils.CodeInvalidCredentials, "이메일 또는 비밀번호가 올바르지 않습니다.")
}

// Login checks credentials. A missing user and a wrong password fail the same way.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	user, err := s.users.GetUserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, invalidCredentials()
		}
		return nil, utils.Internal(err)
	}
	if !utils.CheckPassword(user.PasswordHash, in.Password) {
		return nil, invalidCredentials()
	}
	return s.issue(ctx, user, false)
}

// SocialLogin reuses the account registered under the email or creates an
// unverified mentee placeholder that must be completed later.
func (s *AuthService) SocialLogin(ctx context.Context, in SocialLoginInput) (*AuthResult, error) {
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" || provider == models.ProviderLocal {
		return nil, utils.BadRequest("provider가 올바르지 않습니다.")
	}
	if s.verifier != nil && in.AccessToken != "" {
		profile, err := s.verifier.VerifyAccessToken(ctx, provider, in.AccessToken)
		if err != nil {
			return nil, utils.NewError(http.StatusUnauthorized, utils.CodeInvalidToken, "소셜 토큰을 확인할 수 없습니다.")
		}
		if models.NormalizeEmail(profile.Email) != models.NormalizeEmail(in.Email) {
			return nil, utils.NewError(http.StatusUnauthorized, utils.CodeInvalidToken, "소셜 계정의 이메일이 일치하지 않습니다.")
		}
	}

	user, err := s.users.GetUserByEmail(ctx, in.Email)
	if err == nil {
		return s.issue(ctx, user, false)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, utils.Internal(err)
	}

	hash, err := utils.HashPassword(utils.RandomPassword())
	if err != nil {
		return nil, utils.Internal(err)
	}
	name := utils.SanitizePlain(in.Name)
	if name == "" {
		name = strings.SplitN(in.Email, "@", 2)[0]
	}
	user = &models.User{
		Name:         name,
		Email:        in.Email,
		PasswordHash: hash,
		Avatar:       in.ProfileImage,
		Role:         models.RoleMentee,
		Provider:     provider,
		IsVerified:   false,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// another request created it first
			existing, getErr := s.users.GetUserByEmail(ctx, in.Email)
			if getErr != nil {
				return nil, utils.Internal(getErr)
			}
			return s.issue(ctx, existing, false)
		}
		return nil, utils.Internal(err)
	}
	return s.issue(ctx, user, true)
}

// CompleteSocialSignup sets the role-specific profile of a social placeholder
// account and marks it verified. Any other account answers 404.
func (s *AuthService) CompleteSocialSignup(ctx context.Context, in CompleteSocialSignupInput) (*AuthResult, error) {
	if err := validateRoleFields(in.Role, in.TeacherLevel); err != nil {
		return nil, err
	}
	user, err := s.users.GetUserByEmail(ctx, in.Email)
	if err != nil {
		return nil, notFound(err, "가입 정보를 찾을 수 없습니다.")
	}
	// only a social placeholder that was never completed can be claimed here
	if !user.IsSocialPlaceholder() {
		return nil, utils.NotFound("가입 정보를 찾을 수 없습니다.")
	}
	if name := utils.SanitizePlain(in.Name); name != "" {
		user.Name = name
	}
	user.Role = in.Role
	user.TeacherLevel = in.TeacherLevel
	user.YearsOfExperience = in.YearsOfExperience
	user.IsVerified = true
	if err := s.users.SaveUser(ctx, user); err != nil {
		return nil, utils.Internal(err)
	}
	return s.issue(ctx, user, false)
}

func invalidRefresh() error {
	return utils.NewError(http.StatusUnauthorized, utils.CodeInvalidToken, "유효하지 않은 리프레시 토큰입니다.")
}

// Refresh rotates both tokens. The presented token must be the one stored for the user.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (utils.TokenPair, error) {
	claims, err := utils.ParseRefreshToken(refreshToken)
	if err != nil {
		return utils.TokenPair{}, invalidRefresh()
	}
	user, err := s.users.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return utils.TokenPair{}, invalidRefresh()
		}
		return utils.TokenPair{}, utils.Internal(err)
	}
	if user.RefreshToken == "" || user.RefreshToken != refreshToken {
		return utils.TokenPair{}, invalidRefresh()
	}
	res, err := s.issue(ctx, user, false)
	if err != nil {
		return utils.TokenPair{}, err
	}
	return res.Tokens, nil
}

// Logout clears the stored refresh token and revokes the access token identified by jti.
func (s *AuthService) Logout(ctx context.Context, userID uint, jti string, expiresAt time.Time) error {
	if err := s.users.SetRefreshToken(ctx, userID, ""); err != nil && !errors.Is(err, store.ErrNotFound) {
		return utils.Internal(err)
	}
	utils.BlacklistToken(ctx, jti, expiresAt)
	return nil
}

// Profile returns the current user.
func (s *AuthService) Profile(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, notFound(err, "사용자를 찾을 수 없습니다.")
	}
	return user, nil
}

// UpdateProfile applies the non-nil fields of in. Cached post lists embed
// author summaries, so they are dropped when the summary changes.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uint, in UpdateProfileInput) (*models.User, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, notFound(err, "사용자를 찾을 수 없습니다.")
	}
	before := *user.Summary()
	if in.Name != nil {
		name := utils.SanitizePlain(*in.Name)
		if len([]rune(name)) < 2 {
			return nil, utils.BadRequest("이름은 2자 이상이어야 합니다.")
		}
		user.Name = name
	}
	if in.Bio != nil {
		user.Bio = utils.SanitizePlain(*in.Bio)
	}
	if in.Avatar != nil {
		user.Avatar = strings.TrimSpace(*in.Avatar)
	}
	if in.YearsOfExperience != nil {
		years := *in.YearsOfExperience
		user.YearsOfExperience = &years
	}
	if in.TeacherLevel != nil {
		if *in.TeacherLevel == "" && user.Role == models.RoleMentor {
			return nil, utils.BadRequest("멘토는 teacherType이 필요합니다.")
		}
		if *in.TeacherLevel != "" && !in.TeacherLevel.Valid() {
			return nil, utils.BadRequest("teacherType은 초등학교, 중학교, 고등학교 중 하나여야 합니다.")
		}
		user.TeacherLevel = *in.TeacherLevel
	}
	if err := s.users.SaveUser(ctx, user); err != nil {
		return nil, utils.Internal(err)
	}
	if *user.Summary() != before {
		invalidateLists(ctx)
	}
	return user, nil
}

// issue creates a token pair and stores the refresh token as the only valid one.
func (s *AuthService) issue(ctx context.Context, user *models.User, isNew bool) (*AuthResult, error) {
	tokens, err := utils.GenerateTokenPair(user)
	if err != nil {
		return nil, utils.Internal(err)
	}
	if err := s.users.SetRefreshToken(ctx, user.ID, tokens.RefreshToken); err != nil {
		return nil, utils.Internal(err)
	}
	user.RefreshToken = tokens.RefreshToken
	return &AuthResult{User: user, Tokens: tokens, IsNewUser: isNew}, nil
}
