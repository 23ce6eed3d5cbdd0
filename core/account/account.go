// Package account handles sign-up, sign-in and the caller's own profile.
package account

import (
	"context"
	"strings"

	"Soundbay/apperr"
	"Soundbay/core/activity"
	"Soundbay/core/auth"
	"Soundbay/db"
	"Soundbay/model"
	"Soundbay/repository"
	"Soundbay/storage"
	"Soundbay/validate"
)

// RegisterInput 注册参数，角色只能是 USER 或 SELLER
type RegisterInput struct {
	Email    string     `json:"email" validate:"required,email"`
	Username string     `json:"username" validate:"min=2,max=40"`
	Password string     `json:"password" validate:"min=6,max=64"`
	Role     model.Role `json:"role" validate:"omitempty,oneof=USER SELLER"`
}

// LoginInput 登录参数
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ProfileInput 修改资料
type ProfileInput struct {
	Username string `json:"username" validate:"min=2,max=40"`
}

// PasswordInput 修改密码
type PasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"min=6,max=64"`
}

// Session 注册或登录的结果
type Session struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Service 账户服务
type Service struct {
	users    repository.UserRepository
	tokens   *auth.TokenManager
	files    storage.FileStore
	activity activity.Sink
}

// NewService 创建账户服务
func NewService(users repository.UserRepository, tokens *auth.TokenManager, files storage.FileStore, sink activity.Sink) *Service {
	return &Service{users: users, tokens: tokens, files: files, activity: sink}
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (s *Service) record(ctx context.Context, action, userID string) {
	s.activity.Record(ctx, activity.Entry{
		Action:     action,
		EntityType: activity.EntityUser,
		EntityID:   userID,
		UserID:     userID,
	})
}

func (s *Service) session(user *model.User) (*Session, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: user}, nil
}

// Register 创建账户并直接登录
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Email = normalizeEmail(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if in.Role == "" {
		in.Role = model.RoleUser
	}

	existing, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Conflict("Email already exists")
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &model.User{Email: in.Email, Username: in.Username, PasswordHash: hash, Role: in.Role}
	if err := s.users.Create(ctx, user); err != nil {
		if db.IsDuplicateKey(err) {
			return nil, apperr.Conflict("Email already exists")
		}
		return nil, err
	}

	s.record(ctx, activity.ActionRegister, user.ID)
	return s.session(user)
}

// Login 邮箱密码登录，封禁账户返回 Forbidden
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if user == nil || !auth.CheckPasswordHash(in.Password, user.PasswordHash) {
		return nil, apperr.AuthenticationRequired("Wrong email or password")
	}
	if user.IsBlocked {
		return nil, apperr.Forbidden("Account is blocked")
	}

	s.record(ctx, activity.ActionLogin, user.ID)
	return s.session(user)
}

// Resolve 校验令牌并加载当前用户；角色和封禁状态以数据库为准
func (s *Service) Resolve(ctx context.Context, token string) (*model.User, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindAuthenticationRequired, "Invalid token", err)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.AuthenticationRequired("User not found")
	}
	if user.IsBlocked {
		return nil, apperr.Forbidden("Account is blocked")
	}
	return user, nil
}

// Authenticate resolves a websocket token to the connecting user.
func (s *Service) Authenticate(ctx context.Context, token string) (string, model.Role, error) {
	user, err := s.Resolve(ctx, token)
	if err != nil {
		return "", "", err
	}
	return user.ID, user.Role, nil
}

// Me 当前用户
func (s *Service) Me(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.NotFound("User not found")
	}
	return user, nil
}

// Logout 令牌无状态，这里只记录日志
func (s *Service) Logout(ctx context.Context, userID string) {
	s.record(ctx, activity.ActionLogout, userID)
}

// UpdateProfile 修改用户名，可选上传头像
func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileInput, avatar *storage.Upload) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if _, err := s.Me(ctx, userID); err != nil {
		return nil, err
	}
	avatarURL, err := storage.SaveUpload(ctx, s.files, storage.FolderAvatars, avatar)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateProfile(ctx, userID, in.Username, avatarURL); err != nil {
		return nil, err
	}
	s.record(ctx, activity.ActionUpdateProfile, userID)
	return s.Me(ctx, userID)
}

// ChangePassword 校验当前密码后更新
func (s *Service) ChangePassword(ctx context.Context, userID string, in PasswordInput) error {
	if err := validate.Struct(in); err != nil {
		return err
	}
	user, err := s.Me(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.CheckPasswordHash(in.CurrentPassword, user.PasswordHash) {
		return apperr.Validation("Current password is wrong")
	}
	hash, err := auth.HashPassword(in.NewPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}
	s.record(ctx, activity.ActionUpdatePassword, userID)
	return nil
}
