package usecase

import (
	"context"
	"errors"
	"time"

	"taskapi/internal/domain/model"
	"taskapi/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// usecaseがValidatorInterfaceに依存する約束
type AuthValidator interface {
	ValidateRegister(ctx context.Context, name string, email string, password string) error
	ValidateLogin(ctx context.Context, email string, password string) error
	ValidateRefresh(ctx context.Context, refreshToken string) error
	ValidateUpdateProfile(ctx context.Context, name *string, email *string) error
	ValidateChangePassword(ctx context.Context, currentPassword string, newPassword string) error
}

type UserDTO struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

type AuthRegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	User   UserDTO    `json:"user"`
	Tokens *TokenPair `json:"tokens"`
}

type UpdateProfileRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type AuthUsecase struct {
	users     repository.UserRepository
	tokens    *TokenUsecase
	validator AuthValidator
	logger    *zap.Logger
}

func NewAuthUsecase(
	users repository.UserRepository,
	tokens *TokenUsecase,
	validator AuthValidator,
	logger *zap.Logger,
) *AuthUsecase {
	return &AuthUsecase{
		users:     users,
		tokens:    tokens,
		validator: validator,
		logger:    logger,
	}
}

func (u *AuthUsecase) Register(ctx context.Context, req AuthRegisterRequest) (*AuthResponse, error) {
	//入力検証（validatorに寄せる）
	if err := u.validator.ValidateRegister(ctx, req.Name, req.Email, req.Password); err != nil {
		return nil, err
	}

	//パスワードは必ずハッシュ化して保存（平文保存しない）
	pwHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrInternal
	}

	user := &model.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(pwHash),
		IsActive:     true,
	}

	if err := u.users.Create(ctx, user); err != nil {
		//validatorの事前チェックをすり抜けた同時登録はunique制約で拾う
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, ErrConflict
		}
		return nil, ErrInternal
	}

	u.logger.Info("user registered", zap.Int64("user_id", user.ID))

	//登録直後からログイン済みにする
	tokens, err := u.tokens.Issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{User: toUserDTO(user), Tokens: tokens}, nil
}

func (u *AuthUsecase) Login(ctx context.Context, req AuthLoginRequest) (*AuthResponse, error) {
	if err := u.validator.ValidateLogin(ctx, req.Email, req.Password); err != nil {
		return nil, err
	}

	user, err := u.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, ErrInternal
	}

	//メール不存在とパスワード不一致は呼び出し側に区別させない
	if user == nil {
		return nil, ErrUnauthorized
	}

	//停止ユーザーはログイン不可
	if !user.IsActive {
		return nil, ErrForbidden
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrUnauthorized
	}

	//last_login更新（失敗してもログインは成立させる）
	now := time.Now()
	user.LastLoginAt = &now
	_ = u.users.Update(ctx, user)

	u.logger.Info("user logged in", zap.Int64("user_id", user.ID))

	tokens, err := u.tokens.Issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{User: toUserDTO(user), Tokens: tokens}, nil
}

// Refreshはrefresh tokenを検証してペアを発行し直す。
// 旧tokenはこの時点で失効する（使い切り）
func (u *AuthUsecase) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if err := u.validator.ValidateRefresh(ctx, refreshToken); err != nil {
		return nil, err
	}

	claims, err := u.tokens.ValidateRefresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	//発行後にユーザーが消えた・停止された場合もここで止める
	user, err := u.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrInternal
	}
	if user == nil {
		return nil, ErrUnauthorized
	}
	if !user.IsActive {
		return nil, ErrForbidden
	}

	u.logger.Debug("tokens refreshed", zap.Int64("user_id", user.ID))

	return u.tokens.Rotate(ctx, refreshToken, user.ID)
}

// Logoutは渡されたrefresh tokenを失効させる
func (u *AuthUsecase) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return ErrUnauthorized
	}

	revoked, err := u.tokens.Revoke(ctx, refreshToken)
	if err != nil {
		return err
	}

	//もともと有効でないtokenでのログアウトは認証失敗扱い
	if !revoked {
		return ErrUnauthorized
	}

	u.logger.Debug("user logged out")
	return nil
}

// LogoutAllは全端末からのログアウト。失効させた件数を返す
func (u *AuthUsecase) LogoutAll(ctx context.Context, userID int64) (int64, error) {
	return u.tokens.RevokeAll(ctx, userID)
}

// ActiveSessionsは生きているrefreshセッションの数
func (u *AuthUsecase) ActiveSessions(ctx context.Context, userID int64) (int64, error) {
	return u.tokens.ActiveSessionCount(ctx, userID)
}

func (u *AuthUsecase) Me(ctx context.Context, userID int64) (*UserDTO, error) {
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return nil, ErrInternal
	}
	if user == nil {
		return nil, ErrNotFound
	}

	dto := toUserDTO(user)
	return &dto, nil
}

func (u *AuthUsecase) UpdateProfile(ctx context.Context, userID int64, req UpdateProfileRequest) (*UserDTO, error) {
	if err := u.validator.ValidateUpdateProfile(ctx, req.Name, req.Email); err != nil {
		return nil, err
	}

	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return nil, ErrInternal
	}
	if user == nil {
		return nil, ErrNotFound
	}

	if req.Name != nil {
		user.Name = *req.Name
	}

	//email変更は重複チェックしてから
	if req.Email != nil && *req.Email != user.Email {
		existing, err := u.users.FindByEmail(ctx, *req.Email)
		if err != nil {
			return nil, ErrInternal
		}
		if existing != nil && existing.ID != userID {
			return nil, ErrConflict
		}
		user.Email = *req.Email
	}

	if err := u.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, ErrConflict
		}
		return nil, ErrInternal
	}

	u.logger.Info("profile updated", zap.Int64("user_id", user.ID))

	dto := toUserDTO(user)
	return &dto, nil
}

// ChangePasswordはパスワード変更と同時に全セッションを失効させる。
// 変更前に漏れたtokenを自然期限まで生かさないため
func (u *AuthUsecase) ChangePassword(ctx context.Context, userID int64, req ChangePasswordRequest) error {
	if err := u.validator.ValidateChangePassword(ctx, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}

	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return ErrInternal
	}
	if user == nil {
		return ErrNotFound
	}

	//現在のパスワードを確認してから
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return ErrUnauthorized
	}

	pwHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return ErrInternal
	}
	user.PasswordHash = string(pwHash)

	if err := u.users.Update(ctx, user); err != nil {
		return ErrInternal
	}

	//強制再ログイン
	if _, err := u.tokens.RevokeAll(ctx, userID); err != nil {
		return err
	}

	u.logger.Info("password changed", zap.Int64("user_id", user.ID))
	return nil
}

// model.UserをAPI返却用DTOに変換
func toUserDTO(u *model.User) UserDTO {
	return UserDTO{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}
