package usecase

import (
	"context"
	"testing"
	"time"

	"taskapi/internal/domain/model"
	"taskapi/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// =====================
// Mock: UserRepository
// =====================

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// =====================
// Mock: AuthValidator
// =====================

type MockAuthValidator struct {
	mock.Mock
}

func (m *MockAuthValidator) ValidateRegister(ctx context.Context, name string, email string, password string) error {
	args := m.Called(ctx, name, email, password)
	return args.Error(0)
}

func (m *MockAuthValidator) ValidateLogin(ctx context.Context, email string, password string) error {
	args := m.Called(ctx, email, password)
	return args.Error(0)
}

func (m *MockAuthValidator) ValidateRefresh(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}

func (m *MockAuthValidator) ValidateUpdateProfile(ctx context.Context, name *string, email *string) error {
	args := m.Called(ctx, name, email)
	return args.Error(0)
}

func (m *MockAuthValidator) ValidateChangePassword(ctx context.Context, currentPassword string, newPassword string) error {
	args := m.Called(ctx, currentPassword, newPassword)
	return args.Error(0)
}

// =====================
// Helper
// =====================

func mustHash(t *testing.T, plain string) string {
	t.Helper()
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("bcrypt failed: %v", err)
	}
	return string(b)
}

func newAuthUC(t *testing.T, userRepo *MockUserRepository, rtRepo *MockRefreshTokenRepository, v *MockAuthValidator) *AuthUsecase {
	t.Helper()
	return NewAuthUsecase(userRepo, newTokenUC(t, rtRepo), v, zap.NewNop())
}

// =====================
// Register
// =====================

func TestAuthUsecase_Register_Success(t *testing.T) {
	ctx := context.Background()

	userRepo := new(MockUserRepository)
	rtRepo := new(MockRefreshTokenRepository)
	v := new(MockAuthValidator)

	name := "Taro"
	email := "user@test.com"
	pass := "CorrectPW1"

	v.On("ValidateRegister", mock.Anything, name, email, pass).Return(nil)

	userRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		// 保存されるユーザーが最低限正しい形かを見る
		return u.Name == name && u.Email == email && u.IsActive && u.PasswordHash != "" && u.PasswordHash != pass
	})).Return(nil)

	rtRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.RefreshToken")).Return(nil)

	u := newAuthUC(t, userRepo, rtRepo, v)

	resp, err := u.Register(ctx, AuthRegisterRequest{Name: name, Email: email, Password: pass})
	require.NoError(t, err)
	assert.Equal(t, email, resp.User.Email)
	//登録直後からログイン済み
	assert.NotEmpty(t, resp.Tokens.AccessToken)
	assert.NotEmpty(t, resp.Tokens.RefreshToken)

	userRepo.AssertExpectations(t)
	v.AssertExpectations(t)
}

// unique制約違反（同時登録）はConflictで返す
func TestAuthUsecase_Register_EmailTaken(t *testing.T) {
	ctx := context.Background()

	userRepo := new(MockUserRepository)
	rtRepo := new(MockRefreshTokenRepository)
	v := new(MockAuthValidator)

	v.On("ValidateRegister", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	userRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(repository.ErrEmailTaken)

	u := newAuthUC(t, userRepo, rtRepo, v)

	_, err := u.Register(ctx, AuthRegisterRequest{Name: "Taro", Email: "dup@test.com", Password: "CorrectPW1"})
	assert.ErrorIs(t, err, ErrConflict)
}

// =====================
// Login
// =====================

func TestAuthUsecase_Login_Success(t *testing.T) {
	ctx := context.Background()

	userRepo := new(MockUserRepository)
	rtRepo := new(MockRefreshTokenRepository)
	v := new(MockAuthValidator)

	email := "user@test.com"
	pass := "CorrectPW1"

	v.On("ValidateLogin", mock.Anything, email, pass).Return(nil)
	userRepo.On("FindByEmail", mock.Anything, email).Return(&model.User{
		ID:           1,
		Email:        email,
		PasswordHash: mustHash(t, pass),
		IsActive:     true,
	}, nil)

	// last_login更新は失敗しても継続なので、呼ばれたらOK
	userRepo.On("Update", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)
	rtRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.RefreshToken")).Return(nil)

	u := newAuthUC(t, userRepo, rtRepo, v)

	resp, err := u.Login(ctx, AuthLoginRequest{Email: email, Password: pass})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Tokens.AccessToken)
	assert.NotEmpty(t, resp.Tokens.RefreshToken)
	assert.NotNil(t, resp.User.LastLoginAt)
}

// メール不存在とパスワード不一致は同じエラー（列挙攻撃対策）
func TestAuthUsecase_Login_UnknownEmailAndWrongPassword(t *testing.T) {
	ctx := context.Background()

	userRepo := new(MockUserRepository)
	rtRepo := new(MockRefreshTokenRepository)
	v := new(MockAuthValidator)

	v.On("ValidateLogin", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	userRepo.On("FindByEmail", mock.Anything, "nobody@test.com").Return(nil, nil)
	userRepo.On("FindByEmail", mock.Anything, "user@test.com").Return(&model.User{
		ID:           1,
		Email:        "user@test.com",
		PasswordHash: mustHash(t, "CorrectPW1"),
		IsActive:     true,
	}, nil)

	u := newAuthUC(t, userRepo, rtRepo, v)

	_, err := u.Login(ctx, AuthLoginRequest{Email: "nobody@test.com", Password: "whatever1"})
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = u.Login(ctx, AuthLoginRequest{Email: "user@test.com", Password: "WrongPW11"})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthUsecase_Login_InactiveUser(t *testing.T) {
	ctx := context.Background()

	userRepo := new(MockUserRepository)
	rtRepo := new(MockRefreshTokenRepository)
	v := new(MockAuthValidator)

	v.On("ValidateLogin", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	userRepo.On("FindByEmail", mock.Anything, "user@test.com").Return(&model.User{
		ID:           1,
		Email:        "user@test.com",
		PasswordHash: mustHash(t, "CorrectPW1"),
		IsActive:     false,
	}, nil)

	u := newAuthUC(t, userRepo, rtRepo, v)

	_, err := u.Login(ctx, AuthLoginRequest{Email: "user@test.com", Password: "CorrectPW1"})
	assert.ErrorIs(t, err, ErrForbidden)
}

// =====================
// Refresh（rotation込み）
// =====================

func TestAuthUsecase_Refresh_Success(t *testing.T) {
	ctx := context.Background()

	userRepo := new(MockUserRepository)
	rtRepo := new(MockRefreshTokenRepository)
	v := new(MockAuthValidator)

	v.On("ValidateLogin", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	v.On("ValidateRefresh", mock.Anything, mock.Anything).Return(nil)

	userRepo.On("FindByEmail", mock.Anything, "user@test.com").Return(&model.User{
		ID:           5,
		Email:        "user@test.com",
		PasswordHash: mustHash(t, "CorrectPW1"),
		IsActive:     true,
	}, nil)
	userRepo.On("Update", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)
	userRepo.On("FindByID", mock.Anything, int64(5)).Return(&model.User{ID: 5, IsActive: true}, nil)

	rtRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.RefreshToken")).Return(nil)

	u := newAuthUC(t, userRepo, rtRepo, v)

	//実際にログインしてtokenを得てからrefreshする
	resp, err := u.Login(ctx, AuthLoginRequest{Email: "user@test.com", Password: "CorrectPW1"})
	require.NoError(t, err)
	oldRefresh := resp.Tokens.RefreshToken

	rtRepo.On("FindValidByToken", mock.Anything, oldRefresh).
		Return(&model.RefreshToken{UserID: 5, Token: oldRefresh}, nil)
	//rotationで旧tokenがrevokeされる
	rtRepo.On("Revoke", mock.Anything, oldRefresh).Return(true, nil)

	pair, err := u.Refresh(ctx, oldRefresh)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEqual(t, oldRefresh, pair.RefreshToken)

	rtRepo.AssertCalled(t, "Revoke", mock.Anything, oldRefresh)
}

// 署名が正しくてもDBに生きた行がなければ拒否（使い切り・revoke済み）
func TestAuthUsecase_Refresh_RevokedToken(t *testing.T) {
	ctx := context.Background()

	userRepo := new(MockUserRepository)
	rtRepo := new(MockRefreshTokenRepository)
	v := new(MockAuthValidator)

	v.On("ValidateRefresh", mock.Anything, mock.Anything).Return(nil)
	rtRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.RefreshToken")).Return(nil)

	u := newAuthUC(t, userRepo, rtRepo, v)

	//tokenUC経由で正規のrefresh tokenを作る
	pair, err := u.tokens.Issue(ctx, 5)
	require.NoError(t, err)

	rtRepo.On("FindValidByToken", mock.Anything, pair.RefreshToken).
		Return(nil, repository.ErrRefreshTokenNotFound)

	_, err = u.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthUsecase_Refresh_UserDeactivatedAfterIssue(t *testing.T) {
	ctx := context.Background()

	userRepo := new(MockUserRepository)
	rtRepo := new(MockRefreshTokenRepository)
	v := new(MockAuthValidator)

	v.On("ValidateRefresh", mock.Anything, mock.Anything).Return(nil)
	rtRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.RefreshToken")).Return(nil)

	u := newAuthUC(t, userRepo, rtRepo, v)

	pair, err := u.tokens.Issue(ctx, 5)
	require.NoError(t, err)

	rtRepo.On("FindValidByToken", mock.Anything, pair.RefreshToken).
		Return(&model.RefreshToken{UserID: 5, Token: pair.RefreshToken}, nil)
	userRepo.On("FindByID", mock.Anything, int64(5)).Return(&model.User{ID: 5, IsActive: false}, nil)

	_, err = u.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrForbidden)
}

// =====================
// Logout / LogoutAll
// =====================

func TestAuthUsecase_Logout(t *testing.T) {
	ctx := context.Background()

	userRepo := new(MockUserRepository)
	rtRepo := new(MockRefreshTokenRepository)
	v := new(MockAuthValidator)

	rtRepo.On("Revoke", mock.Anything, "live-token").Return(true, nil)
	rtRepo.On("Revoke", mock.Anything, "dead-token").Return(false, nil)

	u := newAuthUC(t, userRepo, rtRepo, v)

	assert.NoError(t, u.Logout(ctx, "live-token"))

	//もともと有効でないtokenは認証失敗扱い
	assert.ErrorIs(t, u.Logout(ctx, "dead-token"), ErrUnauthorized)
	assert.ErrorIs(t, u.Logout(ctx, ""), ErrUnauthorized)
}

func TestAuthUsecase_LogoutAll(t *testing.T) {
	ctx := context.Background()

	userRepo := new(MockUserRepository)
	rtRepo := new(MockRefreshTokenRepository)
	v := new(MockAuthValidator)

	rtRepo.On("RevokeAllByUserID", mock.Anything, int64(5)).Return(int64(3), nil)

	u := newAuthUC(t, userRepo, rtRepo, v)

	count, err := u.LogoutAll(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

// =====================
// ChangePassword（全セッション失効）
// =====================

func TestAuthUsecase_ChangePassword_RevokesAllSessions(t *testing.T) {
	ctx := context.Background()

	userRepo := new(MockUserRepository)
	rtRepo := new(MockRefreshTokenRepository)
	v := new(MockAuthValidator)

	v.On("ValidateChangePassword", mock.Anything, "OldPW1234", "NewPW1234").Return(nil)
	userRepo.On("FindByID", mock.Anything, int64(5)).Return(&model.User{
		ID:           5,
		PasswordHash: mustHash(t, "OldPW1234"),
		IsActive:     true,
	}, nil)
	userRepo.On("Update", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		//新パスワードで照合できるハッシュに更新されている
		return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("NewPW1234")) == nil
	})).Return(nil)
	rtRepo.On("RevokeAllByUserID", mock.Anything, int64(5)).Return(int64(2), nil)

	u := newAuthUC(t, userRepo, rtRepo, v)

	err := u.ChangePassword(ctx, 5, ChangePasswordRequest{CurrentPassword: "OldPW1234", NewPassword: "NewPW1234"})
	require.NoError(t, err)

	rtRepo.AssertCalled(t, "RevokeAllByUserID", mock.Anything, int64(5))
}

func TestAuthUsecase_ChangePassword_WrongCurrent(t *testing.T) {
	ctx := context.Background()

	userRepo := new(MockUserRepository)
	rtRepo := new(MockRefreshTokenRepository)
	v := new(MockAuthValidator)

	v.On("ValidateChangePassword", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	userRepo.On("FindByID", mock.Anything, int64(5)).Return(&model.User{
		ID:           5,
		PasswordHash: mustHash(t, "OldPW1234"),
		IsActive:     true,
	}, nil)

	u := newAuthUC(t, userRepo, rtRepo, v)

	err := u.ChangePassword(ctx, 5, ChangePasswordRequest{CurrentPassword: "WrongPW12", NewPassword: "NewPW1234"})
	assert.ErrorIs(t, err, ErrUnauthorized)
	userRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	rtRepo.AssertNotCalled(t, "RevokeAllByUserID", mock.Anything, mock.Anything)
}

// =====================
// UpdateProfile
// =====================

func TestAuthUsecase_UpdateProfile_EmailTakenByOther(t *testing.T) {
	ctx := context.Background()

	userRepo := new(MockUserRepository)
	rtRepo := new(MockRefreshTokenRepository)
	v := new(MockAuthValidator)

	newEmail := "taken@test.com"
	v.On("ValidateUpdateProfile", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	userRepo.On("FindByID", mock.Anything, int64(5)).Return(&model.User{ID: 5, Email: "me@test.com", IsActive: true}, nil)
	userRepo.On("FindByEmail", mock.Anything, newEmail).Return(&model.User{ID: 9, Email: newEmail}, nil)

	u := newAuthUC(t, userRepo, rtRepo, v)

	_, err := u.UpdateProfile(ctx, 5, UpdateProfileRequest{Email: &newEmail})
	assert.ErrorIs(t, err, ErrConflict)
	userRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestAuthUsecase_ActiveSessions(t *testing.T) {
	ctx := context.Background()

	userRepo := new(MockUserRepository)
	rtRepo := new(MockRefreshTokenRepository)
	v := new(MockAuthValidator)

	rtRepo.On("CountActiveByUserID", mock.Anything, int64(5)).Return(int64(2), nil)

	u := newAuthUC(t, userRepo, rtRepo, v)

	count, err := u.ActiveSessions(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestAuthUsecase_Me(t *testing.T) {
	ctx := context.Background()

	userRepo := new(MockUserRepository)
	rtRepo := new(MockRefreshTokenRepository)
	v := new(MockAuthValidator)

	now := time.Now()
	userRepo.On("FindByID", mock.Anything, int64(5)).Return(&model.User{
		ID: 5, Name: "Taro", Email: "me@test.com", IsActive: true, LastLoginAt: &now,
	}, nil)
	userRepo.On("FindByID", mock.Anything, int64(99)).Return(nil, nil)

	u := newAuthUC(t, userRepo, rtRepo, v)

	dto, err := u.Me(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "me@test.com", dto.Email)

	_, err = u.Me(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)
}
