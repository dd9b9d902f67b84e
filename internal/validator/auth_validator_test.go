package validator

import (
	"context"
	"testing"

	"taskapi/internal/domain/model"
	"taskapi/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// Mock: UserRepository（重複チェックにだけ使う）
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

func TestAuthValidator_ValidateRegister(t *testing.T) {
	ctx := context.Background()

	users := new(MockUserRepository)
	users.On("FindByEmail", mock.Anything, "new@test.com").Return(nil, nil)
	users.On("FindByEmail", mock.Anything, "taken@test.com").Return(&model.User{ID: 1, Email: "taken@test.com"}, nil)

	v := NewAuthValidator(users)

	cases := []struct {
		name     string
		userName string
		email    string
		password string
		wantErr  error
	}{
		{name: "ok", userName: "Taro", email: "new@test.com", password: "password1", wantErr: nil},
		{name: "empty name", userName: "", email: "new@test.com", password: "password1", wantErr: usecase.ErrValidation},
		{name: "name too short", userName: "T", email: "new@test.com", password: "password1", wantErr: usecase.ErrValidation},
		{name: "bad email", userName: "Taro", email: "not-an-email", password: "password1", wantErr: usecase.ErrValidation},
		{name: "email with space", userName: "Taro", email: "a b@test.com", password: "password1", wantErr: usecase.ErrValidation},
		{name: "short password", userName: "Taro", email: "new@test.com", password: "short", wantErr: usecase.ErrValidation},
		{name: "duplicate email", userName: "Taro", email: "taken@test.com", password: "password1", wantErr: usecase.ErrConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.ValidateRegister(ctx, tc.userName, tc.email, tc.password)
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestAuthValidator_ValidateLogin(t *testing.T) {
	ctx := context.Background()
	v := NewAuthValidator(new(MockUserRepository))

	assert.NoError(t, v.ValidateLogin(ctx, "user@test.com", "password1"))
	assert.ErrorIs(t, v.ValidateLogin(ctx, "", "password1"), usecase.ErrValidation)
	assert.ErrorIs(t, v.ValidateLogin(ctx, "user@test.com", ""), usecase.ErrValidation)
	assert.ErrorIs(t, v.ValidateLogin(ctx, "bad email", "password1"), usecase.ErrValidation)
}

func TestAuthValidator_ValidateRefresh(t *testing.T) {
	ctx := context.Background()
	v := NewAuthValidator(new(MockUserRepository))

	assert.NoError(t, v.ValidateRefresh(ctx, "some-token"))
	assert.ErrorIs(t, v.ValidateRefresh(ctx, ""), usecase.ErrValidation)
	assert.ErrorIs(t, v.ValidateRefresh(ctx, "   "), usecase.ErrValidation)
}

func TestAuthValidator_ValidateUpdateProfile(t *testing.T) {
	ctx := context.Background()
	v := NewAuthValidator(new(MockUserRepository))

	name := "Taro"
	email := "new@test.com"
	badEmail := "nope"
	shortName := "T"

	assert.NoError(t, v.ValidateUpdateProfile(ctx, &name, nil))
	assert.NoError(t, v.ValidateUpdateProfile(ctx, nil, &email))

	//どちらも指定なしはエラー
	assert.ErrorIs(t, v.ValidateUpdateProfile(ctx, nil, nil), usecase.ErrValidation)
	assert.ErrorIs(t, v.ValidateUpdateProfile(ctx, &shortName, nil), usecase.ErrValidation)
	assert.ErrorIs(t, v.ValidateUpdateProfile(ctx, nil, &badEmail), usecase.ErrValidation)
}

func TestAuthValidator_ValidateChangePassword(t *testing.T) {
	ctx := context.Background()
	v := NewAuthValidator(new(MockUserRepository))

	assert.NoError(t, v.ValidateChangePassword(ctx, "oldpass99", "newpass99"))
	assert.ErrorIs(t, v.ValidateChangePassword(ctx, "", "newpass99"), usecase.ErrValidation)
	assert.ErrorIs(t, v.ValidateChangePassword(ctx, "oldpass99", "short"), usecase.ErrValidation)
}
