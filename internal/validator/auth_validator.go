package validator

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"taskapi/internal/repository"
	"taskapi/internal/usecase"
)

const (
	nameMinLen     = 2
	nameMaxLen     = 50
	passwordMinLen = 8
)

// 簡易メール形式
var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type authValidator struct {
	users repository.UserRepository
}

// Usecaseはinterfaceを依存注入
func NewAuthValidator(users repository.UserRepository) usecase.AuthValidator {
	return &authValidator{users: users}
}

// 会員登録の入力を検証
func (v *authValidator) ValidateRegister(ctx context.Context, name string, email string, password string) error {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if name == "" || email == "" || password == "" {
		return fmt.Errorf("%w: name, email and password are required", usecase.ErrValidation)
	}

	if len(name) < nameMinLen || len(name) > nameMaxLen {
		return fmt.Errorf("%w: name must be %d-%d characters", usecase.ErrValidation, nameMinLen, nameMaxLen)
	}

	if !emailRe.MatchString(email) {
		return fmt.Errorf("%w: invalid email format", usecase.ErrValidation)
	}

	if len(password) < passwordMinLen {
		return fmt.Errorf("%w: password must be at least %d characters", usecase.ErrValidation, passwordMinLen)
	}

	//email重複チェック（同時登録の取りこぼしはDBのunique制約が拾う）
	u, err := v.users.FindByEmail(ctx, email)
	if err == nil && u != nil {
		return usecase.ErrConflict
	}

	return nil
}

// ログインの入力を検証
func (v *authValidator) ValidateLogin(ctx context.Context, email string, password string) error {
	email = strings.TrimSpace(email)

	if email == "" || password == "" {
		return fmt.Errorf("%w: email and password are required", usecase.ErrValidation)
	}

	if !emailRe.MatchString(email) {
		return fmt.Errorf("%w: invalid email format", usecase.ErrValidation)
	}

	return nil
}

// refreshの入力を検証
func (v *authValidator) ValidateRefresh(ctx context.Context, refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return fmt.Errorf("%w: refresh token is required", usecase.ErrValidation)
	}
	return nil
}

// プロフィール更新の入力を検証
func (v *authValidator) ValidateUpdateProfile(ctx context.Context, name *string, email *string) error {
	if name == nil && email == nil {
		return fmt.Errorf("%w: nothing to update", usecase.ErrValidation)
	}

	if name != nil {
		n := strings.TrimSpace(*name)
		if len(n) < nameMinLen || len(n) > nameMaxLen {
			return fmt.Errorf("%w: name must be %d-%d characters", usecase.ErrValidation, nameMinLen, nameMaxLen)
		}
	}

	if email != nil && !emailRe.MatchString(strings.TrimSpace(*email)) {
		return fmt.Errorf("%w: invalid email format", usecase.ErrValidation)
	}

	return nil
}

// パスワード変更の入力を検証
func (v *authValidator) ValidateChangePassword(ctx context.Context, currentPassword string, newPassword string) error {
	if currentPassword == "" || newPassword == "" {
		return fmt.Errorf("%w: current and new password are required", usecase.ErrValidation)
	}

	if len(newPassword) < passwordMinLen {
		return fmt.Errorf("%w: new password must be at least %d characters", usecase.ErrValidation, passwordMinLen)
	}

	return nil
}
