package middleware

import (
	"net/http"
	"strings"

	"taskapi/internal/repository"
	"taskapi/internal/token"

	"github.com/labstack/echo/v4"
)

const CtxUserKey = "auth_user"

// 認証済みユーザーの最小限の情報。handlerはこれだけを見る
type AuthUser struct {
	ID    int64
	Email string
	Name  string
}

// CurrentUserはRequireAuth/OptionalAuthが保存した認証情報を取り出す
func CurrentUser(c echo.Context) (AuthUser, bool) {
	u, ok := c.Get(CtxUserKey).(AuthUser)
	return u, ok
}

// bearerAuth用のJWT検証ミドルウェア。
// 署名検証のあとDBのユーザー状態も確認する
func RequireAuth(issuer *token.Issuer, users repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			//Authorizationヘッダを取得
			authz := c.Request().Header.Get("Authorization")
			if authz == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("Access token is required"))
			}

			//Bearer形式か確認してtokenを抜く
			rawToken, ok := extractBearer(authz)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("Invalid token format. Use: Bearer <token>"))
			}

			//署名・種別・期限の検証。失敗理由は返さない
			claims, err := issuer.VerifyAccess(rawToken)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, errorJSON("Invalid or expired access token"))
			}

			//tokenが有効でもユーザーが消えていれば通さない
			user, err := users.FindByID(c.Request().Context(), claims.UserID)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, errorJSON("internal error"))
			}
			if user == nil {
				return c.JSON(http.StatusUnauthorized, errorJSON("User not found"))
			}

			//停止アカウントは401ではなく403（認証は通っている）
			if !user.IsActive {
				return c.JSON(http.StatusForbidden, errorJSON("Your account has been deactivated"))
			}

			//contextへ保存
			c.Set(CtxUserKey, AuthUser{
				ID:    user.ID,
				Email: user.Email,
				Name:  user.Name,
			})

			return next(c)
		}
	}
}

// OptionalAuthは認証情報があれば載せる。失敗してもリクエストは通す。
// 公開/非公開が混ざるエンドポイント用
func OptionalAuth(issuer *token.Issuer, users repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authz := c.Request().Header.Get("Authorization")
			if authz == "" {
				return next(c)
			}

			rawToken, ok := extractBearer(authz)
			if !ok {
				return next(c)
			}

			claims, err := issuer.VerifyAccess(rawToken)
			if err != nil {
				return next(c)
			}

			user, err := users.FindByID(c.Request().Context(), claims.UserID)
			if err != nil || user == nil || !user.IsActive {
				return next(c)
			}

			c.Set(CtxUserKey, AuthUser{
				ID:    user.ID,
				Email: user.Email,
				Name:  user.Name,
			})

			return next(c)
		}
	}
}

// "Bearer <token>" 形式からtokenを取り出す
func extractBearer(authz string) (string, bool) {
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	rawToken := strings.TrimSpace(parts[1])
	if rawToken == "" {
		return "", false
	}
	return rawToken, true
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg}
}
