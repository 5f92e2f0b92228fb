package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// headerSessionID несёт идентификатор анонимной браузерной сессии.
const headerSessionID = "X-Session-ID"

type contextKey string

const identityKey contextKey = "identity"

// Identity описывает вызывающую сторону: аккаунт из Bearer-токена или
// гостевую сессию из заголовка X-Session-ID.
type Identity struct {
	Owner     domain.CartOwner
	SessionID string
	Role      string
}

// IsAccount сообщает, аутентифицирован ли вызывающий как аккаунт.
func (id Identity) IsAccount() bool {
	return id.Owner.Kind == domain.OwnerKindAccount
}

// IdentityMiddleware извлекает владельца корзины из запроса.
// Bearer-токен имеет приоритет над сессионным заголовком: залогиненный
// пользователь работает со своей корзиной аккаунта, а сессия из заголовка
// сохраняется для слияния гостевой корзины.
func IdentityMiddleware(jwtSecret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := identityFromRequest(r, jwtSecret)
			if err != nil {
				respondError(w, http.StatusUnauthorized, "unauthorized", err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin пропускает только аккаунты с ролью admin.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := identityFromContext(r.Context())
		if !ok || !identity.IsAccount() {
			respondError(w, http.StatusUnauthorized, "unauthorized", "account authentication required")
			return
		}
		if identity.Role != "admin" {
			respondError(w, http.StatusForbidden, "forbidden", "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func identityFromRequest(r *http.Request, jwtSecret []byte) (Identity, error) {
	sessionID := strings.TrimSpace(r.Header.Get(headerSessionID))

	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return Identity{}, fmt.Errorf("invalid authorization header format")
		}

		accountID, role, err := parseAccountToken(parts[1], jwtSecret)
		if err != nil {
			return Identity{}, fmt.Errorf("invalid or expired token")
		}

		return Identity{
			Owner:     domain.AccountOwner(accountID),
			SessionID: sessionID,
			Role:      role,
		}, nil
	}

	if sessionID == "" {
		return Identity{}, fmt.Errorf("authorization or %s header required", headerSessionID)
	}

	return Identity{
		Owner:     domain.GuestOwner(sessionID),
		SessionID: sessionID,
	}, nil
}

func parseAccountToken(tokenString string, secret []byte) (accountID, role string, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return "", "", err
	}
	if !token.Valid {
		return "", "", fmt.Errorf("token is not valid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", fmt.Errorf("unexpected claims type")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", "", fmt.Errorf("token has no subject")
	}
	role, _ = claims["role"].(string)

	return sub, role, nil
}

func identityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}
