package http

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"

	"github.com/DRSN-tech/cryptoshop-bot/internal/domain"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/e"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/logger"
)

const adminIDHeader = "X-Admin-ID"

type adminCtxKey struct{}

// adminAuth пропускает запрос с верным Bearer-токеном и id администратора из AdminSet.
// Пустой токен в конфигурации закрывает API целиком.
func adminAuth(token string, admins domain.AdminSet, logger logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if token == "" || !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				logger.Warnf("%d %s: %s %s", http.StatusUnauthorized, e.ErrUnauthorized.Error(), r.Method, r.URL.Path)
				WriteError(w, e.ErrUnauthorized)
				return
			}

			adminID, err := strconv.ParseInt(r.Header.Get(adminIDHeader), 10, 64)
			if err != nil {
				WriteError(w, e.ErrStatusBadRequest)
				return
			}

			admin, err := admins.Authorize(adminID)
			if err != nil {
				logger.Warnf("%d %s: admin_id %d", http.StatusForbidden, err.Error(), adminID)
				WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), adminCtxKey{}, admin)))
		})
	}
}

func adminFromCtx(ctx context.Context) (domain.Admin, bool) {
	admin, ok := ctx.Value(adminCtxKey{}).(domain.Admin)
	return admin, ok
}
