package walletapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/aegis-sign/solwallet/pkg/apierrors"
)

type ownerIDKey struct{}

// OwnerID 从请求上下文取出已认证的账户 ID。
func OwnerID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ownerIDKey{}).(string)
	return id, ok && id != ""
}

// withAuth 校验 Bearer 令牌并把账户 ID 注入请求上下文，
// 校验失败的请求不会触达业务逻辑。
func (h *HTTPHandler) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			h.writeAPIError(w, apierrors.New(apierrors.CodeUnauthorized, "no authorization header"))
			return
		}
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			h.writeAPIError(w, apierrors.New(apierrors.CodeUnauthorized, "malformed authorization header"))
			return
		}
		accountID, err := h.verifier.Verify(raw)
		if err != nil {
			h.writeAPIError(w, apierrors.New(apierrors.CodeUnauthorized, "invalid token"))
			return
		}
		ctx := context.WithValue(r.Context(), ownerIDKey{}, accountID)
		next(w, r.WithContext(ctx))
	}
}
