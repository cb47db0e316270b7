package walletapi

import (
	"encoding/json"
	"net/http"

	"github.com/aegis-sign/solwallet/internal/infra/store"
	"github.com/aegis-sign/solwallet/pkg/apierrors"
	"github.com/aegis-sign/solwallet/pkg/validator"
)

// HTTPHandler 实现托管钱包的 HTTP/JSON 接口。
type HTTPHandler struct {
	accounts   Accounts
	relayer    Relayer
	reconciler Reconciler
	verifier   TokenVerifier
}

// NewHTTPHandler 构造 HTTP handler。
func NewHTTPHandler(accounts Accounts, relayer Relayer, reconciler Reconciler, verifier TokenVerifier) *HTTPHandler {
	if accounts == nil {
		panic("accounts backend is required")
	}
	if relayer == nil {
		panic("relayer backend is required")
	}
	if reconciler == nil {
		panic("reconciler backend is required")
	}
	if verifier == nil {
		panic("token verifier is required")
	}
	return &HTTPHandler{
		accounts:   accounts,
		relayer:    relayer,
		reconciler: reconciler,
		verifier:   verifier,
	}
}

// Register 将 handler 注册到 mux。
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /signup", h.handleSignup)
	mux.HandleFunc("POST /signin", h.handleSignin)
	mux.HandleFunc("GET /{$}", h.withAuth(h.handleIdentity))
	mux.HandleFunc("GET /txn", h.withAuth(h.handleHistory))
	mux.HandleFunc("POST /api/v1/txn/buy", h.withAuth(h.handleRelay(store.CategoryBuy)))
	mux.HandleFunc("POST /api/v1/txn/sell", h.withAuth(h.handleRelay(store.CategorySell)))
}

type signupRequestBody struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (b signupRequestBody) validate() error {
	if b.Name == "" {
		return apierrors.New(apierrors.CodeInvalidArgument, "name is required")
	}
	if err := validator.ValidateEmail(b.Email); err != nil {
		return apierrors.New(apierrors.CodeInvalidArgument, err.Error())
	}
	if b.Password == "" {
		return apierrors.New(apierrors.CodeInvalidArgument, "password is required")
	}
	return nil
}

type signinRequestBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (b signinRequestBody) validate() error {
	if err := validator.ValidateEmail(b.Email); err != nil {
		return apierrors.New(apierrors.CodeInvalidArgument, err.Error())
	}
	if b.Password == "" {
		return apierrors.New(apierrors.CodeInvalidArgument, "password is required")
	}
	return nil
}

type relayRequestBody struct {
	Message string `json:"message"`
}

func (b relayRequestBody) validate() error {
	if b.Message == "" {
		return apierrors.New(apierrors.CodeInvalidArgument, "message is required")
	}
	return nil
}

type signupResponseBody struct {
	PublicKey string `json:"publicKey"`
}

type signinResponseBody struct {
	Token     string `json:"token"`
	PublicKey string `json:"publicKey"`
}

type identityResponseBody struct {
	PrivateKey string `json:"privateKey"`
}

type relayResponseBody struct {
	Signature string `json:"signature"`
}

type recordBody struct {
	Signature string `json:"signature"`
	Result    string `json:"result"`
	Timestamp string `json:"timestamp"`
	Category  string `json:"category"`
	Owner     string `json:"owner"`
}

type historyResponseBody struct {
	Records []recordBody `json:"records"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *HTTPHandler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body signupRequestBody
	if !h.decodeBody(w, r, &body) {
		return
	}
	if err := body.validate(); err != nil {
		h.writeUnknownError(w, err)
		return
	}
	publicKey, err := h.accounts.Signup(r.Context(), body.Name, body.Email, body.Password)
	if err != nil {
		h.writeUnknownError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, signupResponseBody{PublicKey: publicKey})
}

func (h *HTTPHandler) handleSignin(w http.ResponseWriter, r *http.Request) {
	var body signinRequestBody
	if !h.decodeBody(w, r, &body) {
		return
	}
	if err := body.validate(); err != nil {
		h.writeUnknownError(w, err)
		return
	}
	token, publicKey, err := h.accounts.Signin(r.Context(), body.Email, body.Password)
	if err != nil {
		h.writeUnknownError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, signinResponseBody{Token: token, PublicKey: publicKey})
}

func (h *HTTPHandler) handleIdentity(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := OwnerID(r.Context())
	if !ok {
		h.writeAPIError(w, apierrors.New(apierrors.CodeUnauthorized, "missing identity"))
		return
	}
	privateKey, err := h.accounts.PrivateKey(r.Context(), ownerID)
	if err != nil {
		h.writeUnknownError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, identityResponseBody{PrivateKey: privateKey})
}

func (h *HTTPHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := OwnerID(r.Context())
	if !ok {
		h.writeAPIError(w, apierrors.New(apierrors.CodeUnauthorized, "missing identity"))
		return
	}
	records, err := h.reconciler.ListAndReconcile(r.Context(), ownerID)
	if err != nil {
		h.writeUnknownError(w, err)
		return
	}
	out := historyResponseBody{Records: make([]recordBody, 0, len(records))}
	for _, record := range records {
		out.Records = append(out.Records, recordBody{
			Signature: record.Signature,
			Result:    string(record.Result),
			Timestamp: record.Timestamp,
			Category:  string(record.Category),
			Owner:     record.Owner,
		})
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) handleRelay(category store.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := OwnerID(r.Context())
		if !ok {
			h.writeAPIError(w, apierrors.New(apierrors.CodeUnauthorized, "missing identity"))
			return
		}
		var body relayRequestBody
		if !h.decodeBody(w, r, &body) {
			return
		}
		if err := body.validate(); err != nil {
			h.writeUnknownError(w, err)
			return
		}
		signature, err := h.relayer.Relay(r.Context(), ownerID, category, body.Message)
		if err != nil {
			h.writeUnknownError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, relayResponseBody{Signature: signature})
	}
}

func (h *HTTPHandler) decodeBody(w http.ResponseWriter, r *http.Request, into any) bool {
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(into); err != nil {
		h.writeAPIError(w, apierrors.New(apierrors.CodeInvalidArgument, "invalid JSON body"))
		return false
	}
	return true
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (h *HTTPHandler) writeUnknownError(w http.ResponseWriter, err error) {
	if apiErr, ok := apierrors.FromError(err); ok {
		h.writeAPIError(w, apiErr)
		return
	}
	h.writeAPIError(w, apierrors.New(apierrors.Code("INTERNAL_ERROR"), "internal error"))
}

func (h *HTTPHandler) writeAPIError(w http.ResponseWriter, apiErr *apierrors.Error) {
	if apiErr == nil {
		apiErr = apierrors.New(apierrors.Code("INTERNAL_ERROR"), "internal error")
	}
	status := apierrors.HTTPStatus(apiErr.Code)
	h.writeJSON(w, status, errorResponse{
		Code:    string(apiErr.Code),
		Message: apiErr.Error(),
	})
}
