package api

import (
	"log/slog"
	"net/http"

	"github.com/jmcleod/sharedrop/challenge"
)

// Login handles POST /login, the password step of the two-factor flow.
// The flow is stateless on the server: the response only tells the client
// which step to drive next, and code verification is a separate request
// keyed by username again.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[LoginRequest](w, r, maxJSONBodySize)
	if !ok {
		return
	}

	if _, err := a.users.Authenticate(req.Username, req.Password); err != nil {
		// Unknown user and wrong password produce the same response.
		a.events.logFailure(EventLoginFailure, r, "invalid credentials",
			slog.String("username", req.Username))
		mapError(w, err)
		return
	}

	a.events.logEvent(EventLoginSuccess, r, req.Username)
	if req.Phone == "" {
		writeJSON(w, http.StatusOK, LoginResponse{
			Step:    "need_sms",
			Message: "Enter phone to receive SMS code",
		})
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Step: "verify_sms"})
}

// SendCode handles POST /send-code. Delivery is delegated entirely to the
// challenge broker; the server records nothing about the pending challenge.
func (a *API) SendCode(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[SendCodeRequest](w, r, maxJSONBodySize)
	if !ok {
		return
	}
	if req.Phone == "" {
		writeError(w, http.StatusBadRequest, "phone is required")
		return
	}

	status, err := a.broker.SendCode(r.Context(), req.Phone)
	if err != nil {
		a.events.logFailure(EventCodeSendError, r, err.Error())
		mapError(w, err)
		return
	}

	a.events.logEvent(EventCodeSent, r, "")
	writeJSON(w, http.StatusOK, SendCodeResponse{Status: status})
}

// VerifyCode handles POST /verify-code, the final step of the flow. On an
// approved code the identity is looked up by username and a session token is
// minted for it.
func (a *API) VerifyCode(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[VerifyCodeRequest](w, r, maxJSONBodySize)
	if !ok {
		return
	}
	if req.Phone == "" || req.Code == "" || req.Username == "" {
		writeError(w, http.StatusBadRequest, "phone, code and username are required")
		return
	}

	result, err := a.broker.CheckCode(r.Context(), req.Phone, req.Code)
	if err != nil {
		a.events.logFailure(EventCodeRejected, r, err.Error())
		mapError(w, err)
		return
	}
	if result != challenge.ResultApproved {
		a.events.logFailure(EventCodeRejected, r, string(result),
			slog.String("username", req.Username))
		writeError(w, http.StatusUnauthorized, "invalid or expired code")
		return
	}

	id, err := a.users.Lookup(req.Username)
	if err != nil {
		a.events.logFailure(EventLoginFailure, r, "unknown username at verification",
			slog.String("username", req.Username))
		mapError(w, err)
		return
	}

	signed, err := a.codec.Mint(id)
	if err != nil {
		mapError(w, err)
		return
	}

	a.events.logEvent(EventTokenIssued, r, id.Username, slog.String("role", string(id.Role)))
	writeJSON(w, http.StatusOK, VerifyCodeResponse{Token: signed})
}
