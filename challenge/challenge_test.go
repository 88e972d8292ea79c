package challenge_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/sharedrop/challenge"
)

func TestStaticBrokerFlow(t *testing.T) {
	b := challenge.NewStaticBroker("123456")
	ctx := t.Context()

	status, err := b.SendCode(ctx, "+15005550006")
	require.NoError(t, err)
	assert.Equal(t, "pending", status)

	res, err := b.CheckCode(ctx, "+15005550006", "000000")
	require.NoError(t, err)
	assert.Equal(t, challenge.ResultDenied, res)

	res, err = b.CheckCode(ctx, "+15005550006", "123456")
	require.NoError(t, err)
	assert.Equal(t, challenge.ResultApproved, res)

	// Codes are single-use.
	res, err = b.CheckCode(ctx, "+15005550006", "123456")
	require.NoError(t, err)
	assert.Equal(t, challenge.ResultExpired, res)
}

func TestStaticBrokerUnknownPhone(t *testing.T) {
	b := challenge.NewStaticBroker("123456")
	res, err := b.CheckCode(t.Context(), "+15005550000", "123456")
	require.NoError(t, err)
	assert.Equal(t, challenge.ResultExpired, res)
}

func TestNewTwilioBrokerRequiresConfig(t *testing.T) {
	_, err := challenge.NewTwilioBroker(challenge.TwilioConfig{})
	assert.Error(t, err)

	_, err = challenge.NewTwilioBroker(challenge.TwilioConfig{
		AccountSID: "AC123", AuthToken: "tok",
	})
	assert.Error(t, err)
}

// fakeVerify stands in for the Twilio Verify API.
func fakeVerify(t *testing.T, handler http.HandlerFunc) *challenge.TwilioBroker {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	b, err := challenge.NewTwilioBroker(challenge.TwilioConfig{
		AccountSID:       "AC123",
		AuthToken:        "token",
		VerifyServiceSID: "VA123",
		BaseURL:          srv.URL,
	})
	require.NoError(t, err)
	return b
}

func TestTwilioSendCode(t *testing.T) {
	b := fakeVerify(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "/Services/VA123/Verifications", r.URL.Path)
		assert.Equal(t, "+15005550006", r.PostFormValue("To"))
		assert.Equal(t, "sms", r.PostFormValue("Channel"))
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "token", pass)
		json.NewEncoder(w).Encode(map[string]string{"status": "pending"})
	})

	status, err := b.SendCode(t.Context(), "+15005550006")
	require.NoError(t, err)
	assert.Equal(t, "pending", status)
}

func TestTwilioSendCodeProviderError(t *testing.T) {
	b := fakeVerify(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"message": "Invalid parameter `To`"})
	})

	_, err := b.SendCode(t.Context(), "not-a-phone")
	require.ErrorIs(t, err, challenge.ErrDelivery)
	assert.Contains(t, err.Error(), "Invalid parameter")
}

func TestTwilioCheckCode(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   map[string]string
		want   challenge.Result
	}{
		{"approved", http.StatusOK, map[string]string{"status": "approved"}, challenge.ResultApproved},
		{"wrong code", http.StatusOK, map[string]string{"status": "pending"}, challenge.ResultDenied},
		{"expired", http.StatusNotFound, map[string]string{"message": "not found"}, challenge.ResultExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := fakeVerify(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/Services/VA123/VerificationCheck", r.URL.Path)
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(tt.body)
			})
			res, err := b.CheckCode(t.Context(), "+15005550006", "123456")
			require.NoError(t, err)
			assert.Equal(t, tt.want, res)
		})
	}
}

func TestTwilioCheckCodeProviderFault(t *testing.T) {
	b := fakeVerify(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"message": "service unavailable"})
	})

	_, err := b.CheckCode(t.Context(), "+15005550006", "123456")
	assert.ErrorIs(t, err, challenge.ErrVerification)
}
