package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBrevoSendPostsPayload(t *testing.T) {
	var got brevoPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "secret", r.Header.Get("api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	s := &BrevoService{APIKey: "secret", SenderEmail: "ops@clinic.test", SenderName: "Clinic", Endpoint: srv.URL, HTTPClient: srv.Client()}
	require.NoError(t, s.send(context.Background(), "anna@clinic.test", "", "Hi", "<p>x</p>"))
	require.Equal(t, "anna", got.To[0]["name"])
	require.Equal(t, "Hi", got.Subject)
}

func TestBrevoSendSurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"invalid_parameter"}`))
	}))
	defer srv.Close()

	s := &BrevoService{APIKey: "k", SenderEmail: "a@b.c", SenderName: "n", Endpoint: srv.URL, HTTPClient: srv.Client()}
	err := s.send(context.Background(), "anna@clinic.test", "Anna", "Hi", "x")
	require.ErrorContains(t, err, "invalid_parameter")

	require.Error(t, s.send(context.Background(), "not-an-email", "", "Hi", "x"))
}

func TestFormatMinor(t *testing.T) {
	require.Equal(t, "80.00", FormatMinor(8000))
	require.Equal(t, "0.05", FormatMinor(5))
	require.Equal(t, "-12.30", FormatMinor(-1230))
}
