package sms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nordtolk/booking-backend/pkg/config"
)

func TestSendPostsFormWithBasicAuth(t *testing.T) {
	var gotUser, gotPass, gotTo, gotFrom, gotMessage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, _ = r.BasicAuth()
		require.NoError(t, r.ParseForm())
		gotTo = r.FormValue("to")
		gotFrom = r.FormValue("from")
		gotMessage = r.FormValue("message")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := NewClient(config.SMSConfig{
		Endpoint: srv.URL,
		Username: "nordtolk",
		Password: "hemlig",
		From:     "NordTolk",
	}, WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	err = client.Send(context.Background(), "+46701234567", "Ny akut tolkning")
	require.NoError(t, err)

	require.Equal(t, "nordtolk", gotUser)
	require.Equal(t, "hemlig", gotPass)
	require.Equal(t, "+46701234567", gotTo)
	require.Equal(t, "NordTolk", gotFrom)
	require.Equal(t, "Ny akut tolkning", gotMessage)
}

func TestSendValidatesInput(t *testing.T) {
	client, err := NewClient(config.SMSConfig{Endpoint: "http://localhost:0"})
	require.NoError(t, err)

	require.Error(t, client.Send(context.Background(), "", "hello"))
	require.Error(t, client.Send(context.Background(), "+46701234567", ""))
}

func TestSendSurfacesGatewayErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client, err := NewClient(config.SMSConfig{Endpoint: srv.URL}, WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	err = client.Send(context.Background(), "+46701234567", "hej")
	require.Error(t, err)
	require.Contains(t, err.Error(), "sms request failed")
}
