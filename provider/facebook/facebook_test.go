package facebook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-session-store/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGraphServer(t *testing.T, debugToken http.HandlerFunc, me http.HandlerFunc) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/debug_token", debugToken)
	mux.HandleFunc("/me", me)
	return httptest.NewServer(mux)
}

func validIntrospection(appID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": {"app_id": "` + appID + `", "is_valid": true, "user_id": "999"}}`))
	}
}

func TestVerifyTokenMapsProfile(t *testing.T) {
	var introspected struct {
		inputToken  string
		accessToken string
	}

	server := newGraphServer(t,
		func(w http.ResponseWriter, r *http.Request) {
			introspected.inputToken = r.URL.Query().Get("input_token")
			introspected.accessToken = r.URL.Query().Get("access_token")
			validIntrospection("app-id")(w, r)
		},
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "user-token", r.URL.Query().Get("access_token"))
			assert.Equal(t, "id,name,picture", r.URL.Query().Get("fields"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{
				"id": "999",
				"name": "Goliat One",
				"picture": {"data": {"url": "https://graph.facebook.com/999/picture"}}
			}`))
		},
	)
	defer server.Close()

	p := New(WithEndpoints(server.URL+"/debug_token", server.URL+"/me"))

	profile, err := p.VerifyToken(context.Background(), provider.TokenCredential{
		Token: "user-token",
	}, provider.Config{
		ClientID:     "app-id",
		ClientSecret: "app-secret",
	})
	require.NoError(t, err)

	assert.Equal(t, "facebook", profile.Provider)
	assert.Equal(t, "999", profile.Username)
	assert.Equal(t, "Goliat One", profile.Name)
	assert.Equal(t, "https://graph.facebook.com/999/picture", profile.ImageURL)

	assert.Equal(t, "user-token", introspected.inputToken)
	assert.Equal(t, "app-id|app-secret", introspected.accessToken)
}

func TestVerifyTokenInvalidToken(t *testing.T) {
	server := newGraphServer(t,
		func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"data": {"app_id": "app-id", "is_valid": false}}`))
		},
		func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("profile must not be fetched for an invalid token")
		},
	)
	defer server.Close()

	p := New(WithEndpoints(server.URL+"/debug_token", server.URL+"/me"))

	_, err := p.VerifyToken(context.Background(), provider.TokenCredential{Token: "bad"}, provider.Config{
		ClientID: "app-id",
	})
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, goerrors.CodeUnauthorized, richErr.Code)
}

func TestVerifyTokenRejectsForeignApp(t *testing.T) {
	server := newGraphServer(t,
		validIntrospection("someone-elses-app"),
		func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("profile must not be fetched for a foreign token")
		},
	)
	defer server.Close()

	p := New(WithEndpoints(server.URL+"/debug_token", server.URL+"/me"))

	_, err := p.VerifyToken(context.Background(), provider.TokenCredential{Token: "tok"}, provider.Config{
		ClientID: "app-id",
	})
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, "someone-elses-app", richErr.Metadata["app_id"])
}

func TestVerifyTokenIntrospectionFailure(t *testing.T) {
	server := newGraphServer(t,
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error": {"message": "bad token"}}`))
		},
		func(w http.ResponseWriter, r *http.Request) {},
	)
	defer server.Close()

	p := New(WithEndpoints(server.URL+"/debug_token", server.URL+"/me"))

	_, err := p.VerifyToken(context.Background(), provider.TokenCredential{Token: "tok"}, provider.Config{})
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, http.StatusBadRequest, richErr.Metadata["status"])
}
