package signaling

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPISecret = "stream-api-secret-for-tests"

func TestStreamProvider_CreateCall(t *testing.T) {
	callID := uuid.New()
	createdBy := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/video/call/default/"+callID.String(), r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "jwt", r.Header.Get("stream-auth-type"))
		assert.NotEmpty(t, r.Header.Get("Authorization"))

		var body struct {
			Data struct {
				CreatedByID string `json:"created_by_id"`
			} `json:"data"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, createdBy.String(), body.Data.CreatedByID)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"call": map[string]string{"cid": "default:" + callID.String()},
		})
	}))
	defer srv.Close()

	provider := NewStreamProvider("test-key", testAPISecret, srv.URL)

	handle, err := provider.CreateCall(context.Background(), callID, createdBy)
	require.NoError(t, err)
	assert.Equal(t, "default:"+callID.String(), handle)
}

func TestStreamProvider_CreateCall_EmptyCIDFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	provider := NewStreamProvider("test-key", testAPISecret, srv.URL)
	callID := uuid.New()

	handle, err := provider.CreateCall(context.Background(), callID, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, "default:"+callID.String(), handle)
}

func TestStreamProvider_CreateCall_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	provider := NewStreamProvider("test-key", testAPISecret, srv.URL)

	_, err := provider.CreateCall(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestStreamProvider_EndCall(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	provider := NewStreamProvider("test-key", testAPISecret, srv.URL)

	err := provider.EndCall(context.Background(), "default:room-1")
	require.NoError(t, err)
	assert.Equal(t, "/video/call/default:room-1/mark_ended", gotPath)
}

func TestStreamProvider_IssueToken(t *testing.T) {
	provider := NewStreamProvider("test-key", testAPISecret, "http://unused")
	userID := uuid.New()

	signed, err := provider.IssueToken(userID)
	require.NoError(t, err)

	token, err := jwt.Parse(signed, func(token *jwt.Token) (interface{}, error) {
		assert.Equal(t, jwt.SigningMethodHS256, token.Method)
		return []byte(testAPISecret), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, userID.String(), claims["user_id"])

	exp, err := claims.GetExpirationTime()
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), exp.Time, time.Minute)
}
