package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"converse/errors"
)

func TestHashAndCompare(t *testing.T) {
	req := require.New(t)
	password := "MonMotDePasseTr0pSûr!"

	hash, err := HashPassword(password)
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))

	match, err := ComparePassword(password, hash)
	req.NoError(err)
	req.True(match)

	match, err = ComparePassword("MauvaisMDP", hash)
	req.NoError(err)
	req.False(match)
}

func TestGenerateAndValidateToken(t *testing.T) {
	req := require.New(t)

	token, err := GenerateToken("alice", []string{"user"}, time.Hour)
	req.NoError(err)

	claims, err := ValidateToken(token)
	req.NoError(err)
	req.Equal("alice", claims.UserID)
	req.Equal([]string{"user"}, claims.Roles)
}

func TestValidateToken_Expired(t *testing.T) {
	req := require.New(t)

	token, err := GenerateToken("alice", []string{"user"}, -time.Minute)
	req.NoError(err)

	_, err = ValidateToken(token)
	req.Error(err)
}

func TestValidateRegister(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		wantErr  bool
	}{
		{name: "valid", username: "alice42", password: "ComplexPass123!", wantErr: false},
		{name: "too short password", username: "alice42", password: "Short1!", wantErr: true},
		{name: "missing complexity", username: "alice42", password: "alllowercase1234", wantErr: true},
		{name: "bad username", username: "a l i c e", password: "ComplexPass123!", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRegister(RegisterRequest{Username: tt.username, Password: tt.password})
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateRegister_Complexity_Sentinel(t *testing.T) {
	req := require.New(t)

	err := ValidateRegister(RegisterRequest{Username: "alice42", Password: "alllowercase1234"})

	req.ErrorIs(err, errors.ErrInvalidPassword)
}

func TestMiddleware_Injects_Identity(t *testing.T) {
	req := require.New(t)

	token, err := GenerateToken("alice", []string{"user"}, time.Hour)
	req.NoError(err)

	var seen string
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CallerID(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/api/whatever", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	req.Equal(http.StatusOK, w.Code)
	req.Equal("alice", seen)
}

func TestMiddleware_Rejects_Missing_And_Bad_Tokens(t *testing.T) {
	req := require.New(t)
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	r := httptest.NewRequest(http.MethodGet, "/api/whatever", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	req.Equal(http.StatusUnauthorized, w.Code)

	r = httptest.NewRequest(http.MethodGet, "/api/whatever", nil)
	r.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	req.Equal(http.StatusUnauthorized, w.Code)
}

func TestResolveSessionToken_Query_Fallback(t *testing.T) {
	req := require.New(t)

	r := httptest.NewRequest(http.MethodGet, "/ws?token=abc", nil)
	req.Equal("abc", ResolveSessionToken(r))

	r = httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Authorization", "Bearer xyz")
	req.Equal("xyz", ResolveSessionToken(r))
}
