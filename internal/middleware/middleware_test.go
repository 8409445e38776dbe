package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/roommates/internal/auth"
)

type empty struct{}

func TestRequireAuth(t *testing.T) {
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	token, err := jwtManager.Generate("alice", "alice@example.com")
	require.NoError(t, err)

	var gotUser, gotEmail string
	handler := RequireAuth(jwtManager)(func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		gotUser = GetUserID(ctx)
		gotEmail = GetEmail(ctx)
		return connect.NewResponse(&empty{}), nil
	})

	tests := []struct {
		name   string
		header string
		ok     bool
	}{
		{"valid bearer", "Bearer " + token, true},
		{"lowercase scheme", "bearer " + token, true},
		{"missing header", "", false},
		{"wrong scheme", "Basic " + token, false},
		{"no token", "Bearer ", false},
		{"bad token", "Bearer abc.def.ghi", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUser, gotEmail = "", ""
			req := connect.NewRequest(&empty{})
			if tt.header != "" {
				req.Header().Set("Authorization", tt.header)
			}

			_, err := handler(context.Background(), req)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, "alice", gotUser)
				assert.Equal(t, "alice@example.com", gotEmail)
				return
			}
			assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
			assert.Empty(t, gotUser)
		})
	}
}

func TestLoggingInterceptor_RequestID(t *testing.T) {
	var seen string
	handler := LoggingInterceptor()(func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		seen = GetRequestID(ctx)
		return connect.NewResponse(&empty{}), nil
	})

	resp, err := handler(context.Background(), connect.NewRequest(&empty{}))
	require.NoError(t, err)
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, resp.Header().Get(RequestIDHeader))

	req := connect.NewRequest(&empty{})
	req.Header().Set(RequestIDHeader, "req-123")
	resp, err = handler(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "req-123", resp.Header().Get(RequestIDHeader))
}

func TestLoggingInterceptor_ErrorCarriesRequestID(t *testing.T) {
	handler := LoggingInterceptor()(func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		return nil, connect.NewError(connect.CodeNotFound, errors.New("missing"))
	})

	_, err := handler(WithUser(context.Background(), "bob", ""), connect.NewRequest(&empty{}))
	var connectErr *connect.Error
	require.ErrorAs(t, err, &connectErr)
	assert.Equal(t, connect.CodeNotFound, connectErr.Code())
	assert.NotEmpty(t, connectErr.Meta().Get(RequestIDHeader))
}
