package grpc

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/courtedge/edgeauth"
	"github.com/courtedge/edgeauth/stores"
)

// staticValidator accepts exactly one token.
func staticValidator(goodToken, userID string) ValidateTokenFunc {
	return func(token string) (string, error) {
		if token == goodToken {
			return userID, nil
		}
		return "", edgeauth.ErrTokenNotFound
	}
}

func TestDefaultInterceptorConfig(t *testing.T) {
	config := DefaultInterceptorConfig(staticValidator("tok", "user123"))
	if !config.RequireAuth {
		t.Error("expected RequireAuth to be true by default")
	}
	if config.PublicMethods == nil {
		t.Error("expected PublicMethods to be initialized")
	}
	if config.Config == nil {
		t.Error("expected Config to be initialized")
	}
}

func TestNewPublicMethodsConfig(t *testing.T) {
	config := NewPublicMethodsConfig(nil, "/pkg.Svc/Method1", "/pkg.Svc/Method2")
	if !config.RequireAuth {
		t.Error("expected RequireAuth to be true")
	}
	if !config.PublicMethods["/pkg.Svc/Method1"] {
		t.Error("expected Method1 to be public")
	}
	if !config.PublicMethods["/pkg.Svc/Method2"] {
		t.Error("expected Method2 to be public")
	}
	if config.PublicMethods["/pkg.Svc/Method3"] {
		t.Error("expected Method3 to not be public")
	}
}

func TestOptionalAuthConfig(t *testing.T) {
	config := OptionalAuthConfig(nil)
	if config.RequireAuth {
		t.Error("expected RequireAuth to be false")
	}
}

func TestUnaryAuthInterceptor_RequireAuth_NoToken(t *testing.T) {
	interceptor := UnaryAuthInterceptor(DefaultInterceptorConfig(staticValidator("tok", "user123")))

	ctx := context.Background()
	info := &grpc.UnaryServerInfo{FullMethod: "/pkg.Svc/Method"}

	_, err := interceptor(ctx, nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		t.Error("handler should not be called")
		return nil, nil
	})

	if err == nil {
		t.Fatal("expected error for unauthenticated request")
	}

	st, ok := status.FromError(err)
	if !ok {
		t.Fatalf("expected grpc status error, got %v", err)
	}
	if st.Code() != codes.Unauthenticated {
		t.Errorf("expected Unauthenticated code, got %v", st.Code())
	}
}

func TestUnaryAuthInterceptor_RequireAuth_ValidToken(t *testing.T) {
	interceptor := UnaryAuthInterceptor(DefaultInterceptorConfig(staticValidator("tok", "user123")))

	md := metadata.Pairs(DefaultMetadataKeySessionToken, "tok")
	ctx := metadata.NewIncomingContext(context.Background(), md)
	info := &grpc.UnaryServerInfo{FullMethod: "/pkg.Svc/Method"}

	handlerCalled := false
	_, err := interceptor(ctx, nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		handlerCalled = true
		if got := UserIDFromContext(ctx); got != "user123" {
			t.Errorf("expected resolved user 'user123', got %q", got)
		}
		return "result", nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handlerCalled {
		t.Error("handler should have been called")
	}
}

func TestUnaryAuthInterceptor_RequireAuth_BadToken(t *testing.T) {
	interceptor := UnaryAuthInterceptor(DefaultInterceptorConfig(staticValidator("tok", "user123")))

	md := metadata.Pairs(DefaultMetadataKeySessionToken, "wrong")
	ctx := metadata.NewIncomingContext(context.Background(), md)
	info := &grpc.UnaryServerInfo{FullMethod: "/pkg.Svc/Method"}

	_, err := interceptor(ctx, nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		t.Error("handler should not be called with a bad token")
		return nil, nil
	})

	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Unauthenticated {
		t.Errorf("expected Unauthenticated, got %v", err)
	}
}

func TestUnaryAuthInterceptor_PublicMethod(t *testing.T) {
	config := NewPublicMethodsConfig(staticValidator("tok", "user123"), "/pkg.Svc/PublicMethod")
	interceptor := UnaryAuthInterceptor(config)

	ctx := context.Background() // No token
	info := &grpc.UnaryServerInfo{FullMethod: "/pkg.Svc/PublicMethod"}

	handlerCalled := false
	_, err := interceptor(ctx, nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		handlerCalled = true
		return "result", nil
	})

	if err != nil {
		t.Fatalf("unexpected error for public method: %v", err)
	}
	if !handlerCalled {
		t.Error("handler should have been called for public method")
	}
}

func TestUnaryAuthInterceptor_OptionalAuth(t *testing.T) {
	config := OptionalAuthConfig(staticValidator("tok", "user123"))
	interceptor := UnaryAuthInterceptor(config)

	ctx := context.Background() // No token
	info := &grpc.UnaryServerInfo{FullMethod: "/pkg.Svc/Method"}

	handlerCalled := false
	_, err := interceptor(ctx, nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		handlerCalled = true
		if UserIDFromContext(ctx) != "" {
			t.Error("expected no resolved user without a token")
		}
		return "result", nil
	})

	if err != nil {
		t.Fatalf("unexpected error with optional auth: %v", err)
	}
	if !handlerCalled {
		t.Error("handler should have been called with optional auth")
	}
}

func TestUnaryAuthInterceptor_TrustedUserIDMetadata(t *testing.T) {
	config := DefaultInterceptorConfig(nil)
	config.Config.TrustUserIDMetadata = true
	interceptor := UnaryAuthInterceptor(config)

	md := metadata.Pairs(DefaultMetadataKeyUserID, "mesh456")
	ctx := metadata.NewIncomingContext(context.Background(), md)
	info := &grpc.UnaryServerInfo{FullMethod: "/pkg.Svc/Method"}

	handlerCalled := false
	_, err := interceptor(ctx, nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		handlerCalled = true
		if got := UserIDFromContext(ctx); got != "mesh456" {
			t.Errorf("expected trusted user 'mesh456', got %q", got)
		}
		return "result", nil
	})

	if err != nil {
		t.Fatalf("unexpected error with trusted metadata: %v", err)
	}
	if !handlerCalled {
		t.Error("handler should have been called")
	}
}

func TestUnaryAuthInterceptor_UserIDMetadataIgnoredByDefault(t *testing.T) {
	interceptor := UnaryAuthInterceptor(DefaultInterceptorConfig(staticValidator("tok", "user123")))

	md := metadata.Pairs(DefaultMetadataKeyUserID, "spoofed")
	ctx := metadata.NewIncomingContext(context.Background(), md)
	info := &grpc.UnaryServerInfo{FullMethod: "/pkg.Svc/Method"}

	_, err := interceptor(ctx, nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		t.Error("handler should not be called from spoofed metadata")
		return nil, nil
	})

	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Unauthenticated {
		t.Errorf("expected Unauthenticated, got %v", err)
	}
}

func TestStoreValidator(t *testing.T) {
	store := stores.NewMemoryStore()
	user, _ := store.CreateUser("grpc@example.com", edgeauth.ProviderGoogle)
	validate := StoreValidator(store)

	t.Run("valid session resolves", func(t *testing.T) {
		session, _ := store.CreateSession(user.ID, time.Hour)
		userID, err := validate(session.Token)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if userID != user.ID {
			t.Errorf("expected %s, got %s", user.ID, userID)
		}
	})

	t.Run("unknown token rejected", func(t *testing.T) {
		if _, err := validate("nope"); !errors.Is(err, edgeauth.ErrTokenNotFound) {
			t.Errorf("expected ErrTokenNotFound, got %v", err)
		}
	})

	t.Run("expired session rejected", func(t *testing.T) {
		session, _ := store.CreateSession(user.ID, time.Nanosecond)
		time.Sleep(2 * time.Millisecond)
		if _, err := validate(session.Token); !errors.Is(err, edgeauth.ErrTokenExpired) {
			t.Errorf("expected ErrTokenExpired, got %v", err)
		}
	})
}

// mockServerStream implements grpc.ServerStream for testing
type mockServerStream struct {
	ctx context.Context
}

func (m *mockServerStream) Context() context.Context     { return m.ctx }
func (m *mockServerStream) SetHeader(metadata.MD) error  { return nil }
func (m *mockServerStream) SendHeader(metadata.MD) error { return nil }
func (m *mockServerStream) SetTrailer(metadata.MD)       {}
func (m *mockServerStream) SendMsg(interface{}) error    { return nil }
func (m *mockServerStream) RecvMsg(interface{}) error    { return nil }

func TestStreamAuthInterceptor_RequireAuth_NoToken(t *testing.T) {
	interceptor := StreamAuthInterceptor(DefaultInterceptorConfig(staticValidator("tok", "user123")))

	stream := &mockServerStream{ctx: context.Background()}
	info := &grpc.StreamServerInfo{FullMethod: "/pkg.Svc/StreamMethod"}

	err := interceptor(nil, stream, info, func(srv interface{}, ss grpc.ServerStream) error {
		t.Error("handler should not be called")
		return nil
	})

	if err == nil {
		t.Fatal("expected error for unauthenticated stream")
	}

	st, ok := status.FromError(err)
	if !ok {
		t.Fatalf("expected grpc status error, got %v", err)
	}
	if st.Code() != codes.Unauthenticated {
		t.Errorf("expected Unauthenticated code, got %v", st.Code())
	}
}

func TestStreamAuthInterceptor_RequireAuth_ValidToken(t *testing.T) {
	interceptor := StreamAuthInterceptor(DefaultInterceptorConfig(staticValidator("tok", "user123")))

	md := metadata.Pairs(DefaultMetadataKeySessionToken, "tok")
	ctx := metadata.NewIncomingContext(context.Background(), md)
	stream := &mockServerStream{ctx: ctx}
	info := &grpc.StreamServerInfo{FullMethod: "/pkg.Svc/StreamMethod"}

	handlerCalled := false
	err := interceptor(nil, stream, info, func(srv interface{}, ss grpc.ServerStream) error {
		handlerCalled = true
		if got := UserIDFromContext(ss.Context()); got != "user123" {
			t.Errorf("expected resolved user on stream context, got %q", got)
		}
		return nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handlerCalled {
		t.Error("handler should have been called")
	}
}

func TestStreamAuthInterceptor_PublicMethod(t *testing.T) {
	config := NewPublicMethodsConfig(staticValidator("tok", "user123"), "/pkg.Svc/PublicStream")
	interceptor := StreamAuthInterceptor(config)

	stream := &mockServerStream{ctx: context.Background()}
	info := &grpc.StreamServerInfo{FullMethod: "/pkg.Svc/PublicStream"}

	handlerCalled := false
	err := interceptor(nil, stream, info, func(srv interface{}, ss grpc.ServerStream) error {
		handlerCalled = true
		return nil
	})

	if err != nil {
		t.Fatalf("unexpected error for public stream: %v", err)
	}
	if !handlerCalled {
		t.Error("handler should have been called for public stream")
	}
}
