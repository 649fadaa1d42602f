package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/courtedge/edgeauth"
)

// ValidateTokenFunc resolves an opaque session token to the owning user ID.
// Invalid, expired or unknown tokens return an error.
type ValidateTokenFunc func(token string) (userID string, err error)

// StoreValidator builds a ValidateTokenFunc on the session store, applying
// the same expiry rule as the HTTP route guard.
func StoreValidator(store edgeauth.SessionStore) ValidateTokenFunc {
	return func(token string) (string, error) {
		session, err := store.GetSession(token)
		if err != nil {
			return "", err
		}
		if session == nil {
			return "", edgeauth.ErrTokenNotFound
		}
		if session.IsExpired(time.Now()) {
			return "", edgeauth.ErrTokenExpired
		}
		return session.UserID, nil
	}
}

// InterceptorConfig configures the auth interceptor behavior.
type InterceptorConfig struct {
	// Config holds the metadata key configuration.
	*Config

	// Validate resolves session tokens to user IDs. Required unless every
	// call arrives pre-resolved over a trusted mesh.
	Validate ValidateTokenFunc

	// RequireAuth when true rejects unauthenticated requests.
	// When false, requests proceed but UserIDFromContext returns empty.
	RequireAuth bool

	// PublicMethods is a set of method names that don't require auth.
	// Only used when RequireAuth is true.
	// Keys should be full method names like "/package.Service/Method".
	PublicMethods map[string]bool
}

// DefaultInterceptorConfig returns a config that requires auth for all methods.
func DefaultInterceptorConfig(validate ValidateTokenFunc) *InterceptorConfig {
	return &InterceptorConfig{
		Config:        DefaultConfig(),
		Validate:      validate,
		RequireAuth:   true,
		PublicMethods: make(map[string]bool),
	}
}

// NewPublicMethodsConfig creates a config with the specified public methods.
func NewPublicMethodsConfig(validate ValidateTokenFunc, publicMethods ...string) *InterceptorConfig {
	config := DefaultInterceptorConfig(validate)
	for _, method := range publicMethods {
		config.PublicMethods[method] = true
	}
	return config
}

// OptionalAuthConfig returns a config that allows unauthenticated requests.
func OptionalAuthConfig(validate ValidateTokenFunc) *InterceptorConfig {
	return &InterceptorConfig{
		Config:        DefaultConfig(),
		Validate:      validate,
		RequireAuth:   false,
		PublicMethods: make(map[string]bool),
	}
}

func (c *InterceptorConfig) ensureDefaults() *InterceptorConfig {
	if c == nil {
		c = &InterceptorConfig{RequireAuth: true}
	}
	if c.Config == nil {
		c.Config = DefaultConfig()
	}
	c.Config.EnsureDefaults()
	if c.PublicMethods == nil {
		c.PublicMethods = make(map[string]bool)
	}
	return c
}

// UnaryAuthInterceptor returns a gRPC unary interceptor that validates the
// session token from metadata and stores the resolved user ID on the context.
func UnaryAuthInterceptor(config *InterceptorConfig) grpc.UnaryServerInterceptor {
	config = config.ensureDefaults()

	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		userID := config.resolveUserID(ctx)

		if config.RequireAuth && !config.PublicMethods[info.FullMethod] {
			if userID == "" {
				return nil, status.Error(codes.Unauthenticated, "authentication required")
			}
		}

		return handler(withUserID(ctx, userID), req)
	}
}

// StreamAuthInterceptor returns a gRPC stream interceptor with the same behavior.
func StreamAuthInterceptor(config *InterceptorConfig) grpc.StreamServerInterceptor {
	config = config.ensureDefaults()

	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx := ss.Context()
		userID := config.resolveUserID(ctx)

		if config.RequireAuth && !config.PublicMethods[info.FullMethod] {
			if userID == "" {
				return status.Error(codes.Unauthenticated, "authentication required")
			}
		}

		return handler(srv, &wrappedStream{ServerStream: ss, ctx: withUserID(ctx, userID)})
	}
}

// resolveUserID validates the session token from metadata; with
// TrustUserIDMetadata set, a bare user-id key is accepted as a fallback.
func (c *InterceptorConfig) resolveUserID(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}

	if c.Validate != nil {
		if values := md.Get(c.Config.MetadataKeySessionToken); len(values) > 0 && values[0] != "" {
			userID, err := c.Validate(values[0])
			if err == nil {
				return userID
			}
		}
	}

	if c.Config.TrustUserIDMetadata {
		if values := md.Get(c.Config.MetadataKeyUserID); len(values) > 0 {
			return values[0]
		}
	}

	return ""
}

// wrappedStream overrides the stream context so handlers see the resolved user.
type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context {
	return w.ctx
}
