// Package grpc bridges the session flow into gRPC services: clients send the
// opaque session token as metadata, the interceptor validates it against the
// session store and hands the resolved user ID to the service handlers.
package grpc

import (
	"context"

	"google.golang.org/grpc/metadata"
)

// Default metadata keys for authentication context.
// These can be customized via Config if needed.
const (
	// DefaultMetadataKeySessionToken is the default gRPC metadata key carrying
	// the opaque session token issued at sign-in.
	DefaultMetadataKeySessionToken = "x-session-token"

	// DefaultMetadataKeyUserID is the default gRPC metadata key for a
	// pre-resolved user ID, for calls between trusted internal services.
	DefaultMetadataKeyUserID = "x-user-id"
)

// Config holds the metadata key configuration for auth context.
type Config struct {
	// MetadataKeySessionToken is the gRPC metadata key for the session token.
	// Defaults to "x-session-token".
	MetadataKeySessionToken string

	// MetadataKeyUserID is the gRPC metadata key for a pre-resolved user ID.
	// Only honored when TrustUserIDMetadata is set. Defaults to "x-user-id".
	MetadataKeyUserID string

	// TrustUserIDMetadata when true accepts the user-id metadata key without a
	// session token. Only for internal meshes where the edge already
	// authenticated the call; never expose this to untrusted clients.
	TrustUserIDMetadata bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MetadataKeySessionToken: DefaultMetadataKeySessionToken,
		MetadataKeyUserID:       DefaultMetadataKeyUserID,
		TrustUserIDMetadata:     false,
	}
}

// EnsureDefaults fills in default values for any unset fields.
func (c *Config) EnsureDefaults() {
	if c.MetadataKeySessionToken == "" {
		c.MetadataKeySessionToken = DefaultMetadataKeySessionToken
	}
	if c.MetadataKeyUserID == "" {
		c.MetadataKeyUserID = DefaultMetadataKeyUserID
	}
}

type contextKey string

const userIDContextKey contextKey = "edgeauthGrpcUserID"

// withUserID records the validated user ID on the context for handlers.
func withUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// UserIDFromContext returns the user ID the interceptor resolved for this
// call, or empty if the call is unauthenticated.
func UserIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userIDContextKey).(string)
	return userID
}

// IsAuthenticated returns true if the interceptor resolved a user for this call.
func IsAuthenticated(ctx context.Context) bool {
	return UserIDFromContext(ctx) != ""
}

// SessionTokenToOutgoingContext attaches the session token to an outgoing
// call's metadata.
func SessionTokenToOutgoingContext(ctx context.Context, token string) context.Context {
	return SessionTokenToOutgoingContextWithKey(ctx, token, DefaultMetadataKeySessionToken)
}

// SessionTokenToOutgoingContextWithKey attaches the session token with a custom key.
func SessionTokenToOutgoingContextWithKey(ctx context.Context, token string, key string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, key, token)
}

// UserIDToOutgoingContext adds a pre-resolved user ID to outgoing metadata.
// The receiving side only honors it with TrustUserIDMetadata enabled.
func UserIDToOutgoingContext(ctx context.Context, userID string) context.Context {
	return UserIDToOutgoingContextWithKey(ctx, userID, DefaultMetadataKeyUserID)
}

// UserIDToOutgoingContextWithKey adds the user ID with a custom key.
func UserIDToOutgoingContextWithKey(ctx context.Context, userID string, key string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, key, userID)
}
