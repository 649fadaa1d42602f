package edgeauth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer turns a verified identity into a session. Both the OAuth callbacks
// and the magic-link callback funnel through this single entry point.
type Issuer struct {
	Store AuthStore

	// SessionTTL defaults to SessionTTLDefault (24h).
	SessionTTL time.Duration

	// JWT fields used by EncodeSession for header-bearing API clients. The
	// cookie path carries the opaque token; the JWT wraps the same token in a
	// signed envelope so backends can reject garbage before a store read.
	JwtIssuer    string
	JWTSecretKey string
}

// Issue finds or creates the user for the identity's email and creates a new
// session record. The only error path besides store failure is none: a fresh
// email simply becomes a fresh user with CompletedOnboarding false.
func (i *Issuer) Issue(ident Identity) (*Session, *User, error) {
	email := ident.Email()
	if email == "" {
		return nil, nil, fmt.Errorf("%w: identity has no email", ErrProviderRejected)
	}

	user, err := i.Store.GetUserByEmail(email)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		user, err = i.Store.CreateUser(email, ident.Provider())
		if err != nil {
			return nil, nil, err
		}
	}

	ttl := i.SessionTTL
	if ttl <= 0 {
		ttl = SessionTTLDefault
	}
	session, err := i.Store.CreateSession(user.ID, ttl)
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

// EncodeSession signs the session token into a compact JWT. The "sid" claim
// carries the opaque session token; subject is the owning user.
func (i *Issuer) EncodeSession(session *Session) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": session.UserID,
		"sid": session.Token,
		"iss": i.JwtIssuer,
		"iat": session.CreatedAt.Unix(),
		"exp": session.ExpiresAt.Unix(),
	})
	return token.SignedString([]byte(i.JWTSecretKey))
}

// DecodeSessionToken verifies a JWT produced by EncodeSession and returns the
// embedded session token. The session record must still be looked up and
// checked; the JWT alone proves nothing about expiry-by-signout.
func (i *Issuer) DecodeSessionToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(i.JWTSecretKey), nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims == nil {
		return "", fmt.Errorf("claims is not a map")
	}
	sid, _ := claims["sid"].(string)
	if sid == "" {
		return "", fmt.Errorf("session id not found in token")
	}
	return sid, nil
}
