// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrRoomMismatch is returned when a token names a different room than the request.
var ErrRoomMismatch = errors.New("token was issued for another room")

// SeatClaims identifies one seat: sub is the player id, room the room id.
type SeatClaims struct {
	RoomID string `json:"room"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies seat tokens with an ed25519 key pair.
type Issuer struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	ttl        time.Duration // 0 => no exp claim
}

// NewIssuer generates a fresh ed25519 key pair at runtime. Tokens do not
// survive a restart, and neither do rooms.
func NewIssuer(ttl time.Duration) (*Issuer, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return &Issuer{privateKey: priv, publicKey: pub, ttl: ttl}, nil
}

// NewIssuerFromPath reads ed25519 private/public keys from file.
func NewIssuerFromPath(privatePath, publicPath string, ttl time.Duration) (*Issuer, error) {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(privateKeyData) != ed25519.PrivateKeySize || len(publicKeyData) != ed25519.PublicKeySize {
		return nil, errors.New("ed25519 key files have the wrong size")
	}
	return &Issuer{
		privateKey: ed25519.PrivateKey(privateKeyData),
		publicKey:  ed25519.PublicKey(publicKeyData),
		ttl:        ttl,
	}, nil
}

// ParseTokenExpireTime interprets TOKEN_EXPIRE_TIME values: "", "0" and
// "never" mean no expiry, anything else is a Go duration.
func ParseTokenExpireTime(s string) (time.Duration, error) {
	if s == "" || s == "0" || s == "never" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("failed to parse token expire time: %w", err)
	}
	return d, nil
}

// CreateSessionToken signs a token for playerID's seat in roomID.
func (i *Issuer) CreateSessionToken(roomID, playerID uuid.UUID) (string, error) {
	now := time.Now()
	claims := SeatClaims{
		RoomID: roomID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  playerID.String(),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if i.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(i.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(i.privateKey)
}

// ParseSessionToken verifies tokenString and returns the seat it names.
func (i *Issuer) ParseSessionToken(tokenString string) (roomID, playerID uuid.UUID, err error) {
	claims := &SeatClaims{}
	t, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return i.publicKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}))
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return uuid.Nil, uuid.Nil, errors.New("invalid token")
	}

	roomID, err = uuid.Parse(claims.RoomID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid room in jwt: %w", err)
	}
	playerID, err = uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid sub in jwt: %w", err)
	}
	return roomID, playerID, nil
}

// AuthorizeSeat parses tokenString and checks it belongs to roomID.
func (i *Issuer) AuthorizeSeat(tokenString string, roomID uuid.UUID) (uuid.UUID, error) {
	tokRoom, playerID, err := i.ParseSessionToken(tokenString)
	if err != nil {
		return uuid.Nil, err
	}
	if tokRoom != roomID {
		return uuid.Nil, ErrRoomMismatch
	}
	return playerID, nil
}
