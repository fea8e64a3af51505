package session

import (
	"strconv"
	"time"

	"github.com/amir0eveloper/rdmc-srshb/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

const issuer = "rdmc"

// Claims is the payload of a browser session token.
type Claims struct {
	jwt.RegisteredClaims
	Username string      `json:"username"`
	Name     string      `json:"name"`
	Role     domain.Role `json:"role"`
}

// Signer issues HS256 session tokens that expire after ttl.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

var _ domain.SessionSigner = (*Signer)(nil)

func NewSigner(secret string, ttl time.Duration) *Signer {
	s := &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	)
	return s
}

// WithClock replaces the time source, for tests.
func (s *Signer) WithClock(now func() time.Time) *Signer {
	s.now = now
	return s
}

func (s *Signer) TTL() time.Duration { return s.ttl }

func (s *Signer) Issue(identity domain.Identity) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatUint(uint64(identity.UserID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Username: identity.Username,
		Name:     identity.Name,
		Role:     identity.Role,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", domain.ErrInternal.Wrap(err)
	}
	return token, nil
}

// Parse verifies the signature and expiry. Every failure is unauthorized.
func (s *Signer) Parse(token string) (domain.Identity, error) {
	var claims Claims
	_, err := s.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return domain.Identity{}, domain.ErrUnauthorized.New("invalid session")
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return domain.Identity{}, domain.ErrUnauthorized.New("invalid session")
	}
	if _, ok := domain.ParseRole(string(claims.Role)); !ok {
		return domain.Identity{}, domain.ErrUnauthorized.New("invalid session")
	}
	return domain.Identity{UserID: uint(id), Username: claims.Username, Name: claims.Name, Role: claims.Role}, nil
}
