package jwt

import (
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultCSRFTTL is the lifetime of CSRF tokens.
const DefaultCSRFTTL = time.Hour

type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
	KindCSRF    Kind = "csrf"
)

// Outcome tags the result of a verification.
type Outcome int

const (
	OutcomeInvalid Outcome = iota
	OutcomeOK
	OutcomeExpired
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeExpired:
		return "expired"
	default:
		return "invalid"
	}
}

// Identity is the application part of the claims.
type Identity struct {
	UserID    string `json:"userId"`
	Username  string `json:"username,omitempty"`
	ProfileID string `json:"profileId,omitempty"`
}

type Claims struct {
	Identity
	jwtlib.RegisteredClaims
}

// Verification is the tagged result of checking a token. Claims is set only
// when Outcome is OutcomeOK; Err carries the library reason for logging.
type Verification struct {
	Outcome Outcome
	Claims  *Claims
	Err     error
}

func (v Verification) OK() bool { return v.Outcome == OutcomeOK }

type Pair struct {
	AccessToken  string
	RefreshToken string
}

type Config struct {
	AccessSecret  string
	RefreshSecret string
	CSRFSecret    string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	CSRFTTL       time.Duration

	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

type signingKey struct {
	secret []byte
	ttl    time.Duration
}

type Service struct {
	keys map[Kind]signingKey
	now  func() time.Time
}

func New(cfg Config) (*Service, error) {
	if cfg.CSRFTTL == 0 {
		cfg.CSRFTTL = DefaultCSRFTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" || cfg.CSRFSecret == "" {
		return nil, errors.New("jwt: all three signing secrets are required")
	}
	if cfg.AccessSecret == cfg.RefreshSecret || cfg.AccessSecret == cfg.CSRFSecret || cfg.RefreshSecret == cfg.CSRFSecret {
		return nil, errors.New("jwt: signing secrets must be distinct")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 || cfg.CSRFTTL <= 0 {
		return nil, errors.New("jwt: token lifetimes must be positive")
	}

	return &Service{
		keys: map[Kind]signingKey{
			KindAccess:  {secret: []byte(cfg.AccessSecret), ttl: cfg.AccessTTL},
			KindRefresh: {secret: []byte(cfg.RefreshSecret), ttl: cfg.RefreshTTL},
			KindCSRF:    {secret: []byte(cfg.CSRFSecret), ttl: cfg.CSRFTTL},
		},
		now: cfg.Now,
	}, nil
}

func (s *Service) IssueAccessToken(id Identity) (string, error) {
	return s.issue(KindAccess, id)
}

func (s *Service) IssueRefreshToken(id Identity) (string, error) {
	return s.issue(KindRefresh, id)
}

func (s *Service) IssueCSRFToken(userID string) (string, error) {
	return s.issue(KindCSRF, Identity{UserID: userID})
}

func (s *Service) IssuePair(id Identity) (Pair, error) {
	access, err := s.IssueAccessToken(id)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := s.IssueRefreshToken(id)
	if err != nil {
		return Pair{}, err
	}
	return Pair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Service) VerifyAccess(raw string) Verification {
	return s.Verify(KindAccess, raw)
}

func (s *Service) VerifyRefresh(raw string) Verification {
	return s.Verify(KindRefresh, raw)
}

func (s *Service) VerifyCSRF(raw string) Verification {
	return s.Verify(KindCSRF, raw)
}

func (s *Service) issue(kind Kind, id Identity) (string, error) {
	key, ok := s.keys[kind]
	if !ok {
		return "", fmt.Errorf("jwt: unknown token kind %q", kind)
	}

	now := s.now()
	claims := Claims{
		Identity: id,
		RegisteredClaims: jwtlib.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(key.ttl)),
		},
	}

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := token.SignedString(key.secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign %s token: %w", kind, err)
	}
	return signed, nil
}

// Verify checks signature, algorithm and expiry. The signature is checked
// before the claims, so OutcomeExpired implies an authentic token.
func (s *Service) Verify(kind Kind, raw string) Verification {
	key, ok := s.keys[kind]
	if !ok {
		return Verification{Outcome: OutcomeInvalid, Err: fmt.Errorf("jwt: unknown token kind %q", kind)}
	}

	claims := &Claims{}
	token, err := jwtlib.ParseWithClaims(raw, claims, func(t *jwtlib.Token) (any, error) {
		return key.secret, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return Verification{Outcome: OutcomeExpired, Err: err}
		}
		return Verification{Outcome: OutcomeInvalid, Err: err}
	}
	if !token.Valid || claims.UserID == "" {
		return Verification{Outcome: OutcomeInvalid, Err: errors.New("jwt: token carries no user id")}
	}

	return Verification{Outcome: OutcomeOK, Claims: claims}
}
