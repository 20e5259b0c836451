package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"keyvault-backend-go/internal/db"
	"keyvault-backend-go/internal/models"
)

// PrincipalContextKey is the gin context key under which the authenticated
// principal is stored.
const PrincipalContextKey = "principal"

// apiTokenPrefix marks legacy long-lived API tokens in the Authorization
// header.
const apiTokenPrefix = "tok_"

// ErrorResponse mirrors the one in internal/api to avoid an import cycle.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// AuthMiddleware authenticates requests from three credential sources, tried
// in order of cheapest recognition: a "tok_"-prefixed API token, a locally
// signed JWT, or a Firebase ID token.
type AuthMiddleware struct {
	firebaseAuthClient *auth.Client
	userRepo           db.UserRepository
	tokenRepo          db.APITokenRepository
	jwtSecret          []byte
	logger             *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware instance.
func NewAuthMiddleware(fbAuthClient *auth.Client, userRepo db.UserRepository, tokenRepo db.APITokenRepository, jwtSecret string, logger *zap.Logger) *AuthMiddleware {
	if fbAuthClient == nil {
		panic("Firebase Auth client is not initialized for AuthMiddleware")
	}
	return &AuthMiddleware{
		firebaseAuthClient: fbAuthClient,
		userRepo:           userRepo,
		tokenRepo:          tokenRepo,
		jwtSecret:          []byte(jwtSecret),
		logger:             logger,
	}
}

// Authenticate verifies the Authorization header and stores the resolved
// Principal in the gin context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Authorization header is required"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Authorization header format must be 'Bearer {token}'"})
			return
		}
		credential := parts[1]

		var principal *models.Principal
		var err error
		switch {
		case strings.HasPrefix(credential, apiTokenPrefix):
			principal, err = m.authenticateAPIToken(c, credential)
		case m.looksLikeJWT(credential):
			principal, err = m.authenticateJWT(credential)
		default:
			principal, err = m.authenticateFirebase(c, credential)
		}
		if err != nil {
			m.logger.Warn("authentication failed",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid or expired authentication token"})
			return
		}

		c.Set(PrincipalContextKey, principal)
		c.Next()
	}
}

func (m *AuthMiddleware) authenticateAPIToken(c *gin.Context, credential string) (*models.Principal, error) {
	token, err := m.tokenRepo.FindByToken(c.Request.Context(), credential)
	if err != nil {
		return nil, fmt.Errorf("api token lookup: %w", err)
	}
	if token == nil {
		return nil, fmt.Errorf("api token not recognized")
	}
	if token.Expired(time.Now()) {
		return nil, fmt.Errorf("api token expired")
	}

	if err := m.tokenRepo.TouchLastUsed(c.Request.Context(), token.ID); err != nil {
		m.logger.Warn("failed to update api token last-used timestamp",
			zap.String("tokenId", token.ID),
			zap.Error(err))
	}

	return &models.Principal{
		ID:          token.UserID,
		Permissions: token.Permissions,
		Source:      models.SourceAPIToken,
	}, nil
}

// looksLikeJWT distinguishes a locally issued JWT from a Firebase ID token by
// the signing algorithm in the header, since both are three-part tokens.
// Firebase ID tokens are RS256; local service tokens are HS256.
func (m *AuthMiddleware) looksLikeJWT(credential string) bool {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(credential, jwt.MapClaims{})
	if err != nil {
		return false
	}
	return token.Method != nil && strings.HasPrefix(token.Method.Alg(), "HS")
}

func (m *AuthMiddleware) authenticateJWT(credential string) (*models.Principal, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(credential, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("jwt parse: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("jwt invalid")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("jwt missing sub claim")
	}

	principal := &models.Principal{ID: sub, Source: models.SourceJWT}
	if role, ok := claims["role"].(string); ok {
		principal.Role = role
	}
	if plan, ok := claims["plan"].(string); ok {
		principal.Plan = plan
	}
	if teamID, ok := claims["teamId"].(string); ok {
		principal.TeamID = teamID
	}
	if perms, ok := claims["permissions"].([]interface{}); ok {
		for _, p := range perms {
			if s, ok := p.(string); ok {
				principal.Permissions = append(principal.Permissions, s)
			}
		}
	}
	return principal, nil
}

func (m *AuthMiddleware) authenticateFirebase(c *gin.Context, credential string) (*models.Principal, error) {
	token, err := m.firebaseAuthClient.VerifyIDToken(c.Request.Context(), credential)
	if err != nil {
		return nil, fmt.Errorf("firebase token verification: %w", err)
	}

	principal := &models.Principal{ID: token.UID, Source: models.SourceFirebase}

	// The account record carries the role and plan; a missing record leaves
	// the principal with no role, which the evaluator treats as no
	// role-based permissions.
	user, err := m.userRepo.GetByID(c.Request.Context(), token.UID)
	if err != nil {
		m.logger.Warn("user record lookup failed during authentication",
			zap.String("uid", token.UID),
			zap.Error(err))
	} else if user != nil {
		principal.Role = user.Role
		principal.Plan = user.Plan
	}
	return principal, nil
}

// PrincipalFromContext retrieves the authenticated principal set by
// Authenticate, or nil.
func PrincipalFromContext(c *gin.Context) *models.Principal {
	v, ok := c.Get(PrincipalContextKey)
	if !ok {
		return nil
	}
	principal, ok := v.(*models.Principal)
	if !ok {
		return nil
	}
	return principal
}
