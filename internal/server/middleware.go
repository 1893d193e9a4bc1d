package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	ctxUserID   = "userID"
	ctxUserRole = "userRole"

	roleAdmin = "admin"
)

type authClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (s *Server) parseBearer(c *gin.Context) (uuid.UUID, string, bool) {
	header := c.GetHeader("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return uuid.Nil, "", false
	}

	var claims authClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, "", false
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, "", false
	}
	return id, claims.Role, true
}

// requireAuth rejects requests without a valid bearer token.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, role, ok := s.parseBearer(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"mensagem": "não autorizado"})
			return
		}
		c.Set(ctxUserID, id)
		c.Set(ctxUserRole, role)
		c.Next()
	}
}

// requireAdmin gates administrative routes on the token's role claim. Must
// run after requireAuth.
func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ctxUserRole) != roleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"mensagem": "acesso negado, apenas administradores"})
			return
		}
		c.Next()
	}
}

// optionalAuth resolves the caller's identity when a token is present but
// lets anonymous requests through; guests identify via sessionId instead.
func (s *Server) optionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, role, ok := s.parseBearer(c); ok {
			c.Set(ctxUserID, id)
			c.Set(ctxUserRole, role)
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ctxUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// cartIdentity resolves the cart key: the user id for authenticated callers,
// the guest session id otherwise. Guests without a session id get a 400.
func cartIdentity(c *gin.Context, sessionID string) (string, *uuid.UUID, bool) {
	if id, ok := currentUser(c); ok {
		return id.String(), &id, true
	}
	if sessionID == "" {
		sessionID = c.Query("sessionId")
	}
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"mensagem": "sessionId é obrigatório para visitantes"})
		return "", nil, false
	}
	return sessionID, nil, true
}
