package middleware

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apikeyRepo "github.com/faultdesk/incident-service-api/internal/domain/apikey"
	"github.com/faultdesk/incident-service-api/internal/ierr"
	"github.com/faultdesk/incident-service-api/internal/util"
)

const (
	apiKeyHeader         = "X-API-Key"
	keyServiceContextKey = "apiKeyService"
)

// APIKeyAuthMiddleware guards the ingest endpoint. Failures are
// reported to the dispatcher instead of being rendered inline, so they
// go through the same resolver chain as everything else.
func APIKeyAuthMiddleware(repo apikeyRepo.Repository, logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("APIKeyAuthMiddleware")
	return func(c *gin.Context) {
		apiKeyFromHeader := c.GetHeader(apiKeyHeader)
		if apiKeyFromHeader == "" {
			log.Debug("API key header is missing", zap.String("header", apiKeyHeader))
			_ = c.Error(fmt.Errorf("%w: api key required", ierr.ErrUnauthorized))
			c.Abort()
			return
		}

		parts := strings.SplitN(apiKeyFromHeader, "_", 3)
		if len(parts) < 3 || parts[0] != "fd" {
			log.Warn("Invalid API key format received")
			_ = c.Error(fmt.Errorf("%w: invalid api key format", ierr.ErrUnauthorized))
			c.Abort()
			return
		}
		prefix := parts[1]

		keyRecord, err := repo.FindByPrefix(c.Request.Context(), prefix)
		if err != nil {
			log.Warn("API key lookup failed", zap.String("prefix", prefix), zap.Error(err))
			_ = c.Error(err)
			c.Abort()
			return
		}

		receivedKeyHash := util.HashAPIKey(apiKeyFromHeader)

		if subtle.ConstantTimeCompare([]byte(receivedKeyHash), []byte(keyRecord.KeyHash)) != 1 {
			log.Warn("API key hash mismatch", zap.String("prefix", prefix), zap.String("key_id", keyRecord.ID.String()))
			_ = c.Error(fmt.Errorf("%w: api key rejected", ierr.ErrForbidden))
			c.Abort()
			return
		}

		go func(id uuid.UUID, repo apikeyRepo.Repository, l *zap.Logger) {
			ctxAsync, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			errUpdate := repo.UpdateLastUsed(ctxAsync, id, time.Now().UTC())
			if errUpdate != nil {
				l.Error("Failed to update API key last used time asynchronously", zap.String("key_id", id.String()), zap.Error(errUpdate))
			}
		}(keyRecord.ID, repo, log)

		log.Debug("API key validated", zap.String("prefix", prefix), zap.String("key_id", keyRecord.ID.String()))
		c.Set(keyServiceContextKey, keyRecord.Service)
		c.Next()
	}
}

// GetKeyService returns the service name the validated API key is
// scoped to, or "" when the request was not key-authenticated.
func GetKeyService(c *gin.Context) string {
	value, exists := c.Get(keyServiceContextKey)
	if !exists {
		return ""
	}
	svc, _ := value.(string)
	return svc
}
