// Package tokens associates device delivery tokens with user identities.
// Tokens observed before sign-in are buffered as pending records keyed by
// the token value and reconciled when an identity becomes known.
package tokens

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"push-pipeline/internal/common/logger"
	"push-pipeline/internal/models"
	"push-pipeline/internal/notify/audit"

	"github.com/redis/go-redis/v9"
)

// pendingKeyPrefix namespaces pending-token hashes in Redis.
const pendingKeyPrefix = "pending_token:"

// TokenSource is the transport surface the registry reads tokens from.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type Registry struct {
	db     *sql.DB
	redis  *redis.Client
	source TokenSource
	audit  audit.Recorder
	logger logger.Logger

	mu          sync.RWMutex
	currentUser string
}

func NewRegistry(db *sql.DB, rdb *redis.Client, source TokenSource, rec audit.Recorder, log logger.Logger) *Registry {
	return &Registry{
		db:     db,
		redis:  rdb,
		source: source,
		audit:  rec,
		logger: log.WithFields(map[string]interface{}{"component": "tokens"}),
	}
}

// CurrentUser returns the signed-in user id, or empty when signed out.
func (r *Registry) CurrentUser() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.currentUser
}

// RetrieveCurrentToken queries the transport for the active delivery token.
// Absence is not an error; transport failure is logged and reported as
// absence (the next natural trigger retries).
func (r *Registry) RetrieveCurrentToken(ctx context.Context) (string, bool) {
	token, err := r.source.Token(ctx)
	if err != nil {
		r.logger.Warn("token retrieval failed", map[string]interface{}{
			"error": err.Error(),
		})
		return "", false
	}
	if token == "" {
		return "", false
	}
	r.audit.Record(ctx, models.StepTokenReceived, models.TypeFCM, r.CurrentUser(), models.StatusSuccess, "")
	return token, true
}

// SaveToken persists the token. With a signed-in identity it merges onto the
// user's profile row; otherwise it upserts a pending record keyed by the
// token value. Failures are audited and swallowed.
func (r *Registry) SaveToken(ctx context.Context, token string) {
	if token == "" {
		return
	}

	user := r.CurrentUser()
	if user != "" {
		r.saveProfileToken(ctx, user, token)
		return
	}
	r.savePendingToken(ctx, token)
}

// saveProfileToken upserts only the fcm_token column; unrelated profile
// fields are never touched.
func (r *Registry) saveProfileToken(ctx context.Context, user, token string) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_profiles (user_id, fcm_token, token_updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (user_id)
		 DO UPDATE SET fcm_token = EXCLUDED.fcm_token, token_updated_at = NOW()`,
		user, token,
	)
	if err != nil {
		r.logger.Warn("profile token save failed", map[string]interface{}{
			"userId": user,
			"error":  err.Error(),
		})
		r.audit.Record(ctx, models.StepTokenSaveFailed, models.TypeFCM, user, models.StatusError, err.Error())
		return
	}

	r.audit.Record(ctx, models.StepTokenSaved, models.TypeFCM, user, models.StatusSuccess, "")
	r.reconcilePending(ctx, user, token)
}

// savePendingToken buffers a token seen before any identity was known.
// Upsert is idempotent; created_at is set only on first sight.
func (r *Registry) savePendingToken(ctx context.Context, token string) {
	key := pendingKeyPrefix + token

	if err := r.redis.HSet(ctx, key, "token", token, "associated", "false").Err(); err != nil {
		r.logger.Warn("pending token save failed", map[string]interface{}{
			"error": err.Error(),
		})
		r.audit.Record(ctx, models.StepTokenSaveFailed, models.TypeFCM, "", models.StatusError, err.Error())
		return
	}
	// Server-assigned creation timestamp, preserved across re-saves.
	if err := r.redis.HSetNX(ctx, key, "created_at", time.Now().UTC().Format(time.RFC3339)).Err(); err != nil {
		r.logger.Warn("pending token timestamp save failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	r.audit.Record(ctx, models.StepPendingTokenSaved, models.TypeFCM, "", models.StatusSuccess, "")
}

// reconcilePending marks any pending entry for this token as associated.
// The profile row is canonical from here on; the pending record stays
// queryable until external cleanup rotates it.
func (r *Registry) reconcilePending(ctx context.Context, user, token string) {
	key := pendingKeyPrefix + token

	// Only update entries that were actually buffered. An unconditional
	// HSET here would mint a partial hash for tokens that never went
	// through the pending path.
	exists, err := r.redis.Exists(ctx, key).Result()
	if err != nil {
		r.logger.Warn("pending token reconcile failed", map[string]interface{}{
			"userId": user,
			"error":  err.Error(),
		})
		return
	}
	if exists == 0 {
		return
	}

	if err := r.redis.HSet(ctx, key, "associated", "true", "owner_user_id", user).Err(); err != nil {
		r.logger.Warn("pending token reconcile failed", map[string]interface{}{
			"userId": user,
			"error":  err.Error(),
		})
	}
}

// PendingToken returns the buffered record for a token, if any.
func (r *Registry) PendingToken(ctx context.Context, token string) (*models.DeviceToken, error) {
	fields, err := r.redis.HGetAll(ctx, pendingKeyPrefix+token).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}

	rec := &models.DeviceToken{
		Token:       fields["token"],
		OwnerUserID: fields["owner_user_id"],
		Associated:  fields["associated"] == "true",
	}
	if createdAt, err := time.Parse(time.RFC3339, fields["created_at"]); err == nil {
		rec.CreatedAt = createdAt
	}
	return rec, nil
}

// OnIdentityChange handles a sign-in/sign-out transition. Sign-in re-fetches
// the current token and re-runs the save, covering tokens obtained before
// the identity was known. Sign-out takes no token action; invalidation is a
// transport-level concern.
func (r *Registry) OnIdentityChange(ctx context.Context, userID string) {
	r.mu.Lock()
	r.currentUser = userID
	r.mu.Unlock()

	if userID == "" {
		return
	}

	if token, ok := r.RetrieveCurrentToken(ctx); ok {
		r.SaveToken(ctx, token)
	}
}

// OnTokenRefresh handles a transport-driven token rotation. The save runs
// unconditionally, whatever identity is signed in.
func (r *Registry) OnTokenRefresh(ctx context.Context, newToken string) {
	r.audit.Record(ctx, models.StepTokenReceived, models.TypeFCM, r.CurrentUser(), models.StatusSuccess, "refresh")
	r.SaveToken(ctx, newToken)
}
