package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/mailrisk/threat-engine/internal/core"
)

// MySQLCache is a MySQL implementation of the VerdictCache interface
type MySQLCache struct {
	db          *sql.DB
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
}

// NewMySQLCache creates a new MySQL verdict cache
func NewMySQLCache(dsn string, logger *zap.Logger, cleanupFreq time.Duration) (*MySQLCache, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS verdict_cache (
			sender_address VARCHAR(255) PRIMARY KEY,
			tier VARCHAR(16) NOT NULL,
			score DOUBLE NOT NULL,
			confidence DOUBLE NOT NULL,
			last_seen TIMESTAMP NULL,
			expires_at TIMESTAMP NULL,
			INDEX idx_verdict_expires_at (expires_at)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	c := &MySQLCache{
		db:          db,
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}
	go c.startCleanupTask()
	return c, nil
}

// Get retrieves a non-expired verdict for a sender
func (c *MySQLCache) Get(ctx context.Context, senderAddress string) (*core.CachedVerdict, error) {
	var tierName string
	var score, confidence float64
	var lastSeen, expiresAt time.Time

	err := c.db.QueryRowContext(ctx, `
		SELECT tier, score, confidence, last_seen, expires_at
		FROM verdict_cache
		WHERE sender_address = ? AND expires_at > NOW()
	`, senderAddress).Scan(&tierName, &score, &confidence, &lastSeen, &expiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query verdict cache: %w", err)
	}

	tier, err := core.ParseTier(tierName)
	if err != nil {
		return nil, fmt.Errorf("corrupt cache row for %s: %w", senderAddress, err)
	}

	return &core.CachedVerdict{
		SenderAddress: senderAddress,
		Tier:          tier,
		Score:         score,
		Confidence:    confidence,
		LastSeen:      lastSeen,
		ExpiresAt:     expiresAt,
	}, nil
}

// Set stores a verdict
func (c *MySQLCache) Set(ctx context.Context, verdict *core.CachedVerdict) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO verdict_cache (sender_address, tier, score, confidence, last_seen, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			tier = VALUES(tier),
			score = VALUES(score),
			confidence = VALUES(confidence),
			last_seen = VALUES(last_seen),
			expires_at = VALUES(expires_at)
	`, verdict.SenderAddress, verdict.Tier.String(), verdict.Score, verdict.Confidence,
		verdict.LastSeen, verdict.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to upsert verdict: %w", err)
	}
	return nil
}

// Delete removes a verdict
func (c *MySQLCache) Delete(ctx context.Context, senderAddress string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM verdict_cache WHERE sender_address = ?`, senderAddress)
	if err != nil {
		return fmt.Errorf("failed to delete verdict: %w", err)
	}
	return nil
}

// Cleanup removes expired verdicts
func (c *MySQLCache) Cleanup(ctx context.Context) error {
	result, err := c.db.ExecContext(ctx, `DELETE FROM verdict_cache WHERE expires_at <= NOW()`)
	if err != nil {
		return fmt.Errorf("failed to clean up expired verdicts: %w", err)
	}

	if rows, raErr := result.RowsAffected(); raErr == nil {
		c.logger.Debug("Cleaned up expired verdicts", zap.Int64("expired_count", rows))
	}
	return nil
}

func (c *MySQLCache) startCleanupTask() {
	ticker := time.NewTicker(c.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Cleanup(context.Background()); err != nil {
				c.logger.Error("Failed to clean up verdict cache", zap.Error(err))
			}
		case <-c.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task and closes the database
func (c *MySQLCache) Stop() {
	close(c.stopCh)
	if err := c.db.Close(); err != nil {
		c.logger.Error("Failed to close MySQL database", zap.Error(err))
	}
}
