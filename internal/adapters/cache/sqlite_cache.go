package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/mailrisk/threat-engine/internal/core"
)

// SQLiteCache is a SQLite implementation of the VerdictCache interface
type SQLiteCache struct {
	db          *sql.DB
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
}

// NewSQLiteCache creates a new SQLite verdict cache
func NewSQLiteCache(dbPath string, logger *zap.Logger, cleanupFreq time.Duration) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS verdict_cache (
			sender_address TEXT PRIMARY KEY,
			tier TEXT NOT NULL,
			score REAL NOT NULL,
			confidence REAL NOT NULL,
			last_seen TIMESTAMP,
			expires_at TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_verdict_expires_at ON verdict_cache(expires_at)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	c := &SQLiteCache{
		db:          db,
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}
	go c.startCleanupTask()
	return c, nil
}

// Get retrieves a non-expired verdict for a sender
func (c *SQLiteCache) Get(ctx context.Context, senderAddress string) (*core.CachedVerdict, error) {
	var tierName string
	var score, confidence float64
	var lastSeen, expiresAt string

	err := c.db.QueryRowContext(ctx, `
		SELECT tier, score, confidence, last_seen, expires_at
		FROM verdict_cache
		WHERE sender_address = ? AND expires_at > ?
	`, senderAddress, time.Now().Format(time.RFC3339)).Scan(&tierName, &score, &confidence, &lastSeen, &expiresAt)
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

	verdict := &core.CachedVerdict{
		SenderAddress: senderAddress,
		Tier:          tier,
		Score:         score,
		Confidence:    confidence,
	}
	if t, parseErr := time.Parse(time.RFC3339, lastSeen); parseErr == nil {
		verdict.LastSeen = t
	}
	if t, parseErr := time.Parse(time.RFC3339, expiresAt); parseErr == nil {
		verdict.ExpiresAt = t
	}
	return verdict, nil
}

// Set stores a verdict
func (c *SQLiteCache) Set(ctx context.Context, verdict *core.CachedVerdict) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO verdict_cache (sender_address, tier, score, confidence, last_seen, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, verdict.SenderAddress, verdict.Tier.String(), verdict.Score, verdict.Confidence,
		verdict.LastSeen.Format(time.RFC3339), verdict.ExpiresAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert verdict: %w", err)
	}
	return nil
}

// Delete removes a verdict
func (c *SQLiteCache) Delete(ctx context.Context, senderAddress string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM verdict_cache WHERE sender_address = ?`, senderAddress)
	if err != nil {
		return fmt.Errorf("failed to delete verdict: %w", err)
	}
	return nil
}

// Cleanup removes expired verdicts
func (c *SQLiteCache) Cleanup(ctx context.Context) error {
	result, err := c.db.ExecContext(ctx, `DELETE FROM verdict_cache WHERE expires_at <= ?`,
		time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to clean up expired verdicts: %w", err)
	}

	if rows, raErr := result.RowsAffected(); raErr == nil {
		c.logger.Debug("Cleaned up expired verdicts", zap.Int64("expired_count", rows))
	}
	return nil
}

func (c *SQLiteCache) startCleanupTask() {
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
func (c *SQLiteCache) Stop() {
	close(c.stopCh)
	if err := c.db.Close(); err != nil {
		c.logger.Error("Failed to close SQLite database", zap.Error(err))
	}
}
