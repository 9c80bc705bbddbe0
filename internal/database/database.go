package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"trockle-api/internal/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("database: not found")
	// ErrDuplicate is returned when a unique constraint rejects a row.
	ErrDuplicate = errors.New("database: duplicate")
)

// DB wraps the database connection and provides methods for data access.
type DB struct {
	conn *sql.DB
}

// NewDB creates a new database connection and initializes the schema.
func NewDB(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=1&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// initSchema creates the necessary tables if they don't exist.
func (db *DB) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			category TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			photos TEXT NOT NULL,
			return_offer TEXT NOT NULL,
			availability_day TEXT NOT NULL,
			availability_time TEXT NOT NULL,
			location TEXT NOT NULL,
			use_current_location INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			traded_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS decisions (
			id TEXT PRIMARY KEY,
			viewer_id TEXT NOT NULL,
			trade_id TEXT NOT NULL REFERENCES trades(id),
			direction TEXT NOT NULL CHECK (direction IN ('like', 'skip')),
			decided_at TEXT NOT NULL,
			UNIQUE (viewer_id, trade_id)
		)`,
		`CREATE TABLE IF NOT EXISTS profiles (
			user_id TEXT PRIMARY KEY,
			location TEXT NOT NULL,
			phone_number TEXT NOT NULL,
			username TEXT NOT NULL,
			bio TEXT NOT NULL,
			photo TEXT NOT NULL,
			preferences TEXT NOT NULL,
			swap_distance INTEGER NOT NULL,
			onboarded_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS reviews (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			reviewer_id TEXT NOT NULL,
			rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
			comment TEXT NOT NULL,
			item_name TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_owner ON trades(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_created_at ON trades(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_viewer ON decisions(viewer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reviews_user ON reviews(user_id, created_at)`,
	}

	for _, query := range queries {
		if _, err := db.conn.Exec(query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	return nil
}

// InsertTrade stores a new trade.
func (db *DB) InsertTrade(ctx context.Context, trade models.Trade) error {
	return insertTrade(ctx, db.conn, trade)
}

const tradeColumns = `id, owner_id, category, title, description, photos, return_offer,
	availability_day, availability_time, location, use_current_location, created_at, traded_at`

// GetTrade returns a trade by id.
func (db *DB) GetTrade(ctx context.Context, id string) (models.Trade, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+tradeColumns+` FROM trades WHERE id = ?`, id)
	trade, err := scanTrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Trade{}, fmt.Errorf("trade %s: %w", id, ErrNotFound)
	}
	return trade, err
}

// CandidateFilter narrows the trades offered to a viewer.
type CandidateFilter struct {
	ViewerID string
	Category string
	Limit    int
}

// ListCandidates returns available trades the viewer does not own and has
// not decided on yet, newest first.
func (db *DB) ListCandidates(ctx context.Context, f CandidateFilter) ([]models.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades t
		WHERE t.owner_id <> ?
		AND t.traded_at IS NULL
		AND NOT EXISTS (
			SELECT 1 FROM decisions d WHERE d.viewer_id = ? AND d.trade_id = t.id
		)`
	args := []interface{}{f.ViewerID, f.ViewerID}

	if f.Category != "" {
		query += " AND t.category = ?"
		args = append(args, f.Category)
	}

	query += " ORDER BY t.created_at DESC, t.id"

	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}

	return trades, nil
}

// ListTradesByOwner returns every trade of an owner, newest first.
func (db *DB) ListTradesByOwner(ctx context.Context, ownerID string) ([]models.Trade, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+tradeColumns+` FROM trades WHERE owner_id = ? ORDER BY created_at DESC, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}
	return trades, nil
}

// MarkTraded closes a trade of ownerID. A trade owned by someone else is
// reported as ErrNotFound; one already traded as ErrDuplicate.
func (db *DB) MarkTraded(ctx context.Context, id, ownerID string, at time.Time) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE trades SET traded_at = ? WHERE id = ? AND owner_id = ? AND traded_at IS NULL`,
		formatTime(at), id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to mark trade: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to mark trade: %w", err)
	}
	if n == 1 {
		return nil
	}

	trade, err := db.GetTrade(ctx, id)
	if err != nil {
		return err
	}
	if trade.OwnerID != ownerID {
		return fmt.Errorf("trade %s: %w", id, ErrNotFound)
	}
	return fmt.Errorf("trade %s already traded: %w", id, ErrDuplicate)
}

// InsertDecision records a swipe decision. A second decision by the same
// viewer on the same trade returns ErrDuplicate.
func (db *DB) InsertDecision(ctx context.Context, d models.Decision) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO decisions (id, viewer_id, trade_id, direction, decided_at) VALUES (?, ?, ?, ?, ?)`,
		d.ID, d.ViewerID, d.CandidateID, string(d.Direction), formatTime(d.DecidedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("decision on %s by %s: %w", d.CandidateID, d.ViewerID, ErrDuplicate)
		}
		return fmt.Errorf("failed to insert decision: %w", err)
	}
	return nil
}

// ListDecisions returns the decisions of a viewer in the order they were
// made. An empty direction returns both likes and skips.
func (db *DB) ListDecisions(ctx context.Context, viewerID string, direction models.Direction) ([]models.Decision, error) {
	query := `SELECT id, viewer_id, trade_id, direction, decided_at FROM decisions WHERE viewer_id = ?`
	args := []interface{}{viewerID}
	if direction != "" {
		query += " AND direction = ?"
		args = append(args, string(direction))
	}
	query += " ORDER BY decided_at, id"

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	var decisions []models.Decision
	for rows.Next() {
		var d models.Decision
		var direction, decidedAt string
		if err := rows.Scan(&d.ID, &d.ViewerID, &d.CandidateID, &direction, &decidedAt); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		d.Direction = models.Direction(direction)
		if d.DecidedAt, err = parseTime(decidedAt); err != nil {
			return nil, fmt.Errorf("failed to parse decided_at: %w", err)
		}
		decisions = append(decisions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating decisions: %w", err)
	}
	return decisions, nil
}

// GetProfile returns the onboarding profile of a user.
func (db *DB) GetProfile(ctx context.Context, userID string) (models.UserProfile, error) {
	var p models.UserProfile
	var prefs, onboardedAt string
	err := db.conn.QueryRowContext(ctx,
		`SELECT user_id, location, phone_number, username, bio, photo, preferences, swap_distance, onboarded_at
		FROM profiles WHERE user_id = ?`, userID,
	).Scan(
		&p.UserID,
		&p.Location,
		&p.Profile.PhoneNumber,
		&p.Profile.Username,
		&p.Profile.Bio,
		&p.Profile.Photo,
		&prefs,
		&p.SwapDistance,
		&onboardedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.UserProfile{}, fmt.Errorf("profile %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return models.UserProfile{}, fmt.Errorf("failed to get profile: %w", err)
	}
	p.Preferences = deserializeList(prefs)
	if p.OnboardedAt, err = parseTime(onboardedAt); err != nil {
		return models.UserProfile{}, fmt.Errorf("failed to parse onboarded_at: %w", err)
	}
	return p, nil
}

// PublishOnboarding stores the onboarding profile and the first trade of a
// user in a single transaction.
func (db *DB) PublishOnboarding(ctx context.Context, p models.UserProfile, trade models.Trade) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := upsertProfile(ctx, tx, p); err != nil {
		return err
	}
	if err := insertTrade(ctx, tx, trade); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// InsertReview stores a review.
func (db *DB) InsertReview(ctx context.Context, r models.Review) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO reviews (id, user_id, reviewer_id, rating, comment, item_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.ReviewerID, r.Rating, r.Comment, r.ItemName, formatTime(r.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert review: %w", err)
	}
	return nil
}

// ListReviews returns the reviews of a user, newest first. stars == 0 means
// every rating.
func (db *DB) ListReviews(ctx context.Context, userID string, stars int) ([]models.Review, error) {
	query := `SELECT id, user_id, reviewer_id, rating, comment, item_name, created_at
		FROM reviews WHERE user_id = ?`
	args := []interface{}{userID}
	if stars > 0 {
		query += " AND rating = ?"
		args = append(args, stars)
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	var reviews []models.Review
	for rows.Next() {
		var r models.Review
		var createdAt string
		if err := rows.Scan(&r.ID, &r.UserID, &r.ReviewerID, &r.Rating, &r.Comment, &r.ItemName, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		if r.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reviews: %w", err)
	}
	return reviews, nil
}

// RatingHistogram returns the number of reviews per star for a user.
// Index 0 holds the 1-star count.
func (db *DB) RatingHistogram(ctx context.Context, userID string) ([5]int, error) {
	var hist [5]int
	rows, err := db.conn.QueryContext(ctx,
		`SELECT rating, COUNT(*) FROM reviews WHERE user_id = ? GROUP BY rating`, userID)
	if err != nil {
		return hist, fmt.Errorf("failed to query rating histogram: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rating, count int
		if err := rows.Scan(&rating, &count); err != nil {
			return hist, fmt.Errorf("failed to scan rating histogram: %w", err)
		}
		if rating >= 1 && rating <= 5 {
			hist[rating-1] = count
		}
	}
	if err := rows.Err(); err != nil {
		return hist, fmt.Errorf("error iterating rating histogram: %w", err)
	}
	return hist, nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func insertTrade(ctx context.Context, ex execer, trade models.Trade) error {
	query := `INSERT INTO trades (` + tradeColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var tradedAt sql.NullString
	if trade.TradedAt != nil {
		tradedAt = sql.NullString{String: formatTime(*trade.TradedAt), Valid: true}
	}

	_, err := ex.ExecContext(ctx, query,
		trade.ID,
		trade.OwnerID,
		trade.Category,
		trade.Title,
		trade.Description,
		serializeList(trade.Photos),
		trade.ReturnOffer,
		trade.Availability.Day,
		trade.Availability.Time,
		trade.Location,
		trade.UseCurrentLocation,
		formatTime(trade.CreatedAt),
		tradedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("trade %s: %w", trade.ID, ErrDuplicate)
		}
		return fmt.Errorf("failed to insert trade: %w", err)
	}
	return nil
}

func upsertProfile(ctx context.Context, ex execer, p models.UserProfile) error {
	query := `INSERT INTO profiles (
		user_id, location, phone_number, username, bio, photo, preferences, swap_distance, onboarded_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		location = excluded.location,
		phone_number = excluded.phone_number,
		username = excluded.username,
		bio = excluded.bio,
		photo = excluded.photo,
		preferences = excluded.preferences,
		swap_distance = excluded.swap_distance,
		onboarded_at = excluded.onboarded_at`

	_, err := ex.ExecContext(ctx, query,
		p.UserID,
		p.Location,
		p.Profile.PhoneNumber,
		p.Profile.Username,
		p.Profile.Bio,
		p.Profile.Photo,
		serializeList(p.Preferences),
		p.SwapDistance,
		formatTime(p.OnboardedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTrade(s scanner) (models.Trade, error) {
	var trade models.Trade
	var photos, createdAt string
	var tradedAt sql.NullString

	err := s.Scan(
		&trade.ID,
		&trade.OwnerID,
		&trade.Category,
		&trade.Title,
		&trade.Description,
		&photos,
		&trade.ReturnOffer,
		&trade.Availability.Day,
		&trade.Availability.Time,
		&trade.Location,
		&trade.UseCurrentLocation,
		&createdAt,
		&tradedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Trade{}, err
		}
		return models.Trade{}, fmt.Errorf("failed to scan trade: %w", err)
	}

	trade.Photos = deserializeList(photos)
	trade.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return models.Trade{}, fmt.Errorf("failed to parse created_at: %w", err)
	}

	trade.Status = models.TradeAvailable
	if tradedAt.Valid {
		at, err := parseTime(tradedAt.String)
		if err != nil {
			return models.Trade{}, fmt.Errorf("failed to parse traded_at: %w", err)
		}
		trade.TradedAt = &at
		trade.Status = models.TradeTraded
	}
	return trade, nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

// timeLayout is fixed width so that stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// serializeList converts a string slice to a JSON array.
func serializeList(list []string) string {
	if len(list) == 0 {
		return "[]"
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// deserializeList converts a serialized JSON array back to a slice.
func deserializeList(serialized string) []string {
	if serialized == "" || serialized == "[]" {
		return []string{}
	}
	var result []string
	if err := json.Unmarshal([]byte(serialized), &result); err != nil {
		return []string{}
	}
	return result
}
