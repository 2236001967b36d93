package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/avigne/subtrack/internal/models"
)

// Store is the persistence surface shared by the Postgres repository and
// the CSV file store used by the CLI.
type Store interface {
	CreateSubscription(s *models.Subscription) error
	FindSubscriptionByID(id string) (*models.Subscription, error)
	ListSubscriptions(userID int64) ([]*models.Subscription, error)
	UpdateSubscription(s *models.Subscription) error
	DeleteSubscription(id string) error
}

// Repository provides database operations
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateUser creates a new user in the database
func (r *Repository) CreateUser(user *models.User) error {
	query := `
		INSERT INTO subtrack.users (username, email, password_hash, monthly_budget, created_at, updated_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(query, user.Username, user.Email, user.PasswordHash, user.MonthlyBudget).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindUserByEmail retrieves a user by email
func (r *Repository) FindUserByEmail(email string) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, username, email, password_hash, monthly_budget, created_at, updated_at
		FROM subtrack.users
		WHERE email = $1`
	err := r.db.QueryRow(query, email).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash,
			&user.MonthlyBudget, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// FindUserByID retrieves a user by its primary key
func (r *Repository) FindUserByID(id int64) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, username, email, password_hash, monthly_budget, created_at, updated_at
		FROM subtrack.users
		WHERE id = $1`
	err := r.db.QueryRow(query, id).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash,
			&user.MonthlyBudget, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

const subscriptionColumns = `id, user_id, service_name, owner_name, category, monthly_price,
		billing_frequency, start_date, end_date, last_used_date, priority,
		shared_user_count, shared, notes, reminder_days, created_at, updated_at`

// CreateSubscription inserts a new subscription record
func (r *Repository) CreateSubscription(s *models.Subscription) error {
	query := `
		INSERT INTO subtrack.subscriptions (id, user_id, service_name, owner_name, category,
			monthly_price, billing_frequency, start_date, end_date, last_used_date,
			priority, shared_user_count, shared, notes, reminder_days, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING created_at, updated_at`
	err := r.db.QueryRow(query,
		s.ID, s.UserID, s.ServiceName, s.OwnerName, s.Category,
		s.MonthlyPrice, s.BillingFrequency, s.StartDate, s.EndDate, s.LastUsedDate,
		s.Priority, s.SharedUserCount, s.Shared, s.Notes, s.ReminderDays).
		Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

// FindSubscriptionByID retrieves a single subscription
func (r *Repository) FindSubscriptionByID(id string) (*models.Subscription, error) {
	query := fmt.Sprintf(`SELECT %s FROM subtrack.subscriptions WHERE id = $1`, subscriptionColumns)
	s, err := scanSubscription(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("subscription not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find subscription: %w", err)
	}
	return s, nil
}

// ListSubscriptions returns all subscriptions belonging to a user
func (r *Repository) ListSubscriptions(userID int64) ([]*models.Subscription, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM subtrack.subscriptions
		WHERE user_id = $1
		ORDER BY service_name`, subscriptionColumns)
	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*models.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read subscriptions: %w", err)
	}
	return subs, nil
}

// UpdateSubscription persists changes to an existing subscription
func (r *Repository) UpdateSubscription(s *models.Subscription) error {
	query := `
		UPDATE subtrack.subscriptions
		SET service_name = $2, owner_name = $3, category = $4, monthly_price = $5,
			billing_frequency = $6, start_date = $7, end_date = $8, last_used_date = $9,
			priority = $10, shared_user_count = $11, shared = $12, notes = $13,
			reminder_days = $14, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING updated_at`
	err := r.db.QueryRow(query,
		s.ID, s.ServiceName, s.OwnerName, s.Category, s.MonthlyPrice,
		s.BillingFrequency, s.StartDate, s.EndDate, s.LastUsedDate,
		s.Priority, s.SharedUserCount, s.Shared, s.Notes, s.ReminderDays).
		Scan(&s.UpdatedAt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("subscription not found")
	}
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	return nil
}

// DeleteSubscription removes a subscription by id
func (r *Repository) DeleteSubscription(id string) error {
	result, err := r.db.Exec(`DELETE FROM subtrack.subscriptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("subscription not found")
	}
	return nil
}

// ListExpiringSubscriptions returns subscriptions whose end date falls
// inside their reminder window, paired with the owning user's email.
func (r *Repository) ListExpiringSubscriptions(now time.Time) ([]*models.ExpiringSubscription, error) {
	query := fmt.Sprintf(`
		SELECT u.email, u.username, %s
		FROM subtrack.subscriptions s
		JOIN subtrack.users u ON u.id = s.user_id
		WHERE s.reminder_days > 0
		  AND s.end_date >= $1
		  AND s.end_date <= $1 + (s.reminder_days || ' days')::interval
		ORDER BY s.end_date`, prefixColumns("s."))
	rows, err := r.db.Query(query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring subscriptions: %w", err)
	}
	defer rows.Close()

	var out []*models.ExpiringSubscription
	for rows.Next() {
		exp := &models.ExpiringSubscription{Subscription: &models.Subscription{}}
		s := exp.Subscription
		err := rows.Scan(&exp.Email, &exp.Username,
			&s.ID, &s.UserID, &s.ServiceName, &s.OwnerName, &s.Category, &s.MonthlyPrice,
			&s.BillingFrequency, &s.StartDate, &s.EndDate, &s.LastUsedDate, &s.Priority,
			&s.SharedUserCount, &s.Shared, &s.Notes, &s.ReminderDays, &s.CreatedAt, &s.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expiring subscription: %w", err)
		}
		out = append(out, exp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read expiring subscriptions: %w", err)
	}
	return out, nil
}

// ListUsersWithSubscriptions returns every user that owns at least one
// subscription, for the scheduled report mailing.
func (r *Repository) ListUsersWithSubscriptions() ([]*models.User, error) {
	query := `
		SELECT DISTINCT u.id, u.username, u.email, u.password_hash, u.monthly_budget, u.created_at, u.updated_at
		FROM subtrack.users u
		JOIN subtrack.subscriptions s ON s.user_id = u.id
		ORDER BY u.id`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u := &models.User{}
		err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash,
			&u.MonthlyBudget, &u.CreatedAt, &u.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read users: %w", err)
	}
	return users, nil
}

// UpdateUserBudget stores the user's monthly spending limit
func (r *Repository) UpdateUserBudget(id int64, budget float64) error {
	query := `
		UPDATE subtrack.users
		SET monthly_budget = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`
	result, err := r.db.Exec(query, id, budget)
	if err != nil {
		return fmt.Errorf("failed to update budget: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update budget: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user not found")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	s := &models.Subscription{}
	err := row.Scan(&s.ID, &s.UserID, &s.ServiceName, &s.OwnerName, &s.Category,
		&s.MonthlyPrice, &s.BillingFrequency, &s.StartDate, &s.EndDate, &s.LastUsedDate,
		&s.Priority, &s.SharedUserCount, &s.Shared, &s.Notes, &s.ReminderDays,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func prefixColumns(prefix string) string {
	return prefix + "id, " + prefix + "user_id, " + prefix + "service_name, " +
		prefix + "owner_name, " + prefix + "category, " + prefix + "monthly_price, " +
		prefix + "billing_frequency, " + prefix + "start_date, " + prefix + "end_date, " +
		prefix + "last_used_date, " + prefix + "priority, " + prefix + "shared_user_count, " +
		prefix + "shared, " + prefix + "notes, " + prefix + "reminder_days, " +
		prefix + "created_at, " + prefix + "updated_at"
}
