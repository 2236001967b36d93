package repository

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/avigne/subtrack/internal/models"
)

// csvHeader is the canonical column order of the portfolio file format.
var csvHeader = []string{
	"id", "service_name", "owner_name", "category", "monthly_price",
	"billing_frequency", "start_date", "end_date", "last_used_date",
	"priority", "shared_user_count", "shared", "notes", "reminder_days",
}

const csvDateLayout = "2006-01-02"

// CSVStore is a file backed Store for the CLI: the whole portfolio is
// loaded on open and rewritten on every mutation.
type CSVStore struct {
	path string
	subs []*models.Subscription
}

// OpenCSVStore loads the portfolio file at path. A missing file yields
// an empty store so the first import or add creates it.
func OpenCSVStore(path string) (*CSVStore, error) {
	store := &CSVStore{path: path}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open portfolio file: %w", err)
	}
	defer f.Close()

	subs, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read portfolio file %s: %w", path, err)
	}
	store.subs = subs
	return store, nil
}

// CreateSubscription appends a record and rewrites the file
func (c *CSVStore) CreateSubscription(s *models.Subscription) error {
	for _, existing := range c.subs {
		if existing.ID == s.ID {
			return fmt.Errorf("subscription %s already exists", s.ID)
		}
	}
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now
	c.subs = append(c.subs, s)
	return c.flush()
}

// FindSubscriptionByID returns the record with the given id
func (c *CSVStore) FindSubscriptionByID(id string) (*models.Subscription, error) {
	for _, s := range c.subs {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, fmt.Errorf("subscription not found")
}

// ListSubscriptions returns every record. The file format carries no
// user ids, so the filter is ignored.
func (c *CSVStore) ListSubscriptions(_ int64) ([]*models.Subscription, error) {
	out := make([]*models.Subscription, len(c.subs))
	copy(out, c.subs)
	return out, nil
}

// UpdateSubscription replaces the record with the same id
func (c *CSVStore) UpdateSubscription(s *models.Subscription) error {
	for i, existing := range c.subs {
		if existing.ID == s.ID {
			s.UpdatedAt = time.Now()
			c.subs[i] = s
			return c.flush()
		}
	}
	return fmt.Errorf("subscription not found")
}

// DeleteSubscription removes the record with the given id
func (c *CSVStore) DeleteSubscription(id string) error {
	for i, existing := range c.subs {
		if existing.ID == id {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			return c.flush()
		}
	}
	return fmt.Errorf("subscription not found")
}

// ReplaceAll swaps the whole portfolio, used by the import command
func (c *CSVStore) ReplaceAll(subs []*models.Subscription) error {
	c.subs = subs
	return c.flush()
}

func (c *CSVStore) flush() error {
	f, err := os.Create(c.path)
	if err != nil {
		return fmt.Errorf("failed to write portfolio file: %w", err)
	}
	defer f.Close()

	if err := WriteCSV(f, c.subs); err != nil {
		return fmt.Errorf("failed to write portfolio file %s: %w", c.path, err)
	}
	return nil
}

// ReadCSV parses portfolio records from r. The header row is required
// and must match the canonical column order.
func ReadCSV(r io.Reader) ([]*models.Subscription, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) != len(csvHeader) {
		return nil, fmt.Errorf("unexpected header: want %d columns, got %d", len(csvHeader), len(header))
	}

	var subs []*models.Subscription
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		line++
		s, err := parseCSVRecord(record)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		subs = append(subs, s)
	}
	return subs, nil
}

// WriteCSV writes the portfolio to w in the canonical file format
func WriteCSV(w io.Writer, subs []*models.Subscription) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, s := range subs {
		lastUsed := ""
		if s.LastUsedDate != nil {
			lastUsed = s.LastUsedDate.Format(csvDateLayout)
		}
		record := []string{
			s.ID,
			s.ServiceName,
			s.OwnerName,
			s.Category,
			strconv.FormatFloat(s.MonthlyPrice, 'f', 2, 64),
			string(s.BillingFrequency),
			s.StartDate.Format(csvDateLayout),
			s.EndDate.Format(csvDateLayout),
			lastUsed,
			string(s.Priority),
			strconv.Itoa(s.SharedUserCount),
			strconv.FormatBool(s.Shared),
			s.Notes,
			strconv.Itoa(s.ReminderDays),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func parseCSVRecord(record []string) (*models.Subscription, error) {
	if len(record) != len(csvHeader) {
		return nil, fmt.Errorf("want %d columns, got %d", len(csvHeader), len(record))
	}

	price, err := strconv.ParseFloat(record[4], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid monthly price %q: %w", record[4], err)
	}
	start, err := time.Parse(csvDateLayout, record[6])
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", record[6], err)
	}
	end, err := time.Parse(csvDateLayout, record[7])
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q: %w", record[7], err)
	}

	s := models.NewSubscription(record[1], record[2], record[3], price, start, end)
	if record[0] != "" {
		s.ID = record[0]
	}
	if record[5] != "" {
		s.BillingFrequency = models.BillingFrequency(record[5])
	}
	if record[8] != "" {
		used, err := time.Parse(csvDateLayout, record[8])
		if err != nil {
			return nil, fmt.Errorf("invalid last used date %q: %w", record[8], err)
		}
		s.LastUsedDate = &used
	}
	if record[9] != "" {
		s.Priority = models.Priority(record[9])
	}
	if record[10] != "" {
		count, err := strconv.Atoi(record[10])
		if err != nil {
			return nil, fmt.Errorf("invalid shared user count %q: %w", record[10], err)
		}
		s.SharedUserCount = count
	}
	if record[11] != "" {
		shared, err := strconv.ParseBool(record[11])
		if err != nil {
			return nil, fmt.Errorf("invalid shared flag %q: %w", record[11], err)
		}
		s.Shared = shared
	}
	s.Notes = record[12]
	if record[13] != "" {
		days, err := strconv.Atoi(record[13])
		if err != nil {
			return nil, fmt.Errorf("invalid reminder days %q: %w", record[13], err)
		}
		s.ReminderDays = days
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}
