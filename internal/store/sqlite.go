package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pbaille/thoughtboard/internal/domain"
)

//go:embed schema.sql
var schema string

// TimestampLayout is the layout thoughts are stamped with
const TimestampLayout = "2006-01-02 15:04:05"

// ErrEmpty is returned by Latest when no thought has been recorded
var ErrEmpty = errors.New("no thoughts in history")

// Store handles database operations
type Store struct {
	db  *sql.DB
	now func() time.Time

	// serializes AddThought so input chaining sees the previous insert
	mu sync.Mutex
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Initialize schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// AddThought records a thought. Its input is the previous thought, or
// seed when the history is empty.
func (s *Store) AddThought(thought, seed string) (*domain.Thought, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	input := seed
	prev, err := s.Latest()
	switch {
	case err == nil:
		input = prev.Thought
	case !errors.Is(err, ErrEmpty):
		return nil, err
	}

	ts := s.now().Format(TimestampLayout)
	res, err := s.db.Exec(
		"INSERT INTO thoughts (timestamp, input, thought) VALUES (?, ?, ?)",
		ts, input, thought,
	)
	if err != nil {
		return nil, fmt.Errorf("insert thought: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert thought: %w", err)
	}

	return &domain.Thought{
		ID:        domain.ID(strconv.FormatInt(id, 10)),
		Thought:   thought,
		Input:     input,
		Timestamp: ts,
	}, nil
}

// Latest returns the most recent thought
func (s *Store) Latest() (*domain.Thought, error) {
	var t domain.Thought
	var id int64
	err := s.db.QueryRow(
		"SELECT id, timestamp, input, thought FROM thoughts ORDER BY id DESC LIMIT 1",
	).Scan(&id, &t.Timestamp, &t.Input, &t.Thought)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("get latest thought: %w", err)
	}

	t.ID = domain.ID(strconv.FormatInt(id, 10))
	return &t, nil
}

// List returns every thought, oldest first
func (s *Store) List() ([]domain.Thought, error) {
	rows, err := s.db.Query(
		"SELECT id, timestamp, input, thought FROM thoughts ORDER BY id ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("list thoughts: %w", err)
	}
	defer rows.Close()

	thoughts := []domain.Thought{}
	for rows.Next() {
		var t domain.Thought
		var id int64
		if err := rows.Scan(&id, &t.Timestamp, &t.Input, &t.Thought); err != nil {
			return nil, fmt.Errorf("scan thought: %w", err)
		}
		t.ID = domain.ID(strconv.FormatInt(id, 10))
		thoughts = append(thoughts, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list thoughts: %w", err)
	}

	return thoughts, nil
}
