package quote

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/erabu-ai/agentcore/agent/contract"
	statex "github.com/erabu-ai/agentcore/agent/state"
)

var (
	ErrNilRecord       = errors.New("fact record is nil")
	ErrRecordNotFrozen = errors.New("fact record is not frozen")
)

// Config holds the Postgres connection for quote export.
type Config struct {
	DSN     string        `envconfig:"DSN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

// QuoteRow is the persisted quote snapshot. Payload carries the full
// frozen fact record as JSONB so downstream pricing can replay it.
type QuoteRow struct {
	bun.BaseModel `bun:"table:quotes,alias:q"`

	ID        string          `bun:"id,pk"`
	SessionID string          `bun:"session_id,notnull"`
	Payload   json.RawMessage `bun:"payload,type:jsonb,notnull"`
	CreatedAt time.Time       `bun:"created_at,notnull,default:current_timestamp"`
}

func NewDB(cfg Config) (*bun.DB, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	connector := pgdriver.NewConnector(
		pgdriver.WithDSN(dsn),
		pgdriver.WithTimeout(timeout),
	)
	sqldb := sql.OpenDB(connector)
	return bun.NewDB(sqldb, pgdialect.New()), nil
}

// Service exports frozen fact records as quote rows. Implements the
// orchestrator's quote sink contract.
type Service struct {
	db  *bun.DB
	now func() time.Time
}

func NewService(db *bun.DB) (*Service, error) {
	if db == nil {
		return nil, errors.New("bun db is required")
	}
	return &Service{db: db, now: time.Now}, nil
}

// EnsureSchema creates the quotes table when it does not exist.
func (s *Service) EnsureSchema(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*QuoteRow)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create quotes table: %w", err)
	}
	return nil
}

// Submit stores one frozen record and returns the export receipt.
// Only frozen records are accepted: a quote row must never change
// after it is written.
func (s *Service) Submit(ctx context.Context, rec *statex.FactRecord) (contractx.QuoteExport, error) {
	if rec == nil {
		return contractx.QuoteExport{}, ErrNilRecord
	}
	if !rec.Frozen {
		return contractx.QuoteExport{}, ErrRecordNotFrozen
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return contractx.QuoteExport{}, fmt.Errorf("marshal fact record: %w", err)
	}

	row := QuoteRow{
		ID:        uuid.NewString(),
		SessionID: rec.SessionID,
		Payload:   payload,
		CreatedAt: s.now().UTC(),
	}

	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return contractx.QuoteExport{}, fmt.Errorf("insert quote row: %w", err)
	}

	return contractx.QuoteExport{
		QuoteID:   row.ID,
		SessionID: row.SessionID,
		CreatedAt: row.CreatedAt,
		Record:    rec,
		Stored:    true,
	}, nil
}
