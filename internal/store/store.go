package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/dexlab/quotefill/internal/quotes"
)

// Store persists simulation results to Postgres. Every write is
// idempotent on (sim_id, url): re-uploading a log file skips rows that
// are already there.
type Store struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

func New(ctx context.Context, dsn string, log zerolog.Logger) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool, log: log.With().Str("component", "store").Logger()}, nil
}

func (s *Store) Close() { s.pool.Close() }

const schema = `
CREATE TABLE IF NOT EXISTS simulation_results (
	id                   BIGSERIAL PRIMARY KEY,
	run_id               TEXT NOT NULL,
	sim_id               TEXT NOT NULL,
	url                  TEXT NOT NULL,
	maker_token          TEXT NOT NULL,
	taker_token          TEXT NOT NULL,
	side                 TEXT NOT NULL,
	fill_amount          NUMERIC NOT NULL,
	fill_value           DOUBLE PRECISION NOT NULL,
	fill_delay           DOUBLE PRECISION NOT NULL,
	response_time        DOUBLE PRECISION NOT NULL,
	sell_amount          NUMERIC,
	buy_amount           NUMERIC,
	reverted             BOOLEAN NOT NULL,
	sold_amount          NUMERIC,
	bought_amount        NUMERIC,
	gas_used             BIGINT,
	eth_usd              DOUBLE PRECISION,
	maker_token_usd      DOUBLE PRECISION,
	taker_token_usd      DOUBLE PRECISION,
	maker_token_decimals INT,
	taker_token_decimals INT,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (sim_id, url)
);
CREATE INDEX IF NOT EXISTS simulation_results_sim_id_idx ON simulation_results (sim_id);
CREATE INDEX IF NOT EXISTS simulation_results_run_id_idx ON simulation_results (run_id);
`

// Migrate creates the results table and its indexes if missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Row is one flattened simulation record.
type Row struct {
	RunID              string
	SimID              string
	URL                string
	MakerToken         string
	TakerToken         string
	Side               string
	FillAmount         string
	FillValue          float64
	FillDelay          float64
	ResponseTime       float64
	SellAmount         string
	BuyAmount          string
	Reverted           bool
	SoldAmount         string
	BoughtAmount       string
	GasUsed            int64
	EthUsd             float64
	MakerTokenUsd      float64
	TakerTokenUsd      float64
	MakerTokenDecimals int
	TakerTokenDecimals int
}

// FromQuote flattens a logged quote record into a Row. Records without a
// swap result (fetch-only failures) still map; the simulation columns
// stay at their zero values and Reverted reads true.
func FromQuote(q *quotes.Quote) Row {
	m := &q.Metadata
	r := Row{
		RunID:              m.RunID,
		SimID:              m.ID,
		URL:                m.API,
		MakerToken:         m.MakerToken,
		TakerToken:         m.TakerToken,
		Side:               string(m.Side),
		FillAmount:         m.FillAmount,
		FillValue:          m.FillValue,
		FillDelay:          m.FillDelay,
		ResponseTime:       m.ResponseTime,
		Reverted:           true,
		EthUsd:             m.EthUsd,
		MakerTokenUsd:      m.BuyTokenUsd,
		TakerTokenUsd:      m.SellTokenUsd,
		MakerTokenDecimals: m.MakerTokenDecimals,
		TakerTokenDecimals: m.TakerTokenDecimals,
		SellAmount:         q.SellAmount,
		BuyAmount:          q.BuyAmount,
	}
	if sr := m.SwapResult; sr != nil {
		r.Reverted = !sr.Succeeded()
		r.SoldAmount = sr.SoldAmount
		r.BoughtAmount = sr.BoughtAmount
		r.GasUsed = sr.GasUsed
	}
	return r
}

const insertRow = `
INSERT INTO simulation_results (
	run_id, sim_id, url, maker_token, taker_token, side,
	fill_amount, fill_value, fill_delay, response_time,
	sell_amount, buy_amount, reverted, sold_amount, bought_amount,
	gas_used, eth_usd, maker_token_usd, taker_token_usd,
	maker_token_decimals, taker_token_decimals
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
	NULLIF($11, ''), NULLIF($12, ''), $13, NULLIF($14, ''), NULLIF($15, ''),
	$16, $17, $18, $19, $20, $21
)`

// Insert writes one row. Duplicate (sim_id, url) pairs are reported via
// ErrDuplicate so callers can count skips separately from failures.
func (s *Store) Insert(ctx context.Context, r Row) error {
	_, err := s.pool.Exec(ctx, insertRow,
		r.RunID, r.SimID, r.URL, r.MakerToken, r.TakerToken, r.Side,
		r.FillAmount, r.FillValue, r.FillDelay, r.ResponseTime,
		r.SellAmount, r.BuyAmount, r.Reverted, r.SoldAmount, r.BoughtAmount,
		r.GasUsed, r.EthUsd, r.MakerTokenUsd, r.TakerTokenUsd,
		r.MakerTokenDecimals, r.TakerTokenDecimals,
	)
	if isDuplicateKeyError(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert result %s: %w", r.SimID, err)
	}
	return nil
}

// InsertBatch writes rows one by one, logging and skipping failures so a
// single bad record never aborts an upload. Returns inserted and
// duplicate counts.
func (s *Store) InsertBatch(ctx context.Context, rows []Row) (inserted, skipped int) {
	for _, r := range rows {
		switch err := s.Insert(ctx, r); {
		case err == nil:
			inserted++
		case errors.Is(err, ErrDuplicate):
			skipped++
		default:
			s.log.Error().Err(err).Str("simId", r.SimID).Msg("insert failed, skipping row")
		}
	}
	return inserted, skipped
}

// ErrDuplicate marks a row whose (sim_id, url) pair already exists.
var ErrDuplicate = errors.New("duplicate simulation row")

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
