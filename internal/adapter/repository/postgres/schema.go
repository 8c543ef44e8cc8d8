package postgres

// Schema holds the tables read by the valuation engine.
// Decimal columns are NUMERIC and scanned as strings into decimal.Decimal.
const Schema = `
CREATE TABLE IF NOT EXISTS holdings (
    id UUID PRIMARY KEY,
    user_id TEXT NOT NULL,
    name TEXT NOT NULL,
    type TEXT NOT NULL CHECK (type IN ('stock', 'etf', 'crypto', 'super', 'cash', 'debt')),
    currency CHAR(3) NOT NULL,
    symbol TEXT,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    is_deleted BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_holdings_user ON holdings(user_id);

CREATE TABLE IF NOT EXISTS transactions (
    id UUID PRIMARY KEY,
    seq BIGSERIAL,
    holding_id UUID NOT NULL REFERENCES holdings(id),
    date TIMESTAMPTZ NOT NULL,
    action TEXT NOT NULL CHECK (action IN ('BUY', 'SELL', 'DIVIDEND', 'SPLIT')),
    quantity NUMERIC NOT NULL,
    unit_price NUMERIC NOT NULL DEFAULT 0,
    fees NUMERIC NOT NULL DEFAULT 0,
    is_deleted BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_transactions_holding_date ON transactions(holding_id, date, seq);

CREATE TABLE IF NOT EXISTS snapshots (
    id UUID PRIMARY KEY,
    holding_id UUID NOT NULL REFERENCES holdings(id),
    date DATE NOT NULL,
    balance NUMERIC NOT NULL,
    currency CHAR(3) NOT NULL,
    is_deleted BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_snapshots_live_date ON snapshots(holding_id, date) WHERE NOT is_deleted;

CREATE TABLE IF NOT EXISTS exchange_rates (
    from_currency CHAR(3) NOT NULL,
    to_currency CHAR(3) NOT NULL,
    rate NUMERIC NOT NULL CHECK (rate > 0),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (from_currency, to_currency)
);
`
