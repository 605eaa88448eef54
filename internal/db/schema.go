package db

var schema = []string{
	`CREATE TABLE IF NOT EXISTS orders (
		id              BIGSERIAL PRIMARY KEY,
		tenant_id       VARCHAR(64)  NOT NULL,
		customer_phone  VARCHAR(32)  NOT NULL,
		customer_name   VARCHAR(255) NOT NULL DEFAULT '',
		status          VARCHAR(32)  NOT NULL,
		created_at      TIMESTAMPTZ  NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_tenant_phone ON orders (tenant_id, customer_phone)`,

	`CREATE TABLE IF NOT EXISTS campaigns (
		id                BIGSERIAL PRIMARY KEY,
		tenant_id         VARCHAR(64)  NOT NULL,
		name              VARCHAR(255) NOT NULL,
		message_template  TEXT         NOT NULL,
		target_segment    VARCHAR(32)  NOT NULL,
		channel           VARCHAR(32)  NOT NULL,
		variables         JSONB        NOT NULL DEFAULT '{}',
		status            VARCHAR(16)  NOT NULL DEFAULT 'draft'
			CHECK (status IN ('draft', 'sending', 'sent')),
		recipients_count  INTEGER      NOT NULL DEFAULT 0,
		sent_count        INTEGER      NOT NULL DEFAULT 0,
		failed_count      INTEGER      NOT NULL DEFAULT 0,
		created_at        TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
		sending_started_at TIMESTAMPTZ,
		sent_at           TIMESTAMPTZ,
		CHECK ((status = 'sent') = (sent_at IS NOT NULL))
	)`,
	`ALTER TABLE campaigns ADD COLUMN IF NOT EXISTS sending_started_at TIMESTAMPTZ`,
	`CREATE INDEX IF NOT EXISTS idx_campaigns_tenant ON campaigns (tenant_id, id DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_campaigns_sending ON campaigns (sending_started_at) WHERE status = 'sending'`,

	`CREATE TABLE IF NOT EXISTS message_logs (
		id                BIGSERIAL PRIMARY KEY,
		campaign_id       BIGINT       NOT NULL REFERENCES campaigns (id) ON DELETE CASCADE,
		customer_contact  VARCHAR(32)  NOT NULL,
		customer_name     VARCHAR(255) NOT NULL DEFAULT '',
		status            VARCHAR(16)  NOT NULL CHECK (status IN ('sent', 'failed')),
		error_message     TEXT,
		sent_at           TIMESTAMPTZ  NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_message_logs_campaign ON message_logs (campaign_id)`,

	`CREATE TABLE IF NOT EXISTS subscriptions (
		id                    UUID PRIMARY KEY,
		tenant_id             VARCHAR(64) NOT NULL,
		status                VARCHAR(16) NOT NULL
			CHECK (status IN ('trial', 'active', 'expired', 'cancelled')),
		tier                  VARCHAR(32) NOT NULL,
		trial_started_at      TIMESTAMPTZ,
		trial_ends_at         TIMESTAMPTZ,
		current_period_start  TIMESTAMPTZ,
		current_period_end    TIMESTAMPTZ,
		auto_renew            BOOLEAN     NOT NULL DEFAULT FALSE,
		lock_reason           TEXT,
		locked_at             TIMESTAMPTZ,
		created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_subscriptions_live_tenant
		ON subscriptions (tenant_id) WHERE status <> 'cancelled'`,

	`CREATE TABLE IF NOT EXISTS payments (
		id                UUID PRIMARY KEY,
		tenant_id         VARCHAR(64)   NOT NULL,
		amount            NUMERIC(12,2) NOT NULL,
		original_amount   NUMERIC(12,2) NOT NULL,
		discount_percent  INTEGER       NOT NULL DEFAULT 0,
		voucher_code      VARCHAR(64),
		currency          VARCHAR(8)    NOT NULL,
		status            VARCHAR(16)   NOT NULL CHECK (status IN ('pending', 'completed', 'failed')),
		transaction_id    VARCHAR(64)   NOT NULL UNIQUE,
		payment_method    VARCHAR(32)   NOT NULL,
		paid_at           TIMESTAMPTZ,
		error_message     TEXT,
		created_at        TIMESTAMPTZ   NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_tenant ON payments (tenant_id, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS vouchers (
		code              VARCHAR(64) PRIMARY KEY,
		discount_percent  INTEGER     NOT NULL,
		valid             BOOLEAN     NOT NULL DEFAULT TRUE
	)`,
}
