package database

import (
	"context"
	"database/sql"
	"fmt"
)

// EnsureSchema creates every table the API needs before the server starts
// accepting traffic.  Statements are idempotent; running against an existing
// database is a no-op.  Column changes beyond CREATE TABLE are out of scope
// here and belong in operator-run migrations.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		open_id       VARCHAR(64)  NOT NULL DEFAULT '',
		nickname      VARCHAR(64)  NOT NULL DEFAULT '',
		username      VARCHAR(64)  NULL,
		password      VARCHAR(255) NULL,
		avatar        VARCHAR(512) NULL,
		phone         VARCHAR(32)  NULL,
		role          VARCHAR(32)  NOT NULL DEFAULT 'user',
		last_login_at DATETIME     NULL,
		created_at    DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uk_users_open_id (open_id),
		UNIQUE KEY uk_users_username (username)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS goods (
		id             BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		name           VARCHAR(128)  NULL,
		waybill_no     VARCHAR(64)   NULL,
		receiver_name  VARCHAR(64)   NULL,
		receiver_phone VARCHAR(32)   NULL,
		sender_name    VARCHAR(64)   NULL,
		sender_phone   VARCHAR(32)   NULL,
		volume         DECIMAL(10,2) NULL,
		weight         DECIMAL(10,2) NULL,
		freight        DECIMAL(10,2) NULL,
		status         VARCHAR(32)   NOT NULL DEFAULT 'pending',
		remark         VARCHAR(512)  NULL,
		images         JSON          NULL,
		created_by     BIGINT UNSIGNED NOT NULL,
		created_at     DATETIME      NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at     DATETIME      NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		KEY idx_goods_created_by (created_by),
		KEY idx_goods_status (status)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS vehicles (
		id                 BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		user_id            BIGINT UNSIGNED NOT NULL,
		plate_number       VARCHAR(32)  NOT NULL,
		brand              VARCHAR(64)  NOT NULL DEFAULT '',
		horsepower         VARCHAR(32)  NOT NULL DEFAULT '',
		load_capacity      VARCHAR(32)  NOT NULL DEFAULT '',
		trailer_length     VARCHAR(32)  NOT NULL DEFAULT '',
		axle_count         INT          NOT NULL DEFAULT 0,
		tire_count         INT          NOT NULL DEFAULT 0,
		certificate_images JSON         NULL,
		other_images       JSON         NULL,
		created_at         DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at         DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		KEY idx_vehicles_user_id (user_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS transport_records (
		id                 BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		vehicle_id         BIGINT UNSIGNED NOT NULL,
		fleet_id           BIGINT UNSIGNED NULL,
		goods_name         VARCHAR(128)  NOT NULL,
		date               DATE          NOT NULL,
		freight            DECIMAL(10,2) NOT NULL DEFAULT 0,
		other_income       DECIMAL(10,2) NOT NULL DEFAULT 0,
		fuel_cost          DECIMAL(10,2) NOT NULL DEFAULT 0,
		repair_cost        DECIMAL(10,2) NOT NULL DEFAULT 0,
		accommodation_cost DECIMAL(10,2) NOT NULL DEFAULT 0,
		meal_cost          DECIMAL(10,2) NOT NULL DEFAULT 0,
		other_expense      DECIMAL(10,2) NOT NULL DEFAULT 0,
		remark             VARCHAR(512)  NULL,
		images             JSON          NULL,
		is_reconciled      TINYINT(1)    NOT NULL DEFAULT 0,
		created_at         DATETIME      NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at         DATETIME      NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		KEY idx_records_vehicle_date (vehicle_id, date),
		KEY idx_records_fleet (fleet_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS certificate_share_tokens (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		token      VARCHAR(64)     NOT NULL,
		vehicle_id BIGINT UNSIGNED NOT NULL,
		expire_at  DATETIME        NOT NULL,
		use_count  BIGINT UNSIGNED NOT NULL DEFAULT 0,
		created_at DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uk_share_token (token),
		KEY idx_share_vehicle (vehicle_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS cases (
		id           BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		project_name VARCHAR(128) NOT NULL,
		date         DATE         NOT NULL,
		tags         JSON         NULL,
		images       JSON         NULL,
		created_at   DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at   DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		KEY idx_cases_date (date)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS fleets (
		id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		name        VARCHAR(64)  NOT NULL,
		description VARCHAR(255) NULL,
		created_at  DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at  DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS fleet_members (
		id        BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		fleet_id  BIGINT UNSIGNED NOT NULL,
		user_id   BIGINT UNSIGNED NOT NULL,
		role      VARCHAR(32)     NOT NULL DEFAULT 'member',
		joined_at DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uk_fleet_user (fleet_id, user_id),
		KEY idx_members_user (user_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}
