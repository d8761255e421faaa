package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates every table the booking flow touches, parents first.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		email VARCHAR(100) NULL UNIQUE,
		phone_number VARCHAR(20) NULL UNIQUE,
		full_name VARCHAR(100) NOT NULL,
		password_hash VARCHAR(100) NULL,
		role ENUM('admin','staff','customer') NOT NULL DEFAULT 'customer',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT fk_refresh_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS movies (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		duration_min INT NOT NULL DEFAULT 0,
		age_rating VARCHAR(20) NOT NULL DEFAULT '',
		status ENUM('active','inactive') NOT NULL DEFAULT 'active',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS cinema_rooms (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(50) NOT NULL,
		capacity INT UNSIGNED NOT NULL,
		` + "`rows`" + ` INT UNSIGNED NOT NULL,
		` + "`columns`" + ` INT UNSIGNED NOT NULL,
		type ENUM('2D','3D','4DX','IMAX') NOT NULL DEFAULT '2D',
		status ENUM('active','maintenance','inactive') NOT NULL DEFAULT 'active',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS seat_types (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(50) NOT NULL,
		price DECIMAL(12,2) NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS seats (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		cinema_room_id BIGINT UNSIGNED NOT NULL,
		seat_type_id BIGINT UNSIGNED NOT NULL,
		name VARCHAR(10) NOT NULL,
		` + "`row`" + ` VARCHAR(5) NOT NULL,
		` + "`column`" + ` INT UNSIGNED NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_seat_room_name (cinema_room_id, name),
		CONSTRAINT fk_seat_room FOREIGN KEY (cinema_room_id) REFERENCES cinema_rooms(id),
		CONSTRAINT fk_seat_type FOREIGN KEY (seat_type_id) REFERENCES seat_types(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS showtimes (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		movie_id BIGINT UNSIGNED NOT NULL,
		cinema_room_id BIGINT UNSIGNED NOT NULL,
		start_time DATETIME NOT NULL,
		end_time DATETIME NOT NULL,
		price DECIMAL(12,2) NOT NULL DEFAULT 0,
		status ENUM('scheduled','canceled','completed') NOT NULL DEFAULT 'scheduled',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		CONSTRAINT fk_showtime_movie FOREIGN KEY (movie_id) REFERENCES movies(id),
		CONSTRAINT fk_showtime_room FOREIGN KEY (cinema_room_id) REFERENCES cinema_rooms(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS foods (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		price DECIMAL(12,2) NOT NULL,
		category VARCHAR(50) NOT NULL DEFAULT '',
		is_available BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS ticket_bookings (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		booking_code VARCHAR(20) NOT NULL UNIQUE,
		customer_id BIGINT UNSIGNED NOT NULL,
		showtime_id BIGINT UNSIGNED NOT NULL,
		booking_date DATETIME NOT NULL,
		status ENUM('pending','confirmed','cancelled','completed') NOT NULL DEFAULT 'pending',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_booking_showtime_status (showtime_id, status),
		KEY idx_booking_status_created (status, created_at),
		CONSTRAINT fk_booking_customer FOREIGN KEY (customer_id) REFERENCES users(id),
		CONSTRAINT fk_booking_showtime FOREIGN KEY (showtime_id) REFERENCES showtimes(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS tickets (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		ticket_booking_id BIGINT UNSIGNED NOT NULL,
		seat_id BIGINT UNSIGNED NOT NULL,
		price DECIMAL(12,2) NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_ticket_booking_seat (ticket_booking_id, seat_id),
		KEY idx_ticket_seat (seat_id),
		CONSTRAINT fk_ticket_booking FOREIGN KEY (ticket_booking_id) REFERENCES ticket_bookings(id) ON DELETE CASCADE,
		CONSTRAINT fk_ticket_seat FOREIGN KEY (seat_id) REFERENCES seats(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS food_orders (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		ticket_booking_id BIGINT UNSIGNED NOT NULL,
		food_id BIGINT UNSIGNED NOT NULL,
		quantity INT UNSIGNED NOT NULL DEFAULT 1,
		price DECIMAL(12,2) NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		CONSTRAINT fk_food_order_booking FOREIGN KEY (ticket_booking_id) REFERENCES ticket_bookings(id) ON DELETE CASCADE,
		CONSTRAINT fk_food_order_food FOREIGN KEY (food_id) REFERENCES foods(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS invoices (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		ticket_booking_id BIGINT UNSIGNED NOT NULL UNIQUE,
		payment_method ENUM('cash','credit_card','momo','zalopay','banking') NOT NULL DEFAULT 'cash',
		payment_status ENUM('pending','paid','failed') NOT NULL DEFAULT 'pending',
		amount DECIMAL(12,2) NOT NULL,
		payment_date DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		CONSTRAINT fk_invoice_booking FOREIGN KEY (ticket_booking_id) REFERENCES ticket_bookings(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates missing tables. Existing tables are left untouched.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
