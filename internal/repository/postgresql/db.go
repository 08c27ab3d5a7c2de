package postgresql

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"valet_parking/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
)

//go:embed schema.sql
var schemaSQL string

// SlotChangesChannel là kênh LISTEN/NOTIFY mang slot_id của bản ghi vừa thay đổi.
const SlotChangesChannel = "slot_changes"

func NewDB(cfg *config.Config) (*sql.DB, error) {
	driver := cfg.DBDriver
	if driver == "" {
		driver = "pgx"
	}
	db, err := sql.Open(driver, cfg.PostgresDSN()) // "pgx" qua pgx/stdlib, "postgres" qua lib/pq
	if err != nil {
		return nil, fmt.Errorf("lỗi mở kết nối database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("lỗi ping database: %w", err)
	}
	return db, nil
}

// EnsureSchema tạo các bảng nếu chưa có.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("lỗi khởi tạo schema: %w", err)
	}
	return nil
}
