package listing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/five82/liststore/internal/config"
	"github.com/five82/liststore/internal/store"
)

const (
	defaultPageSize = 200
	defaultTable    = "records"
	pingTimeout     = 10 * time.Second
)

// Record is one row of the listed table and the payload of a
// RecordDescriptor.
type Record struct {
	ID        uint `gorm:"primaryKey"`
	Title     string
	Category  string
	Body      string
	UpdatedAt time.Time
}

// RecordDescriptor is the lightweight listing view of a Record. Records
// without a category are ungrouped.
type RecordDescriptor struct {
	ID       uint
	Title    string
	Category string
	group    int
}

func (d *RecordDescriptor) Group() int     { return d.group }
func (d *RecordDescriptor) IsHeader() bool { return false }

// recordRow is the column subset read while listing.
type recordRow struct {
	ID       uint
	Title    string
	Category string
}

// DBSource lists a MySQL table with keyset paging. Each distinct category
// becomes a group; group indices are assigned in first-seen order and stay
// stable across listing attempts.
type DBSource struct {
	db       *gorm.DB
	table    string
	pageSize int
	log      *zap.Logger

	mu     sync.Mutex
	groups map[string]int
}

// OpenDB connects to the database named by cfg.DSN.
func OpenDB(cfg config.DBConfig, log *zap.Logger) (*DBSource, error) {
	if cfg.DSN == "" {
		return nil, errors.New("open db: dsn is empty")
	}
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(4)
	sqlDB.SetMaxOpenConns(16)
	sqlDB.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return NewDBSource(db, cfg.Table, cfg.PageSize, log), nil
}

// NewDBSource wraps an open connection.
func NewDBSource(db *gorm.DB, table string, pageSize int, log *zap.Logger) *DBSource {
	if table == "" {
		table = defaultTable
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &DBSource{
		db:       db,
		table:    table,
		pageSize: pageSize,
		log:      log,
		groups:   make(map[string]int),
	}
}

func (s *DBSource) sealed() {}

func (s *DBSource) Name() string { return "db:" + s.table }

func (s *DBSource) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// List pages through the table in id order. A category's header is emitted
// before its first record in this listing.
func (s *DBSource) List(ctx context.Context, emit func(store.Descriptor) error) error {
	var last uint
	announced := make(map[int]bool)
	for {
		var rows []recordRow
		err := s.db.WithContext(ctx).
			Table(s.table).
			Select("id", "title", "category").
			Where("id > ?", last).
			Order("id").
			Limit(s.pageSize).
			Find(&rows).Error
		if err != nil {
			return fmt.Errorf("query %s: %w", s.table, err)
		}

		for _, row := range rows {
			last = row.ID
			g := s.group(row.Category)
			if g != store.NoGroup && !announced[g] {
				announced[g] = true
				if err := emit(&Header{Title: row.Category, Index: g}); err != nil {
					return err
				}
			}
			d := &RecordDescriptor{ID: row.ID, Title: row.Title, Category: row.Category, group: g}
			if err := emit(d); err != nil {
				return err
			}
		}

		s.log.Debug("page listed", zap.String("table", s.table), zap.Int("rows", len(rows)), zap.Uint("last_id", last))
		if len(rows) < s.pageSize {
			return nil
		}
	}
}

func (s *DBSource) group(category string) int {
	if category == "" {
		return store.NoGroup
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[category]
	if !ok {
		g = len(s.groups)
		s.groups[category] = g
	}
	return g
}

// Fetch loads the full record. Headers materialize as their title.
func (s *DBSource) Fetch(ctx context.Context, d store.Descriptor) any {
	switch d := d.(type) {
	case *Header:
		return d.Title
	case *RecordDescriptor:
		var rec Record
		err := s.db.WithContext(ctx).Table(s.table).First(&rec, d.ID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				s.log.Debug("record gone", zap.Uint("id", d.ID))
			} else if ctx.Err() == nil {
				s.log.Warn("fetch record failed", zap.Uint("id", d.ID), zap.Error(err))
			}
			return nil
		}
		return &rec
	}
	return nil
}

// Sort orders groups by category name, then records by title and id. Two
// descriptors compare Same only when they name the same record.
func (s *DBSource) Sort(a, b store.Descriptor) store.Order {
	if o := compareString(category(a), category(b)); o != store.Same {
		return o
	}
	if o, ok := headerFirst(a, b); ok {
		return o
	}
	ra, okA := a.(*RecordDescriptor)
	rb, okB := b.(*RecordDescriptor)
	if !okA || !okB {
		return store.Unknown
	}
	if o := compareFold(ra.Title, rb.Title); o != store.Same {
		return o
	}
	return compareInt(int(ra.ID), int(rb.ID))
}

func category(d store.Descriptor) string {
	switch d := d.(type) {
	case *Header:
		return d.Title
	case *RecordDescriptor:
		return d.Category
	}
	return ""
}
