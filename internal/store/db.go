package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrCaseNotFound is returned when no case matches the supplied public ID.
var ErrCaseNotFound = errors.New("case not found")

// Database wraps the GORM DB handle and exposes repository helpers.
type Database struct {
	gorm *gorm.DB
	mu   sync.Mutex
}

// Open initializes the SQLite-backed database at the provided path.
func Open(path string, silent bool) (*Database, error) {
	cfg := &gorm.Config{}
	if silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&CaseAnalysis{}, &Conflict{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		logrus.WithError(err).Warn("enable WAL mode")
	}
	if err := db.Exec("PRAGMA synchronous=NORMAL").Error; err != nil {
		logrus.WithError(err).Warn("set synchronous pragma")
	}
	if err := applyIndexes(db); err != nil {
		return nil, fmt.Errorf("apply indexes: %w", err)
	}
	return &Database{gorm: db}, nil
}

// GORM exposes the raw gorm.DB handle.
func (d *Database) GORM() *gorm.DB {
	return d.gorm
}

// Close closes the underlying database connection.
func (d *Database) Close() error {
	if d == nil {
		return nil
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateCase inserts a case and its conflicts in one transaction. Conflicts
// are stored in the order supplied.
func (d *Database) CreateCase(c *CaseAnalysis, conflicts []Conflict) error {
	if c == nil {
		return errors.New("case is nil")
	}
	c.QueryNormalized = normalizeQueryKey(c.Query)
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		return insertConflicts(tx, c.ID, conflicts)
	})
}

// ReplaceCaseResults overwrites the aggregates of an existing case and swaps
// its conflicts for the supplied slice.
func (d *Database) ReplaceCaseResults(c *CaseAnalysis, conflicts []Conflict) error {
	if c == nil || c.ID == 0 {
		return errors.New("case must be persisted before replacing results")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(c).Error; err != nil {
			return err
		}
		if err := tx.Where("case_id = ?", c.ID).Delete(&Conflict{}).Error; err != nil {
			return err
		}
		return insertConflicts(tx, c.ID, conflicts)
	})
}

func insertConflicts(tx *gorm.DB, caseID uint, conflicts []Conflict) error {
	if len(conflicts) == 0 {
		return nil
	}
	for i := range conflicts {
		conflicts[i].ID = 0
		conflicts[i].CaseID = caseID
		conflicts[i].Position = i
	}
	const batchSize = 250
	return tx.CreateInBatches(conflicts, batchSize).Error
}

// GetCase fetches a case by its public ID.
func (d *Database) GetCase(publicID string) (*CaseAnalysis, error) {
	var c CaseAnalysis
	err := d.gorm.Where("public_id = ?", strings.TrimSpace(publicID)).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCaseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CaseQuery encapsulates filters and pagination for listing cases.
type CaseQuery struct {
	Query     string
	RiskLevel string
	MinRisk   float64
	Sort      string
	Offset    int
	Limit     int
}

// ListCases returns paginated cases applying optional filters.
func (d *Database) ListCases(opts CaseQuery) ([]CaseAnalysis, int64, error) {
	var total int64
	base := d.gorm.Model(&CaseAnalysis{})
	if q := normalizeQueryKey(opts.Query); q != "" {
		base = base.Where(`query_normalized LIKE ? ESCAPE '\'`, "%"+escapeLike(q)+"%")
	}
	if level := strings.ToLower(strings.TrimSpace(opts.RiskLevel)); level != "" {
		base = base.Where("risk_level = ?", level)
	}
	if opts.MinRisk > 0 {
		base = base.Where("risk_score >= ?", opts.MinRisk)
	}

	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	queryBuilder := base.Order(orderForSort(opts.Sort)).Offset(opts.Offset)
	if opts.Limit > 0 {
		queryBuilder = queryBuilder.Limit(opts.Limit)
	}

	var rows []CaseAnalysis
	if err := queryBuilder.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListConflicts returns the conflicts of a case in stored order.
func (d *Database) ListConflicts(caseID uint, includedOnly bool) ([]Conflict, error) {
	q := d.gorm.Model(&Conflict{}).Where("case_id = ?", caseID)
	if includedOnly {
		q = q.Where("included = ?", true)
	}
	var rows []Conflict
	if err := q.Order("position ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteCase removes a case and its conflicts.
func (d *Database) DeleteCase(publicID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Transaction(func(tx *gorm.DB) error {
		var c CaseAnalysis
		err := tx.Where("public_id = ?", strings.TrimSpace(publicID)).First(&c).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCaseNotFound
		}
		if err != nil {
			return err
		}
		if err := tx.Where("case_id = ?", c.ID).Delete(&Conflict{}).Error; err != nil {
			return err
		}
		return tx.Delete(&c).Error
	})
}

// CountCases returns the number of stored cases.
func (d *Database) CountCases() (int64, error) {
	var count int64
	if err := d.gorm.Model(&CaseAnalysis{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func orderForSort(sort string) string {
	switch strings.ToLower(strings.TrimSpace(sort)) {
	case "query_asc":
		return "case_analyses.query_normalized ASC, case_analyses.id DESC"
	case "query_desc":
		return "case_analyses.query_normalized DESC, case_analyses.id DESC"
	case "risk_desc":
		return "case_analyses.risk_score DESC, case_analyses.id DESC"
	case "risk_asc":
		return "case_analyses.risk_score ASC, case_analyses.id DESC"
	case "created_asc":
		return "case_analyses.created_at ASC"
	case "created_desc":
		return "case_analyses.created_at DESC"
	default:
		return "case_analyses.id DESC"
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// escapeLike makes user input match literally inside a LIKE pattern.
func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}

func normalizeQueryKey(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func applyIndexes(db *gorm.DB) error {
	stmts := []string{
		"UPDATE case_analyses SET query_normalized = LOWER(query) WHERE query IS NOT NULL AND (query_normalized IS NULL OR query_normalized = '')",
		"CREATE INDEX IF NOT EXISTS idx_conflicts_case_position ON conflicts(case_id, position)",
		"CREATE INDEX IF NOT EXISTS idx_case_analyses_level_score ON case_analyses(risk_level, risk_score)",
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
