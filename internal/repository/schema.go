package repository

import (
	"context"
	"fmt"
	"strings"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/efris-reports/constants"
	"github.com/joseph-ayodele/efris-reports/internal/common"
)

// ident quotes a column or table name for the store's dialect.
func (d *DB) ident(name string) string {
	return entsql.Dialect(d.dialect).String(func(b *entsql.Builder) {
		b.Ident(name)
	})
}

func (d *DB) columnType(col string) string {
	if col == constants.ColAmountAssessed {
		if d.dialect == dialect.Postgres {
			return "DOUBLE PRECISION"
		}
		return "REAL"
	}
	if col == constants.ColAssessmentNumber {
		return "TEXT NOT NULL"
	}
	return "TEXT"
}

func (d *DB) createTableDDL() string {
	cols := constants.Columns()
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = d.ident(c) + " " + d.columnType(c)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", d.ident(d.table), strings.Join(defs, ", "))
}

func (d *DB) uniqueIndexDDL() string {
	name := "ux_" + strings.ReplaceAll(strings.ToLower(d.table), " ", "_") + "_assessment_number"
	return fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (%s)",
		d.ident(name), d.ident(d.table), d.ident(constants.ColAssessmentNumber))
}

// ensureSchema creates the report table when absent and checks that an
// existing one carries every expected column. The unique index is created
// when missing; if existing rows already collide it is skipped with a
// warning and the pre-insert lookup alone guards uniqueness.
func (d *DB) ensureSchema(ctx context.Context) error {
	if err := d.drv.Exec(ctx, d.createTableDDL(), []any{}, nil); err != nil {
		if IsConnectionError(err) {
			return common.StoreUnavailable("create report table", err)
		}
		return common.NewAppError("SCHEMA_ERROR", "create report table", fmt.Errorf("%w: %v", common.ErrDatabase, err))
	}

	have, err := d.tableColumns(ctx)
	if err != nil {
		return common.NewAppError("SCHEMA_ERROR", "inspect report table", fmt.Errorf("%w: %v", common.ErrDatabase, err))
	}
	var missing []string
	for _, c := range constants.Columns() {
		if _, ok := have[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return common.NewAppError("SCHEMA_ERROR",
			fmt.Sprintf("table %q is missing columns: %s", d.table, strings.Join(missing, ", ")),
			common.ErrDatabase)
	}

	if err := d.drv.Exec(ctx, d.uniqueIndexDDL(), []any{}, nil); err != nil {
		if IsConnectionError(err) {
			return common.StoreUnavailable("create unique index", err)
		}
		d.logger.Warn("unique index on assessment number not created", "table", d.table, "error", err)
	}
	return nil
}

func (d *DB) tableColumns(ctx context.Context) (map[string]struct{}, error) {
	var (
		query string
		args  []any
	)
	switch d.dialect {
	case dialect.Postgres:
		query = "SELECT column_name FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = $1"
		args = []any{d.table}
	default:
		query = "SELECT name FROM pragma_table_info(?)"
		args = []any{d.table}
	}

	var rows entsql.Rows
	if err := d.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out[name] = struct{}{}
	}
	return out, rows.Err()
}
