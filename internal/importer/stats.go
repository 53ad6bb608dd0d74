package importer

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strconv"

	"github.com/SteelMorgan/sqldump-importer/internal/domain"
)

const bytesPerMB = 1024 * 1024

// Querier is the read side of a database session
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// CollectTableStats reads SHOW TABLE STATUS of the current database.
// Columns are matched by name since their number differs between servers.
func CollectTableStats(ctx context.Context, q Querier) ([]domain.TableStat, error) {
	rows, err := q.QueryContext(ctx, "SHOW TABLE STATUS")
	if err != nil {
		return nil, fmt.Errorf("failed to query table status: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read table status columns: %w", err)
	}

	index := make(map[string]int, len(columns))
	for i, name := range columns {
		index[name] = i
	}
	if _, ok := index["Name"]; !ok {
		return nil, fmt.Errorf("table status has no Name column")
	}

	values := make([]sql.RawBytes, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}

	column := func(name string) sql.RawBytes {
		if i, ok := index[name]; ok {
			return values[i]
		}
		return nil
	}

	var stats []domain.TableStat
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan table status: %w", err)
		}

		// Views report NULL for all sizes
		size := parseInt(column("Data_length")) + parseInt(column("Index_length"))
		stats = append(stats, domain.TableStat{
			Name:   string(column("Name")),
			Rows:   parseInt(column("Rows")),
			SizeMB: math.Round(float64(size)/bytesPerMB*100) / 100,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate table status: %w", err)
	}

	return stats, nil
}

func parseInt(v sql.RawBytes) int64 {
	if v == nil {
		return 0
	}
	n, err := strconv.ParseInt(string(v), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
