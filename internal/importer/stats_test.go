package importer

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/SteelMorgan/sqldump-importer/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectTableStats(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"Name", "Engine", "Rows", "Data_length", "Index_length", "Comment"}).
		AddRow("users", "InnoDB", 1500, 1048576, 524288, "").
		AddRow("orders", "InnoDB", 10, 16384, 16384, "").
		AddRow("v_active", nil, nil, nil, nil, "VIEW")
	mock.ExpectQuery("SHOW TABLE STATUS").WillReturnRows(rows)

	stats, err := CollectTableStats(context.Background(), db)
	require.NoError(t, err)

	assert.Equal(t, []domain.TableStat{
		{Name: "users", Rows: 1500, SizeMB: 1.5},
		{Name: "orders", Rows: 10, SizeMB: 0.03},
		{Name: "v_active", Rows: 0, SizeMB: 0},
	}, stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollectTableStats_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SHOW TABLE STATUS").WillReturnError(assert.AnError)

	_, err = CollectTableStats(context.Background(), db)
	assert.ErrorIs(t, err, assert.AnError)
}
