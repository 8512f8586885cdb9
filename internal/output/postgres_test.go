package output

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresSink_Append(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "block_assignments"`).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"block_assignments"}, []string{"geoid", "district"}).WillReturnResult(2)

	sink := &PostgresSink{Pool: mock}
	err = sink.Write(context.Background(), result(t, [2]string{"a", "1"}, [2]string{"b", ""}))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSink_Truncate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	table := pgx.Identifier{"geo", "az_blocks"}
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "geo"."az_blocks"`).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectBegin()
	mock.ExpectExec(`TRUNCATE "geo"."az_blocks"`).WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))
	mock.ExpectCopyFrom(table, []string{"geoid", "district"}).WillReturnResult(1)
	mock.ExpectCommit()

	sink := &PostgresSink{Pool: mock, Table: "geo.az_blocks", Truncate: true}
	require.NoError(t, sink.Write(context.Background(), result(t, [2]string{"a", "1"})))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSink_CreateFails(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnError(fmt.Errorf("permission denied"))

	sink := &PostgresSink{Pool: mock}
	err = sink.Write(context.Background(), result(t, [2]string{"a", "1"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create block_assignments")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSink_BadTable(t *testing.T) {
	sink := &PostgresSink{Table: "geo."}
	assert.Error(t, sink.Write(context.Background(), result(t)))
}
