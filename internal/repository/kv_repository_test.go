package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-idcard/pkg/errors"
)

func newKVRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestSQLKVRepositoryGet(t *testing.T) {
	db, mock, cleanup := newKVRepoMock(t)
	defer cleanup()

	repo := NewSQLKVRepository(db)
	mock.ExpectQuery(`SELECT value FROM kv_store WHERE key = \$1`).
		WithArgs("studentData").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(`[]`))

	value, err := repo.Get(context.Background(), "studentData")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(value))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLKVRepositoryGetMissing(t *testing.T) {
	db, mock, cleanup := newKVRepoMock(t)
	defer cleanup()

	repo := NewSQLKVRepository(db)
	mock.ExpectQuery("SELECT value FROM kv_store").
		WithArgs("currentStudent").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	_, err := repo.Get(context.Background(), "currentStudent")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))
}

func TestSQLKVRepositorySet(t *testing.T) {
	db, mock, cleanup := newKVRepoMock(t)
	defer cleanup()

	repo := NewSQLKVRepository(db)
	mock.ExpectExec("INSERT INTO kv_store").
		WithArgs("selectedTemplateId", `"dark"`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Set(context.Background(), "selectedTemplateId", []byte(`"dark"`)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLKVRepositoryEnsureSchema(t *testing.T) {
	db, mock, cleanup := newKVRepoMock(t)
	defer cleanup()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS kv_store").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, NewSQLKVRepository(db).EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisKVRepositoryRoundTrip(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer client.Close()

	repo := NewRedisKVRepository(client, "idcard:")
	ctx := context.Background()

	_, err := repo.Get(ctx, "studentData")
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))

	require.NoError(t, repo.Set(ctx, "studentData", []byte(`[{"name":"Asha"}]`)))
	value, err := repo.Get(ctx, "studentData")
	require.NoError(t, err)
	assert.Equal(t, `[{"name":"Asha"}]`, string(value))

	raw, err := srv.Get("idcard:studentData")
	require.NoError(t, err)
	assert.Equal(t, `[{"name":"Asha"}]`, raw)
	assert.Zero(t, srv.TTL("idcard:studentData"))
}

func TestMemoryKVRepositoryCopiesValues(t *testing.T) {
	repo := NewMemoryKVRepository()
	ctx := context.Background()

	_, err := repo.Get(ctx, "k")
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))

	value := []byte("abc")
	require.NoError(t, repo.Set(ctx, "k", value))
	value[0] = 'z'

	got, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	got[1] = 'z'
	again, _ := repo.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

func TestSQLKVRepositorySetManyCommits(t *testing.T) {
	db, mock, cleanup := newKVRepoMock(t)
	defer cleanup()

	repo := NewSQLKVRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO kv_store \(key, value, updated_at\) VALUES \(\$1, \$2, \$3\)`).
		WithArgs("currentStudent", `{"name":"B"}`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO kv_store").
		WithArgs("studentData", `[{"name":"B"},{"name":"A"}]`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.SetMany(context.Background(), map[string][]byte{
		"studentData":    []byte(`[{"name":"B"},{"name":"A"}]`),
		"currentStudent": []byte(`{"name":"B"}`),
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLKVRepositorySetManyRollsBack(t *testing.T) {
	db, mock, cleanup := newKVRepoMock(t)
	defer cleanup()

	repo := NewSQLKVRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO kv_store").
		WithArgs("currentStudent", `{"name":"B"}`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO kv_store").
		WithArgs("studentData", `[]`, sqlmock.AnyArg()).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.SetMany(context.Background(), map[string][]byte{
		"studentData":    []byte(`[]`),
		"currentStudent": []byte(`{"name":"B"}`),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "set studentData")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisKVRepositorySetMany(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer client.Close()

	repo := NewRedisKVRepository(client, "idcard:")
	require.NoError(t, repo.SetMany(context.Background(), map[string][]byte{
		"studentData":    []byte(`[{"name":"B"}]`),
		"currentStudent": []byte(`{"name":"B"}`),
	}))

	history, err := srv.Get("idcard:studentData")
	require.NoError(t, err)
	assert.Equal(t, `[{"name":"B"}]`, history)
	current, err := srv.Get("idcard:currentStudent")
	require.NoError(t, err)
	assert.Equal(t, `{"name":"B"}`, current)
}

func TestMemoryKVRepositorySetMany(t *testing.T) {
	repo := NewMemoryKVRepository()
	ctx := context.Background()

	value := []byte("B")
	require.NoError(t, repo.SetMany(ctx, map[string][]byte{"studentData": value, "currentStudent": []byte("b")}))
	value[0] = 'z'

	got, err := repo.Get(ctx, "studentData")
	require.NoError(t, err)
	assert.Equal(t, "B", string(got))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	require.Error(t, repo.SetMany(cancelled, map[string][]byte{"studentData": []byte("C")}))
	got, _ = repo.Get(ctx, "studentData")
	assert.Equal(t, "B", string(got))
}
