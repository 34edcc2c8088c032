package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/speakboard/internal/types"
)

func newMockStore(t *testing.T) (*Postgres, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgres(mock, quietLogger()), mock
}

func TestPostgres_Migrate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS folders`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS icons`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS`).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Load(t *testing.T) {
	s, mock := newMockStore(t)

	snacksID, drinksID := uuid.New(), uuid.New()
	juiceID, milkID := uuid.New(), uuid.New()

	mock.ExpectQuery(`SELECT id, name, is_default, image FROM folders ORDER BY position`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "is_default", "image"}).
			AddRow(snacksID, "Snacks", false, []byte("cover")).
			AddRow(drinksID, "Drinks", true, []byte{}))
	mock.ExpectQuery(`SELECT id, folder_id, title, image, audio, quick_access FROM icons`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "folder_id", "title", "image", "audio", "quick_access"}).
			AddRow(milkID, drinksID, "Milk", []byte("m"), []byte{}, true).
			AddRow(juiceID, snacksID, "Juice", []byte("j"), []byte("a"), false).
			AddRow(uuid.New(), uuid.New(), "Orphan", []byte("o"), []byte{}, false))

	folders, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, folders, 2)

	assert.Equal(t, "Snacks", folders[0].Name)
	require.Len(t, folders[0].Icons, 1)
	assert.Equal(t, juiceID, folders[0].Icons[0].ID)
	assert.Equal(t, []byte("a"), folders[0].Icons[0].Audio)

	assert.True(t, folders[1].IsDefault)
	require.Len(t, folders[1].Icons, 1)
	assert.True(t, folders[1].Icons[0].QuickAccess)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_LoadQueryError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT`).WillReturnError(errors.New("connection refused"))

	_, err := s.Load(context.Background())
	assert.ErrorContains(t, err, "query folders")
}

func TestPostgres_Save(t *testing.T) {
	s, mock := newMockStore(t)

	snacks := types.NewFolder("Snacks")
	snacks.Icons = append(snacks.Icons, types.NewIcon("Juice", []byte("j")))

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO folders \(id,name,is_default,image,position\) VALUES .* ON CONFLICT \(id\) DO UPDATE`).
		WithArgs(snacks.ID, "Snacks", false, pgxmock.AnyArg(), 0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO icons \(id,folder_id,title,image,audio,quick_access,position\)`).
		WithArgs(snacks.Icons[0].ID, snacks.ID, "Juice", []byte("j"), pgxmock.AnyArg(), false, 0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`DELETE FROM icons WHERE NOT \(id = ANY\(\$1\)\)`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`DELETE FROM folders WHERE NOT \(id = ANY\(\$1\)\)`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCommit()

	require.NoError(t, s.Save(context.Background(), []*types.Folder{snacks}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveEmptyLibrary(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM icons$`).WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectExec(`DELETE FROM folders$`).WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	require.NoError(t, s.Save(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveRollsBackOnError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO folders`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := s.Save(context.Background(), []*types.Folder{types.NewFolder("Snacks")})
	assert.ErrorContains(t, err, "insert folders")
	require.NoError(t, mock.ExpectationsWereMet())
}
