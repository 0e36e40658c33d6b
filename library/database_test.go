package library

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempDB(t *testing.T) *Database {
	t.Helper()
	dir := t.TempDir()
	db, err := NewDatabase(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func tempJSONStore(t *testing.T) *JSONStore {
	t.Helper()
	s, err := NewJSONStore(filepath.Join(t.TempDir(), "nested", "library.json"))
	require.NoError(t, err)
	return s
}

func sampleItems() []*Item {
	borrowed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	due := borrowed.AddDate(0, 0, 7)
	return []*Item{
		{ID: "250", Title: "Heat", Author: "Mann", Category: Media, Borrowed: true, BorrowerID: "2", BorrowDate: &borrowed, DueDate: &due},
		{ID: "101", Title: "Dune", Author: "Herbert", Category: Standard},
		{ID: "abc", Title: "Nature", Author: "Various", Category: Periodical},
	}
}

func samplePatrons() []*Patron {
	return []*Patron{
		{ID: "1", Name: "Admin", Admin: true, PasswordHash: "$2a$10$hash"},
		{ID: "2", Name: "Alice", Email: "alice@example.test", FineBalance: 12.5},
	}
}

func TestStoresRoundTrip(t *testing.T) {
	stores := map[string]Store{
		"sqlite": tempDB(t),
		"json":   tempJSONStore(t),
	}
	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			empty, err := s.LoadItems()
			require.NoError(t, err)
			assert.Empty(t, empty)

			require.NoError(t, s.SaveItems(sampleItems()))
			require.NoError(t, s.SavePatrons(samplePatrons()))

			items, err := s.LoadItems()
			require.NoError(t, err)
			assert.Equal(t, sampleItems(), items)

			patrons, err := s.LoadPatrons()
			require.NoError(t, err)
			assert.Equal(t, samplePatrons(), patrons)

			// Saves replace the previous contents.
			require.NoError(t, s.SaveItems(sampleItems()[1:]))
			items, err = s.LoadItems()
			require.NoError(t, err)
			assert.Len(t, items, 2)
		})
	}
}

func TestDatabaseReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lib.db")
	db, err := NewDatabase(path)
	require.NoError(t, err)
	require.NoError(t, db.SaveItems(sampleItems()))
	require.NoError(t, db.Close())

	db, err = NewDatabase(path)
	require.NoError(t, err)
	defer db.Close()
	items, err := db.LoadItems()
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestJSONStoreUnknownCategoryFallsBack(t *testing.T) {
	s := tempJSONStore(t)
	doc := `{"items":[
		{"id":"101","title":"Odd","author":"X","category":"hologram","borrowed":false},
		{"id":"102","title":"Bare","author":"Y","borrowed":false,"borrower_id":"9","due_date":"2025-01-01"}
	],"patrons":[]}`
	require.NoError(t, os.WriteFile(s.path, []byte(doc), 0o644))

	items, err := s.LoadItems()
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, Standard, items[0].Category)
	assert.Empty(t, items[1].BorrowerID, "loan fields are dropped for available items")
	assert.Nil(t, items[1].DueDate)
}

func TestJSONStoreWritesISODates(t *testing.T) {
	s := tempJSONStore(t)
	require.NoError(t, s.SaveItems(sampleItems()[:1]))

	data, err := os.ReadFile(s.path)
	require.NoError(t, err)
	assert.Regexp(t, `"due_date":\s*"2025-01-08"`, string(data))
	assert.Regexp(t, `"category":\s*"media"`, string(data))
}

func TestJSONStoreRejectsBadDate(t *testing.T) {
	s := tempJSONStore(t)
	doc := `{"items":[{"id":"1","borrowed":true,"borrower_id":"2","borrow_date":"01/02/2025"}]}`
	require.NoError(t, os.WriteFile(s.path, []byte(doc), 0o644))

	_, err := s.LoadItems()
	assert.Error(t, err)
}

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()

	s, err := OpenStore(Config{StoreKind: StoreJSON, StorePath: filepath.Join(dir, "l.json")})
	require.NoError(t, err)
	assert.IsType(t, &JSONStore{}, s)

	s, err = OpenStore(Config{StoreKind: StoreSQLite, StorePath: filepath.Join(dir, "l.db")})
	require.NoError(t, err)
	assert.IsType(t, &Database{}, s)
	s.Close()

	_, err = OpenStore(Config{StoreKind: "mongo"})
	assert.Error(t, err)
}
