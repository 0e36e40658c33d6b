package library

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type managerEnv struct {
	mgr  *LibraryManager
	path string
	now  time.Time
}

func newManager(t *testing.T) *managerEnv {
	t.Helper()
	env := &managerEnv{path: filepath.Join(t.TempDir(), "lib.db"), now: day0}
	env.reopen(t)
	return env
}

// reopen loads a fresh manager from the same database file.
func (e *managerEnv) reopen(t *testing.T) {
	t.Helper()
	if e.mgr != nil {
		require.NoError(t, e.mgr.Close())
	}
	db, err := NewDatabase(e.path)
	require.NoError(t, err)
	mgr, err := NewLibraryManager(db, discardLogger(), WithClock(func() time.Time { return e.now }))
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })
	e.mgr = mgr
}

func (e *managerEnv) register(t *testing.T, admin *Actor, name string, isAdmin bool) *Actor {
	t.Helper()
	p, err := e.mgr.RegisterPatron(admin, name, "", "secret-"+name, isAdmin)
	require.NoError(t, err)
	actor, err := e.mgr.Login(p.ID, "secret-"+name)
	require.NoError(t, err)
	return actor
}

func TestFirstPatronBecomesAdministrator(t *testing.T) {
	env := newManager(t)

	p, err := env.mgr.RegisterPatron(nil, "Root", "root@example.test", "pw", false)
	require.NoError(t, err)
	assert.True(t, p.Admin)
	assert.Equal(t, "1", p.ID)

	_, err = env.mgr.RegisterPatron(nil, "Sneaky", "", "pw", true)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Len(t, env.mgr.Patrons(), 1)
}

func TestLoginChecksPassword(t *testing.T) {
	env := newManager(t)
	_, err := env.mgr.RegisterPatron(nil, "Root", "", "correct horse", false)
	require.NoError(t, err)

	actor, err := env.mgr.Login("1", "correct horse")
	require.NoError(t, err)
	assert.True(t, actor.IsAdministrator())

	_, err = env.mgr.Login("1", "wrong")
	assert.ErrorIs(t, err, ErrBadCredentials)
	_, err = env.mgr.Login("42", "correct horse")
	assert.ErrorIs(t, err, ErrBadCredentials)

	_, err = env.mgr.RegisterPatron(actor, "Blank", "", "   ", false)
	assert.Error(t, err)
}

func TestCirculationPersistsAcrossReload(t *testing.T) {
	env := newManager(t)
	admin := env.register(t, nil, "root", true)
	alice := env.register(t, admin, "alice", false)

	book, err := env.mgr.AddItem(admin, "Dune", "Herbert", Standard)
	require.NoError(t, err)
	_, err = env.mgr.AddItem(admin, "Heat", "Mann", Media)
	require.NoError(t, err)
	_, err = env.mgr.BorrowItem(alice, book.ID)
	require.NoError(t, err)

	env.reopen(t)
	reloaded := env.mgr.GetItem(book.ID)
	require.NotNil(t, reloaded)
	assert.True(t, reloaded.Borrowed)
	assert.Equal(t, alice.ID(), reloaded.BorrowerID)
	assert.Equal(t, dateOf(day0).AddDate(0, 0, 28), *reloaded.DueDate)

	next, err := env.mgr.AddItem(mustLogin(t, env, "1", "root"), "Emma", "Austen", Periodical)
	require.NoError(t, err)
	assert.Equal(t, "103", next.ID)
}

func TestLateReturnPersistsFine(t *testing.T) {
	env := newManager(t)
	admin := env.register(t, nil, "root", true)
	alice := env.register(t, admin, "alice", false)
	dvd, err := env.mgr.AddItem(admin, "Heat", "Mann", Media)
	require.NoError(t, err)
	_, err = env.mgr.BorrowItem(alice, dvd.ID)
	require.NoError(t, err)

	env.now = day0.AddDate(0, 0, 9)
	fine, err := env.mgr.ReturnItem(alice, dvd.ID)
	require.NoError(t, err)
	assert.Equal(t, 40.0, fine)

	env.reopen(t)
	assert.Equal(t, 40.0, env.mgr.Patron(alice.ID()).FineBalance)

	alice = mustLogin(t, env, alice.ID(), "alice")
	_, err = env.mgr.BorrowItem(alice, dvd.ID)
	assert.ErrorIs(t, err, ErrOutstandingFine)

	admin = mustLogin(t, env, "1", "root")
	_, err = env.mgr.PayFine(alice, alice.ID(), 40)
	assert.ErrorIs(t, err, ErrNotPrivileged)
	left, err := env.mgr.PayFine(admin, alice.ID(), 100)
	require.NoError(t, err)
	assert.Zero(t, left)
	_, err = env.mgr.BorrowItem(alice, dvd.ID)
	assert.NoError(t, err)
}

func TestUnregisterPatronThroughManager(t *testing.T) {
	env := newManager(t)
	admin := env.register(t, nil, "root", true)
	bob := env.register(t, admin, "bob", false)

	assert.ErrorIs(t, env.mgr.UnregisterPatron(nil, "99"), ErrNotAuthenticated)
	assert.ErrorIs(t, env.mgr.UnregisterPatron(bob, "99"), ErrNotPrivileged)
	assert.ErrorIs(t, env.mgr.UnregisterPatron(admin, "99"), ErrPatronNotFound)
	assert.ErrorIs(t, env.mgr.UnregisterPatron(admin, admin.ID()), ErrPatronIsAdmin)
	require.NoError(t, env.mgr.UnregisterPatron(admin, bob.ID()))

	env.reopen(t)
	assert.Nil(t, env.mgr.Patron(bob.ID()))
	assert.Len(t, env.mgr.Patrons(), 1)
}

func TestResetPassword(t *testing.T) {
	env := newManager(t)
	admin := env.register(t, nil, "root", true)
	alice := env.register(t, admin, "alice", false)
	bob := env.register(t, admin, "bob", false)

	assert.ErrorIs(t, env.mgr.ResetPassword(bob, alice.ID(), "x"), ErrNotPrivileged)
	require.NoError(t, env.mgr.ResetPassword(alice, alice.ID(), "new-alice"))
	require.NoError(t, env.mgr.ResetPassword(admin, bob.ID(), "new-bob"))

	_, err := env.mgr.Login(alice.ID(), "new-alice")
	assert.NoError(t, err)
	_, err = env.mgr.Login(bob.ID(), "secret-bob")
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestSearchItemsAndReminders(t *testing.T) {
	env := newManager(t)
	admin := env.register(t, nil, "root", true)
	alice := env.register(t, admin, "alice", false)
	heat, err := env.mgr.AddItem(admin, "Heat", "Michael Mann", Media)
	require.NoError(t, err)
	_, err = env.mgr.AddItem(admin, "The Manhattan Project", "Someone", Standard)
	require.NoError(t, err)

	assert.Len(t, env.mgr.SearchItems("man"), 2)
	assert.Len(t, env.mgr.SearchItems("heat"), 1)

	_, err = env.mgr.BorrowItem(alice, heat.ID)
	require.NoError(t, err)
	env.now = day0.AddDate(0, 0, 30)

	var log []notification
	env.mgr.Broadcaster().AddChannel(&recordingChannel{name: "test", log: &log})
	assert.Equal(t, 1, env.mgr.SendOverdueReminders())
	assert.Equal(t, []notification{{channel: "test", patron: alice.ID(), message: "You have 1 overdue item(s)."}}, log)
}

func TestImportItems(t *testing.T) {
	env := newManager(t)
	admin := env.register(t, nil, "root", true)

	n, err := env.mgr.ImportItems(admin, []*Item{{Title: "A"}, {Title: "B", Category: Media}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = env.mgr.ImportItems(NewActor(&Patron{ID: "x"}), []*Item{{Title: "C"}})
	assert.ErrorIs(t, err, ErrNotPrivileged)
	assert.Zero(t, n)

	env.reopen(t)
	assert.Len(t, env.mgr.GetAllItems(), 2)
}

type failingStore struct{ Store }

func (failingStore) SaveItems([]*Item) error { return errors.New("disk full") }

func TestSaveFailureKeepsInMemoryChange(t *testing.T) {
	env := newManager(t)
	admin := env.register(t, nil, "root", true)
	env.mgr.store = failingStore{Store: env.mgr.store}

	item, err := env.mgr.AddItem(admin, "Dune", "Herbert", Standard)
	assert.ErrorContains(t, err, "disk full")
	require.NotNil(t, item)
	assert.Same(t, item, env.mgr.GetItem(item.ID))
}

func TestPartialImportReportsSaveFailure(t *testing.T) {
	env := newManager(t)
	admin := env.register(t, nil, "root", true)
	env.mgr.store = failingStore{Store: env.mgr.store}

	n, err := env.mgr.ImportItems(admin, []*Item{{Title: "A"}, nil})
	assert.Equal(t, 1, n)
	assert.ErrorIs(t, err, ErrNilItem)
	assert.ErrorContains(t, err, "disk full")
}

func TestPrettyItemTruncatesOnRunes(t *testing.T) {
	title := strings.Repeat("é", 40)
	line := PrettyItem(&Item{ID: "101", Title: title, Author: "Zoë"})
	assert.True(t, utf8.ValidString(line))
	assert.Contains(t, line, strings.Repeat("é", 27)+"...")
	assert.Equal(t, "Zoë", truncate("Zoë", 25))
}

func mustLogin(t *testing.T, env *managerEnv, id, name string) *Actor {
	t.Helper()
	actor, err := env.mgr.Login(id, "secret-"+name)
	require.NoError(t, err)
	return actor
}
