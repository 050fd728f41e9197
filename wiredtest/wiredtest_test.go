package wiredtest_test

import (
	"errors"
	"testing"

	"github.com/junioryono/wired"
	"github.com/junioryono/wired/wiredtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Store interface {
	Find(id string) (string, error)
}

type memoryStore struct{}

func (memoryStore) Find(id string) (string, error) { return "user " + id, nil }

type fakeStore struct{}

func (fakeStore) Find(string) (string, error) { return "", errors.New("offline") }

type usersService struct {
	Store  Store        `inject:"store"`
	Logger wired.Logger `inject:"APP_LOGGER"`
}

func (s *usersService) Name(id string) (string, error) {
	s.Logger.Debug("finding user", "id", id)
	return s.Store.Find(id)
}

type usersController struct {
	Users *usersService `inject:""`
}

func (c *usersController) Show() (string, error) { return c.Users.Name("7") }

var (
	usersServiceClass    = wired.Injectable[usersService]()
	usersControllerClass = wired.Controller[usersController]("users", wired.Get("", "Show"))
	storeToken           = wired.Name("store")
)

func TestCompile(t *testing.T) {
	t.Parallel()

	tm, err := wiredtest.CreateTestingModule(wiredtest.Metadata{
		Controllers: []*wired.ClassDef{usersControllerClass},
		Providers: []wired.Provider{
			usersServiceClass,
			wired.UseValue(storeToken, Store(memoryStore{})),
		},
	}).Compile()
	require.NoError(t, err)

	ctrl := wiredtest.MustGet[*usersController](t, tm, usersControllerClass)
	name, err := ctrl.Show()
	require.NoError(t, err)
	assert.Equal(t, "user 7", name)

	svc, err := wiredtest.Get[*usersService](tm, usersServiceClass)
	require.NoError(t, err)
	assert.Same(t, ctrl.Users, svc)
	assert.NotNil(t, svc.Logger)
}

func TestOverrideProvider(t *testing.T) {
	t.Parallel()

	tm, err := wiredtest.CreateTestingModule(wiredtest.Metadata{
		Providers: []wired.Provider{
			usersServiceClass,
			wired.UseValue(storeToken, Store(memoryStore{})),
		},
	}).
		OverrideProvider(storeToken, Store(memoryStore{})).
		OverrideProvider(storeToken, Store(fakeStore{})).
		Compile()
	require.NoError(t, err)

	svc := wiredtest.MustGet[*usersService](t, tm, usersServiceClass)
	_, err = svc.Name("1")
	assert.EqualError(t, err, "offline")

	assert.ElementsMatch(t, []wired.Key{
		wired.AppLogger.Key(),
		storeToken.Key(),
		usersServiceClass.Key(),
	}, tm.Keys())
}

func TestOverrideProvider_Class(t *testing.T) {
	t.Parallel()

	fake := &usersService{Store: fakeStore{}}
	tm, err := wiredtest.CreateTestingModule(wiredtest.Metadata{
		Controllers: []*wired.ClassDef{usersControllerClass},
		Providers:   []wired.Provider{usersServiceClass},
	}).OverrideProvider(usersServiceClass, fake).Compile()
	require.NoError(t, err)

	ctrl := wiredtest.MustGet[*usersController](t, tm, usersControllerClass)
	assert.Same(t, fake, ctrl.Users)
}

func TestCompile_Errors(t *testing.T) {
	t.Parallel()

	t.Run("missing dependency", func(t *testing.T) {
		_, err := wiredtest.CreateTestingModule(wiredtest.Metadata{
			Providers: []wired.Provider{usersServiceClass},
		}).Compile()
		assert.True(t, errors.Is(err, wired.ErrDependencyNotFound))
	})

	t.Run("factory before its dependency", func(t *testing.T) {
		_, err := wiredtest.CreateTestingModule(wiredtest.Metadata{
			Providers: []wired.Provider{
				wired.UseFactory(wired.Name("greeting"), func(deps ...any) (any, error) {
					return "hello " + deps[0].(string), nil
				}, wired.Name("who")),
				wired.UseValue(wired.Name("who"), "world"),
			},
		}).Compile()
		assert.True(t, errors.Is(err, wired.ErrDependencyNotFound))
	})

	t.Run("wrong type", func(t *testing.T) {
		tm, err := wiredtest.CreateTestingModule(wiredtest.Metadata{
			Providers: []wired.Provider{wired.UseValue(storeToken, Store(memoryStore{}))},
		}).Compile()
		require.NoError(t, err)

		_, err = wiredtest.Get[*usersService](tm, storeToken)
		var mismatch wired.TypeMismatchError
		assert.ErrorAs(t, err, &mismatch)
	})
}
