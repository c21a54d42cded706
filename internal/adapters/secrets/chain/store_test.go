package chain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "zepp/accounts/acc-1/password"

type fakeStore struct {
	value string
	err   error

	gets    int
	puts    int
	deletes int
}

func (f *fakeStore) Get(context.Context, string) (string, error) {
	f.gets++
	return f.value, f.err
}

func (f *fakeStore) Put(context.Context, string, string) error {
	f.puts++
	return f.err
}

func (f *fakeStore) Delete(context.Context, string) error {
	f.deletes++
	return f.err
}

func TestGetPrefersPrimary(t *testing.T) {
	t.Parallel()

	primary := &fakeStore{value: "from-pass"}
	fallback := &fakeStore{value: "from-file"}
	store := NewStore(primary, fallback)

	value, err := store.Get(context.Background(), testKey)
	require.NoError(t, err)
	assert.Equal(t, "from-pass", value)
	assert.Zero(t, fallback.gets)
}

func TestGetFallsBackWhenPrimaryFails(t *testing.T) {
	t.Parallel()

	primary := &fakeStore{err: errors.New("pass unavailable")}
	fallback := &fakeStore{value: "from-file"}
	store := NewStore(primary, fallback)

	value, err := store.Get(context.Background(), testKey)
	require.NoError(t, err)
	assert.Equal(t, "from-file", value)
}

func TestGetReportsBothFailures(t *testing.T) {
	t.Parallel()

	primary := &fakeStore{err: errors.New("pass failed")}
	fallback := &fakeStore{err: errors.New("file failed")}
	store := NewStore(primary, fallback)

	_, err := store.Get(context.Background(), testKey)
	require.Error(t, err)
	assert.ErrorContains(t, err, "pass failed")
	assert.ErrorContains(t, err, "file failed")
}

func TestPutFallsBack(t *testing.T) {
	t.Parallel()

	primary := &fakeStore{err: errors.New("pass failed")}
	fallback := &fakeStore{}
	store := NewStore(primary, fallback)

	require.NoError(t, store.Put(context.Background(), testKey, "secret"))
	assert.Equal(t, 1, fallback.puts)
}

func TestPutSkipsFallbackWhenPrimarySucceeds(t *testing.T) {
	t.Parallel()

	primary := &fakeStore{}
	fallback := &fakeStore{}
	store := NewStore(primary, fallback)

	require.NoError(t, store.Put(context.Background(), testKey, "secret"))
	assert.Zero(t, fallback.puts)
}

func TestDeleteFallsBack(t *testing.T) {
	t.Parallel()

	primary := &fakeStore{err: errors.New("pass failed")}
	fallback := &fakeStore{}
	store := NewStore(primary, fallback)

	require.NoError(t, store.Delete(context.Background(), testKey))
	assert.Equal(t, 1, fallback.deletes)
}

func TestContextErrorsSkipFallback(t *testing.T) {
	t.Parallel()

	primary := &fakeStore{err: context.Canceled}
	fallback := &fakeStore{value: "from-file"}
	store := NewStore(primary, fallback)

	_, err := store.Get(context.Background(), testKey)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, fallback.gets)
}

func TestNewStoreCheckedRejectsNilStores(t *testing.T) {
	t.Parallel()

	_, err := NewStoreChecked(nil, &fakeStore{})
	require.Error(t, err)

	_, err = NewStoreChecked(&fakeStore{}, nil)
	require.Error(t, err)
}
