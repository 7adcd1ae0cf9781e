package event

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `{
  "id": "ev-1", "name": "DevConf", "starts_at": "2026-05-01 09:00:00.000000",
  "sessions": [{"id": "s1", "title": "Keynote", "room": "A"}],
  "speakers": [{"id": "sp1", "name": "Ada"}],
  "stats": {"registrations": 120, "checked_in": 45}
}`

func newMockEnricher(t *testing.T, cache Cache) (*Enricher, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return NewEnricher(sqlx.NewDb(raw, "mysql"), cache), mock
}

func TestFetchDecodesAggregate(t *testing.T) {
	e, mock := newMockEnricher(t, nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM   event e")).
		WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow([]byte(sampleJSON)))

	p, err := e.Fetch(context.Background(), "ev-1")
	require.NoError(t, err)
	assert.Equal(t, "DevConf", p.Name)
	require.Len(t, p.Sessions, 1)
	assert.Equal(t, "Keynote", p.Sessions[0].Title)
	assert.Equal(t, Stats{Registrations: 120, CheckedIn: 45}, p.Stats)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchEmptyListsAreNotNull(t *testing.T) {
	e, mock := newMockEnricher(t, nil)
	mock.ExpectQuery("SELECT JSON_OBJECT").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow([]byte(`{"id":"ev-2","name":"x","stats":{}}`)))

	p, err := e.Fetch(context.Background(), "ev-2")
	require.NoError(t, err)
	assert.NotNil(t, p.Sessions)
	assert.NotNil(t, p.Speakers)
}

func TestFetchMissingEvent(t *testing.T) {
	e, mock := newMockEnricher(t, nil)
	mock.ExpectQuery("SELECT JSON_OBJECT").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}))

	_, err := e.Fetch(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEnrichDegradesToNil(t *testing.T) {
	e, mock := newMockEnricher(t, nil)
	mock.ExpectQuery("SELECT JSON_OBJECT").WillReturnError(errors.New("connection reset"))

	assert.Nil(t, e.Enrich(context.Background(), "ev-1"))
}

type memCache struct {
	data   map[string]*Payload
	getErr error
	sets   int
}

func (m *memCache) Get(_ context.Context, id string) (*Payload, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	p, ok := m.data[id]
	return p, ok, nil
}

func (m *memCache) Set(_ context.Context, id string, p *Payload) error {
	m.sets++
	m.data[id] = p
	return nil
}

func TestFetchReadsThroughCache(t *testing.T) {
	c := &memCache{data: map[string]*Payload{}}
	e, mock := newMockEnricher(t, c)
	mock.ExpectQuery("SELECT JSON_OBJECT").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow([]byte(sampleJSON)))

	first, err := e.Fetch(context.Background(), "ev-1")
	require.NoError(t, err)
	second, err := e.Fetch(context.Background(), "ev-1")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, c.sets)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchBypassesBrokenCache(t *testing.T) {
	c := &memCache{data: map[string]*Payload{}, getErr: errors.New("redis down")}
	e, mock := newMockEnricher(t, c)
	mock.ExpectQuery("SELECT JSON_OBJECT").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow([]byte(sampleJSON)))

	p, err := e.Fetch(context.Background(), "ev-1")
	require.NoError(t, err)
	assert.Equal(t, "ev-1", p.ID)
}

type fakeRedis struct {
	store map[string]string
	ttl   time.Duration
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.store[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, exp time.Duration) *redis.StatusCmd {
	f.store[key] = string(value.([]byte))
	f.ttl = exp
	return redis.NewStatusResult("OK", nil)
}

func TestRedisCacheRoundTrip(t *testing.T) {
	fr := &fakeRedis{store: map[string]string{}}
	c := &RedisCache{rdb: fr, ttl: time.Minute}
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "ev-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "ev-1", &Payload{ID: "ev-1", Name: "DevConf"}))
	assert.Contains(t, fr.store, "eventsite:event:ev-1")
	assert.Equal(t, time.Minute, fr.ttl)

	p, ok, err := c.Get(ctx, "ev-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "DevConf", p.Name)
}
