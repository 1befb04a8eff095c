package services

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/cookgpt-backend/internal/cache"
	"github.com/yungbote/cookgpt-backend/internal/data/repos/testutil"
	types "github.com/yungbote/cookgpt-backend/internal/domain"
	"github.com/yungbote/cookgpt-backend/internal/modules/chat"
)

func TestThreadLifecycle(t *testing.T) {
	e := newEnv(t, nil)
	u := e.seedUser(t, "ada")
	ctx := e.as(u)

	created, err := e.threads.Create(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, types.DefaultThreadTitle, created.Title)

	got, err := e.threads.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.True(t, e.cache.Has(cache.ThreadKey(created.ID)))

	title := "Egusi Soup"
	updated, err := e.threads.Update(ctx, created.ID, chat.ThreadUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.False(t, e.cache.Has(cache.ThreadKey(created.ID)))

	got, err = e.threads.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, title, got.Title)

	require.NoError(t, e.threads.Delete(ctx, created.ID))
	_, err = e.threads.Get(ctx, created.ID)
	requireAPIError(t, err, http.StatusNotFound, "thread_not_found")
}

func TestThreadOwnershipSurvivesCache(t *testing.T) {
	e := newEnv(t, nil)
	ada := e.seedUser(t, "ada")
	bea := e.seedUser(t, "bea")
	th := testutil.SeedThread(t, e.ctx, e.db, ada.ID)

	_, err := e.threads.Get(e.as(ada), th.ID)
	require.NoError(t, err)
	require.True(t, e.cache.Has(cache.ThreadKey(th.ID)))

	_, err = e.threads.Get(e.as(bea), th.ID)
	requireAPIError(t, err, http.StatusForbidden, "thread_not_owned")
	err = e.threads.Delete(e.as(bea), th.ID)
	requireAPIError(t, err, http.StatusForbidden, "thread_not_owned")
}

func TestListActiveAndDeleteOpen(t *testing.T) {
	e := newEnv(t, nil)
	u := e.seedUser(t, "ada")
	ctx := e.as(u)

	a, err := e.threads.Create(ctx, "Jollof")
	require.NoError(t, err)
	b, err := e.threads.Create(ctx, "Suya")
	require.NoError(t, err)
	closed := true
	_, err = e.threads.Update(ctx, b.ID, chat.ThreadUpdate{Closed: &closed})
	require.NoError(t, err)

	active, err := e.threads.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, a.ID, active[0].ID)
	assert.True(t, e.cache.Has(cache.ThreadsKey(u.ID)))

	c, err := e.threads.Create(ctx, "Puff puff")
	require.NoError(t, err)
	assert.False(t, e.cache.Has(cache.ThreadsKey(u.ID)), "creating a thread drops the list")

	n, err := e.threads.DeleteOpen(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	active, err = e.threads.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
	_, err = e.threads.Get(ctx, b.ID)
	require.NoError(t, err, "closed threads are kept")
	_, err = e.threads.Get(ctx, c.ID)
	requireAPIError(t, err, http.StatusNotFound, "thread_not_found")
}

func TestDeletedThreadsMessage(t *testing.T) {
	assert.Equal(t, "1 thread deleted successfully", DeletedThreadsMessage(1))
	assert.Equal(t, "0 threads deleted successfully", DeletedThreadsMessage(0))
	assert.Equal(t, "3 threads deleted successfully", DeletedThreadsMessage(3))
}
