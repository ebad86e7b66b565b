package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/littledragons/core"
	"github.com/trezcool/littledragons/core/docstore"
	"github.com/trezcool/littledragons/core/statesync"
	"github.com/trezcool/littledragons/tests"
)

func at(h int) core.Timestamp {
	return core.NewTimestamp(time.Date(2025, time.May, 1, h, 45, 0, 0, time.UTC))
}

func titles(ns []Notification) []string {
	out := make([]string, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.Title)
	}
	return out
}

func TestRepository_All(t *testing.T) {
	repo := NewRepository(testutil.OpenDB(t))
	for i, title := range []string{"b", "a", "c"} {
		_, err := repo.Add(context.Background(), Notification{Title: title, Timestamp: at(10 - i)})
		require.NoError(t, err)
	}

	all, err := repo.All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, titles(all), "oldest first")
}

func TestListHolder(t *testing.T) {
	db := testutil.NewFailingDB(testutil.OpenDB(t), errors.New("unavailable"))
	repo := NewRepository(db)
	for i, title := range []string{"утро", "день", "вечер"} {
		_, err := repo.Add(context.Background(), Notification{Title: title, Timestamp: at(8 + 4*i)})
		require.NoError(t, err)
	}
	h := NewListHolder(repo, testutil.Logger(t))

	h.Load(context.Background(), false)
	require.Equal(t, statesync.ListLoaded, h.State().Value().Status)
	assert.Equal(t, []string{"вечер", "день", "утро"}, titles(h.State().Value().Items), "latest first")

	t.Run("not reloaded unless forced", func(t *testing.T) {
		_, err := repo.Add(context.Background(), Notification{Title: "ночь", Timestamp: at(22)})
		require.NoError(t, err)

		h.Load(context.Background(), false)
		assert.Len(t, h.State().Value().Items, 3)
		h.Load(context.Background(), true)
		assert.Equal(t, []string{"ночь", "вечер", "день", "утро"}, titles(h.State().Value().Items))
	})

	t.Run("delete rolled back", func(t *testing.T) {
		db.Fail(docstore.Notifications, "delete")
		defer db.Heal()
		h.Delete(context.Background(), h.State().Value().Items[2])
		assert.Equal(t, statesync.DeleteFailed, h.DeleteOutcome().Value().Status)
		assert.Equal(t, []string{"ночь", "вечер", "день", "утро"}, titles(h.State().Value().Items))
	})

	t.Run("delete", func(t *testing.T) {
		h.Delete(context.Background(), h.State().Value().Items[2])
		assert.Equal(t, statesync.DeleteSuccess, h.DeleteOutcome().Value().Status)
		assert.Equal(t, []string{"ночь", "вечер", "утро"}, titles(h.State().Value().Items))
	})
}

func TestAddHolder_Submit(t *testing.T) {
	repo := NewRepository(testutil.OpenDB(t))
	h := NewAddHolder(repo, testutil.Logger(t), nil)
	var refreshed int
	unsubscribe := h.OnRefresh(func() { refreshed++ })
	defer unsubscribe()

	h.UpdateTitle("  ")
	h.Submit(context.Background(), at(9))
	assert.True(t, h.Invalid(FieldTitle))
	assert.Equal(t, 0, refreshed)

	h.UpdateTitle(" Собрание в 18:00 ")
	h.Submit(context.Background(), at(9))
	assert.Equal(t, statesync.SubmitSuccess, h.State().Value().Status)
	assert.Equal(t, 1, refreshed)

	all, err := repo.All(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Собрание в 18:00", all[0].Title)
	assert.True(t, all[0].Timestamp.Equal(at(9)))
}

func TestAddHolder_Submit_inFlight(t *testing.T) {
	repo := NewRepository(testutil.OpenDB(t))
	h := NewAddHolder(repo, testutil.Logger(t), nil)
	h.UpdateTitle("Собрание в 18:00")
	h.State().Set(statesync.Submission{Status: statesync.SubmitInProgress})

	h.Submit(context.Background(), at(10))
	assert.True(t, h.Draft().Timestamp.IsZero())
	assert.Equal(t, "Собрание в 18:00", h.Draft().Title)

	all, err := repo.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}
