package event

import (
	"context"
	"encoding/json"
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

func day(d int) core.Timestamp {
	return core.NewTimestamp(time.Date(2021, time.March, d, 0, 0, 0, 0, time.UTC))
}

func setup(t *testing.T) (*testutil.FailingDB, *Repository) {
	db := testutil.NewFailingDB(testutil.OpenDB(t), errors.New("unavailable"))
	return db, NewRepository(db)
}

func addEvents(t *testing.T, repo *Repository, events ...Event) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		created, err := repo.Add(context.Background(), e)
		if err != nil {
			t.Fatalf("addEvents() failed: %v", err)
		}
		out = append(out, created)
	}
	return out
}

func titles(events []Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Title)
	}
	return out
}

func TestListHolder_Load(t *testing.T) {
	db, repo := setup(t)
	data, _ := json.Marshal(map[string]interface{}{"title": "Название"})
	require.NoError(t, db.Collection(docstore.Events).Set(context.Background(), "id", data))

	h := NewListHolder(repo, testutil.Logger(t))
	var got []statesync.ListStatus
	h.State().Subscribe(func(s statesync.ListState[Event, core.TimeRange]) { got = append(got, s.Status) })

	h.Load(context.Background(), false)

	assert.Equal(t, []statesync.ListStatus{statesync.ListInitial, statesync.ListLoading, statesync.ListLoaded}, got)
	assert.Equal(t, []Event{{ID: "id", Title: "Название"}}, h.State().Value().Items)
}

func TestListHolder_Load_dateRange(t *testing.T) {
	_, repo := setup(t)
	addEvents(t, repo,
		Event{Title: "first", Date: day(1)},
		Event{Title: "tenth", Date: day(10)},
		Event{Title: "fifth", Date: day(5)},
		Event{Title: "last", Date: day(31)},
	)

	tests := []struct {
		name  string
		dates core.TimeRange
		want  []string
	}{
		{name: "unbounded", want: []string{"last", "tenth", "fifth", "first"}},
		{name: "bounds included", dates: core.TimeRange{From: day(5), To: day(10)}, want: []string{"tenth", "fifth"}},
		{name: "from only", dates: core.TimeRange{From: day(6)}, want: []string{"last", "tenth"}},
		{name: "empty", dates: core.TimeRange{From: day(11), To: day(12)}, want: []string{}},
		{name: "month", dates: core.MonthRange(2021, time.March, time.UTC), want: []string{"last", "tenth", "fifth", "first"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewListHolder(repo, testutil.Logger(t))
			h.SetDateRange(tt.dates)
			h.Load(context.Background(), false)

			st := h.State().Value()
			require.Equal(t, statesync.ListLoaded, st.Status)
			assert.Equal(t, tt.want, titles(st.Items))
		})
	}
}

func TestListHolder_Load_failure(t *testing.T) {
	db, repo := setup(t)
	db.Fail(docstore.Events, "query")
	logger := testutil.Logger(t)
	h := NewListHolder(repo, logger)

	h.Load(context.Background(), false)

	st := h.State().Value()
	assert.Equal(t, statesync.ListFailed, st.Status)
	assert.ErrorIs(t, st.Err, db.Err)
	assert.Equal(t, []string{"Unable to fetch events list"}, logger.Errors())
}

func TestListHolder_Delete(t *testing.T) {
	db, repo := setup(t)
	events := addEvents(t, repo,
		Event{Title: "a", Date: day(3)},
		Event{Title: "b", Date: day(2)},
		Event{Title: "c", Date: day(1)},
	)

	tests := []struct {
		name       string
		fail       bool
		wantStatus statesync.DeleteStatus
		wantTitles []string
		wantStored int
	}{
		{name: "remote failure rolls back", fail: true, wantStatus: statesync.DeleteFailed, wantTitles: []string{"a", "b", "c"}, wantStored: 3},
		{name: "success", wantStatus: statesync.DeleteSuccess, wantTitles: []string{"a", "c"}, wantStored: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db.Heal()
			if tt.fail {
				db.Fail(docstore.Events, "delete")
			}
			h := NewListHolder(repo, testutil.Logger(t))
			h.Load(context.Background(), false)

			h.Delete(context.Background(), events[1])

			assert.Equal(t, tt.wantStatus, h.DeleteOutcome().Value().Status)
			assert.Equal(t, tt.wantTitles, titles(h.State().Value().Items))
			stored, err := repo.All(context.Background(), core.TimeRange{})
			require.NoError(t, err)
			assert.Len(t, stored, tt.wantStored)
		})
	}
}

func TestAddHolder_Submit(t *testing.T) {
	_, repo := setup(t)
	list := NewListHolder(repo, testutil.Logger(t))
	add := NewAddHolder(repo, testutil.Logger(t), core.NewValidator())

	add.UpdateTitle("   ")
	add.Submit(context.Background())
	assert.True(t, add.Invalid(FieldTitle))
	assert.Equal(t, statesync.SubmitInitial, add.State().Value().Status)

	add.UpdateTitle("  Выпускной ")
	assert.False(t, add.Invalid(FieldTitle), "updating clears the flag")
	add.UpdateDate(day(20))
	add.Submit(context.Background())
	require.Equal(t, statesync.SubmitSuccess, add.State().Value().Status)
	assert.True(t, add.Refresh().Value())
	assert.Equal(t, Draft{}, add.Draft())

	list.Load(context.Background(), true)
	items := list.State().Value().Items
	require.Len(t, items, 1)
	assert.NotEmpty(t, items[0].ID)
	assert.Equal(t, "Выпускной", items[0].Title)
	assert.True(t, items[0].Date.Equal(day(20)))

	// edit
	add.Edit(items[0])
	add.UpdateTitle("Последний звонок")
	add.Submit(context.Background())
	require.Equal(t, statesync.SubmitSuccess, add.State().Value().Status)

	got, err := repo.Get(context.Background(), items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Последний звонок", got.Title)
}

func TestAddHolder_Submit_failure(t *testing.T) {
	db, repo := setup(t)
	db.Fail(docstore.Events, "set")
	add := NewAddHolder(repo, testutil.Logger(t), nil)

	add.UpdateTitle("Собрание")
	add.Submit(context.Background())

	st := add.State().Value()
	assert.Equal(t, statesync.SubmitFailed, st.Status)
	assert.ErrorIs(t, st.Err, db.Err)
	assert.Equal(t, "Собрание", add.Draft().Title, "the draft is kept")
}
