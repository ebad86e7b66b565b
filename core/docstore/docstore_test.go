package docstore_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/littledragons/core"
	"github.com/trezcool/littledragons/core/docstore"
	"github.com/trezcool/littledragons/storage/database/dummy"
)

type note struct {
	ID    string         `json:"id"`
	Title string         `json:"title"`
	Rank  int            `json:"rank"`
	Done  bool           `json:"done"`
	At    core.Timestamp `json:"at"`
}

func newNoteRepo(t *testing.T) *docstore.Repository[note] {
	db, err := dummydb.Open()
	require.NoError(t, err)
	return docstore.NewRepository(db.Collection("notes"), docstore.RepositoryOptions[note]{
		Kind:   "note",
		ID:     func(n note) string { return n.ID },
		WithID: func(n note, id string) note { n.ID = id; return n },
	})
}

func TestRepository_crud(t *testing.T) {
	repo := newNoteRepo(t)
	ctx := context.Background()

	created, err := repo.Add(ctx, note{Title: "Собрание", Rank: 1})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID, "an id is assigned")

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	created.Title = "Родительское собрание"
	require.NoError(t, repo.Update(ctx, created))
	got, err = repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Родительское собрание", got.Title)

	require.NoError(t, repo.Delete(ctx, created.ID))
	_, err = repo.Get(ctx, created.ID)
	assert.True(t, core.IsNotFound(err, "note"), "got %v", err)

	assert.NoError(t, repo.Delete(ctx, created.ID), "deleting twice is fine")
	assert.Equal(t, docstore.ErrMissingID, repo.Update(ctx, note{}))
}

func TestRepository_naturalKey(t *testing.T) {
	db, err := dummydb.Open()
	require.NoError(t, err)
	repo := docstore.NewRepository(db.Collection("classes"), docstore.RepositoryOptions[note]{
		Kind:       "class",
		ID:         func(n note) string { return n.Title },
		NaturalKey: true,
	})

	_, err = repo.Add(context.Background(), note{Title: "7А"})
	require.NoError(t, err)
	_, err = repo.Get(context.Background(), "7А")
	assert.NoError(t, err)

	_, err = repo.Add(context.Background(), note{})
	assert.Equal(t, docstore.ErrMissingID, err)
}

func TestRepository_All(t *testing.T) {
	repo := newNoteRepo(t)
	ctx := context.Background()
	base := time.Date(2021, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, title := range []string{"a", "b", "c", "d"} {
		_, err := repo.Add(ctx, note{
			Title: title,
			Rank:  i + 1,
			Done:  i%2 == 0,
			At:    core.NewTimestamp(base.AddDate(0, 0, i)),
		})
		require.NoError(t, err)
	}

	titles := func(notes []note) []string {
		out := make([]string, 0, len(notes))
		for _, n := range notes {
			out = append(out, n.Title)
		}
		return out
	}

	tests := []struct {
		name    string
		query   docstore.Query
		want    []string
		wantErr bool
	}{
		{name: "order asc", query: docstore.Query{}.Order(core.Asc("rank")), want: []string{"a", "b", "c", "d"}},
		{name: "order desc", query: docstore.Query{}.Order(core.Desc("at")), want: []string{"d", "c", "b", "a"}},
		{name: "equality on string", query: docstore.Where(docstore.Eq("title", "b")), want: []string{"b"}},
		{name: "equality on bool", query: docstore.Where(docstore.Eq("done", true)).Order(core.Asc("rank")), want: []string{"a", "c"}},
		{name: "int range", query: docstore.Where(docstore.Gt("rank", 1), docstore.Lte("rank", 3)).Order(core.Asc("rank")), want: []string{"b", "c"}},
		{
			name: "half-open time range",
			query: docstore.Where(
				docstore.Gte("at", core.NewTimestamp(base.AddDate(0, 0, 1))),
				docstore.Lt("at", base.AddDate(0, 0, 3)),
			).Order(core.Desc("at")),
			want: []string{"c", "b"},
		},
		{name: "type mismatch never matches", query: docstore.Where(docstore.Eq("rank", "1")), want: []string{}},
		{name: "missing field never matches", query: docstore.Where(docstore.Eq("nope", 1)), want: []string{}},
		{name: "invalid field", query: docstore.Where(docstore.Eq("title'--", "a")), wantErr: true},
		{name: "invalid op", query: docstore.Where(docstore.Condition{Field: "rank", Op: "!=", Value: 1}), wantErr: true},
		{name: "unsupported value", query: docstore.Where(docstore.Eq("rank", []int{1})), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.All(ctx, tt.query)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(got))
		})
	}
}

func TestRepository_Listen(t *testing.T) {
	repo := newNoteRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var snapshots [][]note
	seen := make(chan int, 10)

	done := make(chan error, 1)
	go func() {
		done <- repo.Listen(ctx, docstore.Query{}.Order(core.Asc("rank")), func(notes []note) {
			mu.Lock()
			snapshots = append(snapshots, notes)
			n := len(snapshots)
			mu.Unlock()
			seen <- n
		})
	}()

	assert.Equal(t, 1, <-seen, "the current result is delivered first")
	_, err := repo.Add(context.Background(), note{Title: "a", Rank: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, <-seen)

	cancel()
	assert.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, snapshots[0])
	require.Len(t, snapshots[1], 1)
	assert.Equal(t, "a", snapshots[1][0].Title)
}

func TestPoll(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := [][]docstore.Doc{
		{{ID: "1", Data: json.RawMessage(`{"a":1}`)}},
		{{ID: "1", Data: json.RawMessage(`{"a":1}`)}},
		{{ID: "1", Data: json.RawMessage(`{"a":2}`)}},
	}
	var calls int
	var got [][]docstore.Doc
	err := docstore.Poll(ctx, time.Millisecond, func(context.Context) ([]docstore.Doc, error) {
		r := results[calls]
		calls++
		if calls == len(results) {
			cancel()
		}
		return r, nil
	}, func(docs []docstore.Doc) {
		got = append(got, docs)
	})

	assert.NoError(t, err)
	require.Len(t, got, 2, "unchanged results are not delivered twice")
	assert.JSONEq(t, `{"a":2}`, string(got[1][0].Data))
}

func TestNormalizeValue(t *testing.T) {
	ts := core.NewTimestamp(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC))
	tests := []struct {
		name    string
		in      interface{}
		want    interface{}
		wantErr bool
	}{
		{name: "string", in: "7А", want: "7А"},
		{name: "bool", in: true, want: true},
		{name: "int", in: 5, want: float64(5)},
		{name: "int64", in: int64(5), want: float64(5)},
		{name: "timestamp", in: ts, want: float64(ts.Millis())},
		{name: "time", in: ts.Time, want: float64(ts.Millis())},
		{name: "nil", in: nil, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := docstore.NormalizeValue(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
