package schoolclass

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/littledragons/core/statesync"
	"github.com/trezcool/littledragons/tests"
)

type classesState = statesync.ListState[SchoolClass, struct{}]

func names(classes []SchoolClass) []string {
	out := make([]string, 0, len(classes))
	for _, c := range classes {
		out = append(out, c.Name)
	}
	return out
}

func TestListHolder_Run(t *testing.T) {
	repo := NewRepository(testutil.OpenDB(t))
	for _, name := range []string{"9Б", "10А", "9А"} {
		require.NoError(t, repo.Add(context.Background(), SchoolClass{Name: name}))
	}

	h := NewListHolder(repo, testutil.Logger(t))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	st := testutil.WaitFor(t, h.State(), func(s classesState) bool { return s.Status == statesync.ListLoaded })
	assert.Equal(t, []string{"10А", "9А", "9Б"}, names(st.Items))

	require.NoError(t, repo.Add(context.Background(), SchoolClass{Name: "1А"}))
	st = testutil.WaitFor(t, h.State(), func(s classesState) bool { return len(s.Items) == 4 })
	assert.Equal(t, []string{"10А", "1А", "9А", "9Б"}, names(st.Items))

	cancel()
	assert.NoError(t, <-done)
}

func TestAddHolder_Submit(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantInvalid bool
		wantStored  []string
	}{
		{name: "empty", input: "", wantInvalid: true, wantStored: []string{}},
		{name: "latin letter", input: "7A", wantInvalid: true, wantStored: []string{}},
		{name: "lowercase", input: "7а", wantInvalid: true, wantStored: []string{}},
		{name: "three digits", input: "117А", wantInvalid: true, wantStored: []string{}},
		{name: "valid", input: " 11БВ ", wantStored: []string{"11БВ"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewRepository(testutil.OpenDB(t))
			h := NewAddHolder(repo, testutil.Logger(t), nil)

			h.UpdateName(tt.input)
			h.Submit(context.Background())

			assert.Equal(t, tt.wantInvalid, h.Invalid(FieldName))
			stored, err := repo.All(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantStored, names(stored))
		})
	}
}
