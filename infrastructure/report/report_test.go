package report

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-reco/internal/domain"
	"github.com/ahrav/go-reco/internal/testutils"
)

func vinceRanking() []domain.Ranked[string] {
	return []domain.Ranked[string]{
		{Item: "adam", Total: 19, Partials: []domain.PartialScore{
			{Name: "ageDifference", Value: -6},
			{Name: "friendsInCommon", Value: 15},
			{Name: "sameGender", Value: 10},
		}},
		{Item: "luanne", Total: 8, Partials: []domain.PartialScore{
			{Name: "ageDifference", Value: -7},
			{Name: "friendsInCommon", Value: 15},
		}},
	}
}

const expectedForVince = "Computed recommendations for Vince: " +
	"(Adam {total:19,ageDifference:-6,friendsInCommon:15,sameGender:10})," +
	"(Luanne {total:8,ageDifference:-7,friendsInCommon:15})"

func TestFormat(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		ranked  []domain.Ranked[string]
		want    string
	}{
		{
			name:    "empty ranking",
			subject: "bob",
			ranked:  nil,
			want:    "Computed recommendations for bob: ",
		},
		{
			name:    "single entry without partials",
			subject: "bob",
			ranked:  []domain.Ranked[string]{{Item: "carl"}},
			want:    "Computed recommendations for bob: (carl {total:0})",
		},
		{
			name:    "stored total without partials",
			subject: "bob",
			ranked:  []domain.Ranked[string]{{Item: "carl", Total: 7}},
			want:    "Computed recommendations for bob: (carl {total:7})",
		},
		{
			name:    "raw identifiers",
			subject: "vince",
			ranked:  vinceRanking(),
			want: "Computed recommendations for vince: " +
				"(adam {total:19,ageDifference:-6,friendsInCommon:15,sameGender:10})," +
				"(luanne {total:8,ageDifference:-7,friendsInCommon:15})",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Format(tt.subject, tt.ranked, func(s string) string { return s })
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRememberingReporter_UsesDisplayNames(t *testing.T) {
	graph := testutils.NewPeopleGraph(t)
	r := NewRememberingReporter[string, string](GraphNamer(graph))

	r.Report(context.Background(), testutils.Vince, vinceRanking())

	assert.Equal(t, expectedForVince, r.Get(testutils.Vince))
	assert.Empty(t, r.Get(testutils.Adam))

	r.Clear()
	assert.Empty(t, r.Get(testutils.Vince))
}

func TestRememberingReporter_KeepsLastLine(t *testing.T) {
	r := NewRememberingReporter[string, string](nil)
	ctx := context.Background()

	r.Report(ctx, "vince", vinceRanking())
	r.Report(ctx, "vince", vinceRanking()[:1])

	assert.Equal(t,
		"Computed recommendations for vince: (adam {total:19,ageDifference:-6,friendsInCommon:15,sameGender:10})",
		r.Get("vince"))
}

func TestRememberingReporter_Concurrent(t *testing.T) {
	r := NewRememberingReporter[int, string](nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Report(ctx, i, []domain.Ranked[string]{{Item: fmt.Sprint(i), Total: i}})
		}()
	}
	wg.Wait()

	for i := range 50 {
		assert.Equal(t, fmt.Sprintf("Computed recommendations for %d: (%d {total:%d})", i, i, i), r.Get(i))
	}
}

func TestLogReporter(t *testing.T) {
	var buf bytes.Buffer
	graph := testutils.NewPeopleGraph(t)
	r := NewLogReporter[string, string](zerolog.New(&buf), GraphNamer(graph))

	r.Report(context.Background(), testutils.Vince, vinceRanking())

	out := buf.String()
	require.NotEmpty(t, out)
	assert.Contains(t, out, `"level":"info"`)
	assert.Contains(t, out, `"component":"reporter"`)
	assert.Contains(t, out, `"subject":"vince"`)
	assert.Contains(t, out, `"returned":2`)
	assert.Contains(t, out, "Computed recommendations for Vince: (Adam {total:19")
}

func TestGraphNamer_FallsBackToID(t *testing.T) {
	namer := GraphNamer(testutils.NewPeopleGraph(t))

	assert.Equal(t, "Luanne", namer(context.Background(), testutils.Luanne))
	assert.Equal(t, "nobody", namer(context.Background(), "nobody"))
}
