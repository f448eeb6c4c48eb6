package querywire

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flexiq/internal/ir"
	"github.com/roach88/flexiq/internal/queryir"
)

func concurrentQuery(i int) queryir.Query {
	dir := queryir.Asc
	if i%2 == 0 {
		dir = queryir.Desc
	}
	return queryir.Query{
		Resource: "adresar",
		Filter: queryir.AllOf(
			queryir.Where("kod", queryir.StartsWith, ir.String(fmt.Sprintf("F%d", i))),
			queryir.Where("stitky", queryir.NotEqual, ir.String("VIP,B2B")),
		),
		Order: []queryir.OrderBy{{Field: "kod", Direction: dir}},
		Page:  &queryir.Page{Limit: i + 1},
	}
}

func TestCompiler_ConcurrentAssemble(t *testing.T) {
	const workers = 32

	dialect := DefaultDialect()
	shared := NewCompiler(dialect)

	want := make([]string, workers)
	for i := range want {
		plan, err := shared.Assemble(concurrentQuery(i))
		require.NoError(t, err)
		want[i] = plan.URL()
	}

	got := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := shared
			if i%2 == 1 {
				c = NewCompiler(dialect)
			}
			plan, err := c.Assemble(concurrentQuery(i))
			if !assert.NoError(t, err) {
				return
			}
			got[i] = plan.URL()
		}()
	}
	wg.Wait()

	assert.Equal(t, want, got)
}
