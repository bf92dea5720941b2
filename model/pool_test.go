package model_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentcouncil/core"
	"github.com/hupe1980/agentcouncil/internal/testutil"
	"github.com/hupe1980/agentcouncil/model"
)

func newPool(chain ...string) (*model.Pool, *[][2]string) {
	var fallbacks [][2]string

	selector := model.NewSelector(func(o *model.SelectorOptions) {
		o.Chain = chain
		o.Classes = model.Classes{Balanced: chain[0]}
	})

	pool := model.NewPool(selector, func(o *model.PoolOptions) {
		o.OnFallback = func(from, to string) { fallbacks = append(fallbacks, [2]string{from, to}) }
	})

	return pool, &fallbacks
}

func userRequest(text string) model.Request {
	return model.Request{Contents: []core.Content{core.NewTextContent(core.RoleUser, text)}}
}

func TestPool_FallsBackOnError(t *testing.T) {
	pool, fallbacks := newPool("primary", "secondary", "tertiary")

	primary := testutil.NewScriptedModel("primary", testutil.ErrStep(errors.New("503")))
	secondary := testutil.NewScriptedModel("secondary", testutil.NewStep().Text("from secondary").Usage(3, 4).Build())

	pool.Register("primary", primary)
	pool.Register("secondary", secondary)

	res, err := pool.Generate(context.Background(), model.ModelSelectionResult{SelectedModel: "primary"}, userRequest("hi"), nil)
	require.NoError(t, err)

	assert.Equal(t, "secondary", res.Model)
	assert.Equal(t, []string{"primary"}, res.Attempts)
	assert.Equal(t, "from secondary", res.Content.Text())
	assert.Equal(t, 7, res.Usage.TotalTokens)
	assert.Equal(t, [][2]string{{"primary", "secondary"}}, *fallbacks)
}

func TestPool_UnregisteredModelCountsAsFailure(t *testing.T) {
	pool, _ := newPool("missing", "present")
	pool.Register("present", testutil.NewScriptedModel("present"))

	res, err := pool.Generate(context.Background(), model.ModelSelectionResult{SelectedModel: "missing"}, userRequest("hi"), nil)
	require.NoError(t, err)
	assert.Equal(t, "present", res.Model)
}

func TestPool_ExhaustedChain(t *testing.T) {
	pool, _ := newPool("a", "b")
	pool.Register("a", testutil.NewScriptedModel("a", testutil.ErrStep(errors.New("down"))))
	pool.Register("b", testutil.NewScriptedModel("b", testutil.ErrStep(errors.New("down"))))

	_, err := pool.Generate(context.Background(), model.ModelSelectionResult{SelectedModel: "a"}, userRequest("hi"), nil)

	assert.ErrorIs(t, err, core.ErrNoModelAvailable)
	assert.Contains(t, err.Error(), "a, b")
}

func TestPool_NoFallbackAfterFirstChunk(t *testing.T) {
	pool, fallbacks := newPool("a", "b")

	// a streams a chunk then the final response fails
	a := testutil.NewScriptedModel("a").Respond(func(model.Request) testutil.Step {
		return testutil.NewStep().Chunks("partial").Build()
	})
	failing := &chunkThenFail{ScriptedModel: a}
	b := testutil.NewScriptedModel("b")

	pool.Register("a", failing)
	pool.Register("b", b)

	var chunks []string
	req := userRequest("hi")
	req.Stream = true

	_, err := pool.Generate(context.Background(), model.ModelSelectionResult{SelectedModel: "a"}, req, func(s string) { chunks = append(chunks, s) })

	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrNoModelAvailable)
	assert.Equal(t, []string{"partial"}, chunks)
	assert.Empty(t, *fallbacks)
	assert.Equal(t, 0, b.Calls())
}

func TestCollect_ForwardsChunks(t *testing.T) {
	m := testutil.NewScriptedModel("m", testutil.NewStep().Chunks("Hel", "lo").Build())

	var got string
	req := userRequest("hi")
	req.Stream = true

	resp, err := model.Collect(context.Background(), m, req, func(s string) { got += s })
	require.NoError(t, err)

	assert.Equal(t, "Hello", got)
	assert.Equal(t, "Hello", resp.Content.Text())
}

// chunkThenFail streams the chunks of the wrapped model and then reports an
// error instead of the final response.
type chunkThenFail struct {
	*testutil.ScriptedModel
}

func (c *chunkThenFail) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	in, _ := c.ScriptedModel.Generate(ctx, req)
	out := make(chan model.Response)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		for r := range in {
			if r.Partial {
				out <- r
			}
		}

		errCh <- errors.New("connection reset")
	}()

	return out, errCh
}
