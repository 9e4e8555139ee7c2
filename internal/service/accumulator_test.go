package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IdkwhatImD0ing/PortfolioV3/internal/llm"
)

func TestAccumulatorReleasesOnceWhenComplete(t *testing.T) {
	acc := newToolAccumulator()

	_, ok := acc.Add(llm.ToolCallDelta{Index: 0, ID: "call_1", Name: "display_project", Arguments: `{"id":`})
	assert.False(t, ok)

	call, ok := acc.Add(llm.ToolCallDelta{Index: 0, Arguments: `"gitpt"}`})
	require.True(t, ok)
	assert.Equal(t, llm.ToolCall{ID: "call_1", Name: "display_project", Arguments: `{"id":"gitpt"}`}, call)

	_, ok = acc.Add(llm.ToolCallDelta{Index: 0, Arguments: ` `})
	assert.False(t, ok, "a released call is never released again")

	ready, dropped := acc.Flush()
	assert.Empty(t, ready)
	assert.Empty(t, dropped)
}

func TestAccumulatorInterleavedIndexes(t *testing.T) {
	acc := newToolAccumulator()
	var released []string

	deltas := []llm.ToolCallDelta{
		{Index: 1, ID: "b", Name: "display_project", Arguments: `{"id"`},
		{Index: 0, ID: "a", Name: "get_project_details", Arguments: `{"project_id"`},
		{Index: 0, Arguments: `:"gitpt"}`},
		{Index: 1, Arguments: `:"gitpt"}`},
	}
	for _, d := range deltas {
		if call, ok := acc.Add(d); ok {
			released = append(released, call.ID)
		}
	}
	assert.Equal(t, []string{"a", "b"}, released)
}

func TestAccumulatorFlush(t *testing.T) {
	acc := newToolAccumulator()
	acc.Add(llm.ToolCallDelta{Index: 0, ID: "a", Name: "display_homepage"})
	acc.Add(llm.ToolCallDelta{Index: 1, ID: "b", Name: "display_project", Arguments: `{"id":"x"`})
	acc.Add(llm.ToolCallDelta{Index: 2, Arguments: `{}`})

	ready, dropped := acc.Flush()
	require.Len(t, ready, 1)
	assert.Equal(t, "a", ready[0].ID)
	assert.Equal(t, "{}", ready[0].Arguments)

	require.Len(t, dropped, 2)
	assert.Equal(t, "b", dropped[0].ID)
	assert.Empty(t, dropped[1].Name)

	ready, dropped = acc.Flush()
	assert.Empty(t, ready)
	assert.Empty(t, dropped)
}

func TestAccumulatorIndexReusedByNewCall(t *testing.T) {
	acc := newToolAccumulator()

	first, ok := acc.Add(llm.ToolCallDelta{Index: 0, ID: "call_1", Name: "display_homepage", Arguments: `{}`})
	require.True(t, ok)
	assert.Equal(t, "call_1", first.ID)

	_, ok = acc.Add(llm.ToolCallDelta{Index: 0, ID: "call_2", Name: "display_project", Arguments: `{"id":`})
	assert.False(t, ok)
	second, ok := acc.Add(llm.ToolCallDelta{Index: 0, Arguments: `"gitpt"}`})
	require.True(t, ok)
	assert.Equal(t, llm.ToolCall{ID: "call_2", Name: "display_project", Arguments: `{"id":"gitpt"}`}, second)

	ready, dropped := acc.Flush()
	assert.Empty(t, ready)
	assert.Empty(t, dropped)
}

func TestAccumulatorReplacedIncompleteCallIsFlushed(t *testing.T) {
	acc := newToolAccumulator()
	acc.Add(llm.ToolCallDelta{Index: 0, ID: "call_1", Name: "display_project", Arguments: `{"id":"x"`})
	call, ok := acc.Add(llm.ToolCallDelta{Index: 0, ID: "call_2", Name: "display_homepage", Arguments: `{}`})
	require.True(t, ok)
	assert.Equal(t, "call_2", call.ID)

	ready, dropped := acc.Flush()
	assert.Empty(t, ready)
	require.Len(t, dropped, 1)
	assert.Equal(t, "call_1", dropped[0].ID)
	assert.Equal(t, `{"id":"x"`, dropped[0].Arguments)
}

func TestAccumulatorGeneratesMissingID(t *testing.T) {
	acc := newToolAccumulator()
	call, ok := acc.Add(llm.ToolCallDelta{Index: 0, Name: "end_call", Arguments: `{"message":"bye"}`})
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(call.ID, "call_"))
}

func TestIsCompleteObject(t *testing.T) {
	assert.True(t, isCompleteObject(` {"a": [1, 2]} `))
	assert.False(t, isCompleteObject(`{"a": [1, 2]`))
	assert.False(t, isCompleteObject(`[1]`))
	assert.False(t, isCompleteObject(`"str"`))
	assert.False(t, isCompleteObject(``))
}
