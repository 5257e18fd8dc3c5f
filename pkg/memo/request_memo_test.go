package memo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mkixbridge/bridge/pkg/memo"
)

func TestRequestMemoResolveConsumesEntry(t *testing.T) {
	rm := memo.NewRequestMemo()
	rm.Record("flag1", memo.GroupRequest, "g1")

	req, ok := rm.Resolve("flag1")
	assert.True(t, ok)
	assert.Equal(t, memo.GroupRequest, req.Kind)
	assert.Equal(t, "g1", req.ID)

	_, ok = rm.Resolve("flag1")
	assert.False(t, ok)
}
