package timeout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-core/api"
)

func TestRemovePanicsOnMissingBucket(t *testing.T) {
	r := NewRegistry[int]()
	r.Insert(1, time.Second)
	for k := range r.reverse {
		delete(r.reverse, k)
	}

	defer func() {
		p := recover()
		require.NotNil(t, p)
		e, ok := p.(*api.Error)
		require.True(t, ok)
		assert.Equal(t, api.ErrCodeInternal, e.Code)
	}()
	r.Erase(1)
}

func TestPollPanicsWhenIndexesDisagree(t *testing.T) {
	r := NewRegistry[int]()
	r.Insert(1, -time.Second)
	r.forward[1] = 12345

	assert.Panics(t, func() { r.Poll() })
}

func TestHeapIndexesStayConsistent(t *testing.T) {
	r := NewRegistry[int]()
	for i := 0; i < 50; i++ {
		r.Insert(i, time.Duration(50-i)*time.Millisecond)
	}
	for i := 0; i < 50; i += 3 {
		r.Erase(i)
	}
	for i, b := range r.order {
		assert.Equal(t, i, b.index)
		assert.Same(t, b, r.reverse[b.at])
	}
}
