package algos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSkipListInsertAndSearch(t *testing.T) {
	sl := NewSkipList[int, string]()

	sl.Insert(3, "three")
	sl.Insert(1, "one")
	sl.Insert(2, "two")

	v, ok := sl.Search(2)
	require.True(t, ok)
	assert.Equal(t, "two", v)

	_, ok = sl.Search(42)
	assert.False(t, ok)
	assert.Equal(t, 3, sl.Len())
}

func TestSkipListInsertOverwritesDuplicateKey(t *testing.T) {
	sl := NewSkipList[int, string]()

	sl.Insert(1, "old")
	sl.Insert(1, "new")

	v, ok := sl.Search(1)
	require.True(t, ok)
	assert.Equal(t, "new", v)
	assert.Equal(t, 1, sl.Len())
}

func TestSkipListDelete(t *testing.T) {
	sl := NewSkipList[int, string]()

	sl.Insert(1, "one")
	sl.Insert(2, "two")

	assert.True(t, sl.Delete(1))
	assert.False(t, sl.Delete(1))

	_, ok := sl.Search(1)
	assert.False(t, ok)
	assert.Equal(t, 1, sl.Len())
}

func TestSkipListFirst(t *testing.T) {
	sl := NewSkipList[float64, string]()

	_, _, ok := sl.First()
	assert.False(t, ok)

	sl.Insert(10.5, "b")
	sl.Insert(9.5, "a")
	sl.Insert(11.5, "c")

	k, v, ok := sl.First()
	require.True(t, ok)
	assert.Equal(t, 9.5, k)
	assert.Equal(t, "a", v)
}

func TestSkipListIteratorAscendingOrder(t *testing.T) {
	sl := NewSkipList[int, int]()
	for _, k := range []int{5, 1, 4, 2, 3} {
		sl.Insert(k, k*10)
	}

	it := sl.Iterator()
	var keys []int
	for {
		k, v, ok := it.Next()
		if !ok {
			break
		}
		assert.Equal(t, k*10, v)
		keys = append(keys, k)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, keys)
}

func TestSkipListNegativeKeysForDescendingPrices(t *testing.T) {
	// 买盘以 -price 为 Key，迭代顺序即价格降序
	sl := NewSkipList[float64, float64]()
	for _, p := range []float64{100, 102, 101} {
		sl.Insert(-p, p)
	}

	it := sl.Iterator()
	var prices []float64
	for {
		_, p, ok := it.Next()
		if !ok {
			break
		}
		prices = append(prices, p)
	}
	assert.Equal(t, []float64{102, 101, 100}, prices)
}
