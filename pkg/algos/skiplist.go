// Package algos - 跳表（Skip List）数据结构
package algos

import (
	"cmp"
	"math/rand"
)

const (
	maxLevel    = 32
	probability = 0.25
)

// SkipList 按 Key 升序排列的跳表
// 用于订单簿价格档位的有序维护
// 时间复杂度：插入 O(log n)，查找 O(log n)，删除 O(log n)
type SkipList[K cmp.Ordered, V any] struct {
	head   *skipListNode[K, V]
	level  int
	length int
}

type skipListNode[K cmp.Ordered, V any] struct {
	key   K
	value V
	next  []*skipListNode[K, V]
}

// NewSkipList 创建跳表
func NewSkipList[K cmp.Ordered, V any]() *SkipList[K, V] {
	return &SkipList[K, V]{
		head:  &skipListNode[K, V]{next: make([]*skipListNode[K, V], maxLevel)},
		level: 1,
	}
}

// Len 返回跳表中的元素个数
func (sl *SkipList[K, V]) Len() int {
	return sl.length
}

func randomLevel() int {
	level := 1
	for level < maxLevel && rand.Float64() < probability {
		level++
	}
	return level
}

// Insert 插入键值对；key 已存在时覆盖其 value
func (sl *SkipList[K, V]) Insert(key K, value V) {
	update := make([]*skipListNode[K, V], maxLevel)
	node := sl.head

	for i := sl.level - 1; i >= 0; i-- {
		for node.next[i] != nil && node.next[i].key < key {
			node = node.next[i]
		}
		update[i] = node
	}

	if next := node.next[0]; next != nil && next.key == key {
		next.value = value
		return
	}

	level := randomLevel()
	if level > sl.level {
		for i := sl.level; i < level; i++ {
			update[i] = sl.head
		}
		sl.level = level
	}

	newNode := &skipListNode[K, V]{
		key:   key,
		value: value,
		next:  make([]*skipListNode[K, V], level),
	}
	for i := 0; i < level; i++ {
		newNode.next[i] = update[i].next[i]
		update[i].next[i] = newNode
	}
	sl.length++
}

// Search 查找 key 对应的 value
func (sl *SkipList[K, V]) Search(key K) (V, bool) {
	node := sl.head
	for i := sl.level - 1; i >= 0; i-- {
		for node.next[i] != nil && node.next[i].key < key {
			node = node.next[i]
		}
	}

	if next := node.next[0]; next != nil && next.key == key {
		return next.value, true
	}

	var zero V
	return zero, false
}

// Delete 删除 key；key 不存在时返回 false
func (sl *SkipList[K, V]) Delete(key K) bool {
	update := make([]*skipListNode[K, V], maxLevel)
	node := sl.head

	for i := sl.level - 1; i >= 0; i-- {
		for node.next[i] != nil && node.next[i].key < key {
			node = node.next[i]
		}
		update[i] = node
	}

	target := node.next[0]
	if target == nil || target.key != key {
		return false
	}

	for i := 0; i < sl.level; i++ {
		if update[i].next[i] != target {
			break
		}
		update[i].next[i] = target.next[i]
	}

	for sl.level > 1 && sl.head.next[sl.level-1] == nil {
		sl.level--
	}
	sl.length--
	return true
}

// First 返回最小 key 的键值对
func (sl *SkipList[K, V]) First() (K, V, bool) {
	if node := sl.head.next[0]; node != nil {
		return node.key, node.value, true
	}
	var zeroK K
	var zeroV V
	return zeroK, zeroV, false
}

// Iterator 返回按 key 升序遍历的迭代器
func (sl *SkipList[K, V]) Iterator() *SkipListIterator[K, V] {
	return &SkipListIterator[K, V]{node: sl.head.next[0]}
}

// SkipListIterator 跳表迭代器
type SkipListIterator[K cmp.Ordered, V any] struct {
	node *skipListNode[K, V]
}

// Next 返回下一个键值对；遍历结束时返回 false
func (it *SkipListIterator[K, V]) Next() (K, V, bool) {
	if it.node == nil {
		var zeroK K
		var zeroV V
		return zeroK, zeroV, false
	}
	k, v := it.node.key, it.node.value
	it.node = it.node.next[0]
	return k, v, true
}
