package searcher

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

/**
Tests backpropagation on arena nodes:
- a Max node keeps the child pair maximising own - opponent, a Min node the minimising one
- ties keep the first reported child
- stale reports (lower version) never overwrite newer ones
- updates travel up to the root child and stop once a node does not change
- concurrent reports from many children converge to the right pair
*/

func TestNodeUpdate(t *testing.T) {
	t.Run("max node keeps the best child", func(t *testing.T) {
		n := newNode(noParent, nil, 0, Max, Score{Own: 3})

		n.update(1, report{score: Score{Own: 3, Opponent: 2}})
		n.update(2, report{score: Score{Own: 5, Opponent: 1}})
		n.update(3, report{score: Score{Own: 4, Opponent: 4}})

		require.Equal(t, Score{Own: 5, Opponent: 1}, n.representative().score)
	})

	t.Run("min node keeps the worst child", func(t *testing.T) {
		n := newNode(noParent, nil, 0, Min, Score{Own: 3})

		n.update(1, report{score: Score{Own: 3, Opponent: 2}})
		n.update(2, report{score: Score{Own: 3, Opponent: 6}})
		n.update(3, report{score: Score{Own: 3, Opponent: 1}})

		require.Equal(t, Score{Own: 3, Opponent: 6}, n.representative().score)
	})

	t.Run("ties keep the first reported child", func(t *testing.T) {
		n := newNode(noParent, nil, 0, Max, Score{})

		n.update(7, report{score: Score{Own: 4, Opponent: 2}})
		_, changed := n.update(8, report{score: Score{Own: 5, Opponent: 3}})

		require.False(t, changed, "Equal value should not replace the first child")
		require.Equal(t, Score{Own: 4, Opponent: 2}, n.representative().score)
	})

	t.Run("replacing a child's earlier report", func(t *testing.T) {
		n := newNode(noParent, nil, 0, Max, Score{})
		n.update(1, report{score: Score{Own: 9}})
		n.update(2, report{score: Score{Own: 2}})

		_, changed := n.update(1, report{score: Score{Own: 1}, version: 1})

		require.True(t, changed)
		require.Equal(t, Score{Own: 2}, n.representative().score, "Child 1's refined score should replace its first report")
	})

	t.Run("ignoring stale reports", func(t *testing.T) {
		n := newNode(noParent, nil, 0, Max, Score{})
		n.update(1, report{score: Score{Own: 6}, version: 3})

		_, changed := n.update(1, report{score: Score{Own: 1}, version: 2})

		require.False(t, changed)
		require.Equal(t, Score{Own: 6}, n.representative().score)
	})
}

func TestArenaBackup(t *testing.T) {
	t.Run("propagating a new leaf up to the root child", func(t *testing.T) {
		a := &arena{}
		root := a.add(newNode(noParent, nil, 0, Min, Score{Own: 4}))
		mid := a.add(newNode(root, nil, 0, Max, Score{Own: 4, Opponent: 1}))
		a.backup(mid)
		leaf := a.add(newNode(mid, nil, 0, Min, Score{Own: 6, Opponent: 1}))

		a.backup(leaf)

		require.Equal(t, Score{Own: 6, Opponent: 1}, a.get(mid).representative().score)
		require.Equal(t, Score{Own: 6, Opponent: 1}, a.get(root).representative().score)
	})

	t.Run("min root child follows the opponent's best reply", func(t *testing.T) {
		a := &arena{}
		root := a.add(newNode(noParent, nil, 0, Min, Score{Own: 4}))
		for _, opp := range []int{1, 5, 2} {
			child := a.add(newNode(root, nil, 0, Max, Score{Own: 4, Opponent: opp}))
			a.backup(child)
		}

		require.Equal(t, Score{Own: 4, Opponent: 5}, a.get(root).representative().score)
	})

	t.Run("concurrent reports converge", func(t *testing.T) {
		a := &arena{}
		root := a.add(newNode(noParent, nil, 0, Min, Score{}))
		mids := []handle{}
		for i := 0; i < 8; i++ {
			mid := a.add(newNode(root, nil, i, Max, Score{}))
			a.backup(mid)
			mids = append(mids, mid)
		}

		var wg sync.WaitGroup
		for i, mid := range mids {
			for j := 0; j < 50; j++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					leaf := a.add(newNode(mid, nil, j, Min, Score{Own: i + j}))
					a.backup(leaf)
				}()
			}
		}
		wg.Wait()

		// Each mid node maxes out at i+49; the min root keeps the smallest of those
		for i, mid := range mids {
			require.Equal(t, Score{Own: i + 49}, a.get(mid).representative().score)
		}
		require.Equal(t, Score{Own: 49}, a.get(root).representative().score)
	})
}
