package utils

import (
	"context"
	"sync"
	"testing"

	"go.viam.com/test"
)

func TestGroupWorkParallelCoversEveryIndex(t *testing.T) {
	for _, totalSize := range []int{1, 2, 3, ParallelFactor, ParallelFactor + 1, 1000, 1920 * 3} {
		var (
			mu        sync.Mutex
			seen      = make([]int, totalSize)
			numGroups int
		)
		err := GroupWorkParallel(
			context.Background(),
			totalSize,
			func(groups int) { numGroups = groups },
			func(groupNum, groupSize, from, to int) (MemberWorkFunc, GroupWorkDoneFunc) {
				test.That(t, to-from, test.ShouldEqual, groupSize)
				return func(memberNum, workNum int) {
					mu.Lock()
					seen[workNum]++
					mu.Unlock()
				}, nil
			},
		)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, numGroups, test.ShouldBeLessThanOrEqualTo, totalSize)
		for i, count := range seen {
			if count != 1 {
				t.Fatalf("size %d: index %d visited %d times", totalSize, i, count)
			}
		}
	}
}

func TestGroupWorkParallelWholeRange(t *testing.T) {
	out := make([]int, 257)
	var done sync.WaitGroup
	err := GroupWorkParallel(context.Background(), len(out), func(groups int) { done.Add(groups) },
		func(groupNum, groupSize, from, to int) (MemberWorkFunc, GroupWorkDoneFunc) {
			for i := from; i < to; i++ {
				out[i] = i * 2
			}
			return nil, done.Done
		})
	test.That(t, err, test.ShouldBeNil)
	done.Wait()
	for i, v := range out {
		test.That(t, v, test.ShouldEqual, i*2)
	}
}

func TestGroupWorkParallelCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := GroupWorkParallel(ctx, 10, nil, func(groupNum, groupSize, from, to int) (MemberWorkFunc, GroupWorkDoneFunc) {
		called = true
		return nil, nil
	})
	test.That(t, err, test.ShouldBeError, context.Canceled)
	test.That(t, called, test.ShouldBeFalse)

	test.That(t, GroupWorkParallel(context.Background(), 0, nil, nil), test.ShouldBeNil)
}
