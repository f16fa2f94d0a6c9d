package parallel

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFor(t *testing.T) {
	for _, workers := range []int{0, 1, 4, 100} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			var counter int64
			seen := make([]int32, 50)
			For(len(seen), func(i int) {
				atomic.AddInt64(&counter, 1)
				atomic.AddInt32(&seen[i], 1)
			}, Config{NumWorkers: workers})

			assert.Equal(t, int64(len(seen)), counter)
			for i, n := range seen {
				assert.Equal(t, int32(1), n, "job %d", i)
			}
		})
	}
}

func TestForEmpty(t *testing.T) {
	For(0, func(int) { t.Fatal("called") }, DefaultConfig())
}

func TestErrors(t *testing.T) {
	errOdd := errors.New("odd")
	errs := Errors(5, func(i int) error {
		if i%2 == 1 {
			return errOdd
		}
		return nil
	}, Config{NumWorkers: 3})

	assert.Equal(t, []error{nil, errOdd, nil, errOdd, nil}, errs)
}
