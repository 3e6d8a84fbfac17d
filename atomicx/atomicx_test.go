package atomicx

import (
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestConcurrentAdd(t *testing.T) {
	Convey("When multiple writers add to the counter concurrently", t, func() {
		c := NewInt64(0)
		numOps := 3000
		numWriters := 50

		wg := sync.WaitGroup{}
		wg.Add(numWriters)
		for i := 0; i < numWriters; i++ {
			go func() {
				for j := 0; j < numOps; j++ {
					c.Add(1)
				}
				wg.Done()
			}()
		}
		wg.Wait()
		So(c.Load(), ShouldEqual, int64(numOps*numWriters))

		Convey("Store overwrites whatever was accumulated", func() {
			c.Store(7)
			So(c.Load(), ShouldEqual, int64(7))
		})
	})
}
