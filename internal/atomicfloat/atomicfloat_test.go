package atomicfloat

import (
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestAdd(t *testing.T) {
	Convey("When multiple writers add to the float value concurrently", t, func() {
		f64 := float64(0.0)
		numOps := 3000
		numWriters := 100

		start := make(chan struct{})
		wg := sync.WaitGroup{}
		wg.Add(numWriters)
		adder := func() {
			<-start
			for i := 0; i < numOps; i++ {
				Add(&f64, 1.0)
			}
			wg.Done()
		}

		for i := 0; i < numWriters; i++ {
			go adder()
		}
		close(start)
		wg.Wait()

		So(Read(&f64), ShouldEqual, float64(numOps*numWriters))
	})

	Convey("When writers increment and decrement concurrently", t, func() {
		f64 := float64(0.0)
		numOps := 3000
		numWriters := 50

		start := make(chan struct{})
		wg := sync.WaitGroup{}
		wg.Add(numWriters * 2)
		bump := func(delta float64) {
			<-start
			for i := 0; i < numOps; i++ {
				Add(&f64, delta)
			}
			wg.Done()
		}

		for i := 0; i < numWriters; i++ {
			go bump(1.0)
			go bump(-1.0)
		}
		close(start)
		wg.Wait()

		So(Read(&f64), ShouldEqual, float64(0.0))
	})
}

func TestSet(t *testing.T) {
	Convey("When a value is set it reads back exactly", t, func() {
		f64 := float64(0.0)
		Set(&f64, 3.25)
		So(Read(&f64), ShouldEqual, 3.25)

		Convey("and adds apply on top of the set value", func() {
			So(Add(&f64, 0.75), ShouldEqual, 4.0)
		})
	})
}
