package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/hatchlab/hatchd/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a fresh deduper", t, func() {
		d := dedupe.NewInMemoryDeduper()

		Convey("When a request ID is recorded for the first time", func() {
			seen := d.SeenAndRecord(ctx, "req-1")

			Convey("Then it is reported as new", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When the same request ID is recorded twice", func() {
			d.SeenAndRecord(ctx, "req-1")
			seen := d.SeenAndRecord(ctx, "req-1")

			Convey("Then the retry is flagged and not double counted", func() {
				So(seen, ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When an ID is unrecorded", func() {
			d.SeenAndRecord(ctx, "req-1")
			d.Unrecord(ctx, "req-1")

			Convey("Then it can be recorded again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "req-1"), ShouldBeFalse)
			})
		})

		Convey("When a missing ID is unrecorded", func() {
			d.Unrecord(ctx, "never-seen")

			Convey("Then the size is unchanged", func() {
				So(d.Size(), ShouldEqual, 0)
			})
		})

		Convey("When the empty string is used as an ID", func() {
			So(d.SeenAndRecord(ctx, ""), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, ""), ShouldBeTrue)
			So(d.Size(), ShouldEqual, 1)
		})
	})

	Convey("Given a bounded deduper at capacity", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
		for i := 1; i <= 3; i++ {
			So(d.SeenAndRecord(ctx, fmt.Sprintf("req-%d", i)), ShouldBeFalse)
		}
		So(d.Size(), ShouldEqual, 3)

		Convey("When one more ID arrives", func() {
			So(d.SeenAndRecord(ctx, "req-4"), ShouldBeFalse)

			Convey("Then the oldest ID is evicted and the size holds", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "req-1"), ShouldBeFalse) // evicted, so new again
				So(d.Size(), ShouldEqual, 3)
			})
		})

		Convey("When the bound is one", func() {
			small := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(1))
			So(small.SeenAndRecord(ctx, "a"), ShouldBeFalse)
			So(small.SeenAndRecord(ctx, "b"), ShouldBeFalse)

			Convey("Then only the latest ID survives", func() {
				So(small.Size(), ShouldEqual, 1)
				So(small.SeenAndRecord(ctx, "b"), ShouldBeTrue)
			})
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))

		Convey("When many IDs are recorded", func() {
			const n = 1000
			for i := 0; i < n; i++ {
				So(d.SeenAndRecord(ctx, fmt.Sprintf("req-%d", i)), ShouldBeFalse)
			}

			Convey("Then nothing is evicted", func() {
				So(d.Size(), ShouldEqual, int64(n))
				So(d.SeenAndRecord(ctx, "req-0"), ShouldBeTrue)
			})
		})
	})
}

func TestDeduperConcurrency(t *testing.T) {
	ctx := context.Background()

	Convey("Given concurrent recorders", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(10000))
		const goroutines = 10
		const perGoroutine = 100

		Convey("When goroutines record disjoint ID sets", func() {
			var wg sync.WaitGroup
			for g := 0; g < goroutines; g++ {
				wg.Add(1)
				go func(g int) {
					defer wg.Done()
					for i := 0; i < perGoroutine; i++ {
						d.SeenAndRecord(ctx, fmt.Sprintf("req-%d-%d", g, i))
					}
				}(g)
			}
			wg.Wait()

			Convey("Then every ID is recorded exactly once", func() {
				So(d.Size(), ShouldEqual, int64(goroutines*perGoroutine))
			})
		})

		Convey("When goroutines race on the same ID", func() {
			var wg sync.WaitGroup
			newCount := make(chan bool, goroutines)
			for g := 0; g < goroutines; g++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if !d.SeenAndRecord(ctx, "contended") {
						newCount <- true
					}
				}()
			}
			wg.Wait()
			close(newCount)

			Convey("Then exactly one caller wins", func() {
				So(len(newCount), ShouldEqual, 1)
				So(d.Size(), ShouldEqual, 1)
			})
		})
	})
}
