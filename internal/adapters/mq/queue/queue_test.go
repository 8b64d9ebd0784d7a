package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/perchsocial/cohort-engine/internal/adapters/mq/queue"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryQueue(t *testing.T) {
	Convey("Given a queue with capacity 2", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(2))
		ctx := context.Background()

		Convey("When jobs are enqueued within capacity", func() {
			So(q.Enqueue(ctx, queue.Job{City: "Austin"}), ShouldBeTrue)
			So(q.Enqueue(ctx, queue.Job{City: "Boise"}), ShouldBeTrue)

			Convey("Then Len reflects the backlog", func() {
				So(q.Len(ctx), ShouldEqual, 2)
			})

			Convey("And a third enqueue hits backpressure", func() {
				So(q.Enqueue(ctx, queue.Job{City: "Chicago"}), ShouldBeFalse)
			})

			Convey("And Dequeue delivers jobs in order", func() {
				jobs := q.Dequeue(ctx)
				first := <-jobs
				second := <-jobs
				So(first.City, ShouldEqual, "Austin")
				So(second.City, ShouldEqual, "Boise")
			})
		})

		Convey("When the queue is closed", func() {
			So(q.Close(), ShouldBeNil)

			Convey("Then enqueues are rejected", func() {
				So(q.Enqueue(ctx, queue.Job{}), ShouldBeFalse)
				So(q.IsClosed(), ShouldBeTrue)
			})

			Convey("And the dequeue channel drains and closes", func() {
				jobs := q.Dequeue(ctx)
				select {
				case _, open := <-jobs:
					So(open, ShouldBeFalse)
				case <-time.After(time.Second):
					t.Fatal("dequeue channel did not close")
				}
			})

			Convey("And closing twice returns ErrClosed", func() {
				So(q.Close(), ShouldEqual, queue.ErrClosed)
			})
		})
	})
}
