package notify_test

import (
	"context"
	"testing"

	"github.com/perchsocial/cohort-engine/internal/adapters/notify"
	"github.com/perchsocial/cohort-engine/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestChannelAnnouncer(t *testing.T) {
	Convey("Given a channel announcer", t, func() {
		a := notify.NewChannelAnnouncer(notify.WithBufferSize(2))
		ctx := context.Background()

		Convey("When a group event is announced", func() {
			g := model.Group{ID: "g-1", City: "Austin", Members: []string{"m-a", "m-b", "m-c"}, Week: 2950}
			err := a.Announce(ctx, notify.EventFor("batch-1", g))

			Convey("Then the consumer receives it", func() {
				So(err, ShouldBeNil)
				got := <-a.Events()
				So(got.GroupID, ShouldEqual, "g-1")
				So(got.Members, ShouldResemble, []string{"m-a", "m-b", "m-c"})
				So(got.BatchID, ShouldEqual, "batch-1")
			})
		})

		Convey("When the buffer overflows", func() {
			for i := 0; i < 5; i++ {
				So(a.Announce(ctx, notify.GroupFormed{GroupID: "g"}), ShouldBeNil)
			}

			Convey("Then announcing never blocks or fails", func() {
				So(len(a.Events()), ShouldEqual, 2)
			})
		})

		Convey("When the announcer is closed", func() {
			So(a.Close(), ShouldBeNil)

			Convey("Then further announcements are rejected", func() {
				So(a.Announce(ctx, notify.GroupFormed{}), ShouldEqual, notify.ErrClosed)
			})
		})
	})
}
