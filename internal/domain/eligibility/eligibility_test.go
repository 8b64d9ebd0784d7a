package eligibility_test

import (
	"testing"

	"github.com/perchsocial/cohort-engine/internal/domain/eligibility"
	"github.com/perchsocial/cohort-engine/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func member(id, city string, verified, subscribed, onboarded bool) model.Profile {
	return model.Profile{
		ID:                 id,
		City:               city,
		Verified:           verified,
		Subscribed:         subscribed,
		OnboardingComplete: onboarded,
	}
}

func TestFilter(t *testing.T) {
	Convey("Given a snapshot with a mix of qualifying and disqualified members", t, func() {
		snapshot := []model.Profile{
			member("m-a", "Austin", true, true, true),
			member("m-b", "Austin", false, true, true), // unverified
			member("m-c", "Austin", true, false, true), // lapsed subscription
			member("m-d", "Boise", true, true, false),  // onboarding incomplete
			member("m-e", "Boise", true, true, true),
		}

		Convey("When filtering with no active groups", func() {
			eligible := eligibility.Filter(snapshot, nil)

			Convey("Then only fully qualifying members remain", func() {
				ids := make([]string, 0, len(eligible))
				for _, m := range eligible {
					ids = append(ids, m.Profile.ID)
				}
				So(ids, ShouldResemble, []string{"m-a", "m-e"})
			})
		})

		Convey("When a qualifying member is in an active group", func() {
			eligible := eligibility.Filter(snapshot, eligibility.ActiveSet{"m-a": true})

			Convey("Then that member is dropped as well", func() {
				So(eligible, ShouldHaveLength, 1)
				So(eligible[0].Profile.ID, ShouldEqual, "m-e")
			})
		})

		Convey("When the snapshot is empty", func() {
			So(eligibility.Filter(nil, nil), ShouldBeEmpty)
		})
	})
}

func TestBuckets(t *testing.T) {
	Convey("Given eligible members across two cities", t, func() {
		eligible := []model.EligibleMember{
			{Profile: model.Profile{ID: "m-c"}, City: "Boise"},
			{Profile: model.Profile{ID: "m-b"}, City: "Austin"},
			{Profile: model.Profile{ID: "m-a"}, City: "Austin"},
		}

		buckets, cities := eligibility.Buckets(eligible)

		Convey("Then members are partitioned by city", func() {
			So(buckets, ShouldHaveLength, 2)
			So(buckets["Austin"], ShouldHaveLength, 2)
			So(buckets["Boise"], ShouldHaveLength, 1)
		})

		Convey("And both the city list and bucket contents are sorted", func() {
			So(cities, ShouldResemble, []string{"Austin", "Boise"})
			So(buckets["Austin"][0].Profile.ID, ShouldEqual, "m-a")
			So(buckets["Austin"][1].Profile.ID, ShouldEqual, "m-b")
		})
	})
}
