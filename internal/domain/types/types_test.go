package types_test

import (
	"encoding/json"
	"testing"

	"github.com/perchsocial/cohort-engine/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestReadinessReportJSON(t *testing.T) {
	Convey("Given a readiness report", t, func() {
		report := types.ReadinessReport{
			PoolSize:      12,
			EligibleCount: 9,
			MinGroupSize:  3,
			Localities: []types.LocalityPool{
				{City: "Austin", EligibleSize: 5, MeetsMinimum: true},
				{City: "Boise", EligibleSize: 2, MeetsMinimum: false},
			},
		}

		Convey("Then it marshals with snake_case keys", func() {
			raw, err := json.Marshal(report)
			So(err, ShouldBeNil)
			So(string(raw), ShouldContainSubstring, `"eligible_count":9`)
			So(string(raw), ShouldContainSubstring, `"meets_minimum":false`)
		})
	})
}
