package reward_test

import (
	"testing"

	"github.com/hatchlab/hatchd/internal/domain/reward"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEffectiveOdds(t *testing.T) {
	Convey("Given the starter rarity table", t, func() {
		table := starterTable()

		Convey("When previewing odds with no luck bonus", func() {
			odds, err := reward.EffectiveOdds(table, nil, nil)
			So(err, ShouldBeNil)

			Convey("Then tiers appear rarest-first with common last", func() {
				So(len(odds), ShouldEqual, 3)
				So(odds[0].RarityID, ShouldEqual, "rainbow")
				So(odds[1].RarityID, ShouldEqual, "golden")
				So(odds[2].RarityID, ShouldEqual, "basic")
			})

			Convey("Then probabilities match the base configuration", func() {
				So(odds[0].Probability, ShouldAlmostEqual, 0.005)
				So(odds[1].Probability, ShouldAlmostEqual, 0.05)
				So(odds[2].Probability, ShouldAlmostEqual, 0.945)
			})

			Convey("Then display forms are player-friendly", func() {
				So(odds[0].OneIn, ShouldEqual, "1 in 200")
				So(odds[1].OneIn, ShouldEqual, "1 in 20")
				So(odds[0].Percent, ShouldEqual, "0.5%")
				So(odds[1].Percent, ShouldEqual, "5%")
			})
		})

		Convey("When previewing odds with a luck bonus", func() {
			odds, err := reward.EffectiveOdds(table, map[string]float64{"golden": 0.5}, map[string]float64{"luckBoost": 10})
			So(err, ShouldBeNil)

			byID := make(map[string]reward.Odds, len(odds))
			for _, o := range odds {
				byID[o.RarityID] = o
			}

			Convey("Then boosted probabilities honor their caps", func() {
				So(byID["golden"].Probability, ShouldAlmostEqual, 0.5)
				So(byID["rainbow"].Probability, ShouldAlmostEqual, 0.055)
				So(byID["basic"].Probability, ShouldAlmostEqual, 0.445)
			})
		})

		Convey("When the table is malformed", func() {
			_, err := reward.EffectiveOdds(reward.RarityTable{
				Tiers: []reward.Tier{{ID: "golden", Rank: 1, BaseProb: -1}},
			}, nil, nil)
			So(err, ShouldWrap, reward.ErrInvalidRarityTable)
		})
	})
}

func TestFormatting(t *testing.T) {
	Convey("Given probability display helpers", t, func() {
		Convey("When formatting one-in odds", func() {
			So(reward.FormatOneIn(0), ShouldEqual, "never")
			So(reward.FormatOneIn(-0.5), ShouldEqual, "never")
			So(reward.FormatOneIn(1), ShouldEqual, "guaranteed")
			So(reward.FormatOneIn(1.5), ShouldEqual, "guaranteed")
			So(reward.FormatOneIn(0.5), ShouldEqual, "1 in 2")
			So(reward.FormatOneIn(0.055), ShouldEqual, "1 in 18.2")
			So(reward.FormatOneIn(0.005), ShouldEqual, "1 in 200")
			So(reward.FormatOneIn(0.0001), ShouldEqual, "1 in 10000")
		})

		Convey("When formatting percentages", func() {
			So(reward.FormatPercent(0), ShouldEqual, "0%")
			So(reward.FormatPercent(0.25), ShouldEqual, "25%")
			So(reward.FormatPercent(0.945), ShouldEqual, "94.5%")
			So(reward.FormatPercent(0.05), ShouldEqual, "5%")
			So(reward.FormatPercent(0.005), ShouldEqual, "0.5%")
			So(reward.FormatPercent(0.00025), ShouldEqual, "0.025%")
		})
	})
}
