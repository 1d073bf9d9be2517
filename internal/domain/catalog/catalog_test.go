package catalog_test

import (
	"context"
	"os"
	"testing"

	"github.com/hatchlab/hatchd/internal/domain/catalog"
	. "github.com/smartystreets/goconvey/convey"
)

const starterCatalog = `
version: "1"
eggs:
  starter:
    pool:
      bear: 25
      bunny: 25
      doggy: 25
      kitty: 20
      dragon: 5
    rarities:
      - id: rainbow
        rank: 2
        probability: 0.005
        stat: luckBoost
        cap: 0.5
      - id: golden
        rank: 1
        probability: 0.05
        stat: luckBoost
        cap: 0.5
    common: basic
    common_floor: 0
    categories:
      bear: {name: Bear, power: 1}
      bunny: {name: Bunny, power: 1}
      doggy: {name: Doggy, power: 1.2}
      kitty: {name: Kitty, power: 1.5}
      dragon: {name: Dragon, power: 4}
    rarity_power:
      golden: 2
      rainbow: 5
`

func writeTempCatalog(content string) string {
	f, err := os.CreateTemp("", "hatchd-catalog-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := f.WriteString(content); err != nil {
		panic(err)
	}
	if err := f.Close(); err != nil {
		panic(err)
	}
	return f.Name()
}

func TestCatalogLoad(t *testing.T) {
	ctx := context.Background()

	Convey("Given a valid catalog file", t, func() {
		path := writeTempCatalog(starterCatalog)
		defer func() { _ = os.Remove(path) }()

		var reloadedEggs int
		cat, err := catalog.Load(ctx, path, catalog.WithReloadHook(func(n int) { reloadedEggs = n }))

		Convey("Then it loads and reports its contents", func() {
			So(err, ShouldBeNil)
			So(cat.Version(), ShouldEqual, "1")
			So(cat.EggIDs(), ShouldResemble, []string{"starter"})
			So(reloadedEggs, ShouldEqual, 1)
		})

		Convey("When fetching the starter egg", func() {
			egg, err := cat.Egg("starter")
			So(err, ShouldBeNil)

			Convey("Then the pool and rarity table mirror the file", func() {
				So(egg.Pool["bear"], ShouldEqual, 25)
				So(egg.Pool["dragon"], ShouldEqual, 5)
				So(len(egg.Table.Tiers), ShouldEqual, 2)
				So(egg.Caps["golden"], ShouldEqual, 0.5)
				So(egg.Table.CommonID, ShouldEqual, "basic")
			})

			Convey("Then attributes scale category power by rarity", func() {
				attrs, err := egg.Attributes("dragon", "golden")
				So(err, ShouldBeNil)
				So(attrs.Name, ShouldEqual, "Dragon")
				So(attrs.Power, ShouldEqual, 8)

				attrs, err = egg.Attributes("bear", "basic")
				So(err, ShouldBeNil)
				So(attrs.Power, ShouldEqual, 1) // unknown rarity multiplier defaults to 1
			})

			Convey("Then unknown categories are rejected", func() {
				_, err := egg.Attributes("ghost", "basic")
				So(err, ShouldWrap, catalog.ErrUnknownCategory)
			})
		})

		Convey("When fetching an unknown egg", func() {
			_, err := cat.Egg("void")
			So(err, ShouldWrap, catalog.ErrUnknownEgg)
		})

		Convey("When the file changes and Reload is called", func() {
			updated := starterCatalog + `
  premium:
    pool:
      dragon: 1
    rarities:
      - id: golden
        rank: 1
        probability: 0.25
    categories:
      dragon: {name: Dragon, power: 4}
`
			So(os.WriteFile(path, []byte(updated), 0o600), ShouldBeNil)
			So(cat.Reload(ctx), ShouldBeNil)

			Convey("Then the new egg set is active", func() {
				So(cat.EggIDs(), ShouldResemble, []string{"premium", "starter"})
				So(reloadedEggs, ShouldEqual, 2)
			})
		})

		Convey("When a reload encounters a broken file", func() {
			So(os.WriteFile(path, []byte("eggs: {broken"), 0o600), ShouldBeNil)
			err := cat.Reload(ctx)

			Convey("Then the error is surfaced and the old catalog stays active", func() {
				So(err, ShouldWrap, catalog.ErrCatalogLoad)
				So(cat.EggIDs(), ShouldResemble, []string{"starter"})
			})
		})
	})

	Convey("Given malformed catalog files", t, func() {
		cases := []struct {
			name    string
			content string
		}{
			{"no eggs", `version: "1"`},
			{"empty pool", `
eggs:
  broken:
    pool: {}
    categories: {}
`},
			{"negative weight", `
eggs:
  broken:
    pool: {bear: -1}
    categories:
      bear: {name: Bear}
`},
			{"negative probability", `
eggs:
  broken:
    pool: {bear: 1}
    rarities:
      - id: golden
        rank: 1
        probability: -0.1
    categories:
      bear: {name: Bear}
`},
			{"pool category without attributes", `
eggs:
  broken:
    pool: {bear: 1, ghost: 1}
    categories:
      bear: {name: Bear}
`},
		}

		for _, tc := range cases {
			Convey("When loading a catalog with "+tc.name, func() {
				path := writeTempCatalog(tc.content)
				defer func() { _ = os.Remove(path) }()

				_, err := catalog.Load(ctx, path)

				Convey("Then loading fails eagerly", func() {
					So(err, ShouldNotBeNil)
				})
			})
		}

		Convey("When the file does not exist", func() {
			_, err := catalog.Load(ctx, "/nonexistent/catalog.yaml")
			So(err, ShouldWrap, catalog.ErrCatalogLoad)
		})
	})
}
