package model_test

import (
	"testing"
	"time"

	"github.com/hatchlab/hatchd/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestHatchEventValidate(t *testing.T) {
	Convey("Given a fully populated hatch event", t, func() {
		event := model.HatchEvent{
			HatchID:    "h-1",
			RequestID:  "r-1",
			SubjectID:  "p1",
			EggID:      "starter",
			CategoryID: "bear",
			RarityID:   "golden",
			Luck:       0.5,
			At:         time.Now(),
		}

		Convey("Then it validates", func() {
			So(event.Validate(), ShouldBeNil)
		})

		Convey("When a required field is missing", func() {
			cases := []func(*model.HatchEvent){
				func(e *model.HatchEvent) { e.HatchID = "" },
				func(e *model.HatchEvent) { e.SubjectID = "" },
				func(e *model.HatchEvent) { e.EggID = "" },
				func(e *model.HatchEvent) { e.CategoryID = "" },
				func(e *model.HatchEvent) { e.RarityID = "" },
				func(e *model.HatchEvent) { e.At = time.Time{} },
			}

			Convey("Then validation fails", func() {
				for _, mutate := range cases {
					broken := event
					mutate(&broken)
					So(broken.Validate(), ShouldNotBeNil)
				}
			})
		})

		Convey("When only the request id is missing", func() {
			broken := event
			broken.RequestID = ""

			Convey("Then it still validates; request ids are an idempotency concern", func() {
				So(broken.Validate(), ShouldBeNil)
			})
		})
	})
}
