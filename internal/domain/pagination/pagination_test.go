package pagination_test

import (
	"testing"

	"github.com/okian/duofeed/internal/domain/pagination"
	. "github.com/smartystreets/goconvey/convey"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestPageArithmetic(t *testing.T) {
	Convey("Given the default page size", t, func() {
		visible := pagination.Reset(pagination.DefaultPageSize)
		So(visible, ShouldEqual, 25)

		visible = pagination.NextPage(visible, pagination.DefaultPageSize)
		So(visible, ShouldEqual, 50)

		Convey("When slicing a 60 item filtered set at 50", func() {
			page, more := pagination.Window(seq(60), visible)

			Convey("Then exactly 50 items are shown and more are available", func() {
				So(page, ShouldHaveLength, 50)
				So(page[49], ShouldEqual, 49)
				So(more, ShouldBeTrue)
			})
		})

		Convey("When the set fits in the window", func() {
			page, more := pagination.Window(seq(50), visible)
			short, moreShort := pagination.Window(seq(3), visible)

			Convey("Then load more is not offered", func() {
				So(page, ShouldHaveLength, 50)
				So(more, ShouldBeFalse)
				So(short, ShouldHaveLength, 3)
				So(moreShort, ShouldBeFalse)
			})
		})

		Convey("When the window is negative or the set is empty", func() {
			page, more := pagination.Window(seq(4), -1)
			empty, moreEmpty := pagination.Window[int](nil, 25)

			So(page, ShouldBeEmpty)
			So(more, ShouldBeTrue)
			So(empty, ShouldBeEmpty)
			So(moreEmpty, ShouldBeFalse)
		})
	})
}

func TestWindowDoesNotLeakCapacity(t *testing.T) {
	Convey("Given a page sliced from a larger set", t, func() {
		items := seq(10)
		page, _ := pagination.Window(items, 3)
		page = append(page, 99)

		Convey("Then appending to the page leaves the set intact", func() {
			So(items[3], ShouldEqual, 3)
			So(page, ShouldResemble, []int{0, 1, 2, 99})
		})
	})
}

func TestCursor(t *testing.T) {
	Convey("Given a new cursor", t, func() {
		c := pagination.NewCursor(0)

		So(c.PageSize(), ShouldEqual, pagination.DefaultPageSize)
		So(c.Visible(), ShouldEqual, 25)

		Convey("When advanced twice", func() {
			c.Advance()
			c.Advance()

			Convey("Then it grows by a page each time", func() {
				So(c.Visible(), ShouldEqual, 75)
				So(c.HasMore(76), ShouldBeTrue)
				So(c.HasMore(75), ShouldBeFalse)
			})

			Convey("Then a reset returns to one page", func() {
				c.Reset()
				So(c.Visible(), ShouldEqual, 25)
			})
		})
	})
}
