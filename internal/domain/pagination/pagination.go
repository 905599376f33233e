// Package pagination implements the growing visible-count window over a filtered feed.
package pagination

// DefaultPageSize is the number of posts added per page.
const DefaultPageSize = 25

// NextPage returns the visible count after one more page.
func NextPage(prior, pageSize int) int { return prior + pageSize }

// Reset returns the visible count of a fresh window.
func Reset(pageSize int) int { return pageSize }

// Window returns items[:min(visible, len(items))] and whether more items remain.
func Window[T any](items []T, visible int) ([]T, bool) {
	if visible < 0 {
		visible = 0
	}
	n := min(visible, len(items))
	return items[:n:n], len(items) > visible
}

// Cursor is a visible-count counter owned by a single viewer. It only grows,
// except through Reset. It is not safe for concurrent use.
type Cursor struct {
	visible  int
	pageSize int
}

// NewCursor returns a cursor showing one page. Non-positive sizes use DefaultPageSize.
func NewCursor(pageSize int) *Cursor {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Cursor{visible: Reset(pageSize), pageSize: pageSize}
}

func (c *Cursor) Visible() int  { return c.visible }
func (c *Cursor) PageSize() int { return c.pageSize }

// Reset shows a single page again.
func (c *Cursor) Reset() { c.visible = Reset(c.pageSize) }

// Advance grows the window by one page.
func (c *Cursor) Advance() { c.visible = NextPage(c.visible, c.pageSize) }

// HasMore reports whether a collection of total items extends past the window.
func (c *Cursor) HasMore(total int) bool { return total > c.visible }
