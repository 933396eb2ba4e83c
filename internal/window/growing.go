package window

// ScrollResult tells the caller what a scroll event changed
type ScrollResult int

const (
	ScrollNone ScrollResult = iota // nothing to do
	ScrollGrew                     // the visible count increased
	ScrollFetch                    // the next remote page must be fetched and appended
)

// Growing is the infinite-scroll window. Visible only grows until Reset.
type Growing struct {
	pageSize int
	visible  int
}

// NewGrowing starts a window showing one page
func NewGrowing(pageSize int) *Growing {
	if pageSize <= 0 {
		pageSize = 1
	}
	return &Growing{pageSize: pageSize, visible: pageSize}
}

// Threshold is how few unseen rows trigger growth
func Threshold(pageSize int) int {
	return max(1, pageSize-2)
}

// Visible returns the current visible count
func (g *Growing) Visible() int {
	return g.visible
}

// PageSize returns the growth step
func (g *Growing) PageSize() int {
	return g.pageSize
}

// Reset shrinks the window back to one page, optionally with a new page size
func (g *Growing) Reset(pageSize int) {
	if pageSize > 0 {
		g.pageSize = pageSize
	}
	g.visible = g.pageSize
}

// Shown returns how many of available rows are currently shown
func (g *Growing) Shown(available int) int {
	return min(g.visible, available)
}

// remaining counts rows rendered below lastSeen (a 0-based row index)
func remaining(shown, lastSeen int) int {
	return shown - 1 - lastSeen
}

// Advance handles a scroll event in client mode. available is the length of
// the filtered sequence; growth is capped there.
func (g *Growing) Advance(lastSeen, available int) ScrollResult {
	shown := g.Shown(available)
	if shown >= available {
		return ScrollNone
	}
	if remaining(shown, lastSeen) >= Threshold(g.pageSize) {
		return ScrollNone
	}
	next := min(g.visible+g.pageSize, available)
	if next <= g.visible {
		return ScrollNone
	}
	g.visible = next
	return ScrollGrew
}

// NeedsFetch handles a scroll event in server mode. loaded is the number of
// accumulated rows, total is what the server reported.
func (g *Growing) NeedsFetch(lastSeen, loaded, total int) ScrollResult {
	if loaded >= total {
		return ScrollNone
	}
	if remaining(loaded, lastSeen) >= Threshold(g.pageSize) {
		return ScrollNone
	}
	return ScrollFetch
}

// Accept records rows appended by a server fetch
func (g *Growing) Accept(loaded int) {
	if loaded > g.visible {
		g.visible = loaded
	}
}

// NextPage returns the page to request after loaded rows
func (g *Growing) NextPage(loaded int) int {
	return loaded/g.pageSize + 1
}
