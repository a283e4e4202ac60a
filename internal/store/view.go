package store

// View is the consuming list widget. The store calls it from the loop
// goroutine whenever rows appear, change or disappear.
type View interface {
	InsertBefore(row, anchor Handle)
	InsertAfter(row, anchor Handle)
	Append(row Handle)
	Refresh(row Handle)
	Remove(row Handle)
}

type nopView struct{}

func (nopView) InsertBefore(row, anchor Handle) {}
func (nopView) InsertAfter(row, anchor Handle)  {}
func (nopView) Append(row Handle)               {}
func (nopView) Refresh(row Handle)              {}
func (nopView) Remove(row Handle)               {}
