package attach

import (
	"context"

	"golang.org/x/sync/errgroup"

	"attachr/internal/models"
)

// maxTraversals bounds how many dropped items are expanded at once.
const maxTraversals = 4

// Element identifies a mounted attachment point. Elements compare by pointer.
type Element struct {
	Name string
}

// DragEvent is a drag or drop event delivered by the host.
type DragEvent interface {
	PreventDefault()
	StopPropagation()
	Target() *Element
}

// Event is a plain DragEvent for hosts without an event system of their own.
type Event struct {
	Node      *Element
	Prevented bool
	Stopped   bool
}

func (e *Event) PreventDefault()  { e.Prevented = true }
func (e *Event) StopPropagation() { e.Stopped = true }
func (e *Event) Target() *Element { return e.Node }

// DropItem is one dropped item. Entry wins over File when both are set.
type DropItem struct {
	Entry Entry
	File  RawFile
}

// DropEvent carries the dropped items. Event may be nil.
type DropEvent struct {
	Items []DropItem
	Event DragEvent
}

// ClipboardData is what a paste delivered.
type ClipboardData struct {
	Text  string
	Files []RawFile
}

// Picker opens a file chooser and returns the chosen files.
type Picker interface {
	Pick(ctx context.Context) ([]RawFile, error)
}

// MountPicker attaches the file chooser used by SelectFiles.
func (u *Uploader) MountPicker(p Picker) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.picker = p
}

// MountDragSentinel attaches the element drag events are compared against.
func (u *Uploader) MountDragSentinel(el *Element) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.sentinel = el
}

// MountDropZone attaches the drop target.
func (u *Uploader) MountDropZone(el *Element) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.dropZone = el
}

// DropZone returns the mounted drop target, if any.
func (u *Uploader) DropZone() *Element {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.dropZone
}

// IsDragSentinel reports whether target is the mounted drag sentinel.
func (u *Uploader) IsDragSentinel(target *Element) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.sentinel != nil && target == u.sentinel
}

// Dragging reports whether a drag is over the drop zone.
func (u *Uploader) Dragging() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.dragging
}

// Disabled reports whether the area currently accepts no local files.
func (u *Uploader) Disabled() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.disabledLocked()
}

func (u *Uploader) disabledLocked() bool {
	if !u.settings.Enabled || !u.settings.allows(models.TransferLocalFile) {
		return true
	}
	return len(Visible(u.store.GetAll()))+u.reserved >= u.limits.TotalCountLimit
}

// SelectFiles opens the mounted picker. It does nothing without one.
func (u *Uploader) SelectFiles(ctx context.Context) {
	u.mu.Lock()
	picker := u.picker
	u.mu.Unlock()
	if picker == nil {
		return
	}

	files, err := picker.Pick(ctx)
	if err != nil {
		u.logger.Debug("picker failed", "err", err)
		u.notify(KindRead, readMessage("the selected files"))
		return
	}
	u.OnFilesChosen(ctx, files)
}

// OnDragEnter enters the dragging state unless the uploader is disabled.
func (u *Uploader) OnDragEnter(e DragEvent) {
	stopEvent(e)
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.disabledLocked() {
		u.dragging = true
	}
}

// OnDragOver stops the event so the drop stays with the uploader.
func (u *Uploader) OnDragOver(e DragEvent) {
	stopEvent(e)
}

// OnDragLeave clears the dragging state. Nested enters are not counted.
func (u *Uploader) OnDragLeave(e DragEvent) {
	stopEvent(e)
	u.mu.Lock()
	defer u.mu.Unlock()
	u.dragging = false
}

// OnDrop expands the dropped items and uploads the result as one batch.
// Items with neither an entry nor a file contribute nothing.
func (u *Uploader) OnDrop(ctx context.Context, e DropEvent) {
	if e.Event != nil {
		e.Event.PreventDefault()
	}
	u.mu.Lock()
	u.dragging = false
	u.mu.Unlock()

	files, err := collectDropped(ctx, e.Items)
	if err != nil {
		u.logger.Debug("drop traversal failed", "err", err)
		u.notify(KindRead, readMessage("the dropped items"))
		return
	}
	u.OnFilesChosen(ctx, files)
}

// OnPaste uploads pasted files. Pastes that carry text are left to the
// text input.
func (u *Uploader) OnPaste(ctx context.Context, data ClipboardData) {
	if data.Text != "" {
		return
	}
	u.OnFilesChosen(ctx, data.Files)
}

func collectDropped(ctx context.Context, items []DropItem) ([]RawFile, error) {
	results := make([][]RawFile, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxTraversals)
	for i, item := range items {
		switch {
		case item.Entry != nil:
			g.Go(func() error {
				found, err := Traverse(gctx, item.Entry, "")
				if err != nil {
					return err
				}
				out := make([]RawFile, 0, len(found))
				for _, f := range found {
					out = append(out, f)
				}
				results[i] = out
				return nil
			})
		case item.File != nil:
			results[i] = []RawFile{item.File}
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var files []RawFile
	for _, r := range results {
		files = append(files, r...)
	}
	return files, nil
}

func stopEvent(e DragEvent) {
	if e == nil {
		return
	}
	e.PreventDefault()
	e.StopPropagation()
}
