package dynamic

import (
	"sync"

	"github.com/go-rod/rod/lib/proto"
)

// docStatus tracks the HTTP status of the page's main-frame document.
// Every main-frame document replaces the previous one, so a challenge page
// served as 503 that reloads into the real page reports the real status.
// Subframe documents are ignored.
type docStatus struct {
	mu     sync.Mutex
	frame  string
	status int
}

func newDocStatus(mainFrame string) *docStatus {
	return &docStatus{frame: mainFrame}
}

// record notes a document response from frame. With no main frame known
// yet, the first document's frame is taken as the main one.
func (d *docStatus) record(frame string, status int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.frame == "" {
		d.frame = frame
	}
	if frame != "" && frame != d.frame {
		return
	}
	d.status = status
}

// observe feeds a rod network event into the tracker
func (d *docStatus) observe(e *proto.NetworkResponseReceived) {
	if e == nil || e.Response == nil || e.Type != proto.NetworkResourceTypeDocument {
		return
	}
	d.record(string(e.FrameID), e.Response.Status)
}

// Status returns the latest main document status, 0 if none was seen
func (d *docStatus) Status() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}
