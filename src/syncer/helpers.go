package syncer

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

func jsonList(items []string) datatypes.JSON {
	if len(items) == 0 {
		return nil
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

// progress tracks the update times a walk has seen. The watermark it yields
// never passes the oldest item that failed, so that item is walked again.
type progress struct {
	newest       time.Time
	oldestFailed time.Time
}

func (p *progress) saw(t time.Time) {
	if t.After(p.newest) {
		p.newest = t
	}
}

func (p *progress) failed(t time.Time) {
	if p.oldestFailed.IsZero() || t.Before(p.oldestFailed) {
		p.oldestFailed = t
	}
}

// watermark returns nil when nothing was seen. floor is the cutoff the walk
// started from; the result never moves below it.
func (p *progress) watermark(floor *time.Time) *time.Time {
	if p.newest.IsZero() {
		return nil
	}
	wm := p.newest
	if !p.oldestFailed.IsZero() && p.oldestFailed.Before(wm) {
		wm = p.oldestFailed
	}
	if floor != nil && wm.Before(*floor) {
		wm = *floor
	}
	return &wm
}
