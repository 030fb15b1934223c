package platform

import (
	"context"
	"sync"
	"time"
)

// Recording fake for tests. Optional error fields force specific failure
// modes (permission denied, undeliverable notices).
type Recorder struct {
	mu sync.Mutex

	Deleted       []string
	Timeouts      []RecordedTimeout
	Kicked        []string
	Banned        []string
	Notices       []Notice
	Slowmodes     map[string]int
	SlowmodeCalls int
	Channels      []string

	DeleteErr  error
	TimeoutErr error
	KickErr    error
	BanErr     error
	NoticeErr  error
	// only private notices fail when set; public fallbacks still deliver
	PrivateNoticeErr error
}

type RecordedTimeout struct {
	ActorID  string
	Duration time.Duration
	Reason   string
}

func NewRecorder() *Recorder {
	return &Recorder{Slowmodes: make(map[string]int)}
}

func (r *Recorder) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.DeleteErr != nil {
		return r.DeleteErr
	}
	r.Deleted = append(r.Deleted, messageID)
	return nil
}

func (r *Recorder) Timeout(ctx context.Context, actorID string, d time.Duration, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.TimeoutErr != nil {
		return r.TimeoutErr
	}
	r.Timeouts = append(r.Timeouts, RecordedTimeout{ActorID: actorID, Duration: d, Reason: reason})
	return nil
}

func (r *Recorder) Kick(ctx context.Context, actorID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.KickErr != nil {
		return r.KickErr
	}
	r.Kicked = append(r.Kicked, actorID)
	return nil
}

func (r *Recorder) Ban(ctx context.Context, actorID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.BanErr != nil {
		return r.BanErr
	}
	r.Banned = append(r.Banned, actorID)
	return nil
}

func (r *Recorder) SendNotice(ctx context.Context, n Notice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.NoticeErr != nil {
		return r.NoticeErr
	}
	if r.PrivateNoticeErr != nil && !n.Ephemeral {
		return r.PrivateNoticeErr
	}
	r.Notices = append(r.Notices, n)
	return nil
}

func (r *Recorder) SetSlowmode(ctx context.Context, channelID string, seconds int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Slowmodes[channelID] = seconds
	r.SlowmodeCalls++
	return nil
}

func (r *Recorder) WritableChannels(ctx context.Context, communityID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.Channels...), nil
}

// Number of slowmode applications recorded, across all channels.
func (r *Recorder) SlowmodeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.SlowmodeCalls
}

var _ Client = (*Recorder)(nil)
