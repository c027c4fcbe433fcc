package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/hearth/pkg/diagnostics"
	"github.com/papercomputeco/hearth/pkg/notify"
)

// RecordingSink keeps every diagnostic record it receives.
type RecordingSink struct {
	mu      sync.Mutex
	records []diagnostics.Record
}

func NewRecordingSink() *RecordingSink {
	return &RecordingSink{}
}

func (s *RecordingSink) Record(_ context.Context, r diagnostics.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
}

// Records returns a copy of the recorded diagnostics.
func (s *RecordingSink) Records() []diagnostics.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]diagnostics.Record(nil), s.records...)
}

// Fingerprints returns the recorded fingerprints in order.
func (s *RecordingSink) Fingerprints() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	fps := make([]string, len(s.records))
	for i, r := range s.records {
		fps[i] = r.Fingerprint
	}
	return fps
}

// Count returns how many records carry fingerprint.
func (s *RecordingSink) Count(fingerprint string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, r := range s.records {
		if r.Fingerprint == fingerprint {
			n++
		}
	}
	return n
}

// RecordingNotifier keeps every notice it receives.
type RecordingNotifier struct {
	mu      sync.Mutex
	notices []notify.Notice
}

func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{}
}

func (n *RecordingNotifier) Notify(notice notify.Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
}

// Notices returns a copy of the received notices.
func (n *RecordingNotifier) Notices() []notify.Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Notice(nil), n.notices...)
}
