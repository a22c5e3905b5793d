package economy

import (
	"log"
	"math/rand"
	"sync"
	"time"

	"figurine-bot/storage"
)

const checkinDateLayout = "2006-01-02"

// CheckinStatus describes the outcome of a check-in attempt.
type CheckinStatus int

const (
	CheckinDisabled CheckinStatus = iota
	CheckinAlreadyDone
	CheckinGranted
)

// CheckinResult is what the command layer renders back to the user.
type CheckinResult struct {
	Status  CheckinStatus
	Reward  int64 // only set for CheckinGranted
	Balance int64 // user balance after the attempt
}

// CheckinTracker records the last calendar date each user checked in,
// in the process's local timezone. One grant per user per day.
type CheckinTracker struct {
	mu    sync.Mutex
	dates map[string]string
	store *storage.FileStore[string]
}

// NewCheckinTracker loads the tracker from its backing store.
func NewCheckinTracker(store *storage.FileStore[string]) *CheckinTracker {
	return &CheckinTracker{
		dates: store.Load(),
		store: store,
	}
}

// CheckedInOn reports whether the user already checked in on the given date.
func (t *CheckinTracker) CheckedInOn(userID, date string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dates[canonicalID(userID)] == date
}

// Record stores date as the user's last check-in and persists.
func (t *CheckinTracker) Record(userID, date string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.dates[canonicalID(userID)] = date
	if err := t.store.Save(t.dates); err != nil {
		log.Printf("Failed to persist check-in data %s: %v", t.store.Path(), err)
	}
}

// CheckinOptions is the configuration slice the reward policy consumes.
type CheckinOptions struct {
	Enabled         bool
	FixedReward     int64
	RandomEnabled   bool
	RandomRewardMax int64
}

// CheckinService grants the daily check-in reward: it gates on the
// tracker, computes the reward, credits the user ledger and records the
// date. The credit and the date record are two separate persists; a
// crash between them can leave them disagreeing for one day, which is
// an accepted limitation.
type CheckinService struct {
	mu      sync.Mutex // spans the full check-credit-record sequence
	opts    CheckinOptions
	tracker *CheckinTracker
	users   *Ledger
	rng     *rand.Rand
	now     func() time.Time
}

// NewCheckinService constructs the service. rng may be nil to use a
// time-seeded default; now may be nil to use time.Now.
func NewCheckinService(opts CheckinOptions, tracker *CheckinTracker, users *Ledger, rng *rand.Rand) *CheckinService {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &CheckinService{
		opts:    opts,
		tracker: tracker,
		users:   users,
		rng:     rng,
		now:     time.Now,
	}
}

// Claim attempts the daily check-in for a user. Claims are serialized:
// interaction handlers run in separate goroutines, and the gate check
// and the grant must not interleave or the same user could be granted
// twice on one day.
func (s *CheckinService) Claim(userID string) CheckinResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opts.Enabled {
		return CheckinResult{Status: CheckinDisabled, Balance: s.users.Get(userID)}
	}

	today := s.now().Format(checkinDateLayout)
	if s.tracker.CheckedInOn(userID, today) {
		return CheckinResult{Status: CheckinAlreadyDone, Balance: s.users.Get(userID)}
	}

	reward := s.DrawReward()
	balance := s.users.Credit(userID, reward)
	s.tracker.Record(userID, today)

	log.Printf("User %s checked in, reward %d, balance %d", userID, reward, balance)
	return CheckinResult{Status: CheckinGranted, Reward: reward, Balance: balance}
}

// DrawReward computes the reward amount for one grant. With random
// check-in enabled the draw is uniform in [1, max(1, configured max)];
// otherwise the fixed reward is used as configured.
func (s *CheckinService) DrawReward() int64 {
	if !s.opts.RandomEnabled {
		return s.opts.FixedReward
	}

	max := s.opts.RandomRewardMax
	if max < 1 {
		max = 1
	}
	return 1 + s.rng.Int63n(max)
}
