package engine

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/scythe504/hangparty-backend/internal"
	"github.com/scythe504/hangparty-backend/internal/utils"
	"github.com/scythe504/hangparty-backend/internal/words"
)

// =============================================================================
// ROUND / GUESS STATE MACHINE
// =============================================================================

type State string

const (
	StateCountdown       State = "countdown"
	StateGuessing        State = "guessing"
	StateSolved          State = "solved"
	StateFailed          State = "failed" // health exhausted, answer revealed
	StateSessionComplete State = "session_complete"
)

// Mode tags who owns a session's guess state. A SharedRound is one session
// per room driven by the host's word; a RaceRound gives each participant a
// private session over the same pool and scores them independently.
type Mode string

const (
	ModeShared Mode = "shared"
	ModeRace   Mode = "race"
)

// Awarder is called exactly once per solved round with that round's id.
// Implementations are expected to be idempotent per round id anyway (two
// tabs, replayed effects); the engine's scored flag is the first gate, the
// registry's score-event uniqueness the second.
type Awarder func(roundId string)

// Session runs one player's (or one shared room's) progress through a series
// of words: countdown, letter guessing, health depletion, and the
// session-complete target. All methods are safe for concurrent use; guesses
// arrive from both on-screen keys and physical key events.
type Session struct {
	mu sync.Mutex

	mode   Mode
	pool   []internal.Question
	target int
	award  Awarder

	// autoAdvance: race sessions draw their own next word after a solve;
	// shared sessions hold in Solved until the host assigns one.
	autoAdvance bool

	state     State
	countdown int
	health    int
	completed int

	current internal.Question
	roundId string
	guessed map[rune]bool
	scored  bool
}

// Snapshot is an immutable view of a session for rendering and events.
type Snapshot struct {
	Mode       Mode     `json:"mode"`
	State      State    `json:"state"`
	Countdown  int      `json:"countdown"`
	Health     int      `json:"health"`
	Completed  int      `json:"completed"`
	Target     int      `json:"target"`
	RoundId    string   `json:"round_id"`
	Clue       string   `json:"clue"`
	MaskedWord string   `json:"masked_word"`
	Guessed    []string `json:"guessed"`
	// only revealed once the round is over
	Answer string `json:"answer,omitempty"`
}

// NewSession starts a session over the given question pool. An empty pool is
// the terminal NoQuestionsAvailable condition: no playable state exists and
// there is no retry path.
func NewSession(pool []internal.Question, mode Mode, award Awarder) (*Session, error) {
	if len(pool) == 0 {
		return nil, internal.ErrNoQuestionsAvailable
	}

	s := &Session{
		mode:        mode,
		pool:        pool,
		target:      internal.SessionTarget,
		award:       award,
		health:      internal.MaxHealth,
		autoAdvance: mode != ModeShared,
	}
	s.adoptWord("")
	return s, nil
}

// NewSharedSession builds a session around the word the room host assigned.
// It does not advance on its own: after a solve it waits in Solved until
// AdoptAssigned installs the host's next word.
func NewSharedSession(question internal.Question, award Awarder) *Session {
	s := &Session{
		mode:   ModeShared,
		pool:   []internal.Question{question},
		target: internal.SessionTarget,
		award:  award,
		health: internal.MaxHealth,
	}
	s.adoptWord("")
	return s
}

// AdoptAssigned installs the next host-assigned word into a shared session.
// Only meaningful after a solve; any other state is a no-op so a duplicated
// feed event cannot clobber an in-flight round. The word just solved is also
// rejected: room updates for joins and leaves echo the unchanged current
// word, and replaying it would restart the round and score it again.
func (s *Session) AdoptAssigned(question internal.Question) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateSolved || question.Answer == s.current.Answer {
		return s.snapshotLocked()
	}

	s.pool = []internal.Question{question}
	s.adoptWord("")
	return s.snapshotLocked()
}

// adoptWord draws the next word and resets per-word state. Health is NOT
// reset here: it carries across rounds within a session, which is what makes
// the later words tense. Callers hold the lock or own the session
// exclusively.
func (s *Session) adoptWord(prevAnswer string) {
	question, err := words.PickRandom(s.pool, prevAnswer)
	if err != nil {
		// Guarded by the constructors; an in-flight session never has an
		// empty pool.
		s.state = StateFailed
		return
	}

	s.current = question
	s.roundId = uuid.NewString()
	s.guessed = make(map[rune]bool)
	s.scored = false
	s.countdown = internal.CountdownSeconds
	s.state = StateCountdown
}

// Tick advances the countdown by one second. No-op outside the countdown
// state; guesses stay disabled until it hits zero.
func (s *Session) Tick() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateCountdown {
		s.countdown--
		if s.countdown <= 0 {
			s.countdown = 0
			s.state = StateGuessing
		}
	}
	return s.snapshotLocked()
}

// RunCountdown drives Tick at one-second intervals until the countdown ends
// or ctx is cancelled. onTick receives each post-tick snapshot, letting the
// caller broadcast countdown updates.
func (s *Session) RunCountdown(ctx context.Context, onTick func(Snapshot)) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			snap := s.Tick()
			if onTick != nil {
				onTick(snap)
			}
			if snap.State != StateCountdown {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// GuessLetter processes one letter guess. Repeats, non-letters, countdown,
// and any terminal state are all rejections with no state change, so the
// operation is idempotent per letter. A wrong letter costs one health; the
// round fails the moment health first reaches zero while unsolved.
func (s *Session) GuessLetter(letter rune) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateGuessing {
		return s.snapshotLocked()
	}

	l := unicodeUpper(letter)
	if l < 'A' || l > 'Z' {
		return s.snapshotLocked()
	}
	if s.guessed[l] || s.health == 0 {
		return s.snapshotLocked()
	}

	s.guessed[l] = true

	answerSet := utils.AlphaChars(s.current.Answer)
	if !answerSet[l] {
		s.health--
		if s.health < 0 {
			s.health = 0
		}
	}

	if s.solvedLocked(answerSet) {
		s.resolveSolvedLocked()
	} else if s.health == 0 {
		log.Printf("[GuessLetter] Round %s: health exhausted, revealing answer", s.roundId)
		s.state = StateFailed
	}

	return s.snapshotLocked()
}

// solvedLocked reports whether every alphabetic character of the answer has
// been guessed. Non-alphabetic characters never block solving.
func (s *Session) solvedLocked(answerSet map[rune]bool) bool {
	if len(answerSet) == 0 {
		return false
	}
	for r := range answerSet {
		if !s.guessed[r] {
			return false
		}
	}
	return true
}

func (s *Session) resolveSolvedLocked() {
	s.state = StateSolved

	// Score exactly once per solve, whatever fires afterwards.
	if !s.scored {
		s.scored = true
		if s.award != nil {
			s.award(s.roundId)
		}
	}

	s.completed++
	log.Printf("[GuessLetter] Round %s: solved (%d/%d)", s.roundId, s.completed, s.target)

	if s.completed >= s.target {
		s.state = StateSessionComplete
		return
	}

	if s.autoAdvance {
		s.adoptWord(s.current.Answer)
	}
	// Shared sessions stay in Solved until the host assigns the next word.
}

// PlayAgain restarts a finished session: progress, guesses and health all
// reset, and a fresh word begins counting down.
func (s *Session) PlayAgain() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateFailed && s.state != StateSessionComplete {
		return s.snapshotLocked()
	}

	s.completed = 0
	s.health = internal.MaxHealth
	s.adoptWord(s.current.Answer)

	return s.snapshotLocked()
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	guessed := make([]string, 0, len(s.guessed))
	for r := range s.guessed {
		guessed = append(guessed, string(r))
	}

	snap := Snapshot{
		Mode:       s.mode,
		State:      s.state,
		Countdown:  s.countdown,
		Health:     s.health,
		Completed:  s.completed,
		Target:     s.target,
		RoundId:    s.roundId,
		Clue:       s.current.Clue,
		MaskedWord: s.maskedLocked(),
		Guessed:    guessed,
	}
	if s.state == StateFailed || s.state == StateSolved || s.state == StateSessionComplete {
		snap.Answer = s.current.Answer
	}
	return snap
}

// maskedLocked renders the answer with unguessed letters hidden. Spaces and
// punctuation are always visible.
func (s *Session) maskedLocked() string {
	if s.state == StateFailed {
		return s.current.Answer
	}

	var b strings.Builder
	for _, r := range strings.ToUpper(s.current.Answer) {
		if r >= 'A' && r <= 'Z' && !s.guessed[r] {
			b.WriteRune('_')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func unicodeUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - ('a' - 'A')
	}
	return r
}
