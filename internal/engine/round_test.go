package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scythe504/hangparty-backend/internal"
	"github.com/scythe504/hangparty-backend/internal/engine"
)

var catQuestion = internal.Question{Category: "Animals", Clue: "Purrs and naps", Answer: "CAT"}

func startGuessing(t *testing.T, s *engine.Session) engine.Snapshot {
	t.Helper()

	snap := s.Snapshot()
	require.Equal(t, engine.StateCountdown, snap.State)

	for i := 0; i < internal.CountdownSeconds; i++ {
		snap = s.Tick()
	}
	require.Equal(t, engine.StateGuessing, snap.State)
	return snap
}

func solveWord(t *testing.T, s *engine.Session, answer string) engine.Snapshot {
	t.Helper()

	snap := s.Snapshot()
	for _, r := range answer {
		if r < 'A' || r > 'Z' {
			continue
		}
		snap = s.GuessLetter(r)
	}
	return snap
}

func TestNewSessionEmptyPool(t *testing.T) {
	_, err := engine.NewSession(nil, engine.ModeRace, nil)
	assert.ErrorIs(t, err, internal.ErrNoQuestionsAvailable)
}

func TestCountdownGatesGuesses(t *testing.T) {
	s := engine.NewSharedSession(catQuestion, nil)

	snap := s.GuessLetter('C')
	assert.Equal(t, engine.StateCountdown, snap.State)
	assert.Empty(t, snap.Guessed)
	assert.Equal(t, "___", snap.MaskedWord)

	snap = startGuessing(t, s)
	assert.Equal(t, 0, snap.Countdown)

	snap = s.GuessLetter('C')
	assert.Contains(t, snap.Guessed, "C")
}

func TestSolveWithoutWrongGuesses(t *testing.T) {
	var awarded []string
	s := engine.NewSharedSession(catQuestion, func(roundId string) {
		awarded = append(awarded, roundId)
	})
	startGuessing(t, s)

	snap := s.GuessLetter('C')
	assert.Equal(t, engine.StateGuessing, snap.State)
	assert.Equal(t, "C__", snap.MaskedWord)
	assert.Empty(t, snap.Answer)

	s.GuessLetter('A')
	snap = s.GuessLetter('T')

	assert.Equal(t, engine.StateSolved, snap.State)
	assert.Equal(t, internal.MaxHealth, snap.Health)
	assert.Equal(t, 1, snap.Completed)
	assert.Equal(t, "CAT", snap.Answer)
	require.Len(t, awarded, 1)
	assert.Equal(t, snap.RoundId, awarded[0])
}

func TestLowercaseGuessesAccepted(t *testing.T) {
	s := engine.NewSharedSession(catQuestion, nil)
	startGuessing(t, s)

	s.GuessLetter('c')
	s.GuessLetter('a')
	snap := s.GuessLetter('t')

	assert.Equal(t, engine.StateSolved, snap.State)
}

func TestWrongGuessesExhaustHealth(t *testing.T) {
	awards := 0
	s := engine.NewSharedSession(catQuestion, func(string) { awards++ })
	startGuessing(t, s)

	for i, r := range "BDEFG" {
		snap := s.GuessLetter(r)
		assert.Equal(t, internal.MaxHealth-i-1, snap.Health)
	}

	snap := s.Snapshot()
	assert.Equal(t, engine.StateFailed, snap.State)
	assert.Equal(t, 0, snap.Health)
	assert.Equal(t, "CAT", snap.MaskedWord, "answer revealed on failure")
	assert.Equal(t, "CAT", snap.Answer)
	assert.Zero(t, awards)

	// terminal: further guesses change nothing
	snap = s.GuessLetter('C')
	assert.Equal(t, engine.StateFailed, snap.State)
	assert.NotContains(t, snap.Guessed, "C")
}

func TestRepeatGuessIsIdempotent(t *testing.T) {
	s := engine.NewSharedSession(catQuestion, nil)
	startGuessing(t, s)

	snap := s.GuessLetter('Z')
	assert.Equal(t, internal.MaxHealth-1, snap.Health)

	snap = s.GuessLetter('Z')
	assert.Equal(t, internal.MaxHealth-1, snap.Health, "repeated wrong guess costs nothing")
	assert.Len(t, snap.Guessed, 1)

	s.GuessLetter('C')
	snap = s.GuessLetter('C')
	assert.Len(t, snap.Guessed, 2)
}

func TestNonLetterGuessesIgnored(t *testing.T) {
	s := engine.NewSharedSession(catQuestion, nil)
	startGuessing(t, s)

	snap := s.GuessLetter('1')
	assert.Equal(t, internal.MaxHealth, snap.Health)
	snap = s.GuessLetter(' ')
	assert.Equal(t, internal.MaxHealth, snap.Health)
	assert.Empty(t, snap.Guessed)
}

func TestNonAlphabeticCharactersAlwaysVisible(t *testing.T) {
	q := internal.Question{Category: "Movies", Clue: "Pixar toys", Answer: "TOY STORY"}
	s := engine.NewSharedSession(q, nil)
	startGuessing(t, s)

	snap := s.Snapshot()
	assert.Equal(t, "___ _____", snap.MaskedWord, "the space never masks")

	for _, r := range "TOYSR" {
		snap = s.GuessLetter(r)
	}
	assert.Equal(t, engine.StateSolved, snap.State, "space does not block solving")
}

func TestRaceAdvancesWithHealthCarried(t *testing.T) {
	pool := []internal.Question{
		catQuestion,
		{Category: "Animals", Clue: "Man's best friend", Answer: "DOG"},
	}
	s, err := engine.NewSession(pool, engine.ModeRace, nil)
	require.NoError(t, err)
	startGuessing(t, s)

	first := s.Snapshot().RoundId
	s.GuessLetter('Z') // one wrong guess before solving

	// answers only show in terminal states; recover it from the clue
	answer := "DOG"
	if s.Snapshot().Clue == catQuestion.Clue {
		answer = "CAT"
	}
	snap := solveWord(t, s, answer)

	assert.Equal(t, engine.StateCountdown, snap.State, "race draws the next word itself")
	assert.Equal(t, 1, snap.Completed)
	assert.Equal(t, internal.MaxHealth-1, snap.Health, "health persists across words")
	assert.NotEqual(t, first, snap.RoundId)
}

func TestSessionCompletesAtTarget(t *testing.T) {
	awards := 0
	s, err := engine.NewSession([]internal.Question{catQuestion}, engine.ModeRace, func(string) { awards++ })
	require.NoError(t, err)

	var snap engine.Snapshot
	for i := 0; i < internal.SessionTarget; i++ {
		startGuessing(t, s)
		snap = solveWord(t, s, "CAT")
	}

	assert.Equal(t, engine.StateSessionComplete, snap.State)
	assert.Equal(t, internal.SessionTarget, snap.Completed)
	assert.Equal(t, internal.SessionTarget, awards)

	snap = s.GuessLetter('C')
	assert.Equal(t, engine.StateSessionComplete, snap.State, "no sixth word")
	assert.Equal(t, internal.SessionTarget, snap.Completed)
}

func TestPlayAgainResetsEverything(t *testing.T) {
	s, err := engine.NewSession([]internal.Question{catQuestion}, engine.ModeRace, nil)
	require.NoError(t, err)

	// run it down to failure with some health already gone
	startGuessing(t, s)
	for _, r := range "BDEFG" {
		s.GuessLetter(r)
	}
	require.Equal(t, engine.StateFailed, s.Snapshot().State)

	snap := s.PlayAgain()
	assert.Equal(t, engine.StateCountdown, snap.State)
	assert.Equal(t, internal.MaxHealth, snap.Health)
	assert.Equal(t, 0, snap.Completed)
	assert.Empty(t, snap.Guessed)
}

func TestPlayAgainOnlyFromTerminalStates(t *testing.T) {
	s := engine.NewSharedSession(catQuestion, nil)
	startGuessing(t, s)
	s.GuessLetter('C')

	snap := s.PlayAgain()
	assert.Equal(t, engine.StateGuessing, snap.State, "mid-round restart rejected")
	assert.Contains(t, snap.Guessed, "C")
}

func TestSharedSessionWaitsForAssignedWord(t *testing.T) {
	s := engine.NewSharedSession(catQuestion, nil)
	startGuessing(t, s)
	snap := solveWord(t, s, "CAT")
	require.Equal(t, engine.StateSolved, snap.State)

	// no auto-advance: guesses are parked until the host picks again
	snap = s.GuessLetter('D')
	assert.Equal(t, engine.StateSolved, snap.State)

	next := internal.Question{Category: "Animals", Clue: "Man's best friend", Answer: "DOG"}
	snap = s.AdoptAssigned(next)
	assert.Equal(t, engine.StateCountdown, snap.State)
	assert.Equal(t, 1, snap.Completed)
	assert.Equal(t, next.Clue, snap.Clue)
}

func TestAdoptAssignedRejectsSolvedWord(t *testing.T) {
	awards := 0
	s := engine.NewSharedSession(catQuestion, func(string) { awards++ })
	startGuessing(t, s)
	snap := solveWord(t, s, "CAT")
	require.Equal(t, engine.StateSolved, snap.State)
	require.Equal(t, 1, awards)

	// a join or leave echoes the room row with the word unchanged; that
	// echo must not restart the round
	snap = s.AdoptAssigned(catQuestion)
	assert.Equal(t, engine.StateSolved, snap.State)
	assert.Equal(t, 1, snap.Completed)

	snap = s.GuessLetter('C')
	assert.Equal(t, engine.StateSolved, snap.State)
	assert.Equal(t, 1, awards, "one solve awards exactly once")
}

func TestAdoptAssignedIgnoredMidRound(t *testing.T) {
	s := engine.NewSharedSession(catQuestion, nil)
	startGuessing(t, s)
	s.GuessLetter('C')

	snap := s.AdoptAssigned(internal.Question{Answer: "DOG"})
	assert.Equal(t, engine.StateGuessing, snap.State)
	assert.Equal(t, "C__", snap.MaskedWord, "in-flight round survives a stray event")
}
