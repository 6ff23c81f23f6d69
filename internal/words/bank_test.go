package words_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scythe504/hangparty-backend/internal"
	"github.com/scythe504/hangparty-backend/internal/words"
)

func writeBank(t *testing.T, csv string) *words.Bank {
	t.Helper()

	path := filepath.Join(t.TempDir(), "questions.csv")
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	bank, err := words.Load(path)
	require.NoError(t, err)
	return bank
}

func TestLoadNormalizesAnswers(t *testing.T) {
	bank := writeBank(t, "Animals,Purrs and naps, cat \nMovies,Pixar fish,finding nemo\n")

	animals := bank.Lookup("Animals")
	require.Len(t, animals, 1)
	assert.Equal(t, "CAT", animals[0].Answer, "answers stored uppercase, trimmed")

	movies := bank.Lookup("Movies")
	require.Len(t, movies, 1)
	assert.Equal(t, "FINDING NEMO", movies[0].Answer)
}

func TestLoadSkipsMalformedRecords(t *testing.T) {
	bank := writeBank(t, "Animals,Purrs and naps,cat\nbroken-line\n,missing category,dog\nAnimals,Barks,\n")

	assert.Len(t, bank.Lookup("Animals"), 1)
	assert.Equal(t, []string{"Animals"}, bank.AllCategories())
}

func TestLoadDefaultDataset(t *testing.T) {
	bank, err := words.Load("")
	require.NoError(t, err)
	assert.NotEmpty(t, bank.AllCategories())

	for _, category := range bank.AllCategories() {
		assert.NotEmpty(t, bank.Lookup(category))
	}
}

func TestQuestionsFlattensWhenUnscoped(t *testing.T) {
	bank := writeBank(t, "Animals,a,cat\nAnimals,b,dog\nFruits,c,apple\n")

	assert.Len(t, bank.Questions("Animals"), 2)
	assert.Len(t, bank.Questions(""), 3)
	assert.Empty(t, bank.Questions("Dinosaurs"))
	assert.True(t, bank.HasCategory("Fruits"))
	assert.False(t, bank.HasCategory("Dinosaurs"))
}

func TestPickRandomAvoidsImmediateRepeat(t *testing.T) {
	pool := []internal.Question{
		{Answer: "CAT"},
		{Answer: "DOG"},
	}

	for i := 0; i < 50; i++ {
		q, err := words.PickRandom(pool, "CAT")
		require.NoError(t, err)
		assert.Equal(t, "DOG", q.Answer)
	}
}

func TestPickRandomSingleQuestionRepeats(t *testing.T) {
	pool := []internal.Question{{Answer: "CAT"}}

	q, err := words.PickRandom(pool, "CAT")
	require.NoError(t, err)
	assert.Equal(t, "CAT", q.Answer, "a one-question pool has no alternative")
}

func TestPickRandomEmptyPool(t *testing.T) {
	_, err := words.PickRandom(nil, "")
	assert.ErrorIs(t, err, internal.ErrNoQuestionsAvailable)
}
