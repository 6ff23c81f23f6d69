package words

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"io"
	"log"
	"math/rand"
	"os"
	"sort"
	"strings"

	"github.com/scythe504/hangparty-backend/internal"
)

//go:embed data/questions.csv
var defaultQuestions []byte

// Bank is the static category -> {clue, answer} lookup table. It is built
// once at startup and read-only afterwards, so no locking is needed.
type Bank struct {
	byCategory map[string][]internal.Question
}

// Load reads a question bank from a CSV file with category,clue,answer
// records. An empty path falls back to the embedded default dataset.
func Load(filePath string) (*Bank, error) {
	if filePath == "" {
		return parse(bytes.NewReader(defaultQuestions))
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return parse(f)
}

func parse(r io.Reader) (*Bank, error) {
	csvReader := csv.NewReader(r)
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, err
	}

	bank := &Bank{byCategory: make(map[string][]internal.Question)}

	for _, record := range records {
		if len(record) < 3 {
			log.Println("[words.Load] Skipping invalid record:", record)
			continue
		}

		category := strings.TrimSpace(record[0])
		clue := strings.TrimSpace(record[1])
		answer := strings.ToUpper(strings.TrimSpace(record[2]))

		if category == "" || answer == "" {
			log.Println("[words.Load] Skipping record with empty fields:", record)
			continue
		}

		bank.byCategory[category] = append(bank.byCategory[category], internal.Question{
			Category: category,
			Clue:     clue,
			Answer:   answer,
		})
	}

	return bank, nil
}

// Lookup returns the questions of one category. The returned slice is shared
// and must not be mutated.
func (b *Bank) Lookup(category string) []internal.Question {
	return b.byCategory[category]
}

// AllCategories returns category names in sorted order.
func (b *Bank) AllCategories() []string {
	categories := make([]string, 0, len(b.byCategory))
	for category := range b.byCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	return categories
}

func (b *Bank) HasCategory(category string) bool {
	_, ok := b.byCategory[category]
	return ok
}

// Questions returns the pool a room draws from: one category when set,
// every category flattened otherwise.
func (b *Bank) Questions(category string) []internal.Question {
	if category != "" {
		return b.byCategory[category]
	}

	var all []internal.Question
	for _, name := range b.AllCategories() {
		all = append(all, b.byCategory[name]...)
	}
	return all
}

// PickRandom draws a uniformly random question from the pool, avoiding an
// immediate repeat of prevAnswer when more than one candidate exists.
func PickRandom(pool []internal.Question, prevAnswer string) (internal.Question, error) {
	if len(pool) == 0 {
		return internal.Question{}, internal.ErrNoQuestionsAvailable
	}

	idx := rand.Intn(len(pool))
	if len(pool) > 1 && pool[idx].Answer == prevAnswer {
		idx = (idx + 1) % len(pool)
	}

	return pool[idx], nil
}
