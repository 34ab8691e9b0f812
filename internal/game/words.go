package game

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sort"
)

var (
	ErrNotEnoughWords   = errors.New("not enough words left to choose from")
	ErrWordNotAvailable = errors.New("word is not available or already picked")
)

// WordManager hands out non-repeating random word options for a single game.
// The invariant available ∪ used = full pool and available ∩ used = ∅ holds
// after every operation; callers provide their own synchronization (the room
// lock).
type WordManager struct {
	fullPool  []string
	available map[string]struct{}
	used      map[string]struct{}
	rng       *rand.Rand
}

func NewWordManager(words []string, rng *rand.Rand) *WordManager {
	wm := &WordManager{
		fullPool:  append([]string(nil), words...),
		available: make(map[string]struct{}, len(words)),
		used:      make(map[string]struct{}),
		rng:       rng,
	}
	for _, w := range words {
		wm.available[w] = struct{}{}
	}
	return wm
}

// GetWordOptions uniformly samples count distinct words from the available
// pool. It fails rather than offering duplicates when fewer than count
// remain.
func (wm *WordManager) GetWordOptions(count int) ([]string, error) {
	if len(wm.available) < count {
		return nil, fmt.Errorf("%w: want %d, have %d", ErrNotEnoughWords, count, len(wm.available))
	}

	// Sorted snapshot so sampling is reproducible under a seeded rng.
	pool := make([]string, 0, len(wm.available))
	for w := range wm.available {
		pool = append(pool, w)
	}
	sort.Strings(pool)

	wm.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool[:count], nil
}

// PickWord commits a word for the current turn, moving it from available to
// used. Picking a word that is not currently available is an error and
// leaves both sets untouched.
func (wm *WordManager) PickWord(word string) error {
	if _, ok := wm.available[word]; !ok {
		return fmt.Errorf("%w: %q", ErrWordNotAvailable, word)
	}
	delete(wm.available, word)
	wm.used[word] = struct{}{}
	return nil
}

// Reset restores the full pool; used only when a new game instance starts.
func (wm *WordManager) Reset() {
	wm.used = make(map[string]struct{})
	wm.available = make(map[string]struct{}, len(wm.fullPool))
	for _, w := range wm.fullPool {
		wm.available[w] = struct{}{}
	}
}

// Remaining reports how many words are still available this game.
func (wm *WordManager) Remaining() int {
	return len(wm.available)
}

// DrawableWords is the built-in pool of words simple enough to sketch.
var DrawableWords = []string{
	"apple", "car", "house", "dog", "cat", "tree", "sun", "moon", "boat",
	"phone", "computer", "bottle", "ball", "shoe", "glasses", "hat", "fish",
	"star", "book", "key", "chair", "door", "table", "bed", "pencil", "cup",
	"cake", "camera", "broom", "toothbrush", "ice cream", "pizza", "burger",
	"lamp", "watch", "radio", "guitar", "drum", "violin", "airplane",
	"train", "bus", "truck", "bicycle", "tent", "flag", "ladder", "hammer",
	"cloud", "snowman",
}

// LoadWordsCSV reads a replacement word pool from a CSV file, one word in
// the first column of each row. Invalid rows are skipped with a log line.
func LoadWordsCSV(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open words file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse words file %s: %w", path, err)
	}

	var words []string
	for _, record := range records {
		if len(record) == 0 || record[0] == "" {
			log.Printf("[LoadWordsCSV] skipping invalid record: %v", record)
			continue
		}
		words = append(words, record[0])
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("words file %s contains no usable words", path)
	}
	return words, nil
}
