package translation

import (
	"context"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"wayuu-ingest/database"
)

// DictionaryEntry is one wayuunaiki-Spanish word pair.
type DictionaryEntry struct {
	gorm.Model
	Wayuu   string `gorm:"index"`
	Spanish string `gorm:"index"`
}

// Unicode classes, not \w: both languages carry accented letters.
var punctRe = regexp.MustCompile(`[^\p{L}\p{N}\-']`)

// DictionaryTranslator translates word by word against the dictionary
// table. Words without an entry pass through unchanged; confidence is
// the fraction of words that had one.
type DictionaryTranslator struct{}

func NewDictionaryTranslator() *DictionaryTranslator {
	return &DictionaryTranslator{}
}

func (t *DictionaryTranslator) Translate(ctx context.Context, text string, direction Direction) (Result, error) {
	words := strings.Fields(strings.TrimSpace(text))
	if len(words) == 0 {
		return Result{}, ErrEmptyText
	}

	db := database.Get().WithContext(ctx)

	matched := 0
	out := make([]string, len(words))
	for i, word := range words {
		key := punctRe.ReplaceAllString(strings.ToLower(word), "")
		if key == "" {
			out[i] = word
			continue
		}

		var entry DictionaryEntry
		var err error
		switch direction {
		case SpanishToWayuu:
			err = db.Where("spanish = ?", key).First(&entry).Error
		default:
			err = db.Where("wayuu = ?", key).First(&entry).Error
		}

		if err != nil {
			out[i] = word
			continue
		}

		matched++
		if direction == SpanishToWayuu {
			out[i] = entry.Wayuu
		} else {
			out[i] = entry.Spanish
		}
	}

	result := Result{
		TranslatedText: strings.Join(out, " "),
		Confidence:     float64(matched) / float64(len(words)),
	}
	log.Debugf("translated %d/%d words (%s)", matched, len(words), direction)
	return result, nil
}

// SeedDictionary inserts entries that are not present yet. Used at
// startup to guarantee a minimal working dictionary.
func SeedDictionary(entries []DictionaryEntry) error {
	db := database.Get()
	for _, entry := range entries {
		var count int64
		if err := db.Model(&DictionaryEntry{}).
			Where("wayuu = ?", entry.Wayuu).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			if err := db.Create(&entry).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// BaseDictionary is a small starter set so a fresh install can
// translate common words before a full dictionary import.
var BaseDictionary = []DictionaryEntry{
	{Wayuu: "wayuu", Spanish: "persona"},
	{Wayuu: "anaa", Spanish: "aquí"},
	{Wayuu: "pia", Spanish: "tú"},
	{Wayuu: "taya", Spanish: "yo"},
	{Wayuu: "wane", Spanish: "uno"},
	{Wayuu: "maiki", Spanish: "maíz"},
	{Wayuu: "jia", Spanish: "ustedes"},
	{Wayuu: "watta", Spanish: "mañana"},
	{Wayuu: "anasü", Spanish: "bueno"},
	{Wayuu: "süchon", Spanish: "hijo"},
	{Wayuu: "ekirajaa", Spanish: "enseñar"},
	{Wayuu: "ekirajüin", Spanish: "maestro"},
}
