package translation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"wayuu-ingest/database"
)

func TestMain(m *testing.M) {
	Init(logrus.New())

	dir, err := os.MkdirTemp("", "dict")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)

	db, err := gorm.Open(sqlite.Open(filepath.Join(dir, "dict.db")), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		panic(err)
	}
	if err := db.AutoMigrate(&DictionaryEntry{}); err != nil {
		panic(err)
	}
	database.Init(db, logrus.New())

	if err := SeedDictionary(BaseDictionary); err != nil {
		panic(err)
	}

	os.Exit(m.Run())
}

func TestTranslateWayuuToSpanish(t *testing.T) {
	tr := NewDictionaryTranslator()

	result, err := tr.Translate(context.Background(), "anaa pia", WayuuToSpanish)
	require.NoError(t, err)
	assert.Equal(t, "aquí tú", result.TranslatedText)
	assert.Equal(t, 1.0, result.Confidence)

	// accented entries must survive the lookup normalization
	result, err = tr.Translate(context.Background(), "anasü", WayuuToSpanish)
	require.NoError(t, err)
	assert.Equal(t, "bueno", result.TranslatedText)
}

func TestTranslateSpanishToWayuu(t *testing.T) {
	tr := NewDictionaryTranslator()

	result, err := tr.Translate(context.Background(), "maíz", SpanishToWayuu)
	require.NoError(t, err)
	assert.Equal(t, "maiki", result.TranslatedText)
}

func TestUnknownWordsPassThrough(t *testing.T) {
	tr := NewDictionaryTranslator()

	result, err := tr.Translate(context.Background(), "anaa zzz pia", WayuuToSpanish)
	require.NoError(t, err)
	assert.Equal(t, "aquí zzz tú", result.TranslatedText)
	assert.InDelta(t, 2.0/3.0, result.Confidence, 1e-9)
}

func TestPunctuationIgnoredForLookup(t *testing.T) {
	tr := NewDictionaryTranslator()

	result, err := tr.Translate(context.Background(), "Anaa, pia!", WayuuToSpanish)
	require.NoError(t, err)
	assert.Equal(t, "aquí tú", result.TranslatedText)
}

func TestEmptyTextRejected(t *testing.T) {
	tr := NewDictionaryTranslator()

	_, err := tr.Translate(context.Background(), "   ", WayuuToSpanish)
	require.ErrorIs(t, err, ErrEmptyText)
}

func TestSeedIsIdempotent(t *testing.T) {
	require.NoError(t, SeedDictionary(BaseDictionary))

	var count int64
	require.NoError(t, database.Get().Model(&DictionaryEntry{}).
		Where("wayuu = ?", "wayuu").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
