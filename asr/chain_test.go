package asr

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	Init(logrus.New())
	os.Exit(m.Run())
}

type fakeStrategy struct {
	text  string
	err   error
	calls int
}

func (f *fakeStrategy) Transcribe(ctx context.Context, audioPath string) (string, error) {
	f.calls++
	return f.text, f.err
}

func audioFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp3")
	require.NoError(t, os.WriteFile(path, []byte("not real audio"), 0644))
	return path
}

func TestChainShortCircuits(t *testing.T) {
	confident := &fakeStrategy{text: "anaa pia wayuu wanee watta maiki"}
	expensive := &fakeStrategy{text: "should never run"}

	chain, err := NewChain(0.6, confident, expensive)
	require.NoError(t, err)

	text, err := chain.Transcribe(context.Background(), audioFixture(t))
	require.NoError(t, err)
	assert.Equal(t, "anaa pia wayuu wanee watta maiki", text)
	assert.Equal(t, 1, confident.calls)
	// the high-confidence result made the second strategy unnecessary
	assert.Equal(t, 0, expensive.calls)
}

func TestChainFallsThroughOnLowConfidence(t *testing.T) {
	mumble := &fakeStrategy{text: "c!!!"} // post-processing mangles it, confidence stays low
	clear := &fakeStrategy{text: "anaa pia wayuu wanee watta maiki"}

	chain, err := NewChain(0.6, mumble, clear)
	require.NoError(t, err)

	text, err := chain.Transcribe(context.Background(), audioFixture(t))
	require.NoError(t, err)
	assert.Equal(t, "anaa pia wayuu wanee watta maiki", text)
	assert.Equal(t, 1, mumble.calls)
	assert.Equal(t, 1, clear.calls)
}

func TestChainReturnsBestWhenNoneClearsThreshold(t *testing.T) {
	better := &fakeStrategy{text: "zz"}
	worse := &fakeStrategy{text: "c!!!"}

	chain, err := NewChain(0.95, better, worse)
	require.NoError(t, err)

	text, err := chain.Transcribe(context.Background(), audioFixture(t))
	require.NoError(t, err)
	assert.Equal(t, "zz", text)
	assert.Equal(t, 1, better.calls)
	assert.Equal(t, 1, worse.calls)
}

func TestChainSkipsFailingStrategy(t *testing.T) {
	broken := &fakeStrategy{err: errors.New("model not loaded")}
	working := &fakeStrategy{text: "anaa pia wayuu wanee watta maiki"}

	chain, err := NewChain(0.6, broken, working)
	require.NoError(t, err)

	text, err := chain.Transcribe(context.Background(), audioFixture(t))
	require.NoError(t, err)
	assert.NotEmpty(t, text)
}

func TestChainAllStrategiesFail(t *testing.T) {
	a := &fakeStrategy{err: errors.New("down")}
	b := &fakeStrategy{err: errors.New("also down")}

	chain, err := NewChain(0.6, a, b)
	require.NoError(t, err)

	_, err = chain.Transcribe(context.Background(), audioFixture(t))
	var transErr *TranscriptionError
	require.ErrorAs(t, err, &transErr)
	assert.Contains(t, err.Error(), "all strategies failed")
}

func TestChainMissingFile(t *testing.T) {
	s := &fakeStrategy{text: "anything"}
	chain, err := NewChain(0.6, s)
	require.NoError(t, err)

	_, err = chain.Transcribe(context.Background(), filepath.Join(t.TempDir(), "nope.mp3"))
	var transErr *TranscriptionError
	require.ErrorAs(t, err, &transErr)
	assert.Equal(t, 0, s.calls)
}

func TestNewChainRequiresStrategies(t *testing.T) {
	_, err := NewChain(0.6)
	require.ErrorIs(t, err, ErrNoStrategies)
}

func TestFromConfig(t *testing.T) {
	tr, err := FromConfig(Config{Provider: "stub"})
	require.NoError(t, err)
	assert.IsType(t, &Stub{}, tr)

	tr, err = FromConfig(Config{Provider: "whisper", WhisperModel: "small"})
	require.NoError(t, err)
	assert.IsType(t, &LocalWhisper{}, tr)

	_, err = FromConfig(Config{Provider: "openai"})
	require.Error(t, err) // key is mandatory

	tr, err = FromConfig(Config{
		Provider: "wayuu", OpenAIAPIKey: "sk-test", WhisperModel: "small", ConfidenceThreshold: 0.6,
	})
	require.NoError(t, err)
	chain, ok := tr.(*Chain)
	require.True(t, ok)
	assert.Equal(t, 2, chain.StrategyCount())

	_, err = FromConfig(Config{Provider: "wayuu"})
	require.ErrorIs(t, err, ErrNoStrategies)

	_, err = FromConfig(Config{Provider: "bogus"})
	require.Error(t, err)
}
