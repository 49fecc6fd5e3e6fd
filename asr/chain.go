package asr

import (
	"context"
	"errors"
	"fmt"
	"os"
)

var ErrNoStrategies = errors.New("asr chain needs at least one strategy")

// Chain is the dialect-optimized composite transcriber. It tries each
// strategy in order, post-processes the raw text, and estimates a
// confidence score; the first result at or above the threshold wins,
// which avoids calls to the later, more expensive strategies. If no
// result clears the bar, the highest-confidence one is returned.
type Chain struct {
	strategies []Transcriber
	threshold  float64
	mappings   []PhoneticMapping
	vocab      []string
}

func NewChain(threshold float64, strategies ...Transcriber) (*Chain, error) {
	if len(strategies) == 0 {
		return nil, ErrNoStrategies
	}
	if threshold <= 0 {
		threshold = 0.6
	}
	return &Chain{
		strategies: strategies,
		threshold:  threshold,
		mappings:   WayuuPhoneticMappings,
		vocab:      WayuuVocabulary,
	}, nil
}

type chainResult struct {
	text       string
	confidence float64
	strategy   string
}

func (c *Chain) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return "", &TranscriptionError{Path: audioPath, Err: err}
	}

	var results []chainResult
	var lastErr error

	for i, strategy := range c.strategies {
		name := fmt.Sprintf("%T", strategy)
		log.Infof("attempt %d/%d with %s", i+1, len(c.strategies), name)

		raw, err := strategy.Transcribe(ctx, audioPath)
		if err != nil {
			// a failing strategy is skipped, not fatal to the chain
			log.Warnf("%s failed: %v", name, err)
			lastErr = err
			continue
		}

		processed := PostProcess(raw, c.mappings, c.vocab)
		confidence := EstimateConfidence(processed, raw, c.vocab)
		results = append(results, chainResult{text: processed, confidence: confidence, strategy: name})

		log.Infof("%s confidence: %.2f", name, confidence)
		if confidence >= c.threshold {
			return processed, nil
		}
	}

	if len(results) > 0 {
		best := results[0]
		for _, r := range results[1:] {
			if r.confidence > best.confidence {
				best = r
			}
		}
		log.Infof("no strategy reached %.2f, using best result from %s (%.2f)",
			c.threshold, best.strategy, best.confidence)
		return best.text, nil
	}

	return "", &TranscriptionError{
		Path: audioPath,
		Err:  fmt.Errorf("all strategies failed: %w", lastErr),
	}
}

// StrategyCount is exposed for the ASR configuration report.
func (c *Chain) StrategyCount() int {
	return len(c.strategies)
}
