// Package translate chains calls to external detection and translation
// providers. Multi-hop relaying between providers is an internal
// concern: callers only ever see (text, from, to) -> translated text.
package translate

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Provider translates text between two languages in a single request.
type Provider interface {
	Translate(ctx context.Context, text, from, to string) (string, error)
}

// Detector identifies the language of a piece of text.
type Detector interface {
	Detect(ctx context.Context, text string) (string, error)
}

// Service is the translation surface the relay exposes to the server.
type Service interface {
	Translate(ctx context.Context, text, from, to string) (string, error)
	Detect(ctx context.Context, text string) (string, error)
}

// Relay routes each translation through one or more intermediate hops.
// Korean/Japanese hops go to the Naver-style provider, everything else
// to the Microsoft-style provider, mirroring which provider handles
// which pair best.
type Relay struct {
	ms       Provider
	naver    Provider
	detector Detector
	timeout  time.Duration
	log      *log.Logger
}

func NewRelay(ms Provider, naver Provider, detector Detector, timeout time.Duration, logger *log.Logger) *Relay {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Relay{
		ms:       ms,
		naver:    naver,
		detector: detector,
		timeout:  timeout,
		log:      logger,
	}
}

type hop struct {
	from string
	to   string
}

// route computes the hop chain for a translation. Korean text goes
// ko -> ja -> en -> target; text headed for Korean goes
// source -> en -> ja -> ko. Everything else is a single hop.
func route(from, to string) []hop {
	if from == to {
		return nil
	}

	if (from == "ko" && to == "ja") || (from == "ja" && to == "ko") {
		return []hop{{from, to}}
	}

	if from == "ko" {
		if to == "en" {
			return []hop{{"ko", "ja"}, {"ja", "en"}}
		}
		return []hop{{"ko", "ja"}, {"ja", "en"}, {"en", to}}
	}

	if to == "ko" {
		if from == "en" {
			return []hop{{"en", "ja"}, {"ja", "ko"}}
		}
		return []hop{{from, "en"}, {"en", "ja"}, {"ja", "ko"}}
	}

	return []hop{{from, to}}
}

func (r *Relay) providerFor(h hop) Provider {
	if (h.from == "ko" && h.to == "ja") || (h.from == "ja" && h.to == "ko") {
		return r.naver
	}
	return r.ms
}

func (r *Relay) Translate(ctx context.Context, text, from, to string) (string, error) {
	result := text
	for _, h := range route(from, to) {
		hopCtx, cancel := context.WithTimeout(ctx, r.timeout)
		translated, err := r.providerFor(h).Translate(hopCtx, result, h.from, h.to)
		cancel()
		if err != nil {
			return "", fmt.Errorf("translate %s to %s: %w", h.from, h.to, err)
		}

		result = translated
	}

	return result, nil
}

func (r *Relay) Detect(ctx context.Context, text string) (string, error) {
	detectCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	lang, err := r.detector.Detect(detectCtx, text)
	if err != nil {
		return "", fmt.Errorf("detect language: %w", err)
	}

	return lang, nil
}
