package producer

import (
	"context"
	"fmt"
	"log"

	"github.com/pravoguard/contentguard/internal/engine"
)

// Candidate is one draft post a source proposes for publication.
type Candidate struct {
	Title  string
	Body   string
	Topic  string // lead topic used for cooldown blocking; title when empty
	Source string
}

// Source supplies candidates. Next returns (nil, nil) when exhausted.
type Source interface {
	Next(ctx context.Context) (*Candidate, error)
}

// Publisher receives the post that won validation (or the fallback).
type Publisher func(title, body string) error

// Runner is the producer-side retry loop: draw a candidate, validate it,
// on rejection cool down the topic and draw again, and after exhausting
// attempts publish a pre-approved fallback without re-validating it. The
// fallback is a deliberate safety valve so a run never stalls forever.
type Runner struct {
	Engine      *engine.Engine
	Source      Source
	Publish     Publisher
	ContentType string
	ProducerID  string
	MaxAttempts int
	BlockHours  int
	Fallbacks   []string
	DryRun      bool // peek with CheckUniqueness, never register or publish
}

// Result summarizes one publish attempt cycle.
type Result struct {
	Attempts     int
	Published    bool
	UsedFallback bool
	Title        string
	Rejections   []string
}

// PublishOne runs the retry loop until a candidate is accepted, the source
// runs dry, or MaxAttempts is exhausted.
func (r *Runner) PublishOne(ctx context.Context) (*Result, error) {
	maxAttempts := r.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 12
	}

	result := &Result{}
	for result.Attempts < maxAttempts {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		candidate, err := r.Source.Next(ctx)
		if err != nil {
			return result, fmt.Errorf("drawing candidate: %w", err)
		}
		if candidate == nil {
			log.Printf("source exhausted after %d attempts", result.Attempts)
			break
		}
		result.Attempts++

		accepted, reason := r.validate(candidate)
		if accepted {
			result.Published = true
			result.Title = candidate.Title
			if r.DryRun {
				log.Printf("[dry-run] would publish: %s", candidate.Title)
				return result, nil
			}
			if err := r.publish(candidate.Title, candidate.Body); err != nil {
				return result, fmt.Errorf("publishing %q: %w", candidate.Title, err)
			}
			log.Printf("published: %s (attempt %d)", candidate.Title, result.Attempts)
			return result, nil
		}

		result.Rejections = append(result.Rejections, reason)
		log.Printf("rejected %q: %s", candidate.Title, reason)

		topic := candidate.Topic
		if topic == "" {
			topic = candidate.Title
		}
		if !r.DryRun {
			if err := r.Engine.BlockTopicTemporarily(topic, "rejected as duplicate, cooling down", r.BlockHours); err != nil {
				// Blocking is advisory; a failed block never stops the loop.
				log.Printf("could not block topic %q: %v", topic, err)
			}
		}
	}

	return r.fallback(result)
}

func (r *Runner) validate(c *Candidate) (bool, string) {
	if r.DryRun {
		unique, reason, _ := r.Engine.CheckUniqueness(c.Title, c.Body, r.ContentType, r.ProducerID)
		return unique, reason
	}
	return r.Engine.ValidateAndRegister(c.Title, c.Body, r.ContentType, r.ProducerID)
}

// fallback publishes a generic pre-approved post without validating it.
// Uniqueness is not proven for this publish; that is logged, not hidden.
func (r *Runner) fallback(result *Result) (*Result, error) {
	if len(r.Fallbacks) == 0 {
		return result, nil
	}

	body := r.Fallbacks[len(result.Rejections)%len(r.Fallbacks)]
	result.Published = true
	result.UsedFallback = true
	result.Title = "Legal tip of the day"

	log.Printf("exhausted %d attempts, publishing fallback (uniqueness not verified)", result.Attempts)
	if r.DryRun {
		return result, nil
	}
	if err := r.publish(result.Title, body); err != nil {
		return result, fmt.Errorf("publishing fallback: %w", err)
	}
	return result, nil
}

func (r *Runner) publish(title, body string) error {
	if r.Publish == nil {
		return nil
	}
	return r.Publish(title, body)
}
