package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"styleforge/internal/domain"
	"styleforge/internal/infra"
	"styleforge/internal/observability"
	"styleforge/internal/providers/image"
	"styleforge/internal/style"
)

// DefaultImageCount is the number of options produced per generation request.
const DefaultImageCount = 3

// Orchestrator tries adapters for a capability in a fixed priority order and
// returns the first success. Adapter failures never abort the loop; only
// exhausting the whole list fails the operation.
type Orchestrator struct {
	lists  map[image.Capability][]image.Adapter
	logger infra.Logger
}

func New(lists map[image.Capability][]image.Adapter, logger infra.Logger) *Orchestrator {
	return &Orchestrator{lists: lists, logger: logger}
}

// Resolve tries each adapter registered for the capability in order. Adapters
// reporting missing credentials are skipped silently; any other failure is
// logged and the next adapter is tried. When every adapter has failed the
// aggregate error wraps domain.ErrAllProvidersFailed.
func (o *Orchestrator) Resolve(ctx context.Context, cap image.Capability, req image.Request) (*image.Result, error) {
	adapters := o.lists[cap]
	if len(adapters) == 0 {
		return nil, fmt.Errorf("%w: no adapters registered for %s", domain.ErrAllProvidersFailed, cap)
	}

	var failures []string
	for _, adapter := range adapters {
		start := time.Now()
		res, err := o.attempt(ctx, adapter, cap, req)
		if err == nil && res != nil && strings.TrimSpace(res.URL) != "" {
			observability.ProviderAttempts.WithLabelValues(adapter.Name(), "success").Inc()
			observability.ProviderCallDuration.WithLabelValues(adapter.Name(), string(cap)).Observe(time.Since(start).Seconds())
			return res, nil
		}
		if err == nil {
			err = errors.New("adapter returned success without an asset url")
		}
		if errors.Is(err, image.ErrUnavailable) {
			o.logger.Debug().Str("provider", adapter.Name()).Str("capability", string(cap)).Msg("orchestrator: provider unavailable, skipping")
			observability.ProviderAttempts.WithLabelValues(adapter.Name(), "unavailable").Inc()
			continue
		}
		o.logger.Warn().Err(err).Str("provider", adapter.Name()).Str("capability", string(cap)).Msg("orchestrator: provider attempt failed")
		observability.ProviderAttempts.WithLabelValues(adapter.Name(), "failure").Inc()
		failures = append(failures, fmt.Sprintf("%s: %v", adapter.Name(), err))
	}

	if len(failures) == 0 {
		return nil, fmt.Errorf("%w: no provider configured for %s", domain.ErrAllProvidersFailed, cap)
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrAllProvidersFailed, strings.Join(failures, "; "))
}

// attempt isolates a single adapter call so a panicking adapter cannot take
// down the fallback loop.
func (o *Orchestrator) attempt(ctx context.Context, adapter image.Adapter, cap image.Capability, req image.Request) (res *image.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("adapter panic: %v", r)
		}
	}()
	return adapter.Attempt(ctx, cap, req)
}

// GenerateOutput carries the produced images together with the composed
// prompt they were all generated from.
type GenerateOutput struct {
	Results        []image.Result
	Prompt         string
	NegativePrompt string
}

// Generate produces count images for a style. The prompt and negative prompt
// are composed exactly once and the identical composed request text is reused
// for every adapter attempt of every image in this call. The count
// invocations run sequentially; results are not deduplicated by URL since
// identical URLs may still be distinct provider invocations.
func (o *Orchestrator) Generate(ctx context.Context, profile *domain.StyleProfile, userText, requestID string, count int) (*GenerateOutput, error) {
	if count <= 0 {
		count = DefaultImageCount
	}
	master := ""
	if profile.MasterPrompt != nil {
		master = *profile.MasterPrompt
	}
	prompt, negative := style.BuildGenerationPrompt(master, userText, profile.Settings.NegativePrompts)

	out := &GenerateOutput{Prompt: prompt, NegativePrompt: negative}
	for i := 0; i < count; i++ {
		req := image.Request{
			Prompt:         prompt,
			NegativePrompt: negative,
			Seed:           DeterministicSeed(requestID, i),
			RequestID:      requestID,
		}
		res, err := o.Resolve(ctx, image.CapabilityGenerate, req)
		if err != nil {
			return nil, fmt.Errorf("image %d of %d: %w", i+1, count, err)
		}
		out.Results = append(out.Results, *res)
	}
	return out, nil
}

// DeterministicSeed derives a stable positive seed from the request id and
// image index, so a retried job reproduces the same per-image seeds.
func DeterministicSeed(requestID string, index int) int {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d", requestID, index)))
	n := binary.BigEndian.Uint32(sum[:4]) % 2147483647
	if n == 0 {
		n = 1
	}
	return int(n)
}
