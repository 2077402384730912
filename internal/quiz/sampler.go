package quiz

import (
	"fmt"
	"math/rand"
	"time"
)

type CategoryQuota struct {
	Name  string `json:"name" mapstructure:"name"`
	Quota int    `json:"quota" mapstructure:"quota"`
}

// DefaultQuotas is the PL-300 practice exam split.
func DefaultQuotas() []CategoryQuota {
	return []CategoryQuota{
		{Name: "Prepare the data", Quota: 12},
		{Name: "Model the data", Quota: 10},
		{Name: "PBI Service", Quota: 12},
		{Name: "Visualization", Quota: 6},
	}
}

type SampleOptions struct {
	Rand *rand.Rand
	// Shuffle mixes the whole sample; otherwise categories stay grouped in quota order.
	Shuffle bool
	// Strict fails when a category has fewer questions than its quota.
	Strict bool
}

// Sample draws min(quota, available) questions per category without
// replacement. Questions from categories without a quota are never drawn, and
// a category listed twice only draws from what the first entry left.
func Sample(pool []Question, quotas []CategoryQuota, opts SampleOptions) ([]Question, error) {
	r := opts.Rand
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	byCategory := make(map[string][]Question, len(quotas))
	for _, question := range pool {
		byCategory[question.Category] = append(byCategory[question.Category], question)
	}

	sample := make([]Question, 0, totalQuota(quotas))
	drawn := make(map[string]struct{}, totalQuota(quotas))
	for _, quota := range quotas {
		var available []Question
		for _, question := range byCategory[quota.Name] {
			if _, ok := drawn[question.Text]; !ok {
				available = append(available, question)
			}
		}
		if opts.Strict && len(available) < quota.Quota {
			return nil, fmt.Errorf("%w: %q has %d of %d", ErrCategoryUnderflow, quota.Name, len(available), quota.Quota)
		}

		count := quota.Quota
		if count > len(available) {
			count = len(available)
		}
		if count <= 0 {
			continue
		}

		for _, idx := range r.Perm(len(available))[:count] {
			sample = append(sample, available[idx])
			drawn[available[idx].Text] = struct{}{}
		}
	}

	if opts.Shuffle {
		r.Shuffle(len(sample), func(i, j int) {
			sample[i], sample[j] = sample[j], sample[i]
		})
	}
	return sample, nil
}

func totalQuota(quotas []CategoryQuota) int {
	total := 0
	for _, quota := range quotas {
		if quota.Quota > 0 {
			total += quota.Quota
		}
	}
	return total
}
