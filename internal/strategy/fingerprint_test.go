// AngelaMos | 2026
// fingerprint_test.go

package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func baseRequest() *GenerateStrategyRequest {
	return &GenerateStrategyRequest{
		Goal:        "Grow my newsletter to ten thousand subscribers",
		Audience:    "Indie makers and bootstrapped founders",
		Industry:    "SaaS",
		Platform:    "LinkedIn",
		ContentType: "Mixed Content",
		Experience:  "beginner",
		Mode:        ModeConservative,
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint(baseRequest())
	b := Fingerprint(baseRequest())
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestFingerprintSensitiveToEachInput(t *testing.T) {
	base := Fingerprint(baseRequest())

	mutations := map[string]func(*GenerateStrategyRequest){
		"goal":         func(r *GenerateStrategyRequest) { r.Goal = "Grow my podcast audience instead" },
		"audience":     func(r *GenerateStrategyRequest) { r.Audience = "Enterprise CTOs" },
		"industry":     func(r *GenerateStrategyRequest) { r.Industry = "Fintech" },
		"platform":     func(r *GenerateStrategyRequest) { r.Platform = "TikTok" },
		"content_type": func(r *GenerateStrategyRequest) { r.ContentType = "Video" },
		"experience":   func(r *GenerateStrategyRequest) { r.Experience = "advanced" },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			req := baseRequest()
			mutate(req)
			assert.NotEqual(t, base, Fingerprint(req))
		})
	}
}

func TestFingerprintIgnoresMode(t *testing.T) {
	conservative := baseRequest()

	aggressive := baseRequest()
	aggressive.Mode = ModeAggressive

	assert.Equal(t, Fingerprint(conservative), Fingerprint(aggressive))
}

func TestFingerprintCanonicalizesCaseAndWhitespace(t *testing.T) {
	shouty := baseRequest()
	shouty.Goal = "  GROW MY NEWSLETTER TO TEN THOUSAND SUBSCRIBERS "
	shouty.Platform = "linkedin"

	assert.Equal(t, Fingerprint(baseRequest()), Fingerprint(shouty))
}

func TestFingerprintMatchesNormalizedDefaults(t *testing.T) {
	sparse := &GenerateStrategyRequest{
		Goal:     "Grow my newsletter to ten thousand subscribers",
		Audience: "Indie makers and bootstrapped founders",
		Industry: "SaaS",
		Platform: "LinkedIn",
	}
	sparse.Normalize()

	assert.Equal(t, Fingerprint(baseRequest()), Fingerprint(sparse))
}
