package agents

import (
	"context"

	"github.com/BaSui01/canvasflow/types"
)

// builtinAgent wraps a canned result generator. The builtin agents answer
// deterministically regardless of input, which keeps local development and
// tests reproducible without a model backend.
type builtinAgent struct {
	agentType types.AgentType
	produce   func(input string) map[string]any
}

func (a *builtinAgent) Type() types.AgentType { return a.agentType }

func (a *builtinAgent) Run(ctx context.Context, input string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return a.produce(input), nil
}

func builtinAgents() []Agent {
	return []Agent{
		&builtinAgent{agentType: types.AgentStrategy, produce: strategyResult},
		&builtinAgent{agentType: types.AgentCopywriting, produce: copywritingResult},
		&builtinAgent{agentType: types.AgentVisual, produce: visualResult},
		&builtinAgent{agentType: types.AgentResearch, produce: researchResult},
		&builtinAgent{agentType: types.AgentMedia, produce: mediaResult},
	}
}

func strategyResult(input string) map[string]any {
	return map[string]any{
		"core_concept":    "Eco-friendly lifestyle brand positioning",
		"tagline":         "Brew Better, Live Better",
		"target_audience": "Environmentally conscious Gen Z and Millennials",
		"key_messages": []any{
			"Sustainable sourcing",
			"Zero waste packaging",
			"Community impact",
		},
		"tone":     "Authentic, energetic, and purpose-driven",
		"channels": []any{"Instagram", "TikTok", "LinkedIn"},
	}
}

func copywritingResult(input string) map[string]any {
	return map[string]any{
		"captions": []any{
			"🌱 Every cup tells a story. What's yours? #SustainableLiving",
			"☕ Good vibes only. Better coffee always. Join the movement! 🌍",
			"Your daily ritual just got an upgrade. ✨ Sustainable. Delicious. Ethical.",
		},
		"cta":      "Shop Now & Save The Planet",
		"hashtags": "#EcoFriendly #SustainableCoffee #GreenLiving",
	}
}

func visualResult(input string) map[string]any {
	return map[string]any{
		"image_concepts": []any{
			"Hero shot: Coffee cup with lush green background",
			"Lifestyle: Young professional enjoying coffee outdoors",
			"Product flat lay: Coffee bag with eco-friendly elements",
		},
		"color_palette": []any{"#2D5016", "#8DB600", "#F4E4C1", "#6B4423"},
		"style":         "Natural, warm, Instagram-worthy",
		"status":        "Concepts ready for generation",
	}
}

func researchResult(input string) map[string]any {
	return map[string]any{
		"trends": []any{
			"Sustainability is the #1 purchase driver for Gen Z",
			"Video content gets 5x more engagement",
			"User-generated content builds trust",
		},
		"competitors": []any{"Blue Bottle", "Death Wish Coffee", "Verve Coffee"},
		"influencers": []any{
			"@sustainablesam (120K followers)",
			"@ecofriendlyliving (85K followers)",
		},
		"best_posting_times": []any{"7-9 AM", "12-1 PM", "7-9 PM"},
	}
}

func mediaResult(input string) map[string]any {
	return map[string]any{
		"schedule": []any{
			map[string]any{"date": "2025-10-15", "platform": "Instagram", "content": "Launch post"},
			map[string]any{"date": "2025-10-16", "platform": "TikTok", "content": "Behind the scenes"},
			map[string]any{"date": "2025-10-17", "platform": "Instagram", "content": "User testimonial"},
		},
		"budget_allocation": map[string]any{
			"Instagram Ads":           "40%",
			"TikTok Ads":              "30%",
			"Influencer Partnerships": "20%",
			"Content Creation":        "10%",
		},
		"kpis": []any{"Reach: 100K", "Engagement: 5%", "Conversions: 1000"},
	}
}
