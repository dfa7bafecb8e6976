package vision

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/supplierstudio/studio-api/internal/product"
)

// ScenePrompt is the instruction for turning a product photo into a
// text-to-video scene description for a short ad clip.
const ScenePrompt = `You are a creative director for a video ad generation tool used in an e-commerce seller platform.

Given an image of a product, write a visually rich, aspirational, and emotionally engaging scene that can be used to generate an 8-second short video ad creative.

Take extra care to preserve all product-specific details exactly as shown in the image, including material, color tones, texture, silhouette, and design features. The generated video prompt must reflect the exact same product seen in the image, without stylistic reinterpretation or omission.

The video has two clips:
1. 0 to 4 seconds: a wide shot clearly showcasing the entire product in a lifestyle setting.
2. 4 to 8 seconds: a close-up shot capturing intricate product features.

Describe the setting, the mood and emotion of the scene, lighting and background setup, camera movements, optional music tones, and a final moment idea such as a tagline or fade-out.

Output only the raw scene description suitable for text-to-video generation. Do not include explanations or assistant commentary.`

// ContentPrompt builds the marketing-copy instruction for a product.
// The model must answer with a single JSON object matching GeneratedContent.
func ContentPrompt(title string, price int, description string) string {
	var ctxInfo strings.Builder
	if title != "" {
		fmt.Fprintf(&ctxInfo, "\nProduct Title: %s", title)
	}
	fmt.Fprintf(&ctxInfo, "\nProduct Price: %d", price)
	if description != "" {
		fmt.Fprintf(&ctxInfo, "\nExisting Description: %s", description)
	}

	return fmt.Sprintf(`You are an expert product analyst and social media creator for an online marketplace.

PRODUCT CONTEXT:%s

Analyze this product image and generate complete product content including social media captions. The price is %d. Return ONLY valid JSON in this format:

{
    "category": "main product category",
    "product_name": "detailed product name with colors and style",
    "description": "complete product description with features, benefits and styling tips (DO NOT include price)",
    "size_chart": "size chart as a formatted string based on the category",
    "specifications": "material, pattern, and construction details as a readable string",
    "care_instructions": "usage and care instructions",
    "target_audience": "who this product is for",
    "occasions": "suitable occasions as a readable string",
    "instagram_caption": "engaging Instagram caption with hooks that MUST include the exact price %d",
    "instagram_hashtags": "relevant hashtags for Instagram as a single string",
    "facebook_caption": "detailed Facebook post that tells a story about the product and MUST mention the exact price %d",
    "facebook_hashtags": "relevant hashtags for Facebook as a single string",
    "confidence_score": 0.85
}

Instructions:
1. Create engaging descriptions WITHOUT mentioning price; focus on features, quality and style.
2. Generate appropriate size charts for the product category.
3. Keep Instagram captions visual, trendy and under 150 words.
4. Keep Facebook posts detailed, community-focused and storytelling.
5. Use simple, readable strings that a frontend can display directly.`,
		ctxInfo.String(), price, price, price)
}

// ParseContent extracts the JSON object from a model response and decodes it
// into GeneratedContent. Model output often wraps the object in prose or
// code fences, so the payload is taken from the first '{' to the last '}'.
//
// On decode failure it returns a deterministic fallback built from the
// seller-supplied fields; the second return value reports whether the model
// response parsed cleanly.
func ParseContent(raw, title string, price int) (*product.GeneratedContent, bool) {
	payload := raw
	if start := strings.IndexByte(raw, '{'); start >= 0 {
		if end := strings.LastIndexByte(raw, '}'); end > start {
			payload = raw[start : end+1]
		}
	}

	var content product.GeneratedContent
	if err := json.Unmarshal([]byte(payload), &content); err == nil && content.Description != "" {
		content.DataSource = "vision_analysis"
		if content.ProductName == "" {
			content.ProductName = title
		}
		return &content, true
	}

	return fallbackContent(title, price), false
}

// fallbackContent is the deterministic payload used when the model response
// cannot be parsed. A present-but-generic answer beats an empty record.
func fallbackContent(title string, price int) *product.GeneratedContent {
	name := title
	if name == "" {
		name = "Stylish Product"
	}
	return &product.GeneratedContent{
		Category:          "general",
		ProductName:       name,
		Description:       "Premium quality product with excellent materials and craftsmanship. Perfect for customers who value style and quality.",
		SizeChart:         "Standard sizing - size chart available on request",
		Specifications:    "High quality materials and construction",
		CareInstructions:  "Follow care label instructions",
		TargetAudience:    "Fashion-conscious customers",
		Occasions:         "Perfect for daily wear and special occasions",
		InstagramCaption:  fmt.Sprintf("New arrival alert! Get this amazing product at just %d. Perfect for style lovers!", price),
		InstagramHashtags: "#TrendingNow #AffordableStyle #NewArrivals #StyleOnBudget",
		FacebookCaption:   fmt.Sprintf("Check out this fantastic product at just %d! Great quality and even better value.", price),
		FacebookHashtags:  "#OnlineShopping #BestDeals #QualityProducts",
		ConfidenceScore:   0.5,
		DataSource:        "fallback",
	}
}
